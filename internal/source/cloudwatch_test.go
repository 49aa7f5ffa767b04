package source

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

// fakeLogsAPI serves one queued page per call for each group.
type fakeLogsAPI struct {
	mu         sync.Mutex
	pages      map[string][]*cloudwatchlogs.FilterLogEventsOutput
	errByGroup map[string]error
	inputs     []*cloudwatchlogs.FilterLogEventsInput
}

func (f *fakeLogsAPI) FilterLogEvents(ctx context.Context, in *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	g := aws.ToString(in.LogGroupName)
	if err := f.errByGroup[g]; err != nil {
		return nil, err
	}
	pages := f.pages[g]
	if len(pages) == 0 {
		return &cloudwatchlogs.FilterLogEventsOutput{}, nil
	}
	f.pages[g] = pages[1:]
	return pages[0], nil
}

func event(ts int64, stream, msg string) types.FilteredLogEvent {
	return types.FilteredLogEvent{Timestamp: aws.Int64(ts), LogStreamName: aws.String(stream), Message: aws.String(msg)}
}

func TestCloudWatchLinesAcrossGroups(t *testing.T) {
	g1, g2 := "/aws/app/one", "/aws/app/two"
	f := &fakeLogsAPI{pages: map[string][]*cloudwatchlogs.FilterLogEventsOutput{
		g1: {
			{Events: []types.FilteredLogEvent{event(2000, "s1", "2025-05-20 12:00:02 INFO b\n")}, NextToken: aws.String("A")},
			{Events: []types.FilteredLogEvent{event(4000, "s1", "2025-05-20 12:00:04 INFO d")}, NextToken: aws.String("A")},
		},
		g2: {
			{Events: []types.FilteredLogEvent{
				event(1000, "s2", "2025-05-20 12:00:01 ERROR a"),
				event(2000, "s0", "2025-05-20 12:00:02 WARNING c"),
			}},
		},
	}}

	start := time.UnixMilli(0)
	end := time.UnixMilli(10_000)
	src := CloudWatch(f, []string{g1, g2}, start, end)
	src.SetWorkers(4)
	src.SetFilterPattern("12:00")
	lines, err := src.Lines(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"2025-05-20 12:00:01 ERROR a",
		"2025-05-20 12:00:02 INFO b",
		"2025-05-20 12:00:02 WARNING c",
		"2025-05-20 12:00:04 INFO d",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("lines=%q, want %q", lines, want)
	}
	if len(f.inputs) != 3 {
		t.Fatalf("FilterLogEvents calls=%d, want 3", len(f.inputs))
	}
	for _, in := range f.inputs {
		if aws.ToString(in.FilterPattern) != "12:00" {
			t.Fatalf("FilterPattern=%q, want 12:00", aws.ToString(in.FilterPattern))
		}
		if aws.ToInt64(in.StartTime) != 0 || aws.ToInt64(in.EndTime) != 10_000 {
			t.Fatalf("Start/End=(%d,%d)", aws.ToInt64(in.StartTime), aws.ToInt64(in.EndTime))
		}
	}
}

func TestCloudWatchNoFilterPattern(t *testing.T) {
	f := &fakeLogsAPI{pages: map[string][]*cloudwatchlogs.FilterLogEventsOutput{}}
	lines, err := CloudWatch(f, []string{"g"}, time.Now().Add(-time.Hour), time.Now()).Lines(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("lines=%v, want none", lines)
	}
	if len(f.inputs) != 1 || f.inputs[0].FilterPattern != nil {
		t.Fatalf("expected a single call without filter pattern, got %+v", f.inputs)
	}
}

func TestCloudWatchErrors(t *testing.T) {
	t.Run("no groups", func(t *testing.T) {
		if _, err := CloudWatch(&fakeLogsAPI{}, nil, time.Now(), time.Now()).Lines(context.Background()); err == nil {
			t.Fatalf("expected error when no groups configured")
		}
	})
	t.Run("api error", func(t *testing.T) {
		boom := errors.New("boom")
		f := &fakeLogsAPI{
			pages:      map[string][]*cloudwatchlogs.FilterLogEventsOutput{},
			errByGroup: map[string]error{"bad": boom},
		}
		src := CloudWatch(f, []string{"ok", "bad"}, time.Now().Add(-time.Hour), time.Now())
		src.SetWorkers(2)
		if _, err := src.Lines(context.Background()); !errors.Is(err, boom) {
			t.Fatalf("error=%v, want boom", err)
		}
	})
}

func TestNewCloudWatchOptions(t *testing.T) {
	tests := []struct {
		name    string
		options AuthOptions
		env     map[string]string
		wantLen int
	}{
		{"no region or profile", AuthOptions{}, map[string]string{}, 0},
		{"with region", AuthOptions{Region: "us-east-1"}, map[string]string{}, 1},
		{"with profile flag", AuthOptions{Profile: "my-profile"}, map[string]string{}, 1},
		{"with AWS_PROFILE env", AuthOptions{}, map[string]string{"AWS_PROFILE": "env-profile"}, 1},
		{"with static creds", AuthOptions{}, map[string]string{"AWS_ACCESS_KEY_ID": "key", "AWS_SECRET_ACCESS_KEY": "secret"}, 1},
		{"partial static creds ignored", AuthOptions{}, map[string]string{"AWS_ACCESS_KEY_ID": "key"}, 0},
		{"profile overrides static creds", AuthOptions{Profile: "p"}, map[string]string{"AWS_ACCESS_KEY_ID": "key", "AWS_SECRET_ACCESS_KEY": "secret"}, 1},
		{"region and static creds", AuthOptions{Region: "us-west-2"}, map[string]string{"AWS_ACCESS_KEY_ID": "key", "AWS_SECRET_ACCESS_KEY": "secret"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"AWS_PROFILE", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY"} {
				t.Setenv(k, tt.env[k])
			}
			if got := NewCloudWatchOptions(tt.options); len(got) != tt.wantLen {
				t.Fatalf("NewCloudWatchOptions() returned %d options, want %d", len(got), tt.wantLen)
			}
		})
	}
}
