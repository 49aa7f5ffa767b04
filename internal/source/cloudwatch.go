package source

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// LogsAPI is the subset of CloudWatch Logs API we use.
type LogsAPI interface {
	FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

// AuthOptions selects the AWS region and credentials.
type AuthOptions struct {
	Region  string
	Profile string
}

// NewCloudWatchOptions builds config load options. A profile from the flag or
// AWS_PROFILE wins over static AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY creds.
func NewCloudWatchOptions(o AuthOptions) []func(*config.LoadOptions) error {
	var cfgOpts []func(*config.LoadOptions) error
	if o.Region != "" {
		cfgOpts = append(cfgOpts, config.WithRegion(o.Region))
	}
	profile := o.Profile
	if profile == "" {
		profile = os.Getenv("AWS_PROFILE")
	}
	key, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	switch {
	case profile != "":
		cfgOpts = append(cfgOpts, config.WithSharedConfigProfile(profile))
	case key != "" && secret != "":
		cfgOpts = append(cfgOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, secret, os.Getenv("AWS_SESSION_TOKEN")),
		))
	}
	return cfgOpts
}

// NewCloudWatchClient loads AWS configuration and returns a CloudWatch Logs client.
func NewCloudWatchClient(ctx context.Context, o AuthOptions) (*cloudwatchlogs.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, NewCloudWatchOptions(o)...)
	if err != nil {
		return nil, err
	}
	return cloudwatchlogs.NewFromConfig(cfg), nil
}

// CloudWatchSource pulls raw lines from one or more CloudWatch log groups.
// Each event message is treated as one raw log line.
type CloudWatchSource struct {
	client        LogsAPI
	groups        []string
	startTime     time.Time
	endTime       time.Time
	workers       int
	filterPattern string
}

// CloudWatch creates a CloudWatchSource reading [start, end] from groups.
func CloudWatch(client LogsAPI, groups []string, start, end time.Time) *CloudWatchSource {
	return &CloudWatchSource{client: client, groups: groups, startTime: start, endTime: end, workers: 1}
}

// SetWorkers bounds how many groups are fetched at once (min 1, max len(groups)).
func (s *CloudWatchSource) SetWorkers(n int) {
	if n <= 0 {
		n = 1
	}
	s.workers = n
}

// SetFilterPattern restricts events server side. Empty fetches everything.
func (s *CloudWatchSource) SetFilterPattern(p string) { s.filterPattern = p }

type cwEvent struct {
	ts      int64
	group   string
	stream  string
	message string
}

// Lines fetches every matching event and returns the messages ordered by
// event time, then group, then stream.
func (s *CloudWatchSource) Lines(ctx context.Context) ([]string, error) {
	if len(s.groups) == 0 {
		return nil, errors.New("no log groups configured")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	startMs := s.startTime.UnixMilli()
	endMs := s.endTime.UnixMilli()

	workers := min(s.workers, len(s.groups))
	groupChan := make(chan string, len(s.groups))
	resultChan := make(chan []cwEvent, len(s.groups))
	errorChan := make(chan error, len(s.groups))

	for _, g := range s.groups {
		groupChan <- g
	}
	close(groupChan)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for group := range groupChan {
				events, err := s.fetchGroup(ctx, group, startMs, endMs)
				if err != nil {
					errorChan <- err
					return
				}
				resultChan <- events
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultChan)
		close(errorChan)
	}()

	var all []cwEvent
	for events := range resultChan {
		all = append(all, events...)
	}
	if err := <-errorChan; err != nil {
		return nil, err
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].ts != all[j].ts {
			return all[i].ts < all[j].ts
		}
		if all[i].group != all[j].group {
			return all[i].group < all[j].group
		}
		return all[i].stream < all[j].stream
	})

	lines := make([]string, 0, len(all))
	for _, e := range all {
		lines = append(lines, e.message)
	}
	return lines, nil
}

// fetchGroup pages through a single log group.
func (s *CloudWatchSource) fetchGroup(ctx context.Context, group string, startMs, endMs int64) ([]cwEvent, error) {
	var events []cwEvent
	var next *string
	for {
		in := &cloudwatchlogs.FilterLogEventsInput{
			LogGroupName: aws.String(group),
			StartTime:    aws.Int64(startMs),
			EndTime:      aws.Int64(endMs),
			NextToken:    next,
		}
		if s.filterPattern != "" {
			in.FilterPattern = aws.String(s.filterPattern)
		}
		out, err := s.client.FilterLogEvents(ctx, in)
		if err != nil {
			return nil, err
		}
		for _, e := range out.Events {
			events = append(events, cwEvent{
				ts:      aws.ToInt64(e.Timestamp),
				group:   group,
				stream:  aws.ToString(e.LogStreamName),
				message: strings.TrimRight(aws.ToString(e.Message), "\r\n"),
			})
		}
		// Stop on a missing token or one that repeats.
		if out.NextToken == nil || (next != nil && aws.ToString(out.NextToken) == aws.ToString(next)) {
			break
		}
		next = out.NextToken
	}
	return events, nil
}
