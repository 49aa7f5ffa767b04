package cmd

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Nao-Mk2/logpipe/internal/config"
	"github.com/Nao-Mk2/logpipe/internal/parser"
	"github.com/Nao-Mk2/logpipe/internal/report"
	"github.com/Nao-Mk2/logpipe/internal/source"
)

// Options holds CLI options after parsing flags and env defaults.
type Options struct {
	Source        string
	File          string
	GroupsCSV     string
	Region        string
	Profile       string
	FilterPattern string
	StartRFC3339  string
	EndRFC3339    string
	Workers       int
	Level         string
	Ops           string
	OnError       string
	Format        string
	PrettyJSON    bool
	Query         string
	First         bool
	LogLevel      string
}

// Validate checks relationships and required flags.
// Returns an error message and exit code; ("", 0) means the options are usable.
func (o *Options) Validate() (string, int) {
	kind, err := source.ParseKind(o.Source)
	if err != nil {
		return fmt.Sprintf("error: --source: %v", err), 2
	}
	if kind == source.KindFile && o.File == "" {
		return "error: --source file requires --file", 2
	}
	if kind == source.KindCloudWatch && len(ParseGroupsCSV(o.GroupsCSV)) == 0 {
		return "error: --source cloudwatch requires --groups or LOG_GROUP_NAMES", 2
	}
	if strings.TrimSpace(o.Level) == "" {
		return "error: --level must not be empty", 2
	}
	if _, err := report.ParseOperations(o.Ops); err != nil {
		return fmt.Sprintf("error: --ops: %v", err), 2
	}
	if _, err := parser.ParsePolicy(o.OnError); err != nil {
		return fmt.Sprintf("error: --on-error: %v", err), 2
	}
	format, err := report.ParseFormat(o.Format)
	if err != nil {
		return fmt.Sprintf("error: --format: %v", err), 2
	}
	if o.PrettyJSON && format != report.FormatJSON && o.Query == "" {
		return "error: --pretty requires --format json or --query", 2
	}
	if o.First && o.Query == "" {
		return "error: --first requires --query", 2
	}
	if CountFlagOccurrences("--query") > 1 {
		return "error: --query specified multiple times", 2
	}
	return "", 0
}

// CollectOptions parses flags with defaults taken from cfg and the environment.
func CollectOptions(cfg *config.Config) *Options {
	if cfg == nil {
		cfg = config.Default()
	}
	o := &Options{}

	groupsCSV := os.Getenv("LOG_GROUP_NAMES")

	flag.StringVar(&o.Source, "source", cfg.Source, "Batch source: sample, file, stdin or cloudwatch")
	flag.StringVar(&o.File, "file", cfg.File, "Log file for --source file (.gz and .zst are decompressed)")
	flag.StringVar(&o.GroupsCSV, "groups", groupsCSV, "Comma-separated CloudWatch log group names")
	flag.StringVar(&o.Region, "region", os.Getenv("AWS_REGION"), "AWS region (optional; falls back to AWS defaults)")
	flag.StringVar(&o.Profile, "profile", "", "AWS shared config profile (or set AWS_PROFILE)")
	flag.StringVar(&o.FilterPattern, "filter-pattern", "", "CloudWatch Logs filter pattern (optional)")
	flag.StringVar(&o.StartRFC3339, "start", "", "Start time RFC3339 (e.g., 2025-08-30T15:04:05Z)")
	flag.StringVar(&o.EndRFC3339, "end", "", "End time RFC3339 (e.g., 2025-08-31T15:04:05Z)")
	flag.IntVar(&o.Workers, "workers", cfg.Workers, "Log groups fetched concurrently")
	flag.StringVar(&o.Level, "level", cfg.Level, "Level selected by the filter view (case-sensitive)")
	flag.StringVar(&o.Ops, "ops", cfg.Ops, "Comma-separated views: filter,count,sort,group (default all)")
	flag.StringVar(&o.OnError, "on-error", cfg.OnError, "Malformed line policy: fail or skip")
	flag.StringVar(&o.Format, "format", cfg.Format, "Output format: text or json")
	flag.BoolVar(&o.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	flag.StringVar(&o.Query, "query", "", "JMESPath evaluated against the JSON report (single occurrence)")
	flag.BoolVar(&o.First, "first", false, "Print only the first non-empty value of --query")
	flag.StringVar(&o.LogLevel, "log-level", cfg.LogLevel, "Diagnostic log level: trace, debug, info, warn, error, disabled")
	flag.Parse()

	return o
}

// AuthOptions returns the AWS settings for the CloudWatch source.
func (o *Options) AuthOptions() source.AuthOptions {
	return source.AuthOptions{Region: o.Region, Profile: ResolveProfile(o.Profile)}
}

// ParseGroupsCSV turns a comma-separated groups string into slice, trimming empties.
func ParseGroupsCSV(csv string) []string {
	if csv == "" {
		return nil
	}
	var groups []string
	for _, g := range strings.Split(csv, ",") {
		g = strings.TrimSpace(g)
		if g != "" {
			groups = append(groups, g)
		}
	}
	return groups
}

// ResolveProfile returns the profile from flag or AWS_PROFILE env, or empty.
func ResolveProfile(flagProfile string) string {
	if flagProfile != "" {
		return flagProfile
	}
	return os.Getenv("AWS_PROFILE")
}

// ResolveTimeWindow computes the [start,end] from optional RFC3339 strings.
// Rules:
// - both empty: last 24h ending at now
// - only start: end = now
// - only end: start = end - 24h
// - both set: validate start <= end
func ResolveTimeWindow(startStr, endStr string, now time.Time) (time.Time, time.Time, error) {
	if startStr == "" && endStr == "" {
		return now.Add(-24 * time.Hour), now, nil
	}
	var start time.Time
	var end time.Time
	var err error
	if startStr != "" {
		start, err = time.Parse(time.RFC3339, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if endStr != "" {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if startStr != "" && endStr == "" {
		end = now
	} else if startStr == "" && endStr != "" {
		start = end.Add(-24 * time.Hour)
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, ErrStartAfterEnd
	}
	return start, end, nil
}

// ErrStartAfterEnd represents an invalid time window where start > end.
var ErrStartAfterEnd = &timeRangeError{"start is after end"}

type timeRangeError struct{ s string }

func (e *timeRangeError) Error() string { return e.s }

// CountFlagOccurrences counts how many times a long flag (e.g., "--query") appears
// considering both "--flag value" and "--flag=value" forms.
func CountFlagOccurrences(flagName string) int {
	count := 0
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == flagName {
			count++
			// Skip value if present and not another flag
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
			}
			continue
		}
		if strings.HasPrefix(a, flagName+"=") {
			count++
			continue
		}
	}
	return count
}
