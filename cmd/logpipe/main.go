package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nao-Mk2/logpipe/cmd"
	"github.com/Nao-Mk2/logpipe/internal/config"
	"github.com/Nao-Mk2/logpipe/internal/logger"
	"github.com/Nao-Mk2/logpipe/internal/parser"
	"github.com/Nao-Mk2/logpipe/internal/report"
	"github.com/Nao-Mk2/logpipe/internal/source"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: logpipe [--source sample|file|stdin|cloudwatch] [--file path] [--level ERROR] [--ops filter,count,sort,group] [--on-error fail|skip] [--format text|json] [--query JMESPath]")
	fmt.Fprintln(os.Stderr, "Environment: LOGPIPE_* provides defaults (also read from .env); LOG_GROUP_NAMES and AWS credentials for --source cloudwatch.")
	os.Exit(2)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}

	// Parse flags/env and validate relationships
	opts := cmd.CollectOptions(cfg)
	if msg, code := opts.Validate(); code != 0 {
		fmt.Fprintln(os.Stderr, msg)
		usage()
	}

	log, err := logger.New(os.Stderr, opts.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: --log-level: %v\n", err)
		os.Exit(2)
	}

	ctx := context.Background()
	src, err := buildSource(ctx, opts)
	if err != nil {
		log.Error().Err(err).Msg("failed to set up source")
		os.Exit(1)
	}

	lines, err := src.Lines(ctx)
	if err != nil {
		log.Error().Err(err).Str("source", opts.Source).Msg("failed to load log lines")
		os.Exit(1)
	}
	log.Debug().Int("lines", len(lines)).Str("source", opts.Source).Msg("batch loaded")

	// Validated above, errors cannot occur here.
	policy, _ := parser.ParsePolicy(opts.OnError)
	ops, _ := report.ParseOperations(opts.Ops)
	format, _ := report.ParseFormat(opts.Format)

	records, skipped, err := parser.ParseAll(lines, policy)
	for _, le := range skipped {
		log.Warn().Int("line", le.Line).Err(le.Err).Msg("skipping malformed log line")
	}
	if err != nil {
		log.Error().Err(err).Msg("parse failed; rerun with --on-error skip to drop malformed lines")
		os.Exit(1)
	}
	log.Debug().Int("records", len(records)).Int("skipped", len(skipped)).Msg("batch parsed")

	rep := report.Build(records, opts.Level)

	if opts.Query != "" {
		os.Exit(runQuery(log, rep, opts))
	}

	if err := rep.Write(os.Stdout, format, ops, opts.PrettyJSON); err != nil {
		log.Error().Err(err).Msg("failed to write report")
		os.Exit(1)
	}
}

func buildSource(ctx context.Context, opts *cmd.Options) (source.Source, error) {
	kind, err := source.ParseKind(opts.Source)
	if err != nil {
		return nil, err
	}
	so := source.Options{Kind: kind, Path: opts.File, Stdin: os.Stdin}
	if kind != source.KindCloudWatch {
		return source.New(so)
	}

	// Resolve search window: RFC3339 flags or last 24h by default
	start, end, err := cmd.ResolveTimeWindow(opts.StartRFC3339, opts.EndRFC3339, time.Now())
	if err != nil {
		return nil, fmt.Errorf("invalid time window: %w", err)
	}
	cw, err := source.NewCloudWatchClient(ctx, opts.AuthOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create CloudWatch client: %w", err)
	}
	so.Client = cw
	so.Groups = cmd.ParseGroupsCSV(opts.GroupsCSV)
	so.Start, so.End = start, end
	so.Workers = opts.Workers
	so.FilterPattern = opts.FilterPattern
	return source.New(so)
}

// runQuery prints the JMESPath result and returns the exit code.
func runQuery(log zerolog.Logger, rep *report.Report, opts *cmd.Options) int {
	if opts.First {
		v, ok, err := rep.QueryFirst(opts.Query)
		if err != nil {
			log.Error().Err(err).Str("query", opts.Query).Msg("query failed")
			return 1
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "query `%s` matched nothing\n", opts.Query)
			return 3
		}
		fmt.Println(v)
		return 0
	}

	res, ok, err := rep.Query(opts.Query)
	if err != nil {
		log.Error().Err(err).Str("query", opts.Query).Msg("query failed")
		return 1
	}
	if !ok {
		fmt.Fprintf(os.Stderr, "query `%s` matched nothing\n", opts.Query)
		return 3
	}
	if opts.PrettyJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			log.Error().Err(err).Msg("encode error")
			return 1
		}
		return 0
	}
	out, err := report.FormatValue(res)
	if err != nil {
		log.Error().Err(err).Msg("encode error")
		return 1
	}
	fmt.Println(out)
	return 0
}
