package report

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Nao-Mk2/logpipe/internal/model"
	"github.com/Nao-Mk2/logpipe/internal/pipeline"
)

// Operation names one derived view of the batch.
type Operation string

const (
	OpFilter Operation = "filter"
	OpCount  Operation = "count"
	OpSort   Operation = "sort"
	OpGroup  Operation = "group"
)

// AllOperations lists every view in render order.
var AllOperations = Operations{OpFilter, OpCount, OpSort, OpGroup}

var (
	ErrUnknownOperation = errors.New("unknown operation")
	ErrUnknownFormat    = errors.New("unknown output format")
)

// Operations is a set of selected views. An empty set selects all of them.
type Operations []Operation

// Has reports whether op is selected.
func (ops Operations) Has(op Operation) bool {
	if len(ops) == 0 {
		return true
	}
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

// ParseOperations turns "filter,count" into Operations, trimming empties and
// rejecting unknown names. The result is in render order without duplicates.
func ParseOperations(csv string) (Operations, error) {
	seen := make(map[Operation]bool)
	for _, s := range strings.Split(csv, ",") {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		op := Operation(s)
		if !AllOperations.Has(op) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, s)
		}
		seen[op] = true
	}
	var ops Operations
	for _, op := range AllOperations {
		if seen[op] {
			ops = append(ops, op)
		}
	}
	return ops, nil
}

// Format selects how a Report is written.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Report holds the four derived views of one parsed batch.
type Report struct {
	Level    string                       `json:"level"`
	Total    int                          `json:"total"`
	Filtered []model.LogRecord            `json:"filtered"`
	Counts   map[string]int               `json:"counts"`
	Sorted   []model.LogRecord            `json:"sorted"`
	Groups   map[string][]model.LogRecord `json:"groups"`
}

// Build runs every pipeline operation over records. Each operation sees the
// full, unmodified batch.
func Build(records []model.LogRecord, level string) *Report {
	if level == "" {
		level = pipeline.DefaultLevel
	}
	return &Report{
		Level:    level,
		Total:    len(records),
		Filtered: pipeline.FilterByLevel(records, level),
		Counts:   pipeline.CountByLevel(records),
		Sorted:   pipeline.SortByTimestamp(records),
		Groups:   pipeline.GroupByLevel(records),
	}
}

// View returns the selected parts of the report keyed by their JSON names.
func (r *Report) View(ops Operations) map[string]any {
	v := map[string]any{
		"level": r.Level,
		"total": r.Total,
	}
	if ops.Has(OpFilter) {
		v["filtered"] = r.Filtered
	}
	if ops.Has(OpCount) {
		v["counts"] = r.Counts
	}
	if ops.Has(OpSort) {
		v["sorted"] = r.Sorted
	}
	if ops.Has(OpGroup) {
		v["groups"] = r.Groups
	}
	return v
}

// Write renders the selected views in the given format.
func (r *Report) Write(w io.Writer, format Format, ops Operations, pretty bool) error {
	switch format {
	case FormatText, "":
		return r.WriteText(w, ops)
	case FormatJSON:
		return r.WriteJSON(w, ops, pretty)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// WriteText prints the selected views as plain text sections.
func (r *Report) WriteText(w io.Writer, ops Operations) error {
	bw := bufio.NewWriter(w)
	first := true
	section := func(title string) {
		if !first {
			fmt.Fprintln(bw)
		}
		first = false
		fmt.Fprintln(bw, title)
	}

	if ops.Has(OpFilter) {
		section(fmt.Sprintf("Filtered by level %s:", r.Level))
		for _, rec := range r.Filtered {
			fmt.Fprintln(bw, rec.String())
		}
	}
	if ops.Has(OpCount) {
		section("Count by level:")
		for _, lvl := range pipeline.Levels(r.Counts) {
			fmt.Fprintf(bw, "%s: %d\n", lvl, r.Counts[lvl])
		}
	}
	if ops.Has(OpSort) {
		section("Sorted by timestamp:")
		for _, rec := range r.Sorted {
			fmt.Fprintln(bw, rec.String())
		}
	}
	if ops.Has(OpGroup) {
		section("Grouped by level:")
		for _, lvl := range pipeline.Levels(r.Groups) {
			fmt.Fprintf(bw, "%s: %d entries\n", lvl, len(r.Groups[lvl]))
		}
	}
	return bw.Flush()
}

// WriteJSON encodes the selected views as one JSON object.
func (r *Report) WriteJSON(w io.Writer, ops Operations, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(r.View(ops)); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
