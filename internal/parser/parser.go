package parser

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/Nao-Mk2/logpipe/internal/model"
)

// ErrMalformedLog matches every *MalformedLogError via errors.Is.
var ErrMalformedLog = errors.New("malformed log line")

// MalformedLogError reports a raw line that lacks the date, time and level fields.
type MalformedLogError struct {
	Line     string
	Segments int
}

func (e *MalformedLogError) Error() string {
	return fmt.Sprintf("malformed log line %q: want at least 3 fields, got %d", e.Line, e.Segments)
}

func (e *MalformedLogError) Is(target error) bool { return target == ErrMalformedLog }

// Parse turns "DATE TIME LEVEL MESSAGE" into a LogRecord. The line is split on
// whitespace into at most four segments so the message keeps its inner spacing.
func Parse(line string) (model.LogRecord, error) {
	rest := strings.TrimSpace(line)
	var segs [3]string
	for i := range segs {
		if rest == "" {
			return model.LogRecord{}, &MalformedLogError{Line: line, Segments: i}
		}
		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			segs[i], rest = rest, ""
			continue
		}
		segs[i] = rest[:end]
		rest = strings.TrimLeftFunc(rest[end:], unicode.IsSpace)
	}
	return model.LogRecord{
		Timestamp: segs[0] + " " + segs[1],
		Level:     segs[2],
		Message:   rest,
	}, nil
}

// Policy decides what ParseAll does with a malformed line.
type Policy int

const (
	// FailFast stops at the first malformed line.
	FailFast Policy = iota
	// SkipInvalid drops malformed lines and reports them as LineErrors.
	SkipInvalid
)

func (p Policy) String() string {
	switch p {
	case FailFast:
		return "fail"
	case SkipInvalid:
		return "skip"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy maps "fail" or "skip" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fail", "fail-fast", "":
		return FailFast, nil
	case "skip", "skip-invalid":
		return SkipInvalid, nil
	}
	return FailFast, fmt.Errorf("unknown error policy %q; expected fail or skip", s)
}

// LineError ties a parse error to its 1-based line number in the batch.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *LineError) Unwrap() error { return e.Err }

// ParseAll parses every line in order.
// Under FailFast it returns the records parsed before the first malformed line
// together with a *LineError. Under SkipInvalid the error is always nil and
// every rejected line is listed in the returned LineErrors.
func ParseAll(lines []string, policy Policy) ([]model.LogRecord, []LineError, error) {
	records := make([]model.LogRecord, 0, len(lines))
	var skipped []LineError
	for i, line := range lines {
		rec, err := Parse(line)
		if err != nil {
			le := LineError{Line: i + 1, Err: err}
			if policy == FailFast {
				return records, nil, &le
			}
			skipped = append(skipped, le)
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}
