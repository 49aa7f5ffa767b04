// Package source supplies the raw-line batch the pipeline runs over.
// Every source reads its input to completion before returning.
package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Source yields one batch of raw log lines.
type Source interface {
	Lines(ctx context.Context) ([]string, error)
}

// Kind names a Source implementation.
type Kind string

const (
	KindSample     Kind = "sample"
	KindFile       Kind = "file"
	KindStdin      Kind = "stdin"
	KindCloudWatch Kind = "cloudwatch"
)

var ErrUnknownSource = errors.New("unknown source")

// ParseKind validates a source name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindSample, KindFile, KindStdin, KindCloudWatch:
		return k, nil
	case "":
		return KindSample, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
}

// Options carries what New needs for any Kind. Only the fields relevant to
// Kind are read.
type Options struct {
	Kind          Kind
	Path          string
	Stdin         io.Reader
	Client        LogsAPI
	Groups        []string
	Start         time.Time
	End           time.Time
	Workers       int
	FilterPattern string
}

// New builds the Source selected by o.Kind.
func New(o Options) (Source, error) {
	switch o.Kind {
	case KindSample, "":
		return Sample(), nil
	case KindFile:
		if o.Path == "" {
			return nil, errors.New("file source requires a path")
		}
		return File(o.Path), nil
	case KindStdin:
		if o.Stdin == nil {
			return nil, errors.New("stdin source requires a reader")
		}
		return Reader(o.Stdin), nil
	case KindCloudWatch:
		if o.Client == nil {
			return nil, errors.New("cloudwatch source requires a client")
		}
		cw := CloudWatch(o.Client, o.Groups, o.Start, o.End)
		cw.SetWorkers(o.Workers)
		cw.SetFilterPattern(o.FilterPattern)
		return cw, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSource, o.Kind)
}

var sampleLines = []string{
	"2025-05-20 12:00:01 ERROR Fallo de conexión",
	"2025-05-20 12:01:01 INFO Usuario conectado",
	"2025-05-20 12:02:01 WARNING Memoria alta",
	"2025-05-20 12:03:01 ERROR Timeout alcanzado",
	"2025-05-20 12:04:01 DEBUG Señal recibida",
	"2025-05-20 12:05:01 INFO Proceso terminado",
}

type sampleSource struct{}

// Sample returns the fixed demo batch.
func Sample() Source { return sampleSource{} }

func (sampleSource) Lines(context.Context) ([]string, error) {
	out := make([]string, len(sampleLines))
	copy(out, sampleLines)
	return out, nil
}

type readerSource struct{ r io.Reader }

// Reader returns a Source that reads newline-separated lines from r.
func Reader(r io.Reader) Source { return readerSource{r: r} }

func (s readerSource) Lines(ctx context.Context) ([]string, error) {
	return readLines(ctx, s.r)
}

// readLines splits r into lines. Trailing blank lines are dropped; blank lines
// in the middle are kept so the parser's error policy sees them.
func readLines(ctx context.Context, r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lines []string
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}
