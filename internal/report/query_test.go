package report_test

import (
	"reflect"
	"testing"

	"github.com/Nao-Mk2/logpipe/internal/model"
	"github.com/Nao-Mk2/logpipe/internal/report"
)

func newReport() *report.Report {
	return report.Build([]model.LogRecord{
		{Timestamp: "2025-05-20 12:00:01", Level: "ERROR", Message: "Fallo de conexión"},
		{Timestamp: "2025-05-20 12:01:01", Level: "INFO", Message: ""},
		{Timestamp: "2025-05-20 12:02:01", Level: "INFO", Message: "Usuario conectado"},
		{Timestamp: "2025-05-20 12:03:01", Level: "ERROR", Message: "Timeout alcanzado"},
	}, "ERROR")
}

func TestQuery(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		want    any
		wantOK  bool
		wantErr bool
	}{
		{
			name:   "bucket messages",
			expr:   "groups.ERROR[].message",
			want:   []any{"Fallo de conexión", "Timeout alcanzado"},
			wantOK: true,
		},
		{
			name:   "count is a number",
			expr:   "counts.INFO",
			want:   float64(2),
			wantOK: true,
		},
		{
			name:   "filter expression",
			expr:   "sorted[?level=='INFO'].timestamp | [0]",
			want:   "2025-05-20 12:01:01",
			wantOK: true,
		},
		{
			name:   "missing level is not found",
			expr:   "groups.DEBUG",
			wantOK: false,
		},
		{
			name:    "invalid expression",
			expr:    "groups.[",
			wantErr: true,
		},
	}
	r := newReport()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := r.Query(tt.expr)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok mismatch: got %v want %v (value=%v)", ok, tt.wantOK, got)
			}
			if tt.wantOK && !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("value mismatch: got %#v want %#v", got, tt.want)
			}
		})
	}
}

func TestQueryFirst(t *testing.T) {
	tests := []struct {
		name   string
		expr   string
		want   string
		wantOK bool
	}{
		{"first of array", "filtered[].message", "Fallo de conexión", true},
		{"skips empty elements", "groups.INFO[].message", "Usuario conectado", true},
		{"non-string marshaled", "counts", `{"ERROR":2,"INFO":2}`, true},
		{"number", "total", "4", true},
		{"not found", "groups.WARNING[].message", "", false},
	}
	r := newReport()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := r.QueryFirst(tt.expr)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("QueryFirst(%q)=(%q,%v), want (%q,%v)", tt.expr, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string passthrough", "abc", "abc"},
		{"array", []any{"a", "b"}, `["a","b"]`},
		{"number", float64(3), "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := report.FormatValue(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("FormatValue(%v)=%q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
