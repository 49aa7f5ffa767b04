package report

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/jmespath/go-jmespath"
)

// Query evaluates a JMESPath expression against the JSON view of the full
// report, e.g. "groups.ERROR[].message" or "counts.WARNING".
// Returns (result, true, nil) on a non-empty result; (nil, false, nil) if the
// expression matched nothing; or an error for an invalid expression.
func (r *Report) Query(expr string) (any, bool, error) {
	// Round-trip through JSON so JMESPath sees the same field names as --format json.
	raw, err := json.Marshal(r.View(AllOperations))
	if err != nil {
		return nil, false, fmt.Errorf("marshal report failed: %w", err)
	}
	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, false, fmt.Errorf("decode report failed: %w", err)
	}
	res, err := jmespath.Search(expr, input)
	if err != nil {
		return nil, false, fmt.Errorf("jmespath search failed: %w", err)
	}
	if isEmpty(res) {
		return nil, false, nil
	}
	return res, true, nil
}

// QueryFirst is Query narrowed to one value: array results yield their first
// non-empty element, rendered with FormatValue.
func (r *Report) QueryFirst(expr string) (string, bool, error) {
	res, ok, err := r.Query(expr)
	if err != nil || !ok {
		return "", false, err
	}
	rv := reflect.ValueOf(res)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		found := false
		for i := 0; i < rv.Len(); i++ {
			if el := rv.Index(i).Interface(); !isEmpty(el) {
				res, found = el, true
				break
			}
		}
		if !found {
			return "", false, nil
		}
	}
	s, err := FormatValue(res)
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

// FormatValue renders strings as-is and anything else as compact JSON.
func FormatValue(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", fmt.Errorf("marshal query result failed: %w", err)
		}
		return string(b), nil
	}
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	}
	return false
}
