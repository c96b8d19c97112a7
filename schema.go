package traffic

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Schema validates a raw input value and returns the validated (possibly
// converted) value. Failures are reported as a *SchemaError carrying the
// full list of field issues.
type Schema interface {
	Parse(value any) (any, error)
}

// FieldIssue describes a single field validation failure.
type FieldIssue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// SchemaError is the structured error returned by Schema.Parse.
type SchemaError struct {
	Issues []FieldIssue
}

// Error joins all field issues into a single message.
func (e *SchemaError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Issues))
	for i, iss := range e.Issues {
		if iss.Path == "" {
			parts[i] = iss.Message
			continue
		}
		parts[i] = iss.Path + ": " + iss.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func schemaErr(path, message string, value any) error {
	return &SchemaError{Issues: []FieldIssue{{Path: path, Message: message, Value: value}}}
}

// prefixIssues rebases issue paths under a parent field name.
func prefixIssues(name string, err *SchemaError) []FieldIssue {
	out := make([]FieldIssue, len(err.Issues))
	for i, iss := range err.Issues {
		path := name
		if iss.Path != "" {
			path = name + "." + iss.Path
		}
		out[i] = FieldIssue{Path: path, Message: iss.Message, Value: iss.Value}
	}
	return out
}

// AnyString is the sentinel schema that accepts any raw string unchanged.
// Declaring a param, query, or header field with AnyString skips the schema
// engine entirely for that field.
var AnyString Schema = anyString{}

type anyString struct{}

func (anyString) Parse(value any) (any, error) { return value, nil }

// StringSchema validates string values.
type StringSchema struct {
	minLen  int
	maxLen  int
	pattern *regexp.Regexp
	enum    []string
}

// String returns a schema accepting any string; chain constraints onto it.
func String() *StringSchema { return &StringSchema{maxLen: -1} }

// Min sets the minimum length in bytes.
func (s *StringSchema) Min(n int) *StringSchema { s.minLen = n; return s }

// Max sets the maximum length in bytes.
func (s *StringSchema) Max(n int) *StringSchema { s.maxLen = n; return s }

// Pattern requires the value to match the given regular expression.
// The expression must compile; a bad pattern is a declaration defect.
func (s *StringSchema) Pattern(expr string) *StringSchema {
	s.pattern = regexp.MustCompile(expr)
	return s
}

// Enum restricts the value to the given set.
func (s *StringSchema) Enum(values ...string) *StringSchema { s.enum = values; return s }

// Parse implements Schema.
func (s *StringSchema) Parse(value any) (any, error) {
	str, ok := value.(string)
	if !ok {
		return nil, schemaErr("", "expected string", value)
	}
	var issues []FieldIssue
	if len(str) < s.minLen {
		issues = append(issues, FieldIssue{
			Message: fmt.Sprintf("must be at least %d characters", s.minLen),
			Value:   str,
		})
	}
	if s.maxLen >= 0 && len(str) > s.maxLen {
		issues = append(issues, FieldIssue{
			Message: fmt.Sprintf("must be at most %d characters", s.maxLen),
			Value:   str,
		})
	}
	if s.pattern != nil && !s.pattern.MatchString(str) {
		issues = append(issues, FieldIssue{
			Message: fmt.Sprintf("must match pattern %s", s.pattern.String()),
			Value:   str,
		})
	}
	if len(s.enum) > 0 {
		found := false
		for _, v := range s.enum {
			if v == str {
				found = true
				break
			}
		}
		if !found {
			issues = append(issues, FieldIssue{
				Message: fmt.Sprintf("must be one of [%s]", strings.Join(s.enum, ",")),
				Value:   str,
			})
		}
	}
	if len(issues) > 0 {
		return nil, &SchemaError{Issues: issues}
	}
	return str, nil
}

// NumberSchema validates numeric values. Raw strings (path and query params
// arrive as strings) are parsed as base-10 floats.
type NumberSchema struct {
	hasMin bool
	hasMax bool
	min    float64
	max    float64
	ints   bool
}

// Number returns a schema accepting any finite number.
func Number() *NumberSchema { return &NumberSchema{} }

// Min sets the inclusive lower bound.
func (s *NumberSchema) Min(n float64) *NumberSchema { s.hasMin, s.min = true, n; return s }

// Max sets the inclusive upper bound.
func (s *NumberSchema) Max(n float64) *NumberSchema { s.hasMax, s.max = true, n; return s }

// Int requires the value to be a whole number.
func (s *NumberSchema) Int() *NumberSchema { s.ints = true; return s }

// Parse implements Schema.
func (s *NumberSchema) Parse(value any) (any, error) {
	var n float64
	switch v := value.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, schemaErr("", "expected number, received string", v)
		}
		n = parsed
	default:
		return nil, schemaErr("", "expected number", value)
	}
	var issues []FieldIssue
	if s.ints && n != float64(int64(n)) {
		issues = append(issues, FieldIssue{Message: "must be an integer", Value: n})
	}
	if s.hasMin && n < s.min {
		issues = append(issues, FieldIssue{
			Message: fmt.Sprintf("must be at least %s", strconv.FormatFloat(s.min, 'f', -1, 64)),
			Value:   n,
		})
	}
	if s.hasMax && n > s.max {
		issues = append(issues, FieldIssue{
			Message: fmt.Sprintf("must be at most %s", strconv.FormatFloat(s.max, 'f', -1, 64)),
			Value:   n,
		})
	}
	if len(issues) > 0 {
		return nil, &SchemaError{Issues: issues}
	}
	return n, nil
}

// BoolSchema validates booleans. Raw strings are parsed with strconv.ParseBool.
type BoolSchema struct{}

// Bool returns a schema accepting a boolean.
func Bool() *BoolSchema { return &BoolSchema{} }

// Parse implements Schema.
func (s *BoolSchema) Parse(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, schemaErr("", "expected boolean", v)
		}
		return b, nil
	default:
		return nil, schemaErr("", "expected boolean", value)
	}
}

// ObjectSchema validates a map of named fields. Unknown fields are dropped.
type ObjectSchema struct {
	fields   map[string]Schema
	required map[string]bool
}

// Object returns a schema validating the given named fields. All fields are
// optional until marked with Require.
func Object(fields map[string]Schema) *ObjectSchema {
	return &ObjectSchema{fields: fields, required: make(map[string]bool)}
}

// Require marks the named fields as mandatory.
func (s *ObjectSchema) Require(names ...string) *ObjectSchema {
	for _, n := range names {
		s.required[n] = true
	}
	return s
}

// Parse implements Schema.
func (s *ObjectSchema) Parse(value any) (any, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, schemaErr("", "expected object", value)
	}

	names := make([]string, 0, len(s.fields))
	for name := range s.fields {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]any, len(s.fields))
	var issues []FieldIssue
	for _, name := range names {
		raw, present := m[name]
		if !present {
			if s.required[name] {
				issues = append(issues, FieldIssue{Path: name, Message: "required"})
			}
			continue
		}
		parsed, err := s.fields[name].Parse(raw)
		if err != nil {
			var serr *SchemaError
			if errors.As(err, &serr) {
				issues = append(issues, prefixIssues(name, serr)...)
			} else {
				issues = append(issues, FieldIssue{Path: name, Message: err.Error(), Value: raw})
			}
			continue
		}
		out[name] = parsed
	}
	if len(issues) > 0 {
		return nil, &SchemaError{Issues: issues}
	}
	return out, nil
}

// ArraySchema validates a slice with a uniform element schema.
type ArraySchema struct {
	elem     Schema
	minItems int
	maxItems int
}

// Array returns a schema validating each element against elem.
func Array(elem Schema) *ArraySchema { return &ArraySchema{elem: elem, maxItems: -1} }

// Min sets the minimum element count.
func (s *ArraySchema) Min(n int) *ArraySchema { s.minItems = n; return s }

// Max sets the maximum element count.
func (s *ArraySchema) Max(n int) *ArraySchema { s.maxItems = n; return s }

// Parse implements Schema.
func (s *ArraySchema) Parse(value any) (any, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, schemaErr("", "expected array", value)
	}
	var issues []FieldIssue
	if len(items) < s.minItems {
		issues = append(issues, FieldIssue{
			Message: fmt.Sprintf("must have at least %d items", s.minItems),
			Value:   len(items),
		})
	}
	if s.maxItems >= 0 && len(items) > s.maxItems {
		issues = append(issues, FieldIssue{
			Message: fmt.Sprintf("must have at most %d items", s.maxItems),
			Value:   len(items),
		})
	}
	out := make([]any, 0, len(items))
	for i, raw := range items {
		parsed, err := s.elem.Parse(raw)
		if err != nil {
			var serr *SchemaError
			if errors.As(err, &serr) {
				issues = append(issues, prefixIssues(strconv.Itoa(i), serr)...)
			} else {
				issues = append(issues, FieldIssue{Path: strconv.Itoa(i), Message: err.Error(), Value: raw})
			}
			continue
		}
		out = append(out, parsed)
	}
	if len(issues) > 0 {
		return nil, &SchemaError{Issues: issues}
	}
	return out, nil
}
