package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

const (
	rootPath = "(root)"

	// largest magnitude a float64 holds without losing integer precision
	maxExactFloat = 1 << 53
)

type object map[string]json.RawMessage

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// asObject reports false for anything that is not a JSON object, including
// null and missing values.
func asObject(raw json.RawMessage) (object, bool) {
	if isNull(raw) {
		return nil, false
	}
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, false
	}
	return o, true
}

// elements splits a JSON array. null counts as an empty array.
func elements(raw json.RawMessage) ([]json.RawMessage, bool) {
	if isNull(raw) {
		return nil, true
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

func join(path, field string) string {
	switch {
	case path == "":
		return field
	case field == "":
		return path
	}
	return path + "." + field
}

func index(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}

func number(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return f, true
}

func integral(f float64) bool {
	return !math.IsInf(f, 0) && f == math.Trunc(f)
}

// integer reads a JSON number as an int64 without routing plain integer
// literals through float64. msg is empty on success.
func integer(raw json.RawMessage) (n int64, msg string) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || (trimmed[0] != '-' && (trimmed[0] < '0' || trimmed[0] > '9')) {
		return 0, "expected number"
	}
	var num json.Number
	if err := json.Unmarshal(trimmed, &num); err != nil {
		return 0, "expected number"
	}
	if n, err := strconv.ParseInt(num.String(), 10, 64); err == nil {
		return n, ""
	}
	// 1.0 and 1e3 are still whole numbers
	f, err := num.Float64()
	if err != nil || !integral(f) || math.Abs(f) > maxExactFloat {
		return 0, "expected integer"
	}
	return int64(f), ""
}

// checker collects issues for required fields of a single entity.
type checker struct {
	path   string
	issues []Issue
}

func (c *checker) fail(field, msg string) {
	p := join(c.path, field)
	if p == "" {
		p = rootPath
	}
	c.issues = append(c.issues, Issue{Path: p, Message: msg})
}

func (c *checker) err(entity string) error {
	if len(c.issues) == 0 {
		return nil
	}
	return &ValidationError{Entity: entity, Issues: c.issues}
}

func (c *checker) requiredInt64(o object, key string) int64 {
	raw, ok := o[key]
	if !ok || isNull(raw) {
		c.fail(key, "required")
		return 0
	}
	n, msg := integer(raw)
	if msg != "" {
		c.fail(key, msg)
		return 0
	}
	return n
}

func (c *checker) requiredInt(o object, key string) int {
	return int(c.requiredInt64(o, key))
}

func (c *checker) requiredFloat(o object, key string) float64 {
	raw, ok := o[key]
	if !ok || isNull(raw) {
		c.fail(key, "required")
		return 0
	}
	f, ok := number(raw)
	if !ok {
		c.fail(key, "expected number")
		return 0
	}
	return f
}

func (c *checker) requiredString(o object, key string) string {
	raw, ok := o[key]
	if !ok || isNull(raw) {
		c.fail(key, "required")
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		c.fail(key, "expected string")
		return ""
	}
	return s
}

// Optional readers: absent, null and mistyped values all come back as nil.

func optionalString(o object, key string) *string {
	raw, ok := o[key]
	if !ok || isNull(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

func optionalFloat(o object, key string) *float64 {
	raw, ok := o[key]
	if !ok || isNull(raw) {
		return nil
	}
	f, ok := number(raw)
	if !ok {
		return nil
	}
	return &f
}

func optionalInt64(o object, key string) *int64 {
	raw, ok := o[key]
	if !ok || isNull(raw) {
		return nil
	}
	n, msg := integer(raw)
	if msg != "" {
		return nil
	}
	return &n
}

func optionalInt(o object, key string) *int {
	n := optionalInt64(o, key)
	if n == nil {
		return nil
	}
	i := int(*n)
	return &i
}

func optionalBool(o object, key string) *bool {
	raw, ok := o[key]
	if !ok || isNull(raw) {
		return nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil
	}
	return &b
}
