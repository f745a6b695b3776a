package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// The backend is inconsistent about casing and scalar encoding. The flex types below accept
// the shapes observed on the wire and report whether a usable value was present.

// flexString accepts a JSON string or number.
type flexString struct {
	Value string
	Set   bool
}

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f.Value, f.Set = s, true
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		// objects and arrays are not strings; ignore rather than failing the whole record
		return nil
	}
	f.Value, f.Set = n.String(), true
	return nil
}

// flexInt accepts a JSON number or a numeric string. Values outside the int range are ignored.
type flexInt struct {
	Value int
	Set   bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var fl flexFloat
	if err := fl.UnmarshalJSON(data); err != nil {
		return err
	}
	if !fl.Set {
		return nil
	}
	rounded := math.Round(fl.Value)
	if rounded < float64(math.MinInt) || rounded >= float64(math.MaxInt) {
		return nil
	}
	f.Value, f.Set = int(rounded), true
	return nil
}

// flexFloat accepts a JSON number or a numeric string.
type flexFloat struct {
	Value float64
	Set   bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			return nil
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	f.Value, f.Set = v, true
	return nil
}

// flexTime accepts RFC3339 timestamps, naive timestamps and plain dates.
type flexTime struct {
	Value time.Time
	Set   bool
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (f *flexTime) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if !s.Set {
		return nil
	}
	if t, ok := ParseTime(s.Value); ok {
		f.Value, f.Set = t, true
	}
	return nil
}

// ParseTime parses the date formats the backend emits.
func ParseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func firstString(values ...flexString) string {
	for _, v := range values {
		if v.Set && strings.TrimSpace(v.Value) != "" {
			return strings.TrimSpace(v.Value)
		}
	}
	return ""
}

func firstInt(fallback int, values ...flexInt) int {
	for _, v := range values {
		if v.Set {
			return v.Value
		}
	}
	return fallback
}

func firstFloat(fallback float64, values ...flexFloat) float64 {
	for _, v := range values {
		if v.Set {
			return v.Value
		}
	}
	return fallback
}

func firstTime(values ...flexTime) (time.Time, bool) {
	for _, v := range values {
		if v.Set {
			return v.Value, true
		}
	}
	return time.Time{}, false
}

func optionalString(values ...flexString) *string {
	if s := firstString(values...); s != "" {
		return &s
	}
	return nil
}

// listKeys are the envelope keys tried, in order, when a list is wrapped in an object.
var listKeys = []string{"data", "items", "results", "rows"}

// decodeList extracts a JSON array from a bare array or common envelope shapes.
func decodeList[T any](body []byte, extraKeys ...string) ([]T, error) {
	raw, err := unwrapList(bytes.TrimSpace(body), append(extraKeys, listKeys...), 0)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func unwrapList(body []byte, keys []string, depth int) (json.RawMessage, error) {
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}
	switch body[0] {
	case '[':
		return body, nil
	case '{':
		if depth > 2 {
			return nil, fmt.Errorf("list envelope nested too deeply")
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(body, &obj); err != nil {
			return nil, fmt.Errorf("decode envelope: %w", err)
		}
		for _, key := range keys {
			if inner, ok := obj[key]; ok {
				return unwrapList(bytes.TrimSpace(inner), keys, depth+1)
			}
		}
		return nil, fmt.Errorf("no list found in envelope")
	default:
		return nil, fmt.Errorf("unexpected list payload")
	}
}

// decodeOne extracts a single object from a bare object or a {data: {...}} envelope.
func decodeOne[T any](body []byte, extraKeys ...string) (T, error) {
	var zero T
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return zero, fmt.Errorf("unexpected object payload")
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return zero, fmt.Errorf("decode object: %w", err)
	}
	for _, key := range append(extraKeys, "data") {
		if inner, ok := obj[key]; ok {
			inner = bytes.TrimSpace(inner)
			if len(inner) > 0 && inner[0] == '{' {
				body = inner
				break
			}
		}
	}
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return zero, fmt.Errorf("decode object: %w", err)
	}
	return out, nil
}
