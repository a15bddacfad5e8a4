package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

const (
	MinRating = 0.0
	MaxRating = 10.0
)

// ValidRating reports whether value lies within [MinRating, MaxRating].
func ValidRating(value float64) bool {
	return !math.IsNaN(value) && value >= MinRating && value <= MaxRating
}

// RoundRating keeps one decimal of precision.
func RoundRating(value float64) float64 {
	return math.Round(value*10) / 10.0
}

// OptionalFloat is a tri-state JSON number: absent, cleared (null or ""), or set.
type OptionalFloat struct {
	Set   bool
	Value *float64
}

// SetFloat returns a set OptionalFloat holding v.
func SetFloat(v float64) OptionalFloat {
	return OptionalFloat{Set: true, Value: &v}
}

// ClearFloat returns a set OptionalFloat that clears the stored value.
func ClearFloat() OptionalFloat {
	return OptionalFloat{Set: true}
}

// ParseOptionalFloat interprets form-style text: blank clears, anything else must be numeric.
func ParseOptionalFloat(raw string) (OptionalFloat, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ClearFloat(), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return OptionalFloat{}, fmt.Errorf("%q is not a number", raw)
	}
	return SetFloat(v), nil
}

func (o *OptionalFloat) UnmarshalJSON(data []byte) error {
	o.Set = true
	o.Value = nil
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseOptionalFloat(s)
		if err != nil {
			return &json.UnmarshalTypeError{Value: "string", Type: reflect.TypeOf(float64(0))}
		}
		o.Value = parsed.Value
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// OptionalString is a tri-state JSON string: absent, cleared (null or ""), or set.
type OptionalString struct {
	Set   bool
	Value *string
}

// SetString returns a set OptionalString; blank text clears.
func SetString(v string) OptionalString {
	if strings.TrimSpace(v) == "" {
		return OptionalString{Set: true}
	}
	return OptionalString{Set: true, Value: &v}
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	o.Value = nil
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) != "" {
		o.Value = &s
	}
	return nil
}

func marshalMap(body map[string]interface{}) ([]byte, error) {
	return json.Marshal(body)
}
