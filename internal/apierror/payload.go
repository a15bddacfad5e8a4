// Package apierror defines the error body shared by the diary service and its
// clients, and the rule that turns such a body into a user-facing message.
//
// A body is one of:
//
//	"plain text"                         a bare JSON string
//	{"error": "..."}                     a business failure
//	{"detail": "..."}                    an authentication or routing failure
//	{"title": ["...", ...], ...}         per-field validation failures
//
// Message resolves a body with a fixed precedence: bare string, then error,
// then detail, then every field message in body order joined by ", ".
package apierror

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FieldError holds the messages attached to one input field.
type FieldError struct {
	Field    string
	Messages []string
}

// Payload is a decoded error body.
type Payload struct {
	Text   *string
	Error  string
	Detail string
	Fields []FieldError
}

// New returns a payload carrying a top-level error message.
func New(format string, args ...interface{}) *Payload {
	return &Payload{Error: fmt.Sprintf(format, args...)}
}

// NewDetail returns a payload carrying a detail message.
func NewDetail(msg string) *Payload {
	return &Payload{Detail: msg}
}

// AddField appends msg to field, keeping fields in first-seen order.
func (p *Payload) AddField(field, msg string) *Payload {
	for i := range p.Fields {
		if p.Fields[i].Field == field {
			p.Fields[i].Messages = append(p.Fields[i].Messages, msg)
			return p
		}
	}
	p.Fields = append(p.Fields, FieldError{Field: field, Messages: []string{msg}})
	return p
}

// Message applies the precedence rule and returns fallback when nothing usable is present.
func (p *Payload) Message(fallback string) string {
	if p == nil {
		return fallback
	}
	if p.Text != nil && *p.Text != "" {
		return *p.Text
	}
	if p.Error != "" {
		return p.Error
	}
	if p.Detail != "" {
		return p.Detail
	}
	var msgs []string
	for _, f := range p.Fields {
		msgs = append(msgs, f.Messages...)
	}
	if len(msgs) > 0 {
		return strings.Join(msgs, ", ")
	}
	return fallback
}

// Parse decodes a response body. It returns nil when the body is empty or not JSON.
func Parse(body []byte) *Payload {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}
	switch body[0] {
	case '"':
		var s string
		if err := json.Unmarshal(body, &s); err != nil {
			return nil
		}
		return &Payload{Text: &s}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil
		}
		p := &Payload{}
		for _, item := range items {
			for _, msg := range flatten(item) {
				p.AddField("", msg)
			}
		}
		return p
	case '{':
		p, err := parseObject(body)
		if err != nil {
			return nil
		}
		return p
	default:
		return nil
	}
}

func parseObject(body []byte) (*Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	p := &Payload{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		switch key {
		case "error":
			if s, ok := asString(raw); ok {
				p.Error = s
				continue
			}
		case "detail":
			if s, ok := asString(raw); ok {
				p.Detail = s
				continue
			}
		}
		for _, msg := range flatten(raw) {
			p.AddField(key, msg)
		}
	}
	return p, nil
}

func asString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// flatten collects the messages held by one field value, one level of arrays deep.
func flatten(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if s, ok := asString(raw); ok {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil
		}
		var out []string
		for _, item := range items {
			if s, ok := asString(item); ok {
				if s != "" {
					out = append(out, s)
				}
				continue
			}
			out = append(out, string(bytes.TrimSpace(item)))
		}
		return out
	case '{':
		nested, err := parseObject(raw)
		if err != nil {
			return nil
		}
		msg := nested.Message("")
		if msg == "" {
			return nil
		}
		return []string{msg}
	default:
		return []string{string(raw)}
	}
}

// MarshalJSON writes the payload back in the same shape Parse accepts.
func (p Payload) MarshalJSON() ([]byte, error) {
	if p.Text != nil {
		return json.Marshal(*p.Text)
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key string, value interface{}) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}
	if p.Error != "" {
		if err := write("error", p.Error); err != nil {
			return nil, err
		}
	}
	if p.Detail != "" {
		if err := write("detail", p.Detail); err != nil {
			return nil, err
		}
	}
	for _, f := range p.Fields {
		key := f.Field
		if key == "" {
			key = "non_field_errors"
		}
		if err := write(key, f.Messages); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Carrier is implemented by errors that hold a decoded error body.
type Carrier interface {
	ErrorPayload() *Payload
}

// FromError returns the payload carried anywhere in err's chain, or nil.
func FromError(err error) *Payload {
	var c Carrier
	if errors.As(err, &c) {
		return c.ErrorPayload()
	}
	return nil
}

// Describe derives the user-facing message for err, falling back when no payload is carried.
func Describe(err error, fallback string) string {
	return FromError(err).Message(fallback)
}
