package hooks

import (
	"math"
)

// Payload is the data of a server-pushed event. Accessors report false
// when the key is missing or holds a value of the wrong shape.
type Payload map[string]any

// Has reports whether key is present.
func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Raw returns the value stored under key.
func (p Payload) Raw(key string) any {
	return p[key]
}

// String returns a string value.
func (p Payload) String(key string) (string, bool) {
	s, ok := p[key].(string)
	return s, ok
}

// Bool returns a boolean value.
func (p Payload) Bool(key string) (bool, bool) {
	b, ok := p[key].(bool)
	return b, ok
}

// Int returns an integer value. Floats without a fractional part, as
// produced by JSON decoding, are accepted.
func (p Payload) Int(key string) (int, bool) {
	switch v := p[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
	}
	return 0, false
}

// Strings returns a list of strings.
func (p Payload) Strings(key string) ([]string, bool) {
	switch v := p[key].(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// Objects returns a list of objects.
func (p Payload) Objects(key string) ([]Payload, bool) {
	switch v := p[key].(type) {
	case []map[string]any:
		out := make([]Payload, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, true
	case []any:
		out := make([]Payload, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, false
			}
			out[i] = m
		}
		return out, true
	}
	return nil, false
}
