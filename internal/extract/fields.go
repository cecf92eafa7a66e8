package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Fields is a JSON object that remembers the order its keys first appeared in.
type Fields struct {
	keys   []string
	values map[string]any
}

// NewFields builds Fields from alternating key, value pairs. Used mostly by tests.
func NewFields(pairs ...any) *Fields {
	f := &Fields{values: make(map[string]any, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		f.Set(key, pairs[i+1])
	}
	return f
}

// Set stores value under key; a new key is appended to the order.
func (f *Fields) Set(key string, value any) {
	if f.values == nil {
		f.values = make(map[string]any)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

func (f *Fields) Get(key string) (any, bool) {
	if f == nil {
		return nil, false
	}
	v, ok := f.values[key]
	return v, ok
}

// Keys returns the keys in first-seen order.
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Map returns an unordered copy of the fields.
func (f *Fields) Map() map[string]any {
	out := make(map[string]any, f.Len())
	if f == nil {
		return out
	}
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// MarshalJSON keeps the original key order.
func (f *Fields) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range f.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.values[key])
		if err != nil {
			return nil, fmt.Errorf("marshal field %q: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// decodeObject parses a single JSON object keeping top-level key order.
func decodeObject(data string) (*Fields, error) {
	dec := json.NewDecoder(strings.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("not a json object")
	}

	f := &Fields{values: make(map[string]any)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		f.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after json object")
	}

	return f, nil
}
