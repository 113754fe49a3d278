package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	ErrMissingField = errors.New("missing required field")
	ErrInvalidField = errors.New("invalid required field")
	ErrNotObject    = errors.New("payload is not a JSON object")
)

// Item is a schemaless table row. Leaves are string, json.Number, bool,
// nil, map[string]any or []any, as produced by ParseItem.
type Item map[string]any

// ParseItem decodes a JSON object keeping every number as json.Number.
func ParseItem(data []byte) (Item, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after JSON object")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return Item(obj), nil
}

// Lookup walks nested maps by key and returns the value at path.
func (it Item) Lookup(path ...string) (any, bool) {
	var cur any = map[string]any(it)
	for _, key := range path {
		var m map[string]any
		switch t := cur.(type) {
		case map[string]any:
			m = t
		case Item:
			m = t
		default:
			return nil, false
		}
		v, ok := m[key]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// String returns the top-level string value for key, or "".
func (it Item) String(key string) string {
	s, _ := it[key].(string)
	return s
}

// RequireStrings checks each key is present and holds a non-empty string.
func (it Item) RequireStrings(keys ...string) error {
	for _, key := range keys {
		v, ok := it[key]
		if !ok || v == nil {
			return fmt.Errorf("%w: %s", ErrMissingField, key)
		}
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: %s is %T, want string", ErrInvalidField, key, v)
		}
		if s == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, key)
		}
	}
	return nil
}

// Key returns the (city, timestamp) pair that identifies the row.
func (it Item) Key() (city, timestamp string) {
	return it.String(FieldCity), it.String(FieldTimestamp)
}
