package ami

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Record is an ordered set of protocol headers. It represents one decoded
// block read from the switch, or the option set of an action being built.
//
// Keys are unique. Setting a key that is already present replaces its value
// without changing its position. The zero value is an empty record ready to use.
type Record struct {
	keys   []string
	values map[string]string
}

// NewRecord builds a record from alternating key/value pairs.
// A trailing key without a value is stored with an empty value.
func NewRecord(pairs ...string) Record {
	var r Record
	for i := 0; i < len(pairs); i += 2 {
		v := ""
		if i+1 < len(pairs) {
			v = pairs[i+1]
		}
		r.Set(pairs[i], v)
	}
	return r
}

// Set inserts or updates a header.
func (r *Record) Set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value for key and whether it is present.
func (r Record) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Value returns the value for key, or "" when absent.
func (r Record) Value(key string) string {
	return r.values[key]
}

// Has reports whether key is present.
func (r Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Delete removes key, preserving the order of the remaining headers.
func (r *Record) Delete(key string) {
	if _, ok := r.values[key]; !ok {
		return
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i:i], r.keys[i+1:]...)
			break
		}
	}
}

// Lookup finds a key ignoring ASCII case and returns the stored key and value.
func (r Record) Lookup(key string) (string, string, bool) {
	for _, k := range r.keys {
		if strings.EqualFold(k, key) {
			return k, r.values[k], true
		}
	}
	return "", "", false
}

// Keys returns the header names in order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of headers.
func (r Record) Len() int {
	return len(r.keys)
}

// Name resolves the dispatch name of the record: the Event header when
// present, otherwise the Response header.
func (r Record) Name() string {
	if v, ok := r.values[HeaderEvent]; ok {
		return v
	}
	return r.values[HeaderResponse]
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	c := Record{keys: make([]string, len(r.keys))}
	copy(c.keys, r.keys)
	if r.values != nil {
		c.values = make(map[string]string, len(r.values))
		for k, v := range r.values {
			c.values[k] = v
		}
	}
	return c
}

// Equal reports whether both records hold the same headers in the same order.
func (r Record) Equal(o Record) bool {
	if len(r.keys) != len(o.keys) {
		return false
	}
	for i, k := range r.keys {
		if o.keys[i] != k || o.values[k] != r.values[k] {
			return false
		}
	}
	return true
}

// Map returns an unordered copy of the headers.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.keys))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

// Format renders the record in wire form: "Key: Value" lines joined by CRLF
// and terminated by a blank line. An empty record renders as "".
func (r Record) Format() string {
	if len(r.keys) == 0 {
		return ""
	}
	var b strings.Builder
	for _, k := range r.keys {
		b.WriteString(k)
		b.WriteString(headerSeparator)
		b.WriteString(r.values[k])
		b.WriteString(lineTerminator)
	}
	b.WriteString(lineTerminator)
	return b.String()
}

// String implements fmt.Stringer.
func (r Record) String() string {
	return r.Format()
}

// MarshalJSON encodes the record as a JSON object preserving header order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of string values, keeping member order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected JSON object, got %v", tok)
	}
	*r = Record{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("record: expected string key, got %v", kt)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("record: value for %q: %w", key, err)
		}
		r.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
