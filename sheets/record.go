package sheets

import (
	"bytes"
	"encoding/json"
)

// Record is one data row of a sheet, keyed by header in header order.
type Record struct {
	keys   []string
	values []string
}

// newRecord zips headers with values. A repeated header keeps its first position
// and takes the value of its last occurrence.
func newRecord(headers, values []string) Record {
	r := Record{
		keys:   make([]string, 0, len(headers)),
		values: make([]string, 0, len(headers)),
	}
	pos := make(map[string]int, len(headers))

	for i, h := range headers {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		if at, ok := pos[h]; ok {
			r.values[at] = v
			continue
		}
		pos[h] = len(r.keys)
		r.keys = append(r.keys, h)
		r.values = append(r.values, v)
	}

	return r
}

// Keys returns the record's header keys in order.
func (r Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Get returns the cell for a header.
func (r Record) Get(key string) (string, bool) {
	for i, k := range r.keys {
		if k == key {
			return r.values[i], true
		}
	}
	return "", false
}

// Value returns the cell for a header, or "" when the header is unknown.
func (r Record) Value(key string) string {
	v, _ := r.Get(key)
	return v
}

// Map returns the record as an unordered map.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.keys))
	for i, k := range r.keys {
		m[k] = r.values[i]
	}
	return m
}

// Len returns the number of keys.
func (r Record) Len() int {
	return len(r.keys)
}

// MarshalJSON encodes the record as a JSON object with keys in header order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
