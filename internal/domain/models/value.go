package models

import "strings"

// ValueKind discriminates the payload carried by a Value.
type ValueKind int

const (
	KindText ValueKind = iota
	KindNumber
	KindRecord
	KindSeries
)

// Value is a tagged union for one normalized field value.
//
// The upstream API is loosely typed: the same field may arrive as a quoted
// number, a percentage string, plain text, or a nested object. Normalization
// resolves each raw value into exactly one of these payloads, selected by Kind:
//   - KindText:   Text holds the (post-normalization) string.
//   - KindNumber: Number holds the parsed float.
//   - KindRecord: Record holds a nested normalized record.
//   - KindSeries: Series holds a reconstructed time series.
type Value struct {
	Kind   ValueKind
	Number float64
	Text   string
	Record *Record
	Series Series
}

// TextValue wraps a string payload.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// NumberValue wraps a numeric payload.
func NumberValue(f float64) Value { return Value{Kind: KindNumber, Number: f} }

// RecordValue wraps a nested record payload.
func RecordValue(r *Record) Value { return Value{Kind: KindRecord, Record: r} }

// SeriesValue wraps a time-series payload.
func SeriesValue(s Series) Value { return Value{Kind: KindSeries, Series: s} }

// Record is an insertion-ordered mapping from canonical field name to Value.
//
// Field names are unique within one record; setting an existing name replaces
// the value in place without disturbing its position. Order matters because
// the upstream payload order is part of the data contract (time-series keys
// arrive newest-first and must be preserved as received).
type Record struct {
	names  []string
	values map[string]Value
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]Value)}
}

// Set stores v under name, preserving the position of an existing name.
func (r *Record) Set(name string, v Value) {
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = v
}

// Get returns the value stored under the exact name.
func (r *Record) Get(name string) (Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Lookup returns the value whose name matches case-insensitively.
// Canonical names preserve the upstream casing, which differs between the
// JSON and CSV payload shapes ("Open" vs "open"), so consumers that only
// care about the semantic field use Lookup.
func (r *Record) Lookup(name string) (Value, bool) {
	if v, ok := r.values[name]; ok {
		return v, true
	}
	for _, n := range r.names {
		if strings.EqualFold(n, name) {
			return r.values[n], true
		}
	}
	return Value{}, false
}

// Names returns the field names in insertion order.
func (r *Record) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len reports the number of fields.
func (r *Record) Len() int { return len(r.names) }
