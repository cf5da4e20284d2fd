package ir

import "time"

// Value is the concrete Go representation of a JSON-compatible scalar plus
// timestamps (spec: "Values are JSON-compatible scalars plus timestamps").
// Valid dynamic types are nil, bool, int64, float64, string, time.Time, and
// []Value. Records and namespaced rows are built out of Values.
type Value = any

// Key identifies a record within a source collection, or a result tuple
// within a live query collection. Keys are scalar: string or integer.
type Key = any

// Record is an opaque mapping from field name to value, as supplied by a
// source collection.
type Record map[string]Value

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// NamespacedRow maps an alias in scope to the record currently bound to it.
// Used while more than one source is in scope during execution; single
// source phases unwrap to the underlying Record.
type NamespacedRow map[string]Record

// Clone returns a shallow copy of the namespaced row.
func (r NamespacedRow) Clone() NamespacedRow {
	out := make(NamespacedRow, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// isTimestamp reports whether v is the timestamp flavor of Value.
func isTimestamp(v Value) bool {
	_, ok := v.(time.Time)
	return ok
}
