// Package dataflow implements a small differential-dataflow runtime: a DAG
// of operators exchanging signed multiset tuples (key, value, multiplicity).
// It is the leaf layer of the engine (spec §4.1) and carries no knowledge of
// queries, aliases, or the expression language — the query compiler builds
// graphs out of these primitives.
package dataflow

import (
	"fmt"
	"time"

	"github.com/mitchellh/hashstructure"
)

// Tuple is one signed multiset entry: ((Key, Value), Mult). A positive Mult
// represents that many logical copies present; a negative Mult represents
// retractions. Insert -> +1, delete -> -1, update -> -1 of the previous
// value plus +1 of the new one.
type Tuple struct {
	Key   any
	Value any
	Mult  int
}

// Batch is an ordered group of tuples flowing through one operator step.
type Batch []Tuple

// normalizeKey coerces an arbitrary Value into something usable as a Go map
// key. Scalars (the common case — join keys, group keys) are comparable
// already and pass through unchanged so index lookups stay cheap; anything
// else (e.g. a composite key built as a slice) is reduced to a structural
// hash via hashstructure, the same structural-equality primitive package ir
// uses for expression comparison.
func normalizeKey(v any) any {
	switch v.(type) {
	case nil, bool, int, int64, float64, string, time.Time:
		return v
	default:
		h, err := hashstructure.Hash(v, nil)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return h
	}
}

// valueGroupKey returns a hash suitable for grouping tuples that share the
// same (Key, Value) pair, used by consolidate and by join's per-key indexes
// to track distinct values under one stream key.
func valueGroupKey(v any) uint64 {
	h, err := hashstructure.Hash(v, nil)
	if err != nil {
		return 0
	}
	return h
}
