package livequery

import (
	"sort"

	"github.com/liveql/engine/ir"
)

// sortByOrderIndex sorts rows in place by their "__order_index" field,
// which TopK stamps as either a dense int (IndexNumeric) or a fractional
// string key (IndexFractional); both compare correctly with their native
// ordering.
func sortByOrderIndex(rows []ir.Record) {
	sort.SliceStable(rows, func(i, j int) bool {
		return orderIndexLess(rows[i]["__order_index"], rows[j]["__order_index"])
	})
}

func orderIndexLess(a, b any) bool {
	switch av := a.(type) {
	case int:
		bv, _ := b.(int)
		return av < bv
	case int64:
		bv, _ := b.(int64)
		return av < bv
	case float64:
		bv, _ := b.(float64)
		return av < bv
	case string:
		bv, _ := b.(string)
		return av < bv
	default:
		return false
	}
}
