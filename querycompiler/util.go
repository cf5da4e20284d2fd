package querycompiler

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/liveql/engine/ir"
)

// truthyValue treats a WHERE/HAVING evaluator result as a predicate: null
// and false are falsy, everything else (including a non-bool scalar, which
// should never happen for a well-typed WHERE clause) is truthy.
func truthyValue(v ir.Value) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

func toFloat(v ir.Value) float64 {
	if v == nil {
		return 0
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0
	}
	return f
}

func toFloatOK(v ir.Value) (float64, bool) {
	if v == nil {
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

// compareValues orders two ORDER BY key values per an OrderByEntry's nulls
// and stringSort configuration (spec §4.5 step 7).
func compareValues(a, b ir.Value, nulls ir.NullsOrder, mode ir.StringSortMode) int {
	an, bn := a == nil, b == nil
	switch {
	case an && bn:
		return 0
	case an:
		if nulls == ir.NullsFirst {
			return -1
		}
		return 1
	case bn:
		if nulls == ir.NullsFirst {
			return 1
		}
		return -1
	}

	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			if mode == ir.Locale {
				return strings.Compare(strings.ToLower(as), strings.ToLower(bs))
			}
			return strings.Compare(as, bs)
		}
	}

	if af, ok := toFloatOK(a); ok {
		if bf, ok := toFloatOK(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}

	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}
