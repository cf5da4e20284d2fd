package ir

import (
	"reflect"

	"github.com/mitchellh/hashstructure"
)

// Hash computes a structural hash of an expression tree. Two expressions
// that are structurally equal (spec §4.2: "Structural equality is defined
// recursively") hash identically. Used by the query compiler to match an
// aggregate referenced from HAVING against the aggregate it corresponds to
// in SELECT, and to check that every non-aggregate SELECT expression also
// appears in GROUP BY (spec §4.5 step 6).
func Hash(e Expression) (uint64, error) {
	if e == nil {
		return 0, nil
	}
	return hashstructure.Hash(e, nil)
}

// Equal reports whether two expressions are structurally equal. Hashes are
// compared first as a fast path; a hash collision falls back to a full
// reflect.DeepEqual so that Equal is never a false positive.
func Equal(a, b Expression) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ha, err := Hash(a)
	if err != nil {
		return reflect.DeepEqual(a, b)
	}
	hb, err := Hash(b)
	if err != nil {
		return reflect.DeepEqual(a, b)
	}
	if ha != hb {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// Contains reports whether needle appears, structurally, anywhere within
// haystack's expression tree (including haystack itself).
func Contains(haystack, needle Expression) bool {
	if haystack == nil {
		return false
	}
	if Equal(haystack, needle) {
		return true
	}
	for _, c := range haystack.Children() {
		if Contains(c, needle) {
			return true
		}
	}
	return false
}
