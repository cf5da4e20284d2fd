package dataflow

import (
	"reflect"
	"sort"
)

// IndexMode selects how TopK annotates a row's position: a dense 0-based
// integer that gets recomputed on every insertion, or a fractional string
// key chosen between neighbors so that inserting a row never renumbers its
// siblings (spec §9 "Numeric vs string ordering").
type IndexMode int

const (
	IndexNumeric IndexMode = iota
	IndexFractional
)

// Less compares two row values for ORDER BY purposes; returns true if a
// sorts strictly before b. The query compiler builds this from the
// compiled ORDER BY key functions and each entry's direction/nulls/
// stringSort configuration.
type Less func(a, b any) bool

// Ordered is the value shape TopK emits: the original row plus its
// computed position.
type Ordered struct {
	Value any
	Index any
}

// TopK maintains an ordered index over the rows currently present,
// keyed by the stream key, and emits position-annotated tuples for the
// window selected by limit/offset (spec §4.1). With no limit/offset the
// window is the entire input, still position-annotated so callers can sort
// downstream without recomputing a comparator.
type TopK struct {
	stage
	less   Less
	limit  *int
	offset int
	mode   IndexMode

	present    map[any]any // normalized key -> current row value
	lastWindow map[any]Ordered
}

// NewTopK constructs a TopK operator. limit may be nil for no limit;
// offset 0 means no offset.
func NewTopK(less Less, limit *int, offset int, mode IndexMode, out ...Sink) *TopK {
	return &TopK{
		stage:      stage{out: out},
		less:       less,
		limit:      limit,
		offset:     offset,
		mode:       mode,
		present:    map[any]any{},
		lastWindow: map[any]Ordered{},
	}
}

type topkRow struct {
	key   any
	value any
}

func (tk *TopK) Step() {
	batch := tk.take()
	if len(batch) == 0 {
		return
	}
	for _, t := range batch {
		k := normalizeKey(t.Key)
		if t.Mult > 0 {
			tk.present[k] = t.Value
		} else if t.Mult < 0 {
			delete(tk.present, k)
		}
	}

	rows := make([]topkRow, 0, len(tk.present))
	for k, v := range tk.present {
		rows = append(rows, topkRow{key: k, value: v})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return tk.less(rows[i].value, rows[j].value)
	})

	start := tk.offset
	if start > len(rows) {
		start = len(rows)
	}
	end := len(rows)
	if tk.limit != nil {
		if start+*tk.limit < end {
			end = start + *tk.limit
		}
	}
	window := rows[start:end]

	indices := tk.assignIndices(window)
	newWindow := make(map[any]Ordered, len(window))
	for i, r := range window {
		newWindow[r.key] = Ordered{Value: r.value, Index: indices[i]}
	}

	var out Batch
	for k, old := range tk.lastWindow {
		if nw, ok := newWindow[k]; ok {
			if !reflect.DeepEqual(old, nw) {
				out = append(out, Tuple{Key: k, Value: old, Mult: -1})
				out = append(out, Tuple{Key: k, Value: nw, Mult: 1})
			}
		} else {
			out = append(out, Tuple{Key: k, Value: old, Mult: -1})
		}
	}
	for k, nw := range newWindow {
		if _, ok := tk.lastWindow[k]; !ok {
			out = append(out, Tuple{Key: k, Value: nw, Mult: 1})
		}
	}
	tk.lastWindow = newWindow
	tk.emit(out)
}

// assignIndices renders a position for every row in window according to the
// configured mode. Numeric mode is a dense 0-based slot, recomputed in
// full every Step. Fractional mode reuses a row's previous key whenever its
// relative order to the already-assigned keys to its left still holds, and
// mints a fresh key strictly between its neighbors only for rows that are
// new or whose position actually moved — siblings that didn't move are
// never touched (spec §9).
func (tk *TopK) assignIndices(window []topkRow) []any {
	out := make([]any, len(window))
	if tk.mode == IndexNumeric {
		for i := range window {
			out[i] = i
		}
		return out
	}

	prev := ""
	for i, r := range window {
		if old, ok := tk.lastWindow[r.key]; ok {
			if s, ok2 := old.Index.(string); ok2 && s > prev {
				out[i] = s
				prev = s
				continue
			}
		}
		upper := ""
		for j := i + 1; j < len(window); j++ {
			old, ok := tk.lastWindow[window[j].key]
			if !ok {
				continue
			}
			if s, ok2 := old.Index.(string); ok2 && s > prev {
				upper = s
				break
			}
		}
		nk := fractionalBetween(prev, upper)
		out[i] = nk
		prev = nk
	}
	return out
}

// fractionalBetween returns a string strictly greater than lo and, if hi is
// non-empty, strictly less than hi, over the alphabet a-z. A shorter string
// that is a prefix of a longer one sorts first, so an absent digit acts as
// the smallest possible value at that position, which is what lets an
// unbounded upper bound (hi == "") be satisfied by simply extending lo.
//
// Digit 'a' is never chosen as a fresh (non-tying) digit when lo has no
// digit of its own to anchor against — reserving it leaves room below
// whatever key this call produces, so a long run of inserts at the very
// front of the ordering keeps finding room by growing the key one
// character at a time instead of exhausting the alphabet outright.
func fractionalBetween(lo, hi string) string {
	if hi == "" {
		if lo == "" {
			return "n"
		}
		return lo + "n"
	}

	var buf []byte
	for i := 0; ; i++ {
		loDigit := -1
		if i < len(lo) {
			loDigit = int(lo[i] - 'a')
		}
		// hi exhausted at this depth (i >= len(hi)) is treated the same as
		// no upper bound at all: every key this function returns ends in a
		// non-'a' digit, so a self-produced hi can never be a pure run of
		// tie digits all the way to its end, and this branch only fires
		// after the real divergence has already been captured above.
		hiDigit := 26
		if i < len(hi) {
			hiDigit = int(hi[i] - 'a')
		}

		floor := loDigit
		if floor < 0 {
			floor = 0
		}
		if hiDigit-floor >= 2 {
			mid := floor + (hiDigit-floor)/2
			buf = append(buf, byte('a'+mid))
			return string(buf)
		}

		tie := loDigit
		if tie < 0 {
			tie = floor
		}
		buf = append(buf, byte('a'+tie))
	}
}
