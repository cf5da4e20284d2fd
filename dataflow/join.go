package dataflow

// JoinType mirrors the runtime-level join kinds the dataflow layer
// actually executes. The query compiler normalizes ir.CrossJoin to Inner
// (with a constant join key) and ir.OuterJoin to Full before building the
// graph (spec §4.5 step 4), so this operator never sees those two.
type JoinType int

const (
	Inner JoinType = iota
	Left
	Right
	Full
)

// Pair is the value shape a Join operator emits: the left and right row
// that matched, either of which is nil when null-padded.
type Pair struct {
	Left  any
	Right any
}

type indexEntry struct {
	value any
	mult  int
}

// Join is a hash-indexed equi-join on the stream key. It maintains two
// indexes, left and right, each key -> multiset<value>, and incrementally
// emits matched (and, depending on JoinType, null-padded) pairs as deltas
// arrive on either side (spec §4.1).
type Join struct {
	joinType JoinType
	out      []Sink

	pendingLeft  Batch
	pendingRight Batch

	leftIndex  map[any]map[uint64]*indexEntry
	rightIndex map[any]map[uint64]*indexEntry
}

// NewJoin constructs a Join operator of the given type feeding the given
// sinks. Use Left()/Right() to obtain the two Sink functions upstream
// pipelines should feed into.
func NewJoin(joinType JoinType, out ...Sink) *Join {
	return &Join{
		joinType:   joinType,
		out:        out,
		leftIndex:  map[any]map[uint64]*indexEntry{},
		rightIndex: map[any]map[uint64]*indexEntry{},
	}
}

// Left returns the sink the left-hand keyed stream should feed into.
func (j *Join) Left() Sink { return func(b Batch) { j.pendingLeft = append(j.pendingLeft, b...) } }

// Right returns the sink the right-hand keyed stream should feed into.
func (j *Join) Right() Sink { return func(b Batch) { j.pendingRight = append(j.pendingRight, b...) } }

func applyDelta(index map[any]map[uint64]*indexEntry, t Tuple) {
	k := normalizeKey(t.Key)
	bucket, ok := index[k]
	if !ok {
		bucket = map[uint64]*indexEntry{}
		index[k] = bucket
	}
	vk := valueGroupKey(t.Value)
	e, ok := bucket[vk]
	if !ok {
		e = &indexEntry{value: t.Value, mult: 0}
		bucket[vk] = e
	}
	e.mult += t.Mult
	if e.mult == 0 {
		delete(bucket, vk)
	}
	if len(bucket) == 0 {
		delete(index, k)
	}
}

// joinRow is a value-copy snapshot of one indexEntry, taken before this
// round's mutations so padding corrections can be computed against the
// state a key was in before this Step, not the state partial processing
// has already produced.
type joinRow struct {
	value any
	mult  int
}

func snapshotBucket(index map[any]map[uint64]*indexEntry, k any) []joinRow {
	bucket := index[k]
	if len(bucket) == 0 {
		return nil
	}
	rows := make([]joinRow, 0, len(bucket))
	for _, e := range bucket {
		rows = append(rows, joinRow{value: e.value, mult: e.mult})
	}
	return rows
}

// Step implements the standard incremental bilinear-join expansion:
// deltaLeft x rightOld, then deltaRight x (leftOld + deltaLeft), covering
// all three cross terms (deltaL x oldR, oldL x deltaR, deltaL x deltaR)
// exactly once.
//
// Null padding has two parts. First, a row arriving or leaving this round
// is padded directly based on whether the opposite side's index holds
// anything at its key after this round's updates — this covers the common
// case where the key's match status is unchanged by this round. Second,
// for every key whose opposite-side presence flips from empty to
// non-empty or back this round, every row that was already present at
// that key *before* this round gets a compensating pad retraction or
// addition: a row padded in a previous round does not carry its own
// "I am padded" flag, so the only way to keep it in sync with a later
// change on the other side is to detect the flip and correct every row
// still sitting at that key (spec §8 "Incremental equivalence"). Rows
// arriving this same round are excluded from that correction — they were
// never padded, since the direct pass above already accounts for the
// post-round state — which is why the pre-round snapshots are taken
// before any index mutation happens.
func (j *Join) Step() {
	left := j.pendingLeft
	right := j.pendingRight
	j.pendingLeft, j.pendingRight = nil, nil
	if len(left) == 0 && len(right) == 0 {
		return
	}

	rightPresentBefore := map[any]bool{}
	leftBeforeForRightKeys := map[any][]joinRow{}
	for _, rt := range right {
		k := normalizeKey(rt.Key)
		if _, ok := rightPresentBefore[k]; ok {
			continue
		}
		rightPresentBefore[k] = len(j.rightIndex[k]) > 0
		leftBeforeForRightKeys[k] = snapshotBucket(j.leftIndex, k)
	}
	leftPresentBefore := map[any]bool{}
	rightBeforeForLeftKeys := map[any][]joinRow{}
	for _, lt := range left {
		k := normalizeKey(lt.Key)
		if _, ok := leftPresentBefore[k]; ok {
			continue
		}
		leftPresentBefore[k] = len(j.leftIndex[k]) > 0
		rightBeforeForLeftKeys[k] = snapshotBucket(j.rightIndex, k)
	}

	var out Batch

	for _, lt := range left {
		k := normalizeKey(lt.Key)
		for _, re := range j.rightIndex[k] {
			out = append(out, Tuple{Key: lt.Key, Value: Pair{Left: lt.Value, Right: re.value}, Mult: lt.Mult * re.mult})
		}
	}
	for _, lt := range left {
		applyDelta(j.leftIndex, lt)
	}

	for _, rt := range right {
		k := normalizeKey(rt.Key)
		for _, le := range j.leftIndex[k] {
			out = append(out, Tuple{Key: rt.Key, Value: Pair{Left: le.value, Right: rt.Value}, Mult: le.mult * rt.Mult})
		}
	}
	for _, rt := range right {
		applyDelta(j.rightIndex, rt)
	}

	if j.joinType == Left || j.joinType == Full {
		for _, lt := range left {
			k := normalizeKey(lt.Key)
			if len(j.rightIndex[k]) == 0 {
				out = append(out, Tuple{Key: lt.Key, Value: Pair{Left: lt.Value, Right: nil}, Mult: lt.Mult})
			}
		}
	}
	if j.joinType == Right || j.joinType == Full {
		for _, rt := range right {
			k := normalizeKey(rt.Key)
			if len(j.leftIndex[k]) == 0 {
				out = append(out, Tuple{Key: rt.Key, Value: Pair{Left: nil, Right: rt.Value}, Mult: rt.Mult})
			}
		}
	}

	if j.joinType == Left || j.joinType == Full {
		for k, before := range rightPresentBefore {
			after := len(j.rightIndex[k]) > 0
			if before == after {
				continue
			}
			sign := 1
			if after {
				sign = -1 // newly matched: retract the stale pad
			}
			for _, row := range leftBeforeForRightKeys[k] {
				out = append(out, Tuple{Key: k, Value: Pair{Left: row.value, Right: nil}, Mult: sign * row.mult})
			}
		}
	}
	if j.joinType == Right || j.joinType == Full {
		for k, before := range leftPresentBefore {
			after := len(j.leftIndex[k]) > 0
			if before == after {
				continue
			}
			sign := 1
			if after {
				sign = -1 // newly matched: retract the stale pad
			}
			for _, row := range rightBeforeForLeftKeys[k] {
				out = append(out, Tuple{Key: k, Value: Pair{Left: nil, Right: row.value}, Mult: sign * row.mult})
			}
		}
	}

	if len(out) == 0 {
		return
	}
	for _, sink := range j.out {
		sink(out)
	}
}
