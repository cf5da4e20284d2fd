package dataflow

// AggKind is one of the five aggregate functions the spec's closed function
// registry supports.
type AggKind string

const (
	AggSum   AggKind = "sum"
	AggCount AggKind = "count"
	AggAvg   AggKind = "avg"
	AggMin   AggKind = "min"
	AggMax   AggKind = "max"
)

// AggSpec is one aggregate the GroupBy operator maintains per group. Name
// is the output field name (the SELECT alias) the aggregate's current
// value is published under in the emitted snapshot. Extract pulls the
// numeric argument out of a tuple's Value; it is unused for AggCount.
type AggSpec struct {
	Name    string
	Kind    AggKind
	Extract func(value any) (float64, bool)
}

// GroupKeyField is the reserved snapshot field under which GroupBy publishes
// the raw (unnormalized) group key value, so the query compiler's late
// SELECT stage can recover non-aggregate GROUP BY columns without having to
// reverse the key's normalized hash form.
const GroupKeyField = "__group_key"

type groupState struct {
	memberMult int
	rawKey     any
	sets       []*multiset
}

// GroupBy maintains, per group key, enough incremental state (running sum,
// count, and lazily-deleted min/max heaps — see multiset) to recompute
// sum/count/avg/min/max in O(log n) per update, and emits a
// retract-old/insert-new pair whenever a group's published snapshot
// changes (spec §4.1). KeyFn computes the group key from a tuple's value;
// for "GROUP BY with no columns but aggregates present" queries the
// compiler supplies a KeyFn that returns a single constant.
type GroupBy struct {
	stage
	keyFn func(value any) any
	aggs  []AggSpec

	groups       map[any]*groupState
	lastSnapshot map[any]map[string]any
	order        []any
}

// NewGroupBy constructs a GroupBy operator feeding the given sinks.
func NewGroupBy(keyFn func(value any) any, aggs []AggSpec, out ...Sink) *GroupBy {
	return &GroupBy{
		stage:        stage{out: out},
		keyFn:        keyFn,
		aggs:         aggs,
		groups:       map[any]*groupState{},
		lastSnapshot: map[any]map[string]any{},
	}
}

func (g *GroupBy) Step() {
	batch := g.take()
	if len(batch) == 0 {
		return
	}

	touched := map[any]bool{}
	var touchedOrder []any
	for _, t := range batch {
		rawKey := g.keyFn(t.Value)
		gk := normalizeKey(rawKey)
		state, ok := g.groups[gk]
		if !ok {
			state = &groupState{sets: make([]*multiset, len(g.aggs)), rawKey: rawKey}
			for i := range state.sets {
				state.sets[i] = newMultiset()
			}
			g.groups[gk] = state
		}
		for i, spec := range g.aggs {
			if spec.Kind == AggCount {
				state.sets[i].Update(1, t.Mult)
				continue
			}
			val, ok := spec.Extract(t.Value)
			if !ok {
				val = 0
			}
			state.sets[i].Update(val, t.Mult)
		}
		state.memberMult += t.Mult
		if !touched[gk] {
			touched[gk] = true
			touchedOrder = append(touchedOrder, gk)
		}
	}

	var out Batch
	for _, gk := range touchedOrder {
		if old, ok := g.lastSnapshot[gk]; ok {
			out = append(out, Tuple{Key: gk, Value: old, Mult: -1})
		}
		state := g.groups[gk]
		if state.memberMult <= 0 {
			delete(g.groups, gk)
			delete(g.lastSnapshot, gk)
			continue
		}
		snapshot := make(map[string]any, len(g.aggs)+1)
		snapshot[GroupKeyField] = state.rawKey
		for i, spec := range g.aggs {
			snapshot[spec.Name] = snapshotValue(spec.Kind, state.sets[i])
		}
		out = append(out, Tuple{Key: gk, Value: snapshot, Mult: 1})
		g.lastSnapshot[gk] = snapshot
	}
	g.emit(out)
}

func snapshotValue(kind AggKind, set *multiset) any {
	switch kind {
	case AggSum:
		return set.Sum()
	case AggCount:
		return int64(set.Count())
	case AggAvg:
		return set.Avg()
	case AggMin:
		v, ok := set.Min()
		if !ok {
			return nil
		}
		return v
	case AggMax:
		v, ok := set.Max()
		if !ok {
			return nil
		}
		return v
	default:
		return nil
	}
}
