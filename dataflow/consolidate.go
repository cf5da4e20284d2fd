package dataflow

// Consolidate sums multiplicities per (Key, Value) within the current
// batch and emits only entries whose net multiplicity is nonzero. Required
// before joins and after any operator that can produce cancelling pairs
// (spec §4.1), so downstream work stays bounded by the number of tuples
// that actually changed.
type Consolidate struct {
	stage
}

// NewConsolidate constructs a Consolidate operator feeding the given sinks.
func NewConsolidate(out ...Sink) *Consolidate {
	return &Consolidate{stage: stage{out: out}}
}

type groupEntry struct {
	tuple Tuple
	mult  int
}

func (c *Consolidate) Step() {
	batch := c.take()
	if len(batch) == 0 {
		return
	}

	type compositeKey struct {
		key   any
		value uint64
	}
	groups := make(map[compositeKey]*groupEntry, len(batch))
	order := make([]compositeKey, 0, len(batch))

	for _, t := range batch {
		ck := compositeKey{key: normalizeKey(t.Key), value: valueGroupKey(t.Value)}
		g, ok := groups[ck]
		if !ok {
			g = &groupEntry{tuple: t, mult: 0}
			groups[ck] = g
			order = append(order, ck)
		}
		g.mult += t.Mult
	}

	var out Batch
	for _, ck := range order {
		g := groups[ck]
		if g.mult == 0 {
			continue
		}
		out = append(out, Tuple{Key: g.tuple.Key, Value: g.tuple.Value, Mult: g.mult})
	}
	c.emit(out)
}
