package querycompiler

import (
	"github.com/liveql/engine/dataflow"
	"github.com/liveql/engine/ir"
)

// compileQuery wires q's full pipeline, feeding its output to sink. It is
// the recursive entry point: Compile calls it for the top-level query, and
// compileFrom calls it (through the sub-pipeline cache) for every QueryRef.
//
// Spec §4.5 lists WHERE (step 3) before JOINs (step 4) and SELECT (step 2)
// before WHERE. Taken literally that is unsatisfiable for multi-source
// queries: a surviving WHERE clause can reference an alias only a later
// JOIN introduces, since the optimizer has already pushed every
// single-source clause down into its own branch. This compiler instead
// applies WHERE once every JOIN has run, and SELECT's early projection does
// not remove rowState.Row, so running it before or after WHERE is
// observationally identical — filtering first is simply cheaper. See
// DESIGN.md.
func compileQuery(q *ir.Query, ctx *Context, sink dataflow.Sink) error {
	if err := ir.Validate(q); err != nil {
		return err
	}

	cur := sink

	if q.FnSelect != nil {
		cur = wrapFnSelect(ctx, q.FnSelect, cur)
	}

	if len(q.OrderBy) > 0 {
		var err error
		cur, err = wireOrderBy(ctx, q, cur)
		if err != nil {
			return err
		}
	}

	aggregating := q.IsAggregating()
	switch {
	case aggregating:
		var err error
		cur, err = wireGroupByHavingSelect(ctx, q, cur)
		if err != nil {
			return err
		}
	case len(q.Select) > 0:
		var err error
		cur, err = wireEarlySelect(ctx, q.Select, cur)
		if err != nil {
			return err
		}
	}

	if q.Where != nil || q.FnWhere != nil {
		var err error
		cur, err = wireWhere(ctx, q, cur)
		if err != nil {
			return err
		}
	}

	return compileJoinChain(q, ctx, cur)
}

// compileFrom wires a single FROM/JOIN source, producing rowState tuples
// namespaced under its alias.
func compileFrom(f ir.From, ctx *Context, sink dataflow.Sink) error {
	switch v := f.(type) {
	case ir.CollectionRef:
		input, ok := ctx.Inputs[v.Collection]
		if !ok {
			return ir.ErrCollectionInputNotFound.New(v.Collection)
		}
		alias := v.Alias
		m := dataflow.NewMap(func(t dataflow.Tuple) dataflow.Tuple {
			rec, _ := t.Value.(ir.Record)
			return dataflow.Tuple{Key: t.Key, Value: rowState{Row: ir.NamespacedRow{alias: rec}, Key: t.Key}}
		}, sink)
		ctx.add(m)
		input.AddOut(m.Sink())
		return nil

	case ir.QueryRef:
		original := v.Query
		if o, ok := ctx.Mapping[v.Query]; ok {
			original = o
		}
		key := cacheKey{original: original, alias: v.Alias}
		if relay, ok := ctx.cache[key]; ok {
			relay.AddOut(sink)
			return nil
		}

		relay := dataflow.NewRelay(sink)
		ctx.add(relay)
		ctx.cache[key] = relay

		alias := v.Alias
		relaySink := relay.Sink()
		wrap := func(b dataflow.Batch) {
			out := make(dataflow.Batch, len(b))
			for i, t := range b {
				rec, _ := finalValue(t.Value).(ir.Record)
				out[i] = dataflow.Tuple{Key: t.Key, Value: rowState{Row: ir.NamespacedRow{alias: rec}, Key: t.Key}, Mult: t.Mult}
			}
			relaySink(out)
		}
		return compileQuery(v.Query, ctx, wrap)

	default:
		return ir.ErrUnsupportedJoinSourceType.New(f)
	}
}
