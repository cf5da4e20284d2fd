package querycompiler

import (
	"github.com/liveql/engine/dataflow"
	"github.com/liveql/engine/exprcompile"
	"github.com/liveql/engine/ir"
)

// wireOrderBy compiles ORDER BY into a TopK operator. TopK is used whether
// or not LIMIT/OFFSET are present: with neither, its window is the entire
// set and it still position-annotates every row (spec §4.5 step 7: "a
// plain sort annotation is attached"), which is exactly what TopK does
// when limit is nil.
func wireOrderBy(ctx *Context, q *ir.Query, sink dataflow.Sink) (dataflow.Sink, error) {
	type key struct {
		entry ir.OrderByEntry
		eval  exprcompile.Evaluator
	}
	keys := make([]key, len(q.OrderBy))
	for i, ob := range q.OrderBy {
		ev, err := exprcompile.Compile(ob.Expression)
		if err != nil {
			return nil, err
		}
		keys[i] = key{entry: ob, eval: ev}
	}

	// ORDER BY runs after GROUP BY/SELECT in execution order (see
	// compileQuery), so rs.Result is already populated whenever the query
	// has a SELECT or is aggregating; otherwise fall back to the
	// namespaced row directly.
	keyOf := func(v any) []ir.Value {
		rs, _ := v.(rowState)
		out := make([]ir.Value, len(keys))
		for i, k := range keys {
			var val ir.Value
			var err error
			if rs.Result != nil {
				val, err = k.eval.Record(rs.Result)
			} else {
				val, err = k.eval.Namespaced(rs.Row)
			}
			if err != nil {
				val = nil
			}
			out[i] = val
		}
		return out
	}

	less := func(a, b any) bool {
		ka, kb := keyOf(a), keyOf(b)
		for i, k := range keys {
			c := compareValues(ka[i], kb[i], k.entry.Nulls, k.entry.StringSort)
			if k.entry.Direction == ir.Desc {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	}

	tk := dataflow.NewTopK(less, q.Limit, offsetOf(q.Offset), ctx.Index, sink)
	ctx.add(tk)
	return tk.Sink(), nil
}

func offsetOf(o *int) int {
	if o == nil {
		return 0
	}
	return *o
}
