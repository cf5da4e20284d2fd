package querycompiler

import (
	"github.com/liveql/engine/dataflow"
	"github.com/liveql/engine/exprcompile"
	"github.com/liveql/engine/ir"
)

// wireEarlySelect compiles a non-aggregating query's SELECT list into a Map
// that evaluates every item against the namespaced row and stores the
// result on rowState.Result, leaving Row untouched (spec §4.5 step 2:
// "retaining the namespaced row").
func wireEarlySelect(ctx *Context, items []ir.SelectItem, sink dataflow.Sink) (dataflow.Sink, error) {
	evals := make([]exprcompile.Evaluator, len(items))
	for i, item := range items {
		ev, err := exprcompile.Compile(item.Expression)
		if err != nil {
			return nil, err
		}
		evals[i] = ev
	}

	m := dataflow.NewMap(func(t dataflow.Tuple) dataflow.Tuple {
		rs, _ := t.Value.(rowState)
		res := make(ir.Record, len(items))
		for i, item := range items {
			v, _ := evals[i].Namespaced(rs.Row)
			res[item.Alias] = v
		}
		return dataflow.Tuple{Key: t.Key, Value: rs.withResult(res)}
	}, sink)
	ctx.add(m)
	return m.Sink(), nil
}

// wireWhere compiles WHERE (and any fnWhere) into a Filter evaluated
// against the namespaced row currently in scope.
func wireWhere(ctx *Context, q *ir.Query, sink dataflow.Sink) (dataflow.Sink, error) {
	var ev exprcompile.Evaluator
	if q.Where != nil {
		var err error
		ev, err = exprcompile.Compile(q.Where)
		if err != nil {
			return nil, err
		}
	}

	f := dataflow.NewFilter(func(t dataflow.Tuple) bool {
		rs, _ := t.Value.(rowState)
		if ev != nil {
			v, err := ev.Namespaced(rs.Row)
			if err != nil || !truthyValue(v) {
				return false
			}
		}
		if q.FnWhere != nil && !q.FnWhere(rs.Row) {
			return false
		}
		return true
	}, sink)
	ctx.add(f)
	return f.Sink(), nil
}

// wrapFnSelect wires the opaque fnSelect callback, which runs last and
// replaces the projected shape entirely (spec §4.5 step 8).
func wrapFnSelect(ctx *Context, fn ir.RowSelectFunc, sink dataflow.Sink) dataflow.Sink {
	m := dataflow.NewMap(func(t dataflow.Tuple) dataflow.Tuple {
		rs, _ := t.Value.(rowState)
		projected := rs.Result
		if projected == nil {
			projected = namespacedToRecord(rs.Row)
		}
		return dataflow.Tuple{Key: t.Key, Value: rs.withResult(fn(rs.Row, projected))}
	}, sink)
	ctx.add(m)
	return m.Sink()
}
