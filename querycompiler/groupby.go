package querycompiler

import (
	"fmt"

	"github.com/liveql/engine/dataflow"
	"github.com/liveql/engine/exprcompile"
	"github.com/liveql/engine/ir"
)

func groupKeyField(i int) string { return fmt.Sprintf("__key_%d", i) }
func aggFieldName(i int) string  { return fmt.Sprintf("__agg_%d", i) }

func hasAggregate(e ir.Expression) bool {
	if e == nil {
		return false
	}
	if _, ok := e.(ir.Aggregate); ok {
		return true
	}
	for _, c := range e.Children() {
		if hasAggregate(c) {
			return true
		}
	}
	return false
}

func aggKindOf(name string) (dataflow.AggKind, error) {
	switch dataflow.AggKind(name) {
	case dataflow.AggSum, dataflow.AggCount, dataflow.AggAvg, dataflow.AggMin, dataflow.AggMax:
		return dataflow.AggKind(name), nil
	default:
		return "", ir.ErrUnsupportedAggregateFunction.New(name)
	}
}

// validateGroupBySelectItems implements spec §4.5 step 6: every
// non-aggregate SELECT expression must structurally equal some GROUP BY
// expression.
func validateGroupBySelectItems(q *ir.Query) error {
	if len(q.GroupBy) == 0 {
		return nil
	}
	for _, item := range q.Select {
		if hasAggregate(item.Expression) {
			continue
		}
		matched := false
		for _, g := range q.GroupBy {
			if ir.Equal(item.Expression, g) {
				matched = true
				break
			}
		}
		if !matched {
			return ir.ErrNonAggregateExpressionNotInGroupBy.New(item.Alias)
		}
	}
	return nil
}

// collectSelectAggregates walks every SELECT expression and returns the
// distinct Aggregate subexpressions found (by structural hash), each
// assigned a synthetic snapshot field name.
func collectSelectAggregates(items []ir.SelectItem) ([]ir.Aggregate, map[uint64]string, error) {
	aggIndex := map[uint64]string{}
	var aggs []ir.Aggregate

	var walk func(e ir.Expression) error
	walk = func(e ir.Expression) error {
		if e == nil {
			return nil
		}
		if a, ok := e.(ir.Aggregate); ok {
			h, err := ir.Hash(a)
			if err != nil {
				return err
			}
			if _, exists := aggIndex[h]; !exists {
				aggIndex[h] = aggFieldName(len(aggs))
				aggs = append(aggs, a)
			}
			return nil
		}
		for _, c := range e.Children() {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	for _, item := range items {
		if err := walk(item.Expression); err != nil {
			return nil, nil, err
		}
	}
	return aggs, aggIndex, nil
}

// rewriteForSnapshot replaces, within a SELECT expression, every
// subexpression that structurally equals a GROUP BY expression with a
// reference to that group's raw key field, and every Aggregate with a
// reference to its precomputed snapshot field, so the rewritten expression
// can be compiled and evaluated directly against a GroupBy snapshot.
func rewriteForSnapshot(e ir.Expression, groupBy []ir.Expression, aggIndex map[uint64]string) (ir.Expression, error) {
	if e == nil {
		return nil, nil
	}
	for i, g := range groupBy {
		if ir.Equal(e, g) {
			return ir.PropRef{Path: []string{"__key__", groupKeyField(i)}}, nil
		}
	}
	if a, ok := e.(ir.Aggregate); ok {
		h, err := ir.Hash(a)
		if err != nil {
			return nil, err
		}
		name, ok := aggIndex[h]
		if !ok {
			return nil, ir.ErrUnsupportedAggregateFunction.New(a.Name)
		}
		return ir.PropRef{Path: []string{"__agg__", name}}, nil
	}
	if f, ok := e.(ir.Func); ok {
		args := make([]ir.Expression, len(f.Args))
		for i, a := range f.Args {
			r, err := rewriteForSnapshot(a, groupBy, aggIndex)
			if err != nil {
				return nil, err
			}
			args[i] = r
		}
		return ir.Func{Name: f.Name, Args: args}, nil
	}
	return e, nil
}

// snapshotToRecord flattens a GroupBy snapshot (raw key fields nested under
// dataflow.GroupKeyField, aggregate fields at the top level) into one flat
// record a compiled Evaluator.Record can read.
func snapshotToRecord(snapshot map[string]any) ir.Record {
	rec := ir.Record{}
	if raw, ok := snapshot[dataflow.GroupKeyField]; ok {
		if km, ok := raw.(map[string]any); ok {
			for k, v := range km {
				rec[k] = v
			}
		}
	}
	for k, v := range snapshot {
		if k == dataflow.GroupKeyField {
			continue
		}
		rec[k] = v
	}
	return rec
}

// rewriteHaving implements spec §4.5 step 5's HAVING rewrite: an aggregate
// subexpression matching a SELECT aggregate becomes result.<alias>, and a
// bare reference to a SELECT alias is rewritten the same way. Aggregates
// not present in SELECT fail compilation.
func rewriteHaving(e ir.Expression, items []ir.SelectItem) (ir.Expression, error) {
	if e == nil {
		return nil, nil
	}
	if a, ok := e.(ir.Aggregate); ok {
		for _, item := range items {
			if ir.Equal(item.Expression, a) {
				return ir.PropRef{Path: []string{"result", item.Alias}}, nil
			}
		}
		return nil, ir.ErrAggregateFunctionNotInSelect.New(a.Name)
	}
	if pr, ok := e.(ir.PropRef); ok && len(pr.Path) == 1 {
		alias := pr.Path[0]
		for _, item := range items {
			if item.Alias == alias {
				return ir.PropRef{Path: []string{"result", alias}}, nil
			}
		}
		return nil, ir.ErrUnknownHavingExpressionType.New(e)
	}
	if f, ok := e.(ir.Func); ok {
		args := make([]ir.Expression, len(f.Args))
		for i, a := range f.Args {
			r, err := rewriteHaving(a, items)
			if err != nil {
				return nil, err
			}
			args[i] = r
		}
		return ir.Func{Name: f.Name, Args: args}, nil
	}
	return e, nil
}

// wireGroupByHavingSelect wires GROUP BY, the late SELECT projection built
// from its aggregate/group-key snapshot, and HAVING (spec §4.5 steps 5-6).
// It returns the sink the WHERE/JOIN chain upstream of GROUP BY should feed
// into.
func wireGroupByHavingSelect(ctx *Context, q *ir.Query, sink dataflow.Sink) (dataflow.Sink, error) {
	if err := validateGroupBySelectItems(q); err != nil {
		return nil, err
	}

	groupKeyEvals := make([]exprcompile.Evaluator, len(q.GroupBy))
	for i, e := range q.GroupBy {
		ev, err := exprcompile.Compile(e)
		if err != nil {
			return nil, err
		}
		groupKeyEvals[i] = ev
	}

	aggs, aggIndex, err := collectSelectAggregates(q.Select)
	if err != nil {
		return nil, err
	}

	specs := make([]dataflow.AggSpec, len(aggs))
	for i, agg := range aggs {
		fieldName := aggFieldName(i)
		var argEval exprcompile.Evaluator
		if len(agg.Args) > 0 {
			ev, err := exprcompile.Compile(agg.Args[0])
			if err != nil {
				return nil, err
			}
			argEval = ev
		}
		kind, err := aggKindOf(agg.Name)
		if err != nil {
			return nil, err
		}
		specs[i] = dataflow.AggSpec{
			Name: fieldName,
			Kind: kind,
			Extract: func(value any) (float64, bool) {
				rs, _ := value.(rowState)
				if argEval == nil {
					return 0, false
				}
				v, err := argEval.Namespaced(rs.Row)
				if err != nil {
					return 0, false
				}
				return toFloatOK(v)
			},
		}
	}

	selectEvals := make([]exprcompile.Evaluator, len(q.Select))
	for i, item := range q.Select {
		rewritten, err := rewriteForSnapshot(item.Expression, q.GroupBy, aggIndex)
		if err != nil {
			return nil, err
		}
		ev, err := exprcompile.Compile(rewritten)
		if err != nil {
			return nil, err
		}
		selectEvals[i] = ev
	}

	var havingEval exprcompile.Evaluator
	if q.Having != nil {
		rewritten, err := rewriteHaving(q.Having, q.Select)
		if err != nil {
			return nil, err
		}
		havingEval, err = exprcompile.Compile(rewritten)
		if err != nil {
			return nil, err
		}
	}

	havingFilter := dataflow.NewFilter(func(t dataflow.Tuple) bool {
		rs, _ := t.Value.(rowState)
		if havingEval != nil {
			v, err := havingEval.Record(rs.Result)
			if err != nil || !truthyValue(v) {
				return false
			}
		}
		if q.FnHaving != nil && !q.FnHaving(rs.Result) {
			return false
		}
		return true
	}, sink)
	ctx.add(havingFilter)

	lateSelect := dataflow.NewMap(func(t dataflow.Tuple) dataflow.Tuple {
		snapshot, _ := t.Value.(map[string]any)
		rec := snapshotToRecord(snapshot)
		res := make(ir.Record, len(q.Select))
		for i, item := range q.Select {
			v, _ := selectEvals[i].Record(rec)
			res[item.Alias] = v
		}
		return dataflow.Tuple{Key: t.Key, Value: rowState{Result: res}}
	}, havingFilter.Sink())
	ctx.add(lateSelect)

	keyFn := func(value any) any {
		rs, _ := value.(rowState)
		if len(groupKeyEvals) == 0 {
			return "*"
		}
		key := make(map[string]any, len(groupKeyEvals))
		for i, ev := range groupKeyEvals {
			v, _ := ev.Namespaced(rs.Row)
			key[groupKeyField(i)] = v
		}
		return key
	}

	gb := dataflow.NewGroupBy(keyFn, specs, lateSelect.Sink())
	ctx.add(gb)
	return gb.Sink(), nil
}
