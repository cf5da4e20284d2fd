package querycompiler

import (
	"fmt"

	"github.com/liveql/engine/dataflow"
	"github.com/liveql/engine/exprcompile"
	"github.com/liveql/engine/ir"
	"github.com/liveql/engine/optimizer"
)

// runtimeJoinType normalizes the two surface-level join spellings the
// dataflow layer does not execute directly: cross becomes inner (paired
// with a constant join key below), outer becomes full (spec §4.5 step 4:
// "cross -> inner; outer -> full").
func runtimeJoinType(t ir.JoinType) (dataflow.JoinType, error) {
	switch t {
	case ir.InnerJoin, ir.CrossJoin:
		return dataflow.Inner, nil
	case ir.LeftJoin:
		return dataflow.Left, nil
	case ir.RightJoin:
		return dataflow.Right, nil
	case ir.FullJoin, ir.OuterJoin:
		return dataflow.Full, nil
	default:
		return 0, ir.ErrUnsupportedJoinType.New(t)
	}
}

// mainAliases returns every alias in scope before join index i: the FROM
// alias plus every prior JOIN's alias.
func mainAliases(q *ir.Query, upTo int) map[string]bool {
	out := map[string]bool{optimizer.AliasOf(q.From): true}
	for i := 0; i < upTo; i++ {
		out[optimizer.AliasOf(q.Join[i].From)] = true
	}
	return out
}

// soleAlias returns the single alias an expression references, or "" if it
// references zero or more than one (a malformed join condition either way
// — equality join conditions are always single-alias on each side).
func soleAlias(set map[string]bool) string {
	if len(set) != 1 {
		return ""
	}
	for a := range set {
		return a
	}
	return ""
}

// resolveJoinSides determines which of left/right references the running
// main-side alias set vs. the newly joined alias, swapping if the clause
// was written joined-side-first (spec §4.5 step 4). ir.CrossJoin has no
// condition to resolve and always keys both sides by a constant.
func resolveJoinSides(q *ir.Query, i int, jc ir.JoinClause) (mainExpr, joinedExpr ir.Expression, err error) {
	if jc.Type == ir.CrossJoin {
		return ir.Val{Value: int64(0)}, ir.Val{Value: int64(0)}, nil
	}

	main := mainAliases(q, i)
	joined := optimizer.AliasOf(jc.From)

	leftAlias := soleAlias(optimizer.Sources(jc.Left))
	rightAlias := soleAlias(optimizer.Sources(jc.Right))

	leftIsMain, leftIsJoined := main[leftAlias], leftAlias == joined
	rightIsMain, rightIsJoined := main[rightAlias], rightAlias == joined

	switch {
	case leftAlias != "" && leftAlias == rightAlias:
		return nil, nil, ir.ErrInvalidJoinConditionSameTable.New(leftAlias)
	case leftIsMain && rightIsJoined:
		return jc.Left, jc.Right, nil
	case rightIsMain && leftIsJoined:
		return jc.Right, jc.Left, nil
	case !leftIsMain && !leftIsJoined:
		return nil, nil, ir.ErrInvalidJoinConditionWrongTables.New([]string{leftAlias})
	case !rightIsMain && !rightIsJoined:
		return nil, nil, ir.ErrInvalidJoinConditionWrongTables.New([]string{rightAlias})
	default:
		return nil, nil, ir.ErrInvalidJoinConditionTableMismatch.New(leftAlias, rightAlias, joined)
	}
}

// compileJoinChain wires q.From and every q.Join entry into a chain of
// dataflow.Join operators. Because each Join needs its downstream sink at
// construction time, the chain is built back to front: the last join is
// constructed first (feeding the caller's sink), and each earlier join is
// constructed to feed the one built before it. See Context.add's
// consumer-first/reverse discipline.
func compileJoinChain(q *ir.Query, ctx *Context, sink dataflow.Sink) error {
	if len(q.Join) == 0 {
		return compileFrom(q.From, ctx, sink)
	}

	next := sink
	for i := len(q.Join) - 1; i >= 0; i-- {
		jc := q.Join[i]

		rt, err := runtimeJoinType(jc.Type)
		if err != nil {
			return err
		}
		mainExpr, joinedExpr, err := resolveJoinSides(q, i, jc)
		if err != nil {
			return err
		}
		mainEval, err := exprcompile.Compile(mainExpr)
		if err != nil {
			return err
		}
		joinedEval, err := exprcompile.Compile(joinedExpr)
		if err != nil {
			return err
		}

		downstream := next
		mergeMap := dataflow.NewMap(func(t dataflow.Tuple) dataflow.Tuple {
			p, _ := t.Value.(dataflow.Pair)
			merged, key := mergeJoinPair(p)
			return dataflow.Tuple{Key: key, Value: merged}
		}, downstream)
		ctx.add(mergeMap)

		join := dataflow.NewJoin(rt, mergeMap.Sink())
		ctx.add(join)

		joinedKeyed := dataflow.NewMap(func(t dataflow.Tuple) dataflow.Tuple {
			rs, _ := t.Value.(rowState)
			k, _ := joinedEval.Namespaced(rs.Row)
			return dataflow.Tuple{Key: k, Value: rs}
		}, join.Right())
		ctx.add(joinedKeyed)
		if err := compileFrom(jc.From, ctx, joinedKeyed.Sink()); err != nil {
			return err
		}

		mainKeyed := dataflow.NewMap(func(t dataflow.Tuple) dataflow.Tuple {
			rs, _ := t.Value.(rowState)
			k, _ := mainEval.Namespaced(rs.Row)
			return dataflow.Tuple{Key: k, Value: rs}
		}, join.Left())
		ctx.add(mainKeyed)

		if i == 0 {
			return compileFrom(q.From, ctx, mainKeyed.Sink())
		}
		next = mainKeyed.Sink()
	}
	return nil
}

// mergeJoinPair merges a matched (or null-padded) join pair into one
// rowState, and computes its composite result key "[mainKey,joinedKey]"
// (spec §4.5 step 4).
func mergeJoinPair(p dataflow.Pair) (rowState, any) {
	row := ir.NamespacedRow{}
	var mainKey, joinedKey any

	if p.Left != nil {
		l := p.Left.(rowState)
		for alias, rec := range l.Row {
			row[alias] = rec
		}
		mainKey = l.Key
	}
	if p.Right != nil {
		r := p.Right.(rowState)
		for alias, rec := range r.Row {
			row[alias] = rec
		}
		joinedKey = r.Key
	}

	key := fmt.Sprintf("[%v,%v]", mainKey, joinedKey)
	return rowState{Row: row, Key: key}, key
}
