package optimizer

import "github.com/liveql/engine/ir"

const maxRecursionDepth = 64

// Mapping records, for every QueryRef the optimizer rewrote or passed
// through, the identity of the original subquery it was derived from. The
// query compiler keys its sub-pipeline cache off these original pointers
// (spec §4.5) so that references to the same original subquery share one
// compiled pipeline even though the optimizer gave each occurrence its own
// rewritten copy.
type Mapping map[*ir.Query]*ir.Query

// Optimize applies predicate pushdown and subquery flattening to q,
// returning a new, fully rewritten Query and the identity mapping the
// compiler needs for sub-pipeline sharing. q itself is never mutated.
func Optimize(q *ir.Query) (*ir.Query, Mapping, error) {
	refCounts := map[*ir.Query]int{}
	countQueryRefs(q, refCounts)

	mapping := Mapping{}
	out, err := rewriteQuery(q, nil, refCounts, mapping, 0)
	if err != nil {
		return nil, nil, err
	}
	return out, mapping, nil
}

// countQueryRefs counts, across the whole original tree, how many distinct
// From/JOIN positions reference each *ir.Query pointer. A count greater
// than one marks a subquery object that is shared between positions, which
// rule 8's copy-on-write identity map must protect from cross-position
// predicate leakage.
func countQueryRefs(q *ir.Query, counts map[*ir.Query]int) {
	countFromRef(q.From, counts)
	for _, j := range q.Join {
		countFromRef(j.From, counts)
	}
}

func countFromRef(f ir.From, counts map[*ir.Query]int) {
	if qr, ok := f.(ir.QueryRef); ok {
		counts[qr.Query]++
		countQueryRefs(qr.Query, counts)
	}
}

// rewriteQuery rewrites a single query level: it merges extra (predicates
// pushed down into this position by a parent level) with q's own WHERE,
// classifies every resulting clause by source count, pushes single-source
// clauses into the matching FROM/JOIN slot when safe, and leaves the rest
// in the returned query's WHERE.
func rewriteQuery(q *ir.Query, extra []ir.Expression, refCounts map[*ir.Query]int, mapping Mapping, depth int) (*ir.Query, error) {
	if depth > maxRecursionDepth {
		return q, nil
	}

	nq := *q

	clauses := append(ir.SplitConjunction(q.Where), extra...)
	pending := map[string][]ir.Expression{}
	var outer []ir.Expression

	for _, c := range clauses {
		srcs := Sources(c)
		switch len(srcs) {
		case 0:
			// Clause references no alias in scope; spec §4.4 rule 2 drops it.
		case 1:
			var alias string
			for a := range srcs {
				alias = a
			}
			if len(q.Join) == 0 {
				// Nothing to push past: already at its single source.
				outer = append(outer, c)
			} else {
				pending[alias] = append(pending[alias], c)
			}
		default:
			outer = append(outer, c)
		}
	}

	newFrom, declined, err := rewriteFromSlot(q.From, pending, refCounts, mapping, depth)
	if err != nil {
		return nil, err
	}
	outer = append(outer, declined...)
	nq.From = newFrom

	if len(q.Join) > 0 {
		newJoins := make([]ir.JoinClause, len(q.Join))
		for i, j := range q.Join {
			jf, jdeclined, err := rewriteFromSlot(j.From, pending, refCounts, mapping, depth)
			if err != nil {
				return nil, err
			}
			outer = append(outer, jdeclined...)
			newJoins[i] = ir.JoinClause{From: jf, Type: j.Type, Left: j.Left, Right: j.Right}
		}
		nq.Join = newJoins
	}

	// Any alias left in pending matched nothing in From/Join (should not
	// happen once ir.Validate has run, but fold it back in defensively
	// rather than silently drop a predicate).
	for _, cs := range pending {
		outer = append(outer, cs...)
	}

	nq.Where = ir.And(outer...)
	return &nq, nil
}

// rewriteFromSlot rewrites a single FROM or JOIN source, pushing any
// pending clauses addressed to its alias into it when safe. It returns the
// clauses it declined to push (unsafe target, or a shared subquery it
// must not risk leaking predicates into) so the caller can fold them back
// into its own WHERE.
func rewriteFromSlot(f ir.From, pending map[string][]ir.Expression, refCounts map[*ir.Query]int, mapping Mapping, depth int) (ir.From, []ir.Expression, error) {
	alias := aliasOf(f)
	clauses := pending[alias]
	delete(pending, alias)

	switch v := f.(type) {
	case ir.CollectionRef:
		if len(clauses) == 0 {
			return v, nil, nil
		}
		inner := &ir.Query{From: v}
		newInner, err := rewriteQuery(inner, clauses, refCounts, mapping, depth+1)
		if err != nil {
			return nil, nil, err
		}
		return flattenIfRedundant(ir.QueryRef{Query: newInner, Alias: v.Alias}), nil, nil

	case ir.QueryRef:
		var toPush, declined []ir.Expression
		if len(clauses) > 0 && (unsafeForPushdown(v.Query) || refCounts[v.Query] > 1) {
			declined = clauses
		} else {
			toPush = clauses
		}
		newInner, err := rewriteQuery(v.Query, toPush, refCounts, mapping, depth+1)
		if err != nil {
			return nil, nil, err
		}
		mapping[newInner] = v.Query
		return flattenIfRedundant(ir.QueryRef{Query: newInner, Alias: v.Alias}), declined, nil

	default:
		return nil, nil, ir.ErrUnsupportedJoinSourceType.New(f)
	}
}

// flattenIfRedundant collapses a QueryRef whose inner query does nothing
// but read its own FROM (spec §4.4 rule 7) back down to that FROM,
// rebinding it to the outer alias.
func flattenIfRedundant(qr ir.QueryRef) ir.From {
	q := qr.Query
	if q.Where == nil && len(q.Select) == 0 && len(q.Join) == 0 &&
		len(q.GroupBy) == 0 && q.Having == nil && len(q.OrderBy) == 0 &&
		q.Limit == nil && q.Offset == nil && !q.IsFunctional() {
		return rebindAlias(q.From, qr.Alias)
	}
	return qr
}

func rebindAlias(f ir.From, alias string) ir.From {
	switch v := f.(type) {
	case ir.CollectionRef:
		v.Alias = alias
		return v
	case ir.QueryRef:
		v.Alias = alias
		return v
	default:
		return f
	}
}
