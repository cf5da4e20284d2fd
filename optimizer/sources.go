// Package optimizer rewrites query IR to push single-source WHERE clauses
// as close to their data sources as safely possible, and to eliminate
// redundant subqueries introduced by that pushdown (spec §4.4).
package optimizer

import "github.com/liveql/engine/ir"

// Sources computes the set of aliases referenced by an expression's
// PropRef leaves. A clause over an Aggregate is treated as referring to
// whatever alias its arguments reference, since Aggregate.Children()
// already exposes its Args for the generic tree walk below.
func Sources(e ir.Expression) map[string]bool {
	out := map[string]bool{}
	collectSources(e, out)
	return out
}

func collectSources(e ir.Expression, out map[string]bool) {
	if e == nil {
		return
	}
	if pr, ok := e.(ir.PropRef); ok {
		if alias := pr.Alias(); alias != "" {
			out[alias] = true
		}
	}
	for _, c := range e.Children() {
		collectSources(c, out)
	}
}

func aliasOf(f ir.From) string { return AliasOf(f) }

// AliasOf returns the alias a FROM/JOIN source is bound to, used by both
// the optimizer's pushdown targeting and the query compiler's join-side
// resolution.
func AliasOf(f ir.From) string {
	switch v := f.(type) {
	case ir.CollectionRef:
		return v.Alias
	case ir.QueryRef:
		return v.Alias
	default:
		return ""
	}
}

// unsafeForPushdown implements the subquery safety gate (spec §4.4 rule
// 6): pushdown into a subquery is disallowed when it aggregates, limits,
// offsets, or has any functional (opaque) clause. ORDER BY alone is safe.
func unsafeForPushdown(q *ir.Query) bool {
	return q.IsAggregating() ||
		q.Having != nil ||
		q.Limit != nil ||
		q.Offset != nil ||
		q.IsFunctional()
}
