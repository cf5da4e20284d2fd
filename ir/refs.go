package ir

// CollectionRefs walks a Query tree and returns every CollectionRef leaf,
// including those nested inside JOIN clauses and subqueries (spec §4.6:
// "Extract all CollectionRef leaves from the IR"). The returned slice may
// contain duplicate Collection names under different aliases; callers that
// want a collectionId -> source map should key by Collection.
func CollectionRefs(q *Query) []CollectionRef {
	var out []CollectionRef
	collectRefsFrom(q.From, &out)
	for _, j := range q.Join {
		collectRefsFrom(j.From, &out)
	}
	collectRefsFromSubqueryExprs(q, &out)
	return out
}

func collectRefsFrom(f From, out *[]CollectionRef) {
	switch v := f.(type) {
	case CollectionRef:
		*out = append(*out, v)
	case QueryRef:
		*out = append(*out, CollectionRefs(v.Query)...)
	}
}

// collectRefsFromSubqueryExprs looks for Subquery-valued expressions inside
// WHERE/SELECT/HAVING once the expression model grows scalar subqueries;
// the current expression set (Val, PropRef, Func, Aggregate) never embeds a
// Query, so this is a no-op today and exists so future expression variants
// that do embed a Query cannot silently evade the driver's source
// discovery.
func collectRefsFromSubqueryExprs(q *Query, out *[]CollectionRef) {}
