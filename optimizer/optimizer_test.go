package optimizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liveql/engine/ir"
)

func propRef(alias, field string) ir.PropRef { return ir.PropRef{Path: []string{alias, field}} }

func eq(l, r ir.Expression) ir.Expression { return ir.Func{Name: "eq", Args: []ir.Expression{l, r}} }

// TestPushdownSingleSourceIntoJoinedCollection matches spec §8 scenario 6:
// a WHERE clause over one joined alias is pushed into that alias's source
// rather than evaluated after the join.
func TestPushdownSingleSourceIntoJoinedCollection(t *testing.T) {
	q := &ir.Query{
		From: ir.CollectionRef{Collection: "orders", Alias: "o"},
		Join: []ir.JoinClause{
			{
				From: ir.CollectionRef{Collection: "customers", Alias: "c"},
				Type: ir.InnerJoin,
				Left: propRef("o", "customerId"),
				Right: propRef("c", "id"),
			},
		},
		Where: ir.And(
			eq(propRef("c", "country"), ir.Val{Value: "US"}),
			eq(propRef("o", "status"), ir.Val{Value: "open"}),
		),
	}

	out, mapping, err := Optimize(q)
	require.NoError(t, err)

	// The outer WHERE is now empty: both clauses were single-source and
	// each had a JOIN to push across.
	require.Nil(t, out.Where)

	oRef, ok := out.From.(ir.QueryRef)
	require.True(t, ok, "orders source should have been wrapped to receive its pushed clause")
	require.Equal(t, "o", oRef.Alias)
	require.NotNil(t, oRef.Query.Where)

	cRef, ok := out.Join[0].From.(ir.QueryRef)
	require.True(t, ok, "customers source should have been wrapped to receive its pushed clause")
	require.Equal(t, "c", cRef.Alias)
	require.NotNil(t, cRef.Query.Where)

	// Both synthetic wrappers are unique to this position; no mapping entry
	// is required for either since there is no original identity to share.
	require.NotContains(t, mapping, oRef.Query)
	require.NotContains(t, mapping, cRef.Query)
}

// TestMultiSourceClauseStaysOuter checks that a clause touching both sides
// of a join is never pushed down (spec §4.4 rule 4).
func TestMultiSourceClauseStaysOuter(t *testing.T) {
	q := &ir.Query{
		From: ir.CollectionRef{Collection: "orders", Alias: "o"},
		Join: []ir.JoinClause{
			{
				From: ir.CollectionRef{Collection: "customers", Alias: "c"},
				Type: ir.InnerJoin,
				Left: propRef("o", "customerId"),
				Right: propRef("c", "id"),
			},
		},
		Where: eq(propRef("o", "region"), propRef("c", "region")),
	}

	out, _, err := Optimize(q)
	require.NoError(t, err)
	require.NotNil(t, out.Where)
	require.Equal(t, ir.CollectionRef{Collection: "orders", Alias: "o"}, out.From)
	require.Equal(t, ir.CollectionRef{Collection: "customers", Alias: "c"}, out.Join[0].From)
}

// TestRedundantSubqueryFlattened checks rule 7: a subquery wrapper with no
// content of its own collapses back to a bare CollectionRef.
func TestRedundantSubqueryFlattened(t *testing.T) {
	q := &ir.Query{
		From: ir.QueryRef{
			Query: &ir.Query{From: ir.CollectionRef{Collection: "widgets", Alias: "w"}},
			Alias: "w",
		},
	}

	out, _, err := Optimize(q)
	require.NoError(t, err)
	require.Equal(t, ir.CollectionRef{Collection: "widgets", Alias: "w"}, out.From)
}

// TestUnsafePushdownGate checks rule 6: a subquery that aggregates refuses
// a pushed predicate, which must remain in the outer WHERE instead.
func TestUnsafePushdownGate(t *testing.T) {
	inner := &ir.Query{
		From:    ir.CollectionRef{Collection: "orders", Alias: "o"},
		Select:  []ir.SelectItem{{Alias: "total", Expression: ir.Aggregate{Name: "sum", Args: []ir.Expression{propRef("o", "amount")}}}},
		GroupBy: []ir.Expression{propRef("o", "customerId")},
	}
	q := &ir.Query{
		From: ir.QueryRef{Query: inner, Alias: "agg"},
		Join: []ir.JoinClause{
			{From: ir.CollectionRef{Collection: "regions", Alias: "r"}, Type: ir.InnerJoin, Left: propRef("agg", "customerId"), Right: propRef("r", "customerId")},
		},
		Where: eq(propRef("agg", "total"), ir.Val{Value: int64(100)}),
	}

	out, _, err := Optimize(q)
	require.NoError(t, err)
	require.NotNil(t, out.Where, "clause over an aggregating subquery must stay outer")
	aggRef, ok := out.From.(ir.QueryRef)
	require.True(t, ok)
	require.Nil(t, aggRef.Query.Where)
}

// TestSharedSubqueryNeverLeaksPredicates verifies rule 8: the same
// subquery object referenced from two join positions must not have a
// predicate intended for one position leak into the other.
func TestSharedSubqueryNeverLeaksPredicates(t *testing.T) {
	// ORDER BY keeps the subquery from being flattened away (rule 7) while
	// leaving it safe for pushdown (rule 6), so only the sharing blocks it.
	shared := &ir.Query{
		From: ir.CollectionRef{Collection: "items", Alias: "i"},
		OrderBy: []ir.OrderByEntry{
			{Expression: propRef("i", "id"), Direction: ir.Asc, Nulls: ir.NullsLast, StringSort: ir.Lexical},
		},
	}
	q := &ir.Query{
		From: ir.QueryRef{Query: shared, Alias: "a"},
		Join: []ir.JoinClause{
			{From: ir.QueryRef{Query: shared, Alias: "b"}, Type: ir.InnerJoin, Left: propRef("a", "id"), Right: propRef("b", "id")},
		},
		Where: eq(propRef("a", "status"), ir.Val{Value: "active"}),
	}

	out, mapping, err := Optimize(q)
	require.NoError(t, err)

	require.NotNil(t, out.Where, "pushdown into a multiply-referenced subquery must be declined")

	aRef := out.From.(ir.QueryRef)
	bRef := out.Join[0].From.(ir.QueryRef)
	require.Nil(t, aRef.Query.Where)
	require.Nil(t, bRef.Query.Where)
	require.NotSame(t, aRef.Query, bRef.Query, "each position must get its own copy")
	require.Same(t, shared, mapping[aRef.Query])
	require.Same(t, shared, mapping[bRef.Query])
}

func TestZeroSourceClauseDiscarded(t *testing.T) {
	q := &ir.Query{
		From:  ir.CollectionRef{Collection: "widgets", Alias: "w"},
		Where: eq(ir.Val{Value: 1}, ir.Val{Value: 1}),
	}
	out, _, err := Optimize(q)
	require.NoError(t, err)
	require.Nil(t, out.Where)
}
