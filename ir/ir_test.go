package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitConjunction(t *testing.T) {
	a := Func{Name: "eq", Args: []Expression{PropRef{Path: []string{"u", "id"}}, Val{Value: int64(1)}}}
	b := Func{Name: "eq", Args: []Expression{PropRef{Path: []string{"u", "active"}}, Val{Value: true}}}
	c := Func{Name: "gt", Args: []Expression{PropRef{Path: []string{"u", "age"}}, Val{Value: int64(18)}}}

	clauses := SplitConjunction(And(a, And(b, c)))
	require.Len(t, clauses, 3)
	require.True(t, Equal(clauses[0], a))
	require.True(t, Equal(clauses[1], b))
	require.True(t, Equal(clauses[2], c))

	// OR is never split.
	or := Func{Name: "or", Args: []Expression{a, b}}
	require.Equal(t, []Expression{or}, SplitConjunction(or))
}

func TestEqualStructural(t *testing.T) {
	a := Aggregate{Name: "sum", Args: []Expression{PropRef{Path: []string{"o", "amt"}}}}
	b := Aggregate{Name: "sum", Args: []Expression{PropRef{Path: []string{"o", "amt"}}}}
	c := Aggregate{Name: "sum", Args: []Expression{PropRef{Path: []string{"o", "qty"}}}}

	require.True(t, Equal(a, b))
	require.False(t, Equal(a, c))
	require.True(t, Contains(Func{Name: "gt", Args: []Expression{a, Val{Value: int64(1)}}}, b))
}

func TestValidateLimitWithoutOrderBy(t *testing.T) {
	lim := 10
	q := &Query{
		From:  CollectionRef{Collection: "users", Alias: "u"},
		Limit: &lim,
	}
	err := Validate(q)
	require.True(t, ErrLimitOffsetWithoutOrderBy.Is(err))
}

func TestValidateUnknownAlias(t *testing.T) {
	q := &Query{
		From:  CollectionRef{Collection: "users", Alias: "u"},
		Where: Func{Name: "eq", Args: []Expression{PropRef{Path: []string{"p", "id"}}, Val{Value: int64(1)}}},
	}
	err := Validate(q)
	require.Error(t, err)
}

func TestCollectionRefsNested(t *testing.T) {
	inner := &Query{From: CollectionRef{Collection: "posts", Alias: "p"}}
	q := &Query{
		From: CollectionRef{Collection: "users", Alias: "u"},
		Join: []JoinClause{
			{From: QueryRef{Query: inner, Alias: "p"}, Type: InnerJoin,
				Left:  PropRef{Path: []string{"u", "id"}},
				Right: PropRef{Path: []string{"p", "userId"}}},
		},
	}
	refs := CollectionRefs(q)
	require.Len(t, refs, 2)
	require.Equal(t, "users", refs[0].Collection)
	require.Equal(t, "posts", refs[1].Collection)
}
