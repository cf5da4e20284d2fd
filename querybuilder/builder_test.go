package querybuilder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liveql/engine/ir"
)

func TestBuildSimpleFilter(t *testing.T) {
	q, err := From("users", "u").
		Where(Eq(Prop("u", "active"), Lit(true))).
		Build()
	require.NoError(t, err)
	require.Equal(t, ir.CollectionRef{Collection: "users", Alias: "u"}, q.From)
	require.NotNil(t, q.Where)
}

func TestBuildJoinAndSelect(t *testing.T) {
	q, err := From("users", "u").
		Join(ir.InnerJoin, "posts", "p", Prop("u", "id"), Prop("p", "userId")).
		Select("name", Prop("u", "name")).
		Select("post", Prop("p", "id")).
		Build()
	require.NoError(t, err)
	require.Len(t, q.Join, 1)
	require.Len(t, q.Select, 2)
}

func TestBuildGroupByHaving(t *testing.T) {
	q, err := From("orders", "o").
		GroupBy(Prop("o", "cust")).
		Select("cust", Prop("o", "cust")).
		Select("total", Sum(Prop("o", "amt"))).
		Having(Gt(Sum(Prop("o", "amt")), Lit(int64(150)))).
		Build()
	require.NoError(t, err)
	require.Len(t, q.GroupBy, 1)
	require.NotNil(t, q.Having)
}

func TestBuildOrderByLimitRejectsMissingOrderBy(t *testing.T) {
	_, err := From("users", "u").Limit(5).Build()
	require.Error(t, err)
}

func TestBuildOrderByLimit(t *testing.T) {
	q, err := From("users", "u").
		OrderBy(Prop("u", "age"), ir.Desc, ir.NullsLast, ir.Lexical).
		Limit(2).
		Build()
	require.NoError(t, err)
	require.Len(t, q.OrderBy, 1)
	require.Equal(t, 2, *q.Limit)
}
