package livequery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/liveql/engine/collection"
	"github.com/liveql/engine/ir"
)

func byID(rec ir.Record) ir.Key { return rec["id"] }

func propRef(alias, field string) ir.PropRef { return ir.PropRef{Path: []string{alias, field}} }
func eq(l, r ir.Expression) ir.Expression    { return ir.Func{Name: "eq", Args: []ir.Expression{l, r}} }

func mustPreload(t *testing.T, lq *LiveQuery) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, lq.Preload(ctx))
}

func TestFilterEquality(t *testing.T) {
	users := collection.NewMemory(byID)
	users.Insert(ir.Record{"id": int64(1), "active": true})
	users.Insert(ir.Record{"id": int64(2), "active": false})
	users.Insert(ir.Record{"id": int64(3), "active": true})

	lq, err := New(&ir.Query{
		From:  ir.CollectionRef{Collection: "users", Alias: "users"},
		Where: eq(propRef("users", "active"), ir.Val{Value: true}),
	}, map[string]collection.Source{"users": users})
	require.NoError(t, err)
	mustPreload(t, lq)

	require.Equal(t, 2, lq.Size())
	_, ok := lq.Get(int64(1))
	require.True(t, ok)
	_, ok = lq.Get(int64(3))
	require.True(t, ok)

	users.Update(ir.Record{"id": int64(3), "active": false})
	require.Equal(t, 1, lq.Size())
	_, ok = lq.Get(int64(3))
	require.False(t, ok)
}

func TestInnerJoin(t *testing.T) {
	users := collection.NewMemory(byID)
	users.Insert(ir.Record{"id": int64(1), "name": "Alice"})
	users.Insert(ir.Record{"id": int64(2), "name": "Bob"})

	posts := collection.NewMemory(byID)
	posts.Insert(ir.Record{"id": int64(10), "userId": int64(1)})
	posts.Insert(ir.Record{"id": int64(11), "userId": int64(3)})

	lq, err := New(&ir.Query{
		From: ir.CollectionRef{Collection: "users", Alias: "users"},
		Join: []ir.JoinClause{{
			From:  ir.CollectionRef{Collection: "posts", Alias: "posts"},
			Type:  ir.InnerJoin,
			Left:  propRef("users", "id"),
			Right: propRef("posts", "userId"),
		}},
		Select: []ir.SelectItem{
			{Alias: "u", Expression: propRef("users", "name")},
			{Alias: "p", Expression: propRef("posts", "id")},
		},
	}, map[string]collection.Source{"users": users, "posts": posts})
	require.NoError(t, err)
	mustPreload(t, lq)

	require.Equal(t, 1, lq.Size())
	rec, ok := lq.Get("[1,10]")
	require.True(t, ok)
	require.Equal(t, ir.Record{"u": "Alice", "p": int64(10)}, rec)

	posts.Insert(ir.Record{"id": int64(12), "userId": int64(2)})
	require.Equal(t, 2, lq.Size())
	rec, ok = lq.Get("[2,12]")
	require.True(t, ok)
	require.Equal(t, ir.Record{"u": "Bob", "p": int64(12)}, rec)
}

func TestOrderByLimit(t *testing.T) {
	users := collection.NewMemory(byID)
	users.Insert(ir.Record{"id": int64(1), "name": "Alice", "age": int64(25)})
	users.Insert(ir.Record{"id": int64(2), "name": "Bob", "age": int64(19)})
	users.Insert(ir.Record{"id": int64(3), "name": "Charlie", "age": int64(30)})
	users.Insert(ir.Record{"id": int64(4), "name": "Dave", "age": int64(22)})

	limit := 2
	lq, err := New(&ir.Query{
		From: ir.CollectionRef{Collection: "users", Alias: "u"},
		OrderBy: []ir.OrderByEntry{
			{Expression: propRef("u", "age"), Direction: ir.Desc, Nulls: ir.NullsLast, StringSort: ir.Lexical},
		},
		Limit: &limit,
	}, map[string]collection.Source{"users": users})
	require.NoError(t, err)
	mustPreload(t, lq)

	names := func() []string {
		out := make([]string, 0)
		for _, rec := range lq.Values() {
			out = append(out, rec["name"].(string))
		}
		return out
	}
	require.Equal(t, 2, lq.Size())
	require.ElementsMatch(t, []string{"Charlie", "Alice"}, names())

	users.Update(ir.Record{"id": int64(2), "name": "Bob", "age": int64(40)})
	require.ElementsMatch(t, []string{"Bob", "Charlie"}, names())
}

func TestPreloadResolvesOnEmptySources(t *testing.T) {
	users := collection.NewMemory(byID)

	lq, err := New(&ir.Query{
		From: ir.CollectionRef{Collection: "users", Alias: "u"},
	}, map[string]collection.Source{"users": users})
	require.NoError(t, err)

	mustPreload(t, lq)
	require.Equal(t, StatusReady, lq.Status())
	require.Equal(t, 0, lq.Size())
}

func TestCloseStopsPropagation(t *testing.T) {
	users := collection.NewMemory(byID)
	users.Insert(ir.Record{"id": int64(1), "active": true})

	lq, err := New(&ir.Query{
		From: ir.CollectionRef{Collection: "users", Alias: "u"},
	}, map[string]collection.Source{"users": users})
	require.NoError(t, err)
	mustPreload(t, lq)
	require.Equal(t, 1, lq.Size())

	lq.Close()
	require.Equal(t, StatusClosed, lq.Status())

	users.Insert(ir.Record{"id": int64(2), "active": true})
	require.Equal(t, 1, lq.Size())
}
