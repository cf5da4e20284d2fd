// Command liveqldemo is a minimal runnable demonstration of the engine,
// grounded on the teacher's _example/main.go: build some in-memory
// collections, wire up a query, and show the live result reacting to
// writes. Unlike the teacher's example this isn't a network server — the
// engine is a library, not a server (spec §1) — so this just prints to
// stdout.
//
// Run with: go run ./cmd/liveqldemo
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/liveql/engine/collection"
	"github.com/liveql/engine/ir"
	"github.com/liveql/engine/livequery"
	"github.com/liveql/engine/querybuilder"
)

func byID(rec ir.Record) ir.Key { return rec["id"] }

func main() {
	users := collection.NewMemory(byID)
	users.Insert(ir.Record{"id": int64(1), "name": "Jane Doe"})
	users.Insert(ir.Record{"id": int64(2), "name": "John Doe"})

	orders := collection.NewMemory(byID)
	orders.Insert(ir.Record{"id": int64(100), "userId": int64(1), "amount": float64(42.50)})
	orders.Insert(ir.Record{"id": int64(101), "userId": int64(1), "amount": float64(17.25)})
	orders.Insert(ir.Record{"id": int64(102), "userId": int64(2), "amount": float64(9.00)})

	q, err := querybuilder.From("users", "u").
		Join(ir.InnerJoin, "orders", "o", querybuilder.Prop("u", "id"), querybuilder.Prop("o", "userId")).
		GroupBy(querybuilder.Prop("u", "id"), querybuilder.Prop("u", "name")).
		Select("name", querybuilder.Prop("u", "name")).
		Select("totalSpent", querybuilder.Sum(querybuilder.Prop("o", "amount"))).
		Build()
	if err != nil {
		panic(err)
	}

	lq, err := livequery.New(q, map[string]collection.Source{
		"users":  users,
		"orders": orders,
	})
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := lq.Preload(ctx); err != nil {
		panic(err)
	}

	printState(lq)

	fmt.Println("\ninserting a new order for Jane Doe...")
	orders.Insert(ir.Record{"id": int64(103), "userId": int64(1), "amount": float64(5.00)})
	printState(lq)

	lq.Close()
}

func printState(lq *livequery.LiveQuery) {
	for _, rec := range lq.Values() {
		fmt.Printf("  %s: $%.2f\n", rec["name"], rec["totalSpent"])
	}
}
