// Package querycompiler walks an optimized query IR and constructs the
// dataflow graph that evaluates it (spec §4.5): FROM input, WHERE filter,
// JOINs, GROUP BY + HAVING, ORDER BY/LIMIT/OFFSET, and the final projection,
// wired together and registered with a dataflow.Graph in dependency order.
package querycompiler

import (
	"github.com/liveql/engine/dataflow"
	"github.com/liveql/engine/ir"
	"github.com/liveql/engine/optimizer"
)

// IndexMode re-exports dataflow's ORDER BY index flavor so callers
// configuring the compiler do not need to import package dataflow directly.
type IndexMode = dataflow.IndexMode

const (
	IndexNumeric    = dataflow.IndexNumeric
	IndexFractional = dataflow.IndexFractional
)

type cacheKey struct {
	original *ir.Query
	alias    string
}

// Context carries everything Compile needs while walking one query: the
// graph operators are registered into, the named collection inputs FROM and
// JOIN sources resolve against, the optimizer's subquery identity mapping,
// and the per-compile sub-pipeline cache (spec §4.5, §9).
type Context struct {
	Graph   *dataflow.Graph
	Inputs  map[string]*dataflow.Input
	Mapping optimizer.Mapping
	Index   IndexMode

	cache map[cacheKey]*dataflow.Relay
	built []dataflow.Operator
}

// NewContext constructs a compile context. inputs maps collection name to
// the root dataflow.Input the live-collection driver allocated for it;
// mapping is the optimizer's new-subquery -> original-subquery identity map.
func NewContext(graph *dataflow.Graph, inputs map[string]*dataflow.Input, mapping optimizer.Mapping, index IndexMode) *Context {
	return &Context{
		Graph:   graph,
		Inputs:  inputs,
		Mapping: mapping,
		Index:   index,
		cache:   map[cacheKey]*dataflow.Relay{},
	}
}

func (c *Context) add(op dataflow.Operator) {
	c.built = append(c.built, op)
}

// Compile builds q's pipeline, delivering its (resultKey, resultRecord)
// tuples to sink, and registers every operator it constructs into
// ctx.Graph in producer-before-consumer order. q must already have been
// optimized (see package optimizer) and must have passed ir.Validate.
func Compile(q *ir.Query, sink dataflow.Sink, ctx *Context) error {
	terminal := func(b dataflow.Batch) {
		out := make(dataflow.Batch, len(b))
		for i, t := range b {
			out[i] = dataflow.Tuple{Key: t.Key, Value: finalValue(t.Value), Mult: t.Mult}
		}
		sink(out)
	}
	if err := compileQuery(q, ctx, terminal); err != nil {
		return err
	}
	// Operators were appended consumer-first as each stage's producer was
	// constructed after it; reversing yields a valid producer-before-
	// consumer order for graph.Add (spec §4.1 run() requires one).
	for i := len(ctx.built) - 1; i >= 0; i-- {
		ctx.Graph.Add(ctx.built[i])
	}
	return nil
}

// finalValue extracts the user-visible result value from whatever internal
// shape reached the terminal sink.
func finalValue(v any) any {
	switch t := v.(type) {
	case dataflow.Ordered:
		return embedOrderIndex(finalValue(t.Value), t.Index)
	case rowState:
		if t.Result != nil {
			return t.Result
		}
		return namespacedToRecord(t.Row)
	default:
		return v
	}
}

func embedOrderIndex(v any, idx any) any {
	rec, ok := v.(ir.Record)
	if !ok {
		return v
	}
	out := rec.Clone()
	out["__order_index"] = idx
	return out
}

// namespacedToRecord collapses a namespaced row down to a bare record: the
// single alias's record if there is exactly one, else a record keyed by
// alias (the shape a SELECT-less multi-source query exposes).
func namespacedToRecord(row ir.NamespacedRow) ir.Record {
	if len(row) == 1 {
		for _, rec := range row {
			return rec
		}
	}
	out := ir.Record{}
	for alias, rec := range row {
		out[alias] = rec
	}
	return out
}
