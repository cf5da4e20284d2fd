// Package exprcompile lowers ir.Expression trees into compiled evaluator
// closures, eliminating runtime dispatch on hot paths (spec §4.3). Each
// expression compiles once, at query-compile time, into a closure that
// captures its precomputed arguments.
package exprcompile

import (
	"github.com/liveql/engine/ir"
)

// Accessor resolves a property reference's path[0] alias and remaining
// field to a value. NamespacedRow and single-record evaluation both
// implement this with different alias handling, so the compiled closures
// are shared between the two evaluator shapes spec §4.3 calls out.
type Accessor func(alias, field string) (ir.Value, bool)

// Evaluator is a compiled expression: a closure over precomputed arguments
// that, given an Accessor, produces a value.
type Evaluator func(Accessor) (ir.Value, error)

// Namespaced adapts a compiled Evaluator to the "namespaced evaluator"
// shape from spec §4.3: (row: {alias -> record}) -> value.
func (e Evaluator) Namespaced(row ir.NamespacedRow) (ir.Value, error) {
	return e(func(alias, field string) (ir.Value, bool) {
		rec, ok := row[alias]
		if !ok {
			return nil, false
		}
		v, ok := rec[field]
		return v, ok
	})
}

// Record adapts a compiled Evaluator to the "single-row evaluator" shape
// from spec §4.3: (record) -> value. The alias component of any PropRef is
// ignored since exactly one source is in scope.
func (e Evaluator) Record(rec ir.Record) (ir.Value, error) {
	return e(func(_, field string) (ir.Value, bool) {
		v, ok := rec[field]
		return v, ok
	})
}

// Compile lowers a single expression into an Evaluator. Compilation is a
// dispatch on node type; each case returns a closure capturing its already
// -compiled children so evaluation never re-dispatches on node type.
func Compile(e ir.Expression) (Evaluator, error) {
	switch v := e.(type) {
	case ir.Val:
		val := v.Value
		return func(Accessor) (ir.Value, error) { return val, nil }, nil

	case ir.PropRef:
		if len(v.Path) == 0 {
			return nil, ir.ErrEmptyReferencePath.New()
		}
		alias := v.Path[0]
		field := v.Field()
		return func(get Accessor) (ir.Value, error) {
			val, _ := get(alias, field)
			return val, nil
		}, nil

	case ir.Func:
		return compileFunc(v.Name, v.Args)

	case ir.Aggregate:
		return nil, ir.ErrUnknownExpressionType.New(e)

	default:
		return nil, ir.ErrUnknownExpressionType.New(e)
	}
}

// CompileAll compiles a slice of expressions, stopping at the first error.
func CompileAll(exprs []ir.Expression) ([]Evaluator, error) {
	out := make([]Evaluator, len(exprs))
	for i, e := range exprs {
		ev, err := Compile(e)
		if err != nil {
			return nil, err
		}
		out[i] = ev
	}
	return out, nil
}
