// Package querybuilder is a fluent façade over package ir (spec §2 row 7:
// "Fluent construction of IR from typed refs; not behaviorally essential").
// It does not add capability the IR doesn't already have — every method
// here builds the same tagged-variant tree a caller could construct by
// hand, the way the teacher's sql.Expression tree can be built either
// through its planbuilder or by hand for tests.
package querybuilder

import "github.com/liveql/engine/ir"

// Prop references field on alias.
func Prop(alias, field string) ir.PropRef {
	return ir.PropRef{Path: []string{alias, field}}
}

// PropPath references a nested path under alias.
func PropPath(alias string, path ...string) ir.PropRef {
	return ir.PropRef{Path: append([]string{alias}, path...)}
}

// Lit wraps a literal scalar.
func Lit(v ir.Value) ir.Val { return ir.Val{Value: v} }

func call(name string, args ...ir.Expression) ir.Func {
	return ir.Func{Name: name, Args: args}
}

// Eq, Gt, Gte, Lt, and Lte build the corresponding comparison Func nodes.
func Eq(l, r ir.Expression) ir.Expression  { return call("eq", l, r) }
func Gt(l, r ir.Expression) ir.Expression  { return call("gt", l, r) }
func Gte(l, r ir.Expression) ir.Expression { return call("gte", l, r) }
func Lt(l, r ir.Expression) ir.Expression  { return call("lt", l, r) }
func Lte(l, r ir.Expression) ir.Expression { return call("lte", l, r) }

// And and Or build logical Func nodes. And degenerates per ir.And.
func And(clauses ...ir.Expression) ir.Expression { return ir.And(clauses...) }
func Or(clauses ...ir.Expression) ir.Expression  { return call("or", clauses...) }
func Not(e ir.Expression) ir.Expression          { return call("not", e) }

// In builds a membership test against a literal set.
func In(e ir.Expression, set ...ir.Expression) ir.Expression {
	return call("in", append([]ir.Expression{e}, set...)...)
}

// Like and ILike build SQL LIKE/ILIKE pattern matches.
func Like(e, pattern ir.Expression) ir.Expression  { return call("like", e, pattern) }
func ILike(e, pattern ir.Expression) ir.Expression { return call("ilike", e, pattern) }

// Concat, Coalesce, Upper, Lower, and Length build the remaining scalar
// functions in the registry (exprcompile.compileFunc).
func Concat(args ...ir.Expression) ir.Expression   { return call("concat", args...) }
func Coalesce(args ...ir.Expression) ir.Expression { return call("coalesce", args...) }
func Upper(e ir.Expression) ir.Expression          { return call("upper", e) }
func Lower(e ir.Expression) ir.Expression          { return call("lower", e) }
func Length(e ir.Expression) ir.Expression         { return call("length", e) }
func Add(l, r ir.Expression) ir.Expression         { return call("add", l, r) }
func Subtract(l, r ir.Expression) ir.Expression    { return call("subtract", l, r) }
func Multiply(l, r ir.Expression) ir.Expression    { return call("multiply", l, r) }
func Divide(l, r ir.Expression) ir.Expression      { return call("divide", l, r) }

// Sum, Count, Avg, Min, and Max build Aggregate nodes, valid only in
// Select/Having (ir.Aggregate's doc comment).
func Sum(e ir.Expression) ir.Aggregate   { return ir.Aggregate{Name: "sum", Args: []ir.Expression{e}} }
func Count(e ir.Expression) ir.Aggregate { return ir.Aggregate{Name: "count", Args: []ir.Expression{e}} }
func Avg(e ir.Expression) ir.Aggregate   { return ir.Aggregate{Name: "avg", Args: []ir.Expression{e}} }
func Min(e ir.Expression) ir.Aggregate   { return ir.Aggregate{Name: "min", Args: []ir.Expression{e}} }
func Max(e ir.Expression) ir.Aggregate   { return ir.Aggregate{Name: "max", Args: []ir.Expression{e}} }
