package ir

// Expression is the closed set of tagged variants that make up the
// expression language: Val, PropRef, Func, and Aggregate. All variants are
// immutable once constructed.
type Expression interface {
	// expr is an unexported marker restricting Expression to the variants
	// declared in this file, mirroring the teacher's closed sql.Expression
	// dispatch surface without requiring open interface implementation.
	expr()
	// Children returns the expression's direct operands, for generic
	// traversal (optimizer source analysis, structural rewriting).
	Children() []Expression
}

// Val is a literal scalar value.
type Val struct {
	Value Value
}

func (Val) expr()                    {}
func (Val) Children() []Expression   { return nil }

// PropRef is a property reference path. Path[0] must name an alias in scope
// at the IR position where the PropRef appears; the remaining elements
// index into the record bound to that alias (a simple field name in the
// common case).
type PropRef struct {
	Path []string
}

func (PropRef) expr()                  {}
func (PropRef) Children() []Expression { return nil }

// Alias returns the reference's source alias, or "" if the path is empty.
func (p PropRef) Alias() string {
	if len(p.Path) == 0 {
		return ""
	}
	return p.Path[0]
}

// Field returns the field portion of the path (everything after the
// alias), joined back with ".", or "" if the path has no field component.
func (p PropRef) Field() string {
	if len(p.Path) < 2 {
		return ""
	}
	out := p.Path[1]
	for _, part := range p.Path[2:] {
		out += "." + part
	}
	return out
}

// Func is a call to one of the closed, registered scalar/boolean functions
// (see the function registry in package exprcompile).
type Func struct {
	Name string
	Args []Expression
}

func (Func) expr()                  {}
func (f Func) Children() []Expression { return f.Args }

// Aggregate is a call to one of sum/count/avg/min/max. Aggregates are only
// valid inside SELECT, or (after the HAVING rewrite described in spec
// §4.5) as a synthetic reference inside HAVING; WHERE must never contain
// one.
type Aggregate struct {
	Name string
	Args []Expression
}

func (Aggregate) expr()                    {}
func (a Aggregate) Children() []Expression { return a.Args }

// And builds a conjunction of clauses using the "and" function, collapsing
// the degenerate cases (spec §4.4 rule 1 works in reverse here: this is how
// the optimizer recombines a split clause list back into a single WHERE
// expression before returning the rewritten Query).
func And(clauses ...Expression) Expression {
	switch len(clauses) {
	case 0:
		return nil
	case 1:
		return clauses[0]
	default:
		return Func{Name: "and", Args: clauses}
	}
}

// SplitConjunction implements optimizer rule 1: a top-level WHERE of the
// form and(a, b, ...) is replaced by the list [a, b, ...]. OR is never
// split. A non-"and" expression is returned as a single-element list.
func SplitConjunction(expr Expression) []Expression {
	if expr == nil {
		return nil
	}
	if f, ok := expr.(Func); ok && f.Name == "and" {
		var out []Expression
		for _, arg := range f.Args {
			out = append(out, SplitConjunction(arg)...)
		}
		return out
	}
	return []Expression{expr}
}
