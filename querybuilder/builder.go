package querybuilder

import "github.com/liveql/engine/ir"

// Builder assembles an ir.Query through chained calls, the way the
// teacher's planbuilder assembles a sql.Node tree one clause at a time.
// Unlike the teacher's builder there is no text to parse; each method
// corresponds directly to one Query field. A Builder is not safe for
// concurrent use; build the Query, then hand it off.
type Builder struct {
	q   *ir.Query
	err error
}

// From starts a Builder reading a registered collection under alias.
func From(collection, alias string) *Builder {
	return &Builder{q: &ir.Query{From: ir.CollectionRef{Collection: collection, Alias: alias}}}
}

// FromQuery starts a Builder reading a nested query under alias.
func FromQuery(sub *ir.Query, alias string) *Builder {
	return &Builder{q: &ir.Query{From: ir.QueryRef{Query: sub, Alias: alias}}}
}

// Join adds an equi-join against a registered collection.
func (b *Builder) Join(joinType ir.JoinType, collection, alias string, left, right ir.Expression) *Builder {
	return b.join(joinType, ir.CollectionRef{Collection: collection, Alias: alias}, left, right)
}

// JoinQuery adds an equi-join against a nested query.
func (b *Builder) JoinQuery(joinType ir.JoinType, sub *ir.Query, alias string, left, right ir.Expression) *Builder {
	return b.join(joinType, ir.QueryRef{Query: sub, Alias: alias}, left, right)
}

func (b *Builder) join(joinType ir.JoinType, from ir.From, left, right ir.Expression) *Builder {
	b.q.Join = append(b.q.Join, ir.JoinClause{From: from, Type: joinType, Left: left, Right: right})
	return b
}

// Where sets the declarative filter clause. Calling Where more than once
// ANDs the new clause onto the existing one.
func (b *Builder) Where(expr ir.Expression) *Builder {
	if b.q.Where == nil {
		b.q.Where = expr
	} else {
		b.q.Where = ir.And(b.q.Where, expr)
	}
	return b
}

// WhereFunc sets the opaque functional filter (fnWhere). The optimizer
// never pushes predicates across it (spec §9 open question (b)).
func (b *Builder) WhereFunc(fn ir.RowFilterFunc) *Builder {
	b.q.FnWhere = fn
	return b
}

// Select appends one projected column.
func (b *Builder) Select(alias string, expr ir.Expression) *Builder {
	b.q.Select = append(b.q.Select, ir.SelectItem{Alias: alias, Expression: expr})
	return b
}

// SelectFunc sets the opaque functional projection (fnSelect), which runs
// last and replaces the projected shape entirely.
func (b *Builder) SelectFunc(fn ir.RowSelectFunc) *Builder {
	b.q.FnSelect = fn
	return b
}

// GroupBy appends one or more grouping keys.
func (b *Builder) GroupBy(exprs ...ir.Expression) *Builder {
	b.q.GroupBy = append(b.q.GroupBy, exprs...)
	return b
}

// Having sets the post-aggregation filter clause.
func (b *Builder) Having(expr ir.Expression) *Builder {
	if b.q.Having == nil {
		b.q.Having = expr
	} else {
		b.q.Having = ir.And(b.q.Having, expr)
	}
	return b
}

// HavingFunc sets the opaque functional HAVING callback (fnHaving).
func (b *Builder) HavingFunc(fn ir.RowHavingFunc) *Builder {
	b.q.FnHaving = fn
	return b
}

// OrderBy appends one ORDER BY key.
func (b *Builder) OrderBy(expr ir.Expression, dir ir.Direction, nulls ir.NullsOrder, stringSort ir.StringSortMode) *Builder {
	b.q.OrderBy = append(b.q.OrderBy, ir.OrderByEntry{
		Expression: expr,
		Direction:  dir,
		Nulls:      nulls,
		StringSort: stringSort,
	})
	return b
}

// Limit sets the row limit. Requires OrderBy (ir's invariant: limit or
// offset without orderBy is a compile-time error, caught by ir.Validate).
func (b *Builder) Limit(n int) *Builder {
	b.q.Limit = &n
	return b
}

// Offset sets the row offset.
func (b *Builder) Offset(n int) *Builder {
	b.q.Offset = &n
	return b
}

// Build validates and returns the assembled Query. Any error from a prior
// step, or from ir.Validate, is returned here rather than panicking
// mid-chain.
func (b *Builder) Build() (*ir.Query, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := ir.Validate(b.q); err != nil {
		return nil, err
	}
	return b.q, nil
}
