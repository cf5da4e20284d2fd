package ir

// JoinType is the closed set of supported join kinds. cross and outer are
// surface-level conveniences that the query compiler normalizes at compile
// time (cross -> inner with a constant join key, outer -> full); the IR
// keeps the original spelling so optimizer error messages and the compiler
// itself can tell them apart.
type JoinType string

const (
	InnerJoin JoinType = "inner"
	LeftJoin  JoinType = "left"
	RightJoin JoinType = "right"
	FullJoin  JoinType = "full"
	CrossJoin JoinType = "cross"
	OuterJoin JoinType = "outer"
)

// Direction is an ORDER BY sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// NullsOrder controls where missing values sort relative to present ones.
type NullsOrder string

const (
	NullsFirst NullsOrder = "first"
	NullsLast  NullsOrder = "last"
)

// StringSortMode selects how ORDER BY compares two strings. Lexical uses
// code-point order. Locale compares the lowercased strings in code-point
// order; no locale-specific collation and no numeric collation is applied.
type StringSortMode string

const (
	Lexical StringSortMode = "lexical"
	Locale  StringSortMode = "locale"
)

// OrderByEntry is a single ORDER BY key.
type OrderByEntry struct {
	Expression Expression
	Direction  Direction
	Nulls      NullsOrder
	StringSort StringSortMode
}

// From is the tagged variant for anything a query (or a JOIN clause) can
// read from: a named source collection, or a nested query.
type From interface {
	from()
}

// CollectionRef names a registered source collection under an alias.
type CollectionRef struct {
	Collection string
	Alias      string
}

func (CollectionRef) from() {}

// QueryRef wraps a nested Query as a FROM or JOIN source, bound to an
// alias. The optimizer introduces fresh QueryRefs when it pushes predicates
// down (spec §4.4 rule 3); the Query pointer identity inside a QueryRef is
// significant — it is the key used by the compiler's sub-pipeline cache
// (spec §4.5, §9) and by the optimizer's copy-on-write identity map (spec
// §4.4 rule 8).
type QueryRef struct {
	Query *Query
	Alias string
}

func (QueryRef) from() {}

// JoinClause describes one JOIN against the query's running result.
type JoinClause struct {
	From  From
	Type  JoinType
	Left  Expression
	Right Expression
}

// SelectItem projects one output column.
type SelectItem struct {
	Alias      string
	Expression Expression
}

// RowFilterFunc is an opaque functional WHERE callback (fnWhere). It is
// invisible to the optimizer: pushdown is never attempted across it (spec
// §9 open question (b)).
type RowFilterFunc func(row NamespacedRow) bool

// RowHavingFunc is an opaque functional HAVING callback (fnHaving). It
// receives the post-SELECT projection shape, `{result: __select_results}`
// in spec terms, represented here as the projected Record directly.
type RowHavingFunc func(result Record) bool

// RowSelectFunc is an opaque functional SELECT callback (fnSelect). It runs
// last and replaces the projected shape entirely.
type RowSelectFunc func(row NamespacedRow, projected Record) Record

// Query is the root IR node. Immutable after construction; the optimizer
// and compiler never mutate a Query in place, they build new ones.
type Query struct {
	From     From
	Join     []JoinClause
	Where    Expression
	Select   []SelectItem
	GroupBy  []Expression
	Having   Expression
	OrderBy  []OrderByEntry
	Limit    *int
	Offset   *int
	FnWhere  RowFilterFunc
	FnHaving RowHavingFunc
	FnSelect RowSelectFunc
}

// HasAggregates reports whether any SELECT item is, or contains, an
// Aggregate.
func (q *Query) HasAggregates() bool {
	for _, item := range q.Select {
		if containsAggregate(item.Expression) {
			return true
		}
	}
	return false
}

func containsAggregate(e Expression) bool {
	if e == nil {
		return false
	}
	if _, ok := e.(Aggregate); ok {
		return true
	}
	for _, c := range e.Children() {
		if containsAggregate(c) {
			return true
		}
	}
	return false
}

// IsFunctional reports whether the query has any opaque functional
// callback, which the optimizer's subquery safety gate (spec §4.4 rule 6)
// must treat as unsafe to push predicates past.
func (q *Query) IsFunctional() bool {
	return q.FnWhere != nil || q.FnHaving != nil || q.FnSelect != nil
}

// IsAggregating reports whether the query groups or projects aggregates,
// which also gates pushdown (spec §4.4 rule 6).
func (q *Query) IsAggregating() bool {
	return len(q.GroupBy) > 0 || q.HasAggregates()
}
