// Package ir defines the language-neutral intermediate representation for
// queries and expressions: tagged variants for query nodes, join clauses,
// and expressions, plus the closed compile-time error taxonomy raised while
// validating, optimizing, and compiling a Query.
package ir

import errors "gopkg.in/src-d/go-errors.v1"

// Compile-time error kinds. Names are stable and match the surface names
// listed in the system's external interface contract so callers can branch
// on error identity rather than message text.
var (
	ErrEmptyReferencePath             = errors.NewKind("property reference has an empty path")
	ErrUnknownExpressionType          = errors.NewKind("unknown expression type: %T")
	ErrUnknownFunction                = errors.NewKind("unknown function: %s")
	ErrUnsupportedAggregateFunction   = errors.NewKind("unsupported aggregate function: %s")
	ErrUnsupportedJoinType            = errors.NewKind("unsupported join type: %s")
	ErrUnsupportedJoinSourceType      = errors.NewKind("unsupported join source type: %T")
	ErrCollectionInputNotFound        = errors.NewKind("no input registered for collection: %s")
	ErrInvalidJoinConditionSameTable  = errors.NewKind("join condition on %q references only one side of the join")
	ErrInvalidJoinConditionTableMismatch = errors.NewKind("join condition references aliases %q and %q, neither of which is %q")
	ErrInvalidJoinConditionWrongTables = errors.NewKind("join condition references tables not present in this join: %v")
	ErrAggregateFunctionNotInSelect   = errors.NewKind("aggregate %q used in HAVING is not present in SELECT")
	ErrNonAggregateExpressionNotInGroupBy = errors.NewKind("select expression %q is not an aggregate and does not appear in GROUP BY")
	ErrUnknownHavingExpressionType    = errors.NewKind("unknown expression type in HAVING: %T")
	ErrLimitOffsetWithoutOrderBy      = errors.NewKind("LIMIT or OFFSET used without ORDER BY")
)
