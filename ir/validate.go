package ir

// Validate checks the structural invariants spec §3 lists for IR trees:
//
//   - every PropRef.Path[0] names an alias in scope at that position
//   - Aggregate appears only in SELECT or HAVING, never WHERE
//   - LIMIT or OFFSET without ORDER BY is rejected
//
// Validate recurses into subqueries (QueryRef) and join sources.
func Validate(q *Query) error {
	return validateQuery(q)
}

func validateQuery(q *Query) error {
	if (q.Limit != nil || q.Offset != nil) && len(q.OrderBy) == 0 {
		return ErrLimitOffsetWithoutOrderBy.New()
	}

	scope := map[string]bool{}
	if err := collectScope(q.From, scope); err != nil {
		return err
	}
	for _, j := range q.Join {
		if err := collectScope(j.From, scope); err != nil {
			return err
		}
	}

	if q.Where != nil {
		if containsAggregate(q.Where) {
			return ErrUnknownExpressionType.New(Aggregate{})
		}
		if err := validateExpr(q.Where, scope); err != nil {
			return err
		}
	}
	for _, j := range q.Join {
		if containsAggregate(j.Left) || containsAggregate(j.Right) {
			return ErrUnknownExpressionType.New(Aggregate{})
		}
		if err := validateExpr(j.Left, scope); err != nil {
			return err
		}
		if err := validateExpr(j.Right, scope); err != nil {
			return err
		}
	}
	for _, item := range q.Select {
		if err := validateExpr(item.Expression, scope); err != nil {
			return err
		}
	}
	for _, e := range q.GroupBy {
		if containsAggregate(e) {
			return ErrUnknownExpressionType.New(Aggregate{})
		}
		if err := validateExpr(e, scope); err != nil {
			return err
		}
	}
	if q.Having != nil {
		if err := validateHaving(q.Having, scope, selectAliases(q.Select)); err != nil {
			return err
		}
	}
	for _, ob := range q.OrderBy {
		if containsAggregate(ob.Expression) {
			return ErrUnknownExpressionType.New(Aggregate{})
		}
		if err := validateExpr(ob.Expression, scope); err != nil {
			return err
		}
	}

	if qr, ok := q.From.(QueryRef); ok {
		if err := validateQuery(qr.Query); err != nil {
			return err
		}
	}
	for _, j := range q.Join {
		if qr, ok := j.From.(QueryRef); ok {
			if err := validateQuery(qr.Query); err != nil {
				return err
			}
		}
	}
	return nil
}

func collectScope(f From, scope map[string]bool) error {
	switch v := f.(type) {
	case CollectionRef:
		scope[v.Alias] = true
	case QueryRef:
		scope[v.Alias] = true
	default:
		return ErrUnsupportedJoinSourceType.New(f)
	}
	return nil
}

func validateExpr(e Expression, scope map[string]bool) error {
	if e == nil {
		return nil
	}
	switch v := e.(type) {
	case PropRef:
		if len(v.Path) == 0 {
			return ErrEmptyReferencePath.New()
		}
		if v.Path[0] != "" && !scope[v.Path[0]] {
			return ErrCollectionInputNotFound.New(v.Path[0])
		}
	}
	for _, c := range e.Children() {
		if err := validateExpr(c, scope); err != nil {
			return err
		}
	}
	return nil
}

func selectAliases(items []SelectItem) map[string]bool {
	aliases := make(map[string]bool, len(items))
	for _, item := range items {
		aliases[item.Alias] = true
	}
	return aliases
}

// validateHaving is validateExpr with one exemption: a bare single-segment
// PropRef that names a SELECT alias is left for the query compiler's HAVING
// rewrite to resolve against the result row, rather than checked against
// source scope (spec §4.5 step 5).
func validateHaving(e Expression, scope map[string]bool, aliases map[string]bool) error {
	if e == nil {
		return nil
	}
	switch v := e.(type) {
	case PropRef:
		if len(v.Path) == 0 {
			return ErrEmptyReferencePath.New()
		}
		if len(v.Path) == 1 && aliases[v.Path[0]] {
			return nil
		}
		if v.Path[0] != "" && !scope[v.Path[0]] {
			return ErrCollectionInputNotFound.New(v.Path[0])
		}
	}
	for _, c := range e.Children() {
		if err := validateHaving(c, scope, aliases); err != nil {
			return err
		}
	}
	return nil
}
