package exprcompile

import (
	"regexp"
	"strings"

	"github.com/spf13/cast"

	"github.com/liveql/engine/ir"
)

var regexMeta = `\.+*?()|[]{}^$`

// patternToRegex translates a SQL LIKE pattern into an anchored Go regular
// expression: every regex metacharacter is escaped except the two LIKE
// wildcards, which are then expanded (% -> .*, _ -> .), mirroring the
// teacher's sql/expression like.go pattern translation (see
// sql/expression/like_test.go for the exact escaping table this mirrors).
func patternToRegex(pattern string) string {
	var sb strings.Builder
	sb.WriteString("^")
	for _, r := range pattern {
		switch {
		case r == '%':
			sb.WriteString(".*")
		case r == '_':
			sb.WriteString(".")
		case strings.ContainsRune(regexMeta, r):
			sb.WriteByte('\\')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteString("$")
	return sb.String()
}

// compileLikeRegex builds the anchored, DOTALL regex for a LIKE pattern
// string, applying the same case-folding likeFn applies to the matched
// value.
func compileLikeRegex(pattern string, caseInsensitive bool) (*regexp.Regexp, error) {
	if caseInsensitive {
		pattern = strings.ToLower(pattern)
	}
	return regexp.Compile("(?s)" + patternToRegex(pattern))
}

// likeFn compiles LIKE/ILIKE. When the pattern argument is a constant
// ir.Val, its regex is compiled once here at plan-compile time rather than
// on every row (spec §4.3 "compile once"); a dynamic pattern expression
// (e.g. a PropRef) still compiles its regex per row, since the pattern can
// differ row to row.
func likeFn(args []Evaluator, argExprs []ir.Expression, caseInsensitive bool) (Evaluator, error) {
	if len(args) != 2 {
		return nil, ir.ErrUnknownFunction.New("like requires exactly two arguments")
	}
	value, pattern := args[0], args[1]

	if lit, ok := argExprs[1].(ir.Val); ok && !isNull(lit.Value) {
		ps, err := cast.ToStringE(lit.Value)
		if err != nil {
			return func(get Accessor) (ir.Value, error) { return false, nil }, nil
		}
		re, err := compileLikeRegex(ps, caseInsensitive)
		if err != nil {
			return func(get Accessor) (ir.Value, error) { return false, nil }, nil
		}
		return func(get Accessor) (ir.Value, error) {
			vv, err := value(get)
			if err != nil {
				return nil, err
			}
			if isNull(vv) {
				return false, nil
			}
			vs, err := cast.ToStringE(vv)
			if err != nil {
				return false, nil
			}
			if caseInsensitive {
				vs = strings.ToLower(vs)
			}
			return re.MatchString(vs), nil
		}, nil
	}

	return func(get Accessor) (ir.Value, error) {
		vv, err := value(get)
		if err != nil {
			return nil, err
		}
		pv, err := pattern(get)
		if err != nil {
			return nil, err
		}
		if isNull(vv) || isNull(pv) {
			return false, nil
		}
		vs, err1 := cast.ToStringE(vv)
		ps, err2 := cast.ToStringE(pv)
		if err1 != nil || err2 != nil {
			return false, nil
		}
		if caseInsensitive {
			vs = strings.ToLower(vs)
		}
		re, err := compileLikeRegex(ps, caseInsensitive)
		if err != nil {
			return false, nil
		}
		return re.MatchString(vs), nil
	}, nil
}
