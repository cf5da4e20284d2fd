package exprcompile

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/liveql/engine/ir"
)

// compileFunc dispatches a Func node by name onto the closed function
// registry (spec §6). Args are compiled up front so the returned closure
// never re-dispatches on node shape.
func compileFunc(name string, argExprs []ir.Expression) (Evaluator, error) {
	args, err := CompileAll(argExprs)
	if err != nil {
		return nil, err
	}
	switch name {
	case "eq":
		return compareFn(args, func(c int) bool { return c == 0 }, equalsFallback)
	case "gt":
		return compareFn(args, func(c int) bool { return c > 0 }, nil)
	case "gte":
		return compareFn(args, func(c int) bool { return c >= 0 }, nil)
	case "lt":
		return compareFn(args, func(c int) bool { return c < 0 }, nil)
	case "lte":
		return compareFn(args, func(c int) bool { return c <= 0 }, nil)
	case "and":
		return logicalFn(args, true), nil
	case "or":
		return logicalFn(args, false), nil
	case "not":
		return notFn(args)
	case "in":
		return inFn(args)
	case "like":
		return likeFn(args, argExprs, false)
	case "ilike":
		return likeFn(args, argExprs, true)
	case "upper":
		return unaryStringFn(args, strings.ToUpper)
	case "lower":
		return unaryStringFn(args, strings.ToLower)
	case "length":
		return lengthFn(args)
	case "concat":
		return concatFn(args)
	case "coalesce":
		return coalesceFn(args)
	case "add":
		return arithmeticFn(args, func(a, b float64) float64 { return a + b }, false)
	case "subtract":
		return arithmeticFn(args, func(a, b float64) float64 { return a - b }, false)
	case "multiply":
		return arithmeticFn(args, func(a, b float64) float64 { return a * b }, false)
	case "divide":
		return arithmeticFn(args, func(a, b float64) float64 { return a / b }, true)
	default:
		return nil, ir.ErrUnknownFunction.New(name)
	}
}

func isNull(v ir.Value) bool { return v == nil }

// numeric coerces a value to float64 using spf13/cast, treating null as 0
// per spec §4.3 ("Arithmetic operators treat null as 0").
func numeric(v ir.Value) float64 {
	if isNull(v) {
		return 0
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0
	}
	return f
}

func arithmeticFn(args []Evaluator, op func(a, b float64) float64, isDivide bool) (Evaluator, error) {
	if len(args) != 2 {
		return nil, ir.ErrUnknownFunction.New("arithmetic function requires exactly two arguments")
	}
	left, right := args[0], args[1]
	return func(get Accessor) (ir.Value, error) {
		lv, err := left(get)
		if err != nil {
			return nil, err
		}
		rv, err := right(get)
		if err != nil {
			return nil, err
		}
		if isDivide && numeric(rv) == 0 {
			return nil, nil
		}
		return op(numeric(lv), numeric(rv)), nil
	}, nil
}

// compare returns -1/0/1 ordering two values. Numeric values (or null,
// coerced to 0) compare numerically; otherwise values compare as strings.
func compare(a, b ir.Value) int {
	if isNumericLike(a) && isNumericLike(b) {
		af, bf := numeric(a), numeric(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, bs := fmt.Sprintf("%v", a), fmt.Sprintf("%v", b)
	return strings.Compare(as, bs)
}

func isNumericLike(v ir.Value) bool {
	if isNull(v) {
		return true
	}
	switch v.(type) {
	case int, int64, float32, float64:
		return true
	default:
		return false
	}
}

func equalsFallback(a, b ir.Value) bool {
	if isNull(a) || isNull(b) {
		return isNull(a) == isNull(b)
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func compareFn(args []Evaluator, accept func(int) bool, eqOverride func(a, b ir.Value) bool) (Evaluator, error) {
	if len(args) != 2 {
		return nil, ir.ErrUnknownFunction.New("comparison function requires exactly two arguments")
	}
	left, right := args[0], args[1]
	return func(get Accessor) (ir.Value, error) {
		lv, err := left(get)
		if err != nil {
			return nil, err
		}
		rv, err := right(get)
		if err != nil {
			return nil, err
		}
		if eqOverride != nil && !(isNumericLike(lv) && isNumericLike(rv)) {
			return eqOverride(lv, rv), nil
		}
		return accept(compare(lv, rv)), nil
	}, nil
}

func truthy(v ir.Value) bool {
	if isNull(v) {
		return false
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false
	}
	return b
}

func logicalFn(args []Evaluator, isAnd bool) Evaluator {
	return func(get Accessor) (ir.Value, error) {
		for _, a := range args {
			v, err := a(get)
			if err != nil {
				return nil, err
			}
			if isAnd && !truthy(v) {
				return false, nil
			}
			if !isAnd && truthy(v) {
				return true, nil
			}
		}
		return isAnd, nil
	}
}

func notFn(args []Evaluator) (Evaluator, error) {
	if len(args) != 1 {
		return nil, ir.ErrUnknownFunction.New("not requires exactly one argument")
	}
	inner := args[0]
	return func(get Accessor) (ir.Value, error) {
		v, err := inner(get)
		if err != nil {
			return nil, err
		}
		return !truthy(v), nil
	}, nil
}

func inFn(args []Evaluator) (Evaluator, error) {
	if len(args) < 1 {
		return nil, ir.ErrUnknownFunction.New("in requires at least one argument")
	}
	needle, haystack := args[0], args[1:]
	return func(get Accessor) (ir.Value, error) {
		nv, err := needle(get)
		if err != nil {
			return nil, err
		}
		for _, h := range haystack {
			hv, err := h(get)
			if err != nil {
				return nil, err
			}
			if list, ok := hv.([]ir.Value); ok {
				for _, item := range list {
					if equalsFallback(nv, item) {
						return true, nil
					}
				}
				continue
			}
			if equalsFallback(nv, hv) {
				return true, nil
			}
		}
		return false, nil
	}, nil
}

func unaryStringFn(args []Evaluator, f func(string) string) (Evaluator, error) {
	if len(args) != 1 {
		return nil, ir.ErrUnknownFunction.New("string function requires exactly one argument")
	}
	inner := args[0]
	return func(get Accessor) (ir.Value, error) {
		v, err := inner(get)
		if err != nil {
			return nil, err
		}
		if isNull(v) {
			return nil, nil
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, nil
		}
		return f(s), nil
	}, nil
}

// lengthFn returns character count for strings, element count for arrays,
// 0 otherwise (spec §4.3).
func lengthFn(args []Evaluator) (Evaluator, error) {
	if len(args) != 1 {
		return nil, ir.ErrUnknownFunction.New("length requires exactly one argument")
	}
	inner := args[0]
	return func(get Accessor) (ir.Value, error) {
		v, err := inner(get)
		if err != nil {
			return nil, err
		}
		switch t := v.(type) {
		case string:
			return int64(len([]rune(t))), nil
		case []ir.Value:
			return int64(len(t)), nil
		default:
			return int64(0), nil
		}
	}, nil
}

// coalesceFn returns the first non-null argument, else null.
func coalesceFn(args []Evaluator) (Evaluator, error) {
	return func(get Accessor) (ir.Value, error) {
		for _, a := range args {
			v, err := a(get)
			if err != nil {
				return nil, err
			}
			if !isNull(v) {
				return v, nil
			}
		}
		return nil, nil
	}, nil
}

// safeStringify coerces a value to its string form for concat: null
// stringifies to empty, scalars use their natural form, anything else
// falls back to JSON (spec §4.3).
func safeStringify(v ir.Value) string {
	if isNull(v) {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case bool, int, int64, float32, float64:
		return fmt.Sprintf("%v", t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

func concatFn(args []Evaluator) (Evaluator, error) {
	return func(get Accessor) (ir.Value, error) {
		var sb strings.Builder
		for _, a := range args {
			v, err := a(get)
			if err != nil {
				return nil, err
			}
			sb.WriteString(safeStringify(v))
		}
		return sb.String(), nil
	}, nil
}
