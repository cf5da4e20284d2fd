package exprcompile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liveql/engine/ir"
)

func eval(t *testing.T, expr ir.Expression, row ir.NamespacedRow) ir.Value {
	t.Helper()
	ev, err := Compile(expr)
	require.NoError(t, err)
	v, err := ev.Namespaced(row)
	require.NoError(t, err)
	return v
}

func TestPropRefAndEquals(t *testing.T) {
	row := ir.NamespacedRow{"u": ir.Record{"active": true, "age": int64(25)}}
	expr := ir.Func{Name: "eq", Args: []ir.Expression{
		ir.PropRef{Path: []string{"u", "active"}},
		ir.Val{Value: true},
	}}
	require.Equal(t, true, eval(t, expr, row))
}

func TestArithmeticNullAsZero(t *testing.T) {
	row := ir.NamespacedRow{"o": ir.Record{"amt": nil}}
	expr := ir.Func{Name: "add", Args: []ir.Expression{
		ir.PropRef{Path: []string{"o", "amt"}},
		ir.Val{Value: int64(5)},
	}}
	require.Equal(t, float64(5), eval(t, expr, row))
}

func TestDivideByZeroIsNull(t *testing.T) {
	expr := ir.Func{Name: "divide", Args: []ir.Expression{
		ir.Val{Value: int64(10)},
		ir.Val{Value: int64(0)},
	}}
	require.Nil(t, eval(t, expr, nil))
}

func TestLikeAndIlike(t *testing.T) {
	cases := []struct {
		fn, pattern, value string
		want                bool
	}{
		{"like", "a%b", "acb", true},
		{"like", "a%b", "a", false},
		{"like", "a_b", "ab", false},
		{"ilike", "AA:%", "aa:bb:cc", true},
	}
	for _, c := range cases {
		expr := ir.Func{Name: c.fn, Args: []ir.Expression{
			ir.Val{Value: c.value},
			ir.Val{Value: c.pattern},
		}}
		require.Equal(t, c.want, eval(t, expr, nil), "%s(%q,%q)", c.fn, c.value, c.pattern)
	}
}

func TestCoalesceAndConcat(t *testing.T) {
	co := ir.Func{Name: "coalesce", Args: []ir.Expression{ir.Val{Value: nil}, ir.Val{Value: "x"}, ir.Val{Value: "y"}}}
	require.Equal(t, "x", eval(t, co, nil))

	cc := ir.Func{Name: "concat", Args: []ir.Expression{ir.Val{Value: "a"}, ir.Val{Value: nil}, ir.Val{Value: int64(1)}}}
	require.Equal(t, "a1", eval(t, cc, nil))
}

func TestLength(t *testing.T) {
	strLen := ir.Func{Name: "length", Args: []ir.Expression{ir.Val{Value: "hello"}}}
	require.Equal(t, int64(5), eval(t, strLen, nil))

	arrLen := ir.Func{Name: "length", Args: []ir.Expression{ir.Val{Value: []ir.Value{1, 2, 3}}}}
	require.Equal(t, int64(3), eval(t, arrLen, nil))

	other := ir.Func{Name: "length", Args: []ir.Expression{ir.Val{Value: int64(4)}}}
	require.Equal(t, int64(0), eval(t, other, nil))
}

func TestInMembership(t *testing.T) {
	expr := ir.Func{Name: "in", Args: []ir.Expression{
		ir.Val{Value: int64(2)},
		ir.Val{Value: []ir.Value{int64(1), int64(2), int64(3)}},
	}}
	require.Equal(t, true, eval(t, expr, nil))
}
