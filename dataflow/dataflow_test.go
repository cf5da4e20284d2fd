package dataflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterMapConsolidate(t *testing.T) {
	var got Batch
	out := NewOutput(func(b Batch) { got = append(got, b...) })

	cons := NewConsolidate(out.Sink())
	filt := NewFilter(func(t Tuple) bool { return t.Value.(int) > 0 }, cons.Sink())
	mp := NewMap(func(t Tuple) Tuple { return Tuple{Key: t.Key, Value: t.Value.(int) * 2} }, filt.Sink())
	in := NewInput(mp.Sink())

	g := NewGraph(nil)
	g.Add(in)
	g.Add(mp)
	g.Add(filt)
	g.Add(cons)
	g.Add(out)

	in.Push(Batch{{Key: 1, Value: 5, Mult: 1}, {Key: 2, Value: -1, Mult: 1}})
	g.Run()

	require.Len(t, got, 1)
	require.Equal(t, 10, got[0].Value)

	// cancelling pair within one batch nets to nothing through consolidate.
	got = nil
	in.Push(Batch{{Key: 3, Value: 1, Mult: 1}, {Key: 3, Value: 1, Mult: -1}})
	g.Run()
	require.Empty(t, got)
}

func TestJoinInner(t *testing.T) {
	var got Batch
	out := NewOutput(func(b Batch) { got = append(got, b...) })
	j := NewJoin(Inner, out.Sink())

	g := NewGraph(nil)
	leftIn := NewInput(j.Left())
	rightIn := NewInput(j.Right())
	g.Add(leftIn)
	g.Add(rightIn)
	g.Add(j)
	g.Add(out)

	leftIn.Push(Batch{{Key: 1, Value: "Alice", Mult: 1}, {Key: 2, Value: "Bob", Mult: 1}})
	rightIn.Push(Batch{{Key: 1, Value: "post10", Mult: 1}})
	g.Run()

	require.Len(t, got, 1)
	p := got[0].Value.(Pair)
	require.Equal(t, "Alice", p.Left)
	require.Equal(t, "post10", p.Right)

	got = nil
	rightIn.Push(Batch{{Key: 2, Value: "post12", Mult: 1}})
	g.Run()
	require.Len(t, got, 1)
	p = got[0].Value.(Pair)
	require.Equal(t, "Bob", p.Left)
	require.Equal(t, "post12", p.Right)
}

func TestJoinLeftNullPad(t *testing.T) {
	var got Batch
	out := NewOutput(func(b Batch) { got = append(got, b...) })
	j := NewJoin(Left, out.Sink())

	g := NewGraph(nil)
	leftIn := NewInput(j.Left())
	rightIn := NewInput(j.Right())
	g.Add(leftIn)
	g.Add(rightIn)
	g.Add(j)
	g.Add(out)

	leftIn.Push(Batch{{Key: 9, Value: "Orphan", Mult: 1}})
	g.Run()
	require.Len(t, got, 1)
	p := got[0].Value.(Pair)
	require.Equal(t, "Orphan", p.Left)
	require.Nil(t, p.Right)
}

func TestJoinLeftNullPadRetractedOnLaterMatch(t *testing.T) {
	var got Batch
	out := NewOutput(func(b Batch) { got = append(got, b...) })
	j := NewJoin(Left, out.Sink())

	g := NewGraph(nil)
	leftIn := NewInput(j.Left())
	rightIn := NewInput(j.Right())
	g.Add(leftIn)
	g.Add(rightIn)
	g.Add(j)
	g.Add(out)

	leftIn.Push(Batch{{Key: 9, Value: "Orphan", Mult: 1}})
	g.Run()
	require.Len(t, got, 1)
	p := got[0].Value.(Pair)
	require.Equal(t, "Orphan", p.Left)
	require.Nil(t, p.Right)

	// a right row arriving at the same key in a later batch must retract
	// the stale null pad, not just add the new matched pair alongside it.
	got = nil
	rightIn.Push(Batch{{Key: 9, Value: "post10", Mult: 1}})
	g.Run()

	var sawRetraction, sawMatch bool
	for _, tup := range got {
		p := tup.Value.(Pair)
		if tup.Mult == -1 && p.Left == "Orphan" && p.Right == nil {
			sawRetraction = true
		}
		if tup.Mult == 1 && p.Left == "Orphan" && p.Right == "post10" {
			sawMatch = true
		}
	}
	require.True(t, sawRetraction, "expected retraction of the stale null pad, got %+v", got)
	require.True(t, sawMatch, "expected the new matched pair, got %+v", got)
}

func TestJoinFullNullPadAddedWhenLastMatchRemoved(t *testing.T) {
	var got Batch
	out := NewOutput(func(b Batch) { got = append(got, b...) })
	j := NewJoin(Full, out.Sink())

	g := NewGraph(nil)
	leftIn := NewInput(j.Left())
	rightIn := NewInput(j.Right())
	g.Add(leftIn)
	g.Add(rightIn)
	g.Add(j)
	g.Add(out)

	leftIn.Push(Batch{{Key: 5, Value: "L", Mult: 1}})
	rightIn.Push(Batch{{Key: 5, Value: "R", Mult: 1}})
	g.Run()
	require.Len(t, got, 1)
	p := got[0].Value.(Pair)
	require.Equal(t, "L", p.Left)
	require.Equal(t, "R", p.Right)

	// deleting the only right row for the key leaves the left row
	// unmatched, which must now be emitted as a freshly null-padded row.
	got = nil
	rightIn.Push(Batch{{Key: 5, Value: "R", Mult: -1}})
	g.Run()

	var sawRetraction, sawPad bool
	for _, tup := range got {
		p := tup.Value.(Pair)
		if tup.Mult == -1 && p.Left == "L" && p.Right == "R" {
			sawRetraction = true
		}
		if tup.Mult == 1 && p.Left == "L" && p.Right == nil {
			sawPad = true
		}
	}
	require.True(t, sawRetraction, "expected retraction of the matched pair, got %+v", got)
	require.True(t, sawPad, "expected a freshly null-padded left row, got %+v", got)
}

func TestTopKFractionalReuseOnInsert(t *testing.T) {
	var got Batch
	out := NewOutput(func(b Batch) { got = append(got, b...) })
	less := func(a, b any) bool { return a.(int) < b.(int) }
	tk := NewTopK(less, nil, 0, IndexFractional, out.Sink())
	in := NewInput(tk.Sink())

	g := NewGraph(nil)
	g.Add(in)
	g.Add(tk)
	g.Add(out)

	in.Push(Batch{
		{Key: "a", Value: 1, Mult: 1},
		{Key: "c", Value: 3, Mult: 1},
	})
	g.Run()

	keys := map[any]string{}
	for _, tup := range got {
		if tup.Mult > 0 {
			keys[tup.Key] = tup.Value.(Ordered).Index.(string)
		}
	}
	aKey, cKey := keys["a"], keys["c"]
	require.NotEmpty(t, aKey)
	require.NotEmpty(t, cKey)
	require.Less(t, aKey, cKey)

	// inserting a row between a and c must not touch either sibling's key.
	got = nil
	in.Push(Batch{{Key: "b", Value: 2, Mult: 1}})
	g.Run()

	var sawARetract, sawCRetract bool
	var bKey string
	for _, tup := range got {
		switch tup.Key {
		case "a":
			sawARetract = true
		case "c":
			sawCRetract = true
		case "b":
			if tup.Mult > 0 {
				bKey = tup.Value.(Ordered).Index.(string)
			}
		}
	}
	require.False(t, sawARetract, "inserting a middle row must not renumber a")
	require.False(t, sawCRetract, "inserting a middle row must not renumber c")
	require.NotEmpty(t, bKey)
	require.Less(t, aKey, bKey)
	require.Less(t, bKey, cKey)
}

func TestGroupBySumPerGroup(t *testing.T) {
	var got Batch
	out := NewOutput(func(b Batch) { got = append(got, b...) })
	cons := NewConsolidate(out.Sink())
	gb := NewGroupBy(
		func(v any) any { return v.(map[string]any)["cust"] },
		[]AggSpec{
			{Name: "total", Kind: AggSum, Extract: func(v any) (float64, bool) {
				return v.(map[string]any)["amt"].(float64), true
			}},
		},
		cons.Sink(),
	)
	in := NewInput(gb.Sink())

	g := NewGraph(nil)
	g.Add(in)
	g.Add(gb)
	g.Add(cons)
	g.Add(out)

	in.Push(Batch{
		{Key: 1, Value: map[string]any{"cust": int64(1), "amt": 100.0}, Mult: 1},
		{Key: 2, Value: map[string]any{"cust": int64(1), "amt": 200.0}, Mult: 1},
		{Key: 3, Value: map[string]any{"cust": int64(2), "amt": 50.0}, Mult: 1},
	})
	g.Run()

	totals := map[any]float64{}
	for _, t := range got {
		if t.Mult > 0 {
			totals[t.Key] = t.Value.(map[string]any)["total"].(float64)
		}
	}
	require.Equal(t, 300.0, totals[int64(1)])
	require.Equal(t, 50.0, totals[int64(2)])
}

func TestTopKLimitReorder(t *testing.T) {
	var got Batch
	out := NewOutput(func(b Batch) { got = append(got, b...) })
	limit := 2
	less := func(a, b any) bool { return a.(int) > b.(int) } // desc by age
	tk := NewTopK(less, &limit, 0, IndexNumeric, out.Sink())
	in := NewInput(tk.Sink())

	g := NewGraph(nil)
	g.Add(in)
	g.Add(tk)
	g.Add(out)

	in.Push(Batch{
		{Key: "Alice", Value: 25, Mult: 1},
		{Key: "Bob", Value: 19, Mult: 1},
		{Key: "Charlie", Value: 30, Mult: 1},
		{Key: "Dave", Value: 22, Mult: 1},
	})
	g.Run()

	inserted := map[any]int{}
	for _, t := range got {
		if t.Mult > 0 {
			inserted[t.Key] = t.Value.(Ordered).Index.(int)
		}
	}
	require.Equal(t, 0, inserted["Charlie"])
	require.Equal(t, 1, inserted["Alice"])
	require.NotContains(t, inserted, "Bob")
	require.NotContains(t, inserted, "Dave")

	// Bob jumps to 40: retract old age, insert new -> reorders to front.
	got = nil
	in.Push(Batch{{Key: "Bob", Value: 19, Mult: -1}, {Key: "Bob", Value: 40, Mult: 1}})
	g.Run()

	insertedAfter := map[any]int{}
	for _, t := range got {
		if t.Mult > 0 {
			insertedAfter[t.Key] = t.Value.(Ordered).Index.(int)
		}
	}
	require.Equal(t, 0, insertedAfter["Bob"])
	require.Equal(t, 1, insertedAfter["Charlie"])
}
