package dataflow

import (
	"container/heap"

	"github.com/shopspring/decimal"
)

// numHeap is a binary heap of float64 ordered by less. It backs multiset's
// lazily-deleted min/max tracking.
type numHeap struct {
	data []float64
	less func(a, b float64) bool
}

func (h numHeap) Len() int            { return len(h.data) }
func (h numHeap) Less(i, j int) bool  { return h.less(h.data[i], h.data[j]) }
func (h numHeap) Swap(i, j int)       { h.data[i], h.data[j] = h.data[j], h.data[i] }
func (h *numHeap) Push(x any)         { h.data = append(h.data, x.(float64)) }
func (h *numHeap) Pop() any {
	old := h.data
	n := len(old)
	v := old[n-1]
	h.data = old[:n-1]
	return v
}

// multiset tracks a bag of numeric values under incremental add/remove
// along with running sum and count, supporting O(log n) amortized min/max
// via two lazily-deleted heaps plus a live multiplicity-per-value bucket
// map (spec §4.1: "per-group state {sum, count, min-heap, max-heap,
// buckets-by-value}"). container/heap is the standard library's heap
// algorithm; no example in the corpus ships an ordered-multiset library; a
// bespoke lazy-deletion heap is the idiomatic Go way to get incremental
// min/max (see DESIGN.md). The running sum accumulates as
// shopspring/decimal rather than float64: thousands of incremental +1/-1
// updates to the same group would otherwise drift under repeated float
// addition, the same concern the teacher's sql/types package cites for
// using decimal on numeric columns.
type multiset struct {
	counts map[float64]int
	sum    decimal.Decimal
	count  int
	min    numHeap
	max    numHeap
}

func newMultiset() *multiset {
	return &multiset{
		counts: map[float64]int{},
		min:    numHeap{less: func(a, b float64) bool { return a < b }},
		max:    numHeap{less: func(a, b float64) bool { return a > b }},
	}
}

// Update adds delta occurrences of v (delta may be negative).
func (m *multiset) Update(v float64, delta int) {
	m.counts[v] += delta
	m.sum = m.sum.Add(decimal.NewFromFloat(v).Mul(decimal.NewFromInt(int64(delta))))
	m.count += delta
	if delta > 0 {
		for i := 0; i < delta; i++ {
			heap.Push(&m.min, v)
			heap.Push(&m.max, v)
		}
	}
	if m.counts[v] <= 0 {
		delete(m.counts, v)
	}
}

func (m *multiset) Sum() float64 { return m.sum.InexactFloat64() }
func (m *multiset) Count() int   { return m.count }
func (m *multiset) Avg() float64 {
	if m.count == 0 {
		return 0
	}
	avg := m.sum.Div(decimal.NewFromInt(int64(m.count)))
	f, _ := avg.Float64()
	return f
}

// Min returns the current minimum, discarding stale (since-removed) heap
// entries lazily.
func (m *multiset) Min() (float64, bool) {
	for m.min.Len() > 0 {
		top := m.min.data[0]
		if m.counts[top] > 0 {
			return top, true
		}
		heap.Pop(&m.min)
	}
	return 0, false
}

// Max returns the current maximum, discarding stale heap entries lazily.
func (m *multiset) Max() (float64, bool) {
	for m.max.Len() > 0 {
		top := m.max.data[0]
		if m.counts[top] > 0 {
			return top, true
		}
		heap.Pop(&m.max)
	}
	return 0, false
}
