package dataflow

// stage is the common shape of a single-input operator: an inbox that
// accumulates whatever upstream pushed this round, and a set of downstream
// sinks to forward results to once processed.
type stage struct {
	pending Batch
	out     []Sink
}

// Sink returns a function upstream operators can register as one of their
// output sinks; it simply appends to this stage's pending inbox.
func (s *stage) Sink() Sink {
	return func(b Batch) { s.pending = append(s.pending, b...) }
}

func (s *stage) take() Batch {
	b := s.pending
	s.pending = nil
	return b
}

func (s *stage) emit(b Batch) {
	if len(b) == 0 {
		return
	}
	for _, sink := range s.out {
		sink(b)
	}
}

// MapFunc transforms one tuple into another, pointwise. Multiplicity is
// left unchanged by Map itself (spec §4.1); a MapFunc that needs to alter
// multiplicity should be expressed as a separate operator.
type MapFunc func(Tuple) Tuple

// Map applies f to every tuple, preserving multiplicity.
type Map struct {
	stage
	f MapFunc
}

// NewMap constructs a Map operator feeding the given sinks.
func NewMap(f MapFunc, out ...Sink) *Map {
	return &Map{stage: stage{out: out}, f: f}
}

func (m *Map) Step() {
	batch := m.take()
	if len(batch) == 0 {
		return
	}
	mapped := make(Batch, len(batch))
	for i, t := range batch {
		nt := m.f(t)
		nt.Mult = t.Mult
		mapped[i] = nt
	}
	m.emit(mapped)
}

// FilterFunc reports whether a tuple should survive.
type FilterFunc func(Tuple) bool

// Filter drops tuples failing p.
type Filter struct {
	stage
	p FilterFunc
}

// NewFilter constructs a Filter operator feeding the given sinks.
func NewFilter(p FilterFunc, out ...Sink) *Filter {
	return &Filter{stage: stage{out: out}, p: p}
}

func (f *Filter) Step() {
	batch := f.take()
	if len(batch) == 0 {
		return
	}
	var kept Batch
	for _, t := range batch {
		if f.p(t) {
			kept = append(kept, t)
		}
	}
	f.emit(kept)
}
