package dataflow

// Relay forwards its input to a set of downstream sinks that can grow after
// construction via AddOut. It backs the query compiler's sub-pipeline cache
// (spec §4.5, §9): a shared subquery is compiled into one Relay, and every
// position that references it under the same alias registers its own sink
// on the same Relay instead of recompiling the subquery. The cache is keyed
// by original subquery and alias, so positions that bind the same subquery
// to different aliases each compile their own copy.
type Relay struct {
	stage
}

// NewRelay constructs a Relay with an initial set of sinks, which may be
// empty.
func NewRelay(out ...Sink) *Relay {
	return &Relay{stage: stage{out: out}}
}

// AddOut registers another downstream sink.
func (r *Relay) AddOut(s Sink) {
	r.out = append(r.out, s)
}

func (r *Relay) Step() {
	r.emit(r.take())
}
