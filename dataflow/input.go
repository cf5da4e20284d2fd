package dataflow

// Input is a root operator. The live-collection driver pushes signed
// tuples for a source collection's changes onto an Input; on Step, the
// pending tuples are forwarded downstream and cleared.
type Input struct {
	pending Batch
	out     []Sink
}

// NewInput creates a root input feeding the given downstream sinks.
func NewInput(out ...Sink) *Input {
	return &Input{out: out}
}

// Push stages tuples to be delivered on the next Step.
func (in *Input) Push(batch Batch) {
	in.pending = append(in.pending, batch...)
}

// AddOut registers another downstream sink. The query compiler calls this
// once for every FROM/JOIN position that reads the source collection, so
// several positions reading the same collection all observe the same change
// stream from a single shared Input.
func (in *Input) AddOut(s Sink) {
	in.out = append(in.out, s)
}

// Step forwards pending tuples to every downstream sink and clears them.
func (in *Input) Step() {
	if len(in.pending) == 0 {
		return
	}
	batch := in.pending
	in.pending = nil
	for _, sink := range in.out {
		sink(batch)
	}
}
