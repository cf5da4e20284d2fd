package dataflow

// Output is the terminal operator: it invokes sink once per Run after the
// graph quiesces, with every tuple that flowed into it this round (spec
// §4.1). The live-collection driver supplies sink to aggregate deltas into
// insert/update/delete change messages.
type Output struct {
	pending Batch
	sink    func(Batch)
}

// NewOutput constructs an Output operator.
func NewOutput(sink func(Batch)) *Output {
	return &Output{sink: sink}
}

// Sink returns the function upstream operators push into.
func (o *Output) Sink() Sink {
	return func(b Batch) { o.pending = append(o.pending, b...) }
}

func (o *Output) Step() {
	if len(o.pending) == 0 {
		return
	}
	batch := o.pending
	o.pending = nil
	o.sink(batch)
}
