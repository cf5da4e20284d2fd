package dataflow

import "github.com/sirupsen/logrus"

// Operator is one node of the dataflow DAG. Step consumes whatever is
// currently staged on the operator's input(s) and forwards results to its
// registered downstream sinks. Operators never block or suspend
// internally (spec §4.1, §5): Step always returns having made all the
// progress it can with the batch it was given.
type Operator interface {
	Step()
}

// Sink receives a finished batch.
type Sink func(Batch)

// Graph is a DAG of operators, scheduled cooperatively and
// single-threadedly. Operators are visited in the order they were added to
// the graph via Add; the query compiler always registers producers before
// their consumers, so registration order is already a valid topological
// order and a single pass over it per Run drains the whole DAG to
// quiescence (spec §4.1: "run() drains inputs in topological order until
// no operator has pending work").
type Graph struct {
	nodes []Operator
	log   *logrus.Entry
}

// NewGraph constructs an empty graph. log may be nil, in which case a
// disabled logger is used.
func NewGraph(log *logrus.Entry) *Graph {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = logrus.NewEntry(l)
	}
	return &Graph{log: log}
}

// Add registers an operator with the graph. Callers must add operators in
// dependency order: every operator that feeds data into op must already be
// registered.
func (g *Graph) Add(op Operator) {
	g.nodes = append(g.nodes, op)
}

// Run steps every operator once, in registration order. Called after new
// tuples have been pushed onto one or more Input operators.
func (g *Graph) Run() {
	g.log.Debug("graph run: stepping operators")
	for _, op := range g.nodes {
		op.Step()
	}
}
