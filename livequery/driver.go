// Package livequery bridges upstream source collections to a compiled
// dataflow graph and translates its output back into a materialized live
// query collection (spec §4.6, §4.7): it seeds each referenced source's
// current state, subscribes to further changes, and aggregates each
// graph run's output deltas into insert/update/delete.
package livequery

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/liveql/engine/collection"
	"github.com/liveql/engine/dataflow"
	"github.com/liveql/engine/ir"
	"github.com/liveql/engine/optimizer"
	"github.com/liveql/engine/querycompiler"
)

var (
	idMu      sync.Mutex
	idCounter int
)

func nextID() string {
	idMu.Lock()
	defer idMu.Unlock()
	idCounter++
	return fmt.Sprintf("live-query-%d", idCounter)
}

// Option configures a LiveQuery at construction (spec's functional-options
// ambient configuration choice, see SPEC_FULL.md).
type Option func(*LiveQuery)

// WithID overrides the auto-generated "live-query-N" id.
func WithID(id string) Option {
	return func(lq *LiveQuery) { lq.id = id }
}

// WithLogger injects a structured logger; the default is a disabled one.
func WithLogger(log *logrus.Entry) Option {
	return func(lq *LiveQuery) { lq.log = log }
}

// WithIndexMode selects TopK's ORDER BY position encoding.
func WithIndexMode(mode querycompiler.IndexMode) Option {
	return func(lq *LiveQuery) { lq.indexMode = mode }
}

type counter struct {
	inserts, deletes int
	posValue         any
}

// LiveQuery is one compiled query's live, incrementally-maintained result
// set (spec §4.6). Construct with New.
type LiveQuery struct {
	id        string
	log       *logrus.Entry
	indexMode querycompiler.IndexMode

	mu       sync.Mutex
	status   Status
	readyCh  chan struct{}
	readySet bool

	graph  *dataflow.Graph
	inputs map[string]*dataflow.Input
	unsubs []collection.Unsubscribe

	mat      map[any]ir.Record
	identity map[uintptr]ir.Key

	onInsert InsertHandler
	onUpdate UpdateHandler
	onDelete DeleteHandler
}

// New compiles q against sources (collectionId -> Source, keyed the same
// way ir.CollectionRef.Collection names them), seeds every referenced
// source's current state, subscribes to further changes, and runs the
// graph once over the initial snapshot. The returned LiveQuery reaches
// StatusReady by the time New returns, since this reference driver's
// Source contract is synchronous; see Preload for the general async case.
func New(q *ir.Query, sources map[string]collection.Source, opts ...Option) (*LiveQuery, error) {
	lq := &LiveQuery{
		id:       nextID(),
		status:   StatusIdle,
		readyCh:  make(chan struct{}),
		graph:    dataflow.NewGraph(nil),
		inputs:   map[string]*dataflow.Input{},
		mat:      map[any]ir.Record{},
		identity: map[uintptr]ir.Key{},
	}
	for _, opt := range opts {
		opt(lq)
	}
	if lq.log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		lq.log = logrus.NewEntry(l)
	}

	lq.setStatus(StatusLoading)

	optimized, mapping, err := optimizer.Optimize(q)
	if err != nil {
		return nil, err
	}

	refs := ir.CollectionRefs(optimized)
	needed := map[string]bool{}
	for _, ref := range refs {
		needed[ref.Collection] = true
	}
	for name := range needed {
		src, ok := sources[name]
		if !ok {
			return nil, ir.ErrCollectionInputNotFound.New(name)
		}
		input := dataflow.NewInput()
		lq.inputs[name] = input
		lq.graph.Add(input)
		lq.attachSource(name, src)
	}

	out := dataflow.NewOutput(lq.onGraphOutput)
	ctx := querycompiler.NewContext(lq.graph, lq.inputs, mapping, lq.indexMode)
	if err := querycompiler.Compile(optimized, out.Sink(), ctx); err != nil {
		lq.closeSubscriptions()
		return nil, err
	}
	lq.graph.Add(out)

	lq.graph.Run()
	lq.setStatus(StatusReady)

	return lq, nil
}

// attachSource seeds input with src's current snapshot as +1 tuples and
// subscribes for further changes, converting each ChangeMessage into a
// signed tuple (update = -1 old, +1 new) pushed before the next graph.Run.
func (lq *LiveQuery) attachSource(name string, src collection.Source) {
	input := lq.inputs[name]

	seed := make(dataflow.Batch, 0)
	for _, rec := range src.Snapshot() {
		seed = append(seed, dataflow.Tuple{Key: src.GetKey(rec), Value: rec, Mult: 1})
	}
	input.Push(seed)

	unsub := src.Subscribe(func(batch []collection.ChangeMessage) {
		lq.mu.Lock()
		defer lq.mu.Unlock()
		delta := make(dataflow.Batch, 0, len(batch)*2)
		for _, c := range batch {
			switch c.Type {
			case collection.Insert:
				delta = append(delta, dataflow.Tuple{Key: c.Key, Value: c.Record, Mult: 1})
			case collection.Delete:
				delta = append(delta, dataflow.Tuple{Key: c.Key, Value: c.Record, Mult: -1})
			case collection.Update:
				delta = append(delta,
					dataflow.Tuple{Key: c.Key, Value: c.Original, Mult: -1},
					dataflow.Tuple{Key: c.Key, Value: c.Record, Mult: 1},
				)
			}
		}
		input.Push(delta)
		lq.graph.Run()
	})
	lq.unsubs = append(lq.unsubs, unsub)
}

// onGraphOutput implements the per-key aggregation rule from spec §4.6:
// within one batch, sum inserts/deletes per key, then translate the net
// effect into an insert/update/delete against the materialized state.
func (lq *LiveQuery) onGraphOutput(b dataflow.Batch) {
	counters := map[any]*counter{}
	order := make([]any, 0, len(b))
	for _, t := range b {
		c, ok := counters[t.Key]
		if !ok {
			c = &counter{}
			counters[t.Key] = c
			order = append(order, t.Key)
		}
		if t.Mult > 0 {
			c.inserts += t.Mult
			c.posValue = t.Value
		} else if t.Mult < 0 {
			c.deletes += -t.Mult
		}
	}

	for _, key := range order {
		c := counters[key]
		switch {
		case c.inserts > 0 && c.deletes == 0:
			lq.applyInsert(key, c.posValue)
		case c.inserts > 0 && c.inserts >= c.deletes:
			lq.applyUpdate(key, c.posValue)
		case c.deletes > c.inserts:
			lq.applyDelete(key)
		}
	}
}

func (lq *LiveQuery) applyInsert(key any, value any) {
	rec, _ := value.(ir.Record)
	lq.mat[key] = rec
	if id, ok := identityOf(value); ok {
		lq.identity[id] = key
	}
}

func (lq *LiveQuery) applyUpdate(key any, value any) {
	rec, _ := value.(ir.Record)
	lq.mat[key] = rec
	if id, ok := identityOf(value); ok {
		lq.identity[id] = key
	}
}

func (lq *LiveQuery) applyDelete(key any) {
	delete(lq.mat, key)
}

func identityOf(v any) (uintptr, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Ptr:
		return rv.Pointer(), true
	default:
		return 0, false
	}
}

func (lq *LiveQuery) setStatus(s Status) {
	lq.mu.Lock()
	lq.status = s
	if s == StatusReady && !lq.readySet {
		lq.readySet = true
		close(lq.readyCh)
	}
	lq.mu.Unlock()
}

// ID returns this live collection's id.
func (lq *LiveQuery) ID() string { return lq.id }

// Status reports the current readiness state.
func (lq *LiveQuery) Status() Status {
	lq.mu.Lock()
	defer lq.mu.Unlock()
	return lq.status
}

// Preload blocks until the live collection becomes ready, including the
// case where every source reports an empty initial state (spec §8
// "Readiness").
func (lq *LiveQuery) Preload(ctx context.Context) error {
	select {
	case <-lq.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Size returns the number of rows currently in the live collection.
func (lq *LiveQuery) Size() int {
	lq.mu.Lock()
	defer lq.mu.Unlock()
	return len(lq.mat)
}

// Get returns the row under key, if present.
func (lq *LiveQuery) Get(key ir.Key) (ir.Record, bool) {
	lq.mu.Lock()
	defer lq.mu.Unlock()
	rec, ok := lq.mat[key]
	return rec, ok
}

// Entries returns every (key, row) pair currently present. Order is
// unspecified unless the query has an ORDER BY, in which case callers
// should use ToArray to observe the comparator-defined order.
func (lq *LiveQuery) Entries() map[ir.Key]ir.Record {
	lq.mu.Lock()
	defer lq.mu.Unlock()
	out := make(map[ir.Key]ir.Record, len(lq.mat))
	for k, v := range lq.mat {
		out[k] = v
	}
	return out
}

// Values returns every row currently present, in no particular order.
func (lq *LiveQuery) Values() []ir.Record {
	lq.mu.Lock()
	defer lq.mu.Unlock()
	out := make([]ir.Record, 0, len(lq.mat))
	for _, v := range lq.mat {
		out = append(out, v)
	}
	return out
}

// ToArray returns every row, sorted by "__order_index" when the compiled
// query attached one (spec §8 "Deterministic ordering").
func (lq *LiveQuery) ToArray() []ir.Record {
	rows := lq.Values()
	hasIndex := len(rows) > 0
	for _, r := range rows {
		if _, ok := r["__order_index"]; !ok {
			hasIndex = false
			break
		}
	}
	if !hasIndex {
		return rows
	}
	sortByOrderIndex(rows)
	return rows
}

// ResolveKey looks up the result key originally assigned to value, for
// callers issuing a write-back without an explicit key (spec §4.6: "the
// driver remembers the original output stream key for each emitted value
// ... so getKey defaults to that key").
func (lq *LiveQuery) ResolveKey(value any) (ir.Key, bool) {
	lq.mu.Lock()
	defer lq.mu.Unlock()
	id, ok := identityOf(value)
	if !ok {
		return nil, false
	}
	key, ok := lq.identity[id]
	return key, ok
}

// OnInsert, OnUpdate, and OnDelete register the optional write-back
// handlers from spec §6. They run only when Insert/Update/Delete below is
// called; the core never synthesizes them from graph output.
func (lq *LiveQuery) OnInsert(h InsertHandler) { lq.onInsert = h }
func (lq *LiveQuery) OnUpdate(h UpdateHandler) { lq.onUpdate = h }
func (lq *LiveQuery) OnDelete(h DeleteHandler) { lq.onDelete = h }

// Insert, Update, and Delete run the embedding application's direct
// mutation of the live collection through the corresponding write-back
// handler, if one is registered.
func (lq *LiveQuery) Insert(tx Transaction) (any, error) {
	if lq.onInsert == nil {
		return nil, nil
	}
	return lq.onInsert(tx)
}

func (lq *LiveQuery) Update(tx Transaction) (any, error) {
	if lq.onUpdate == nil {
		return nil, nil
	}
	return lq.onUpdate(tx)
}

func (lq *LiveQuery) Delete(tx Transaction) (any, error) {
	if lq.onDelete == nil {
		return nil, nil
	}
	return lq.onDelete(tx)
}

func (lq *LiveQuery) closeSubscriptions() {
	for _, u := range lq.unsubs {
		u()
	}
	lq.unsubs = nil
}

// Close detaches this live collection's subscriptions on every source and
// drops the graph (spec §5 "Cancellation"). Terminal: Close is idempotent.
func (lq *LiveQuery) Close() {
	lq.mu.Lock()
	if lq.status == StatusClosed {
		lq.mu.Unlock()
		return
	}
	lq.status = StatusClosed
	lq.mu.Unlock()

	lq.closeSubscriptions()
}
