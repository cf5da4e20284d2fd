package collection

import (
	"sync"

	"github.com/liveql/engine/ir"
)

// Memory is a reference Source: an in-process table of records keyed by a
// caller-supplied key function, with Insert/Update/Delete methods that
// publish ChangeMessages to subscribers. It plays the role the teacher's
// memory.Table plays for the query engine under test — an in-memory
// collection the engine reads from — adapted to this system's
// change-message-stream contract instead of row/partition scans.
type Memory struct {
	mu        sync.Mutex
	getKey    func(ir.Record) ir.Key
	records   map[any]ir.Record
	listeners map[int]Listener
	nextSub   int
	pending   []ChangeMessage
	depth     int
}

// NewMemory constructs an empty Memory collection keyed by getKey.
func NewMemory(getKey func(ir.Record) ir.Key) *Memory {
	return &Memory{
		getKey:    getKey,
		records:   map[any]ir.Record{},
		listeners: map[int]Listener{},
	}
}

func (m *Memory) GetKey(rec ir.Record) ir.Key { return m.getKey(rec) }

func (m *Memory) Snapshot() []ir.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ir.Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out
}

func (m *Memory) Subscribe(listener Listener) Unsubscribe {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.listeners[id] = listener
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Begin starts a batch: Insert/Update/Delete calls made before the matching
// Commit accumulate into one ChangeMessage batch instead of publishing one
// batch per call (spec §6's optional begin/commit bracketing).
func (m *Memory) Begin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depth++
}

// Commit flushes the accumulated batch to subscribers. A Commit with no
// matching Begin flushes immediately, which is also what Insert/Update/
// Delete do outside of any Begin/Commit bracket.
func (m *Memory) Commit() {
	m.mu.Lock()
	if m.depth > 0 {
		m.depth--
	}
	if m.depth > 0 {
		m.mu.Unlock()
		return
	}
	batch := m.pending
	m.pending = nil
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	for _, l := range listeners {
		l(batch)
	}
}

func (m *Memory) publish(change ChangeMessage) {
	m.pending = append(m.pending, change)
	if m.depth == 0 {
		batch := m.pending
		m.pending = nil
		listeners := make([]Listener, 0, len(m.listeners))
		for _, l := range m.listeners {
			listeners = append(listeners, l)
		}
		for _, l := range listeners {
			l(batch)
		}
	}
}

// Insert adds a new record and publishes an Insert change.
func (m *Memory) Insert(rec ir.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := m.getKey(rec)
	m.records[key] = rec
	m.publish(ChangeMessage{Type: Insert, Key: key, Record: rec})
}

// Update replaces the record under rec's key and publishes an Update change
// carrying both the previous and new record.
func (m *Memory) Update(rec ir.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := m.getKey(rec)
	original := m.records[key]
	m.records[key] = rec
	m.publish(ChangeMessage{Type: Update, Key: key, Record: rec, Original: original})
}

// Delete removes the record under key and publishes a Delete change.
func (m *Memory) Delete(key ir.Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return
	}
	delete(m.records, key)
	m.publish(ChangeMessage{Type: Delete, Key: key, Record: rec})
}
