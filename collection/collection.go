// Package collection defines the source-collection contract the live-query
// driver reads from (spec §6), plus Memory, a reference in-memory
// implementation grounded on the teacher's memory.Table: an in-process
// collection of records a query engine can enumerate and subscribe to,
// adapted here to emit the typed change-message stream the driver expects
// instead of rows/partitions.
package collection

import "github.com/liveql/engine/ir"

// ChangeType is the closed set of source-collection change kinds.
type ChangeType string

const (
	Insert ChangeType = "insert"
	Update ChangeType = "update"
	Delete ChangeType = "delete"
)

// ChangeMessage is one record-level change a source collection publishes.
// For Update, Original is the prior record and Record is the new one; for
// Insert, Original is nil; for Delete, Record is the deleted record.
type ChangeMessage struct {
	Type     ChangeType
	Key      ir.Key
	Record   ir.Record
	Original ir.Record
}

// Listener receives one batch of changes, delivered atomically (spec §5:
// "all contained changes are delivered as one batch").
type Listener func(batch []ChangeMessage)

// Unsubscribe detaches a previously registered Listener.
type Unsubscribe func()

// Source is the source-collection contract (spec §6): something the
// live-query driver can enumerate once and then subscribe to for further
// changes.
type Source interface {
	// GetKey extracts a record's stable key.
	GetKey(rec ir.Record) ir.Key
	// Snapshot returns every record currently present, as of the call.
	Snapshot() []ir.Record
	// Subscribe registers listener for future changes and returns a handle
	// to detach it.
	Subscribe(listener Listener) Unsubscribe
}

// Transactional is the optional begin/commit bracketing (spec §6) a source
// can implement so several mutations surface as one atomic batch of
// ChangeMessages rather than one batch per call.
type Transactional interface {
	Begin()
	Commit()
}
