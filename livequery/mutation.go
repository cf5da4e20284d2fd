package livequery

import "github.com/liveql/engine/ir"

// MutationType is the kind of change one Mutation within a Transaction
// describes.
type MutationType string

const (
	MutationInsert MutationType = "insert"
	MutationUpdate MutationType = "update"
	MutationDelete MutationType = "delete"
)

// Mutation describes one record-level change the embedding application made
// directly against a live collection (spec §6: "mutations describe {type,
// key, original, modified, changes}").
type Mutation struct {
	Type     MutationType
	Key      ir.Key
	Original ir.Record
	Modified ir.Record
	Changes  ir.Record
}

// Transaction groups the mutations a single write-back call produced. The
// core never synthesizes a Transaction from graph output (spec §4.6); it is
// only built when the embedding application calls Insert/Update/Delete on a
// LiveQuery directly.
type Transaction struct {
	Mutations []Mutation
}

// InsertHandler, UpdateHandler, and DeleteHandler are the optional
// write-back hooks from spec §6. Each returns a handler-specific
// acknowledgement (e.g. an id an external persistence layer assigned).
type (
	InsertHandler func(tx Transaction) (any, error)
	UpdateHandler func(tx Transaction) (any, error)
	DeleteHandler func(tx Transaction) (any, error)
)
