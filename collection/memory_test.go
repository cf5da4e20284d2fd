package collection

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liveql/engine/ir"
)

func byID(rec ir.Record) ir.Key { return rec["id"] }

func TestMemoryInsertPublishes(t *testing.T) {
	m := NewMemory(byID)
	var got []ChangeMessage
	m.Subscribe(func(batch []ChangeMessage) { got = append(got, batch...) })

	m.Insert(ir.Record{"id": int64(1), "name": "Alice"})
	require.Len(t, got, 1)
	require.Equal(t, Insert, got[0].Type)
	require.Equal(t, int64(1), got[0].Key)
}

func TestMemorySnapshotReflectsCurrentState(t *testing.T) {
	m := NewMemory(byID)
	m.Insert(ir.Record{"id": int64(1)})
	m.Insert(ir.Record{"id": int64(2)})
	m.Delete(int64(1))

	snap := m.Snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, int64(2), snap[0]["id"])
}

func TestMemoryBeginCommitBatchesChanges(t *testing.T) {
	m := NewMemory(byID)
	var batches [][]ChangeMessage
	m.Subscribe(func(batch []ChangeMessage) { batches = append(batches, batch) })

	m.Begin()
	m.Insert(ir.Record{"id": int64(1)})
	m.Insert(ir.Record{"id": int64(2)})
	require.Empty(t, batches)
	m.Commit()

	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)
}

func TestMemoryUnsubscribeStopsDelivery(t *testing.T) {
	m := NewMemory(byID)
	count := 0
	unsub := m.Subscribe(func(batch []ChangeMessage) { count += len(batch) })
	m.Insert(ir.Record{"id": int64(1)})
	unsub()
	m.Insert(ir.Record{"id": int64(2)})
	require.Equal(t, 1, count)
}
