package querycompiler

import "github.com/liveql/engine/ir"

// rowState is the value every tuple in a query's pipeline carries. Row is
// the namespaced row currently in scope (nil once GROUP BY has reduced a
// batch of rows down to a group); Result is the evolving __select_results
// projection, set by whichever SELECT stage has run so far and nil until
// one has (spec §4.5 step 2: "retaining the namespaced row (needed by
// later stages)"). Key is this row's own identity key — the source row's
// key for an unjoined FROM, or the composite "[mainKey,joinedKey]" string
// (spec §4.5 step 4) once one or more JOINs have merged it with another
// row — carried alongside the dataflow.Tuple.Key so a JOIN can read the
// previous stage's original key out of its Value even though the tuple's
// own Key has been rewritten to the join-equality key for indexing.
type rowState struct {
	Row    ir.NamespacedRow
	Result ir.Record
	Key    any
}

func (r rowState) withResult(res ir.Record) rowState {
	r.Result = res
	return r
}
