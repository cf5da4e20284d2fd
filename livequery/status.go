package livequery

// Status is a live collection's readiness state (spec §4.7): idle -> loading
// -> ready -> (closed). loading is entered on first subscription; ready is
// reached once every source collection has reported its initial state;
// closed is terminal once the collection is closed.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusClosed  Status = "closed"
)
