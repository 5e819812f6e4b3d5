package types

// Event represents a typed event emitted during state transitions.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// EventRecord is a committed event positioned by the height of the operation
// that emitted it and a chain wide sequence number.
type EventRecord struct {
	Height   uint64 `json:"height"`
	Sequence uint64 `json:"sequence"`
	Event    *Event `json:"event"`
}
