package types

// BlockContext carries the sequencer supplied position of the operation being
// executed. Engines never read a clock; ordering and windows are expressed in
// heights.
type BlockContext struct {
	Height uint64
}

// NewBlockContext is a convenience constructor used by tests and the node.
func NewBlockContext(height uint64) BlockContext {
	return BlockContext{Height: height}
}
