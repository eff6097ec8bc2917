package dbv

import "log/slog"

// Options configures a Tree at construction. The zero value is not usable:
// Capacity must be set. Logger may be left nil to disable logging.
type Options struct {
	// Capacity is the maximum number of bits the tree can ever hold. It is
	// fixed for the lifetime of the tree: every node, leaf, and counter
	// width is sized from it up front, and nothing is ever freed.
	Capacity uint64

	// Logger, if non-nil, receives structured operational events
	// (construction parameters, root splits). Nil disables logging.
	Logger *slog.Logger
}

// Stats reports the structural parameters and current fill of a Tree,
// the Go analogue of the original's info() diagnostic dump.
type Stats struct {
	WordWidth     int
	Capacity      uint64
	Size          uint64
	Rank          uint64
	CounterWidth  int
	Degree        int
	LeavesBuffer  int
	NodesBuffer   int
	PointerWidth  int
	NodeCount     uint64
	LeafCount     uint64
	Height        uint64
	NodesUsed     uint64
	LeavesUsed    uint64
}
