package dbv

import "errors"

// ErrOutOfRange is returned by Access and Insert when the given index is
// outside the range the operation permits.
var ErrOutOfRange = errors.New("dbv: index out of range")

// ErrOverflow is returned by Insert when the tree is already at capacity.
var ErrOverflow = errors.New("dbv: capacity exhausted")
