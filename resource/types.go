package resource

import "errors"

// Handle is an opaque reference to a value in a Table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// ErrClosed is returned by operations on a closed table.
var ErrClosed = errors.New("resource table closed")

// Dropper is optionally implemented by values that need cleanup when they
// are removed from a table or the table is closed.
type Dropper interface {
	Drop()
}
