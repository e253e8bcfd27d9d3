// Package resource provides a handle table for exposing Go values across an
// opaque-handle boundary.
//
// The Table maps integer handles to values:
//
//	table := resource.NewTable[*runtime.Runtime]()
//
//	// Insert a value, get a handle
//	handle, err := table.Insert(rt)
//
//	// Retrieve value by handle
//	rt, ok := table.Get(handle)
//
//	// Remove and get value
//	rt, ok := table.Remove(handle)
//
// Handle 0 is never issued, so callers can use it as "no handle". Freed
// handles are reused, most recently freed first.
//
// # Cleanup
//
// Values implementing Dropper have Drop called when they are removed and
// when the table is closed. Drop runs outside the table lock.
package resource
