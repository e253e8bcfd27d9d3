package main

import (
	"github.com/wippyai/runhost/errors"
	"github.com/wippyai/runhost/registry"
)

// Status codes returned across the C boundary.
const (
	statusOK     = 0
	statusFailed = 1
	statusMisuse = -1
	noLastError  = 0
	lengthMisuse = -1
)

func statusCode(err error) int {
	switch {
	case err == nil:
		return statusOK
	case errors.IsMisuse(err):
		return statusMisuse
	default:
		return statusFailed
	}
}

// errorField selects the part of a last error handed to C callers.
type errorField func(*errors.Error) string

func errorMessage(e *errors.Error) string { return e.Message() }

func errorPath(e *errors.Error) string { return e.Path }

// readLastError copies field of h's last error into dst and returns the
// field's full length. Without a last error dst receives an empty string and
// the result is 0; an unknown handle yields -1.
func readLastError(reg *registry.Registry, h registry.Handle, field errorField, dst []byte) int {
	e, err := reg.LastError(h)
	if err != nil {
		return lengthMisuse
	}
	if e == nil {
		copyString(dst, "")
		return noLastError
	}
	return copyString(dst, field(e))
}

// copyString writes s into dst, truncated to leave room for a NUL
// terminator, and returns len(s). A zero-length dst is left untouched.
func copyString(dst []byte, s string) int {
	if len(dst) > 0 {
		n := copy(dst[:len(dst)-1], s)
		dst[n] = 0
	}
	return len(s)
}
