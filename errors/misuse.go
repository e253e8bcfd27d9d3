package errors

import (
	stderrors "errors"
	"strings"
)

// ErrMisuse matches every *MisuseError with errors.Is.
var ErrMisuse = stderrors.New("runtime misuse")

// MisuseError reports an operation invoked outside its valid lifecycle state.
// It is returned at the call site and never stored as a runtime's last error.
type MisuseError struct {
	Op     string // operation that was rejected, e.g. "execute"
	State  string // lifecycle state at the time of the call
	Detail string
}

func (e *MisuseError) Error() string {
	var b strings.Builder
	b.WriteString("[lifecycle] misuse: ")
	b.WriteString(e.Op)
	if e.State != "" {
		b.WriteString(" while ")
		b.WriteString(e.State)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

// Is reports whether target is ErrMisuse or another *MisuseError
func (e *MisuseError) Is(target error) bool {
	if target == ErrMisuse {
		return true
	}
	_, ok := target.(*MisuseError)
	return ok
}

// Misuse creates a misuse error for op rejected in state
func Misuse(op, state, detail string) *MisuseError {
	return &MisuseError{
		Op:     op,
		State:  state,
		Detail: detail,
	}
}

// IsMisuse reports whether err is a caller contract violation.
func IsMisuse(err error) bool {
	return stderrors.Is(err, ErrMisuse)
}

// IsInitialization reports whether err describes a failed engine construction.
func IsInitialization(err error) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Phase == PhaseInit
}

// IsExecution reports whether err describes a failed execution of an artifact.
func IsExecution(err error) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	switch e.Phase {
	case PhaseLoad, PhaseCompile, PhaseLink, PhaseExecute:
		return true
	}
	return false
}

// IsUnrecoverable reports whether err carries the Unrecoverable flag.
func IsUnrecoverable(err error) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Unrecoverable
}
