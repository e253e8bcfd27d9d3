package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the runtime lifecycle the error occurred
type Phase string

const (
	PhaseInit      Phase = "init"      // engine construction
	PhaseLoad      Phase = "load"      // locating and reading the artifact
	PhaseCompile   Phase = "compile"   // decoding and compiling the artifact
	PhaseLink      Phase = "link"      // resolving imports
	PhaseExecute   Phase = "execute"   // running the entry point
	PhaseLifecycle Phase = "lifecycle" // teardown
)

// Kind categorizes the error
type Kind string

const (
	KindInitialization Kind = "initialization"
	KindExecution      Kind = "execution"
	KindMisuse         Kind = "misuse"
	KindNotFound       Kind = "not_found"
	KindInvalidInput   Kind = "invalid_input"
	KindInvalidData    Kind = "invalid_data"
	KindUnsupported    Kind = "unsupported"
	KindMissingImport  Kind = "missing_import"
	KindExit           Kind = "exit"
	KindTrap           Kind = "trap"
	KindRelease        Kind = "release"
)

// Error is the error record surfaced through a runtime's last-error slot.
// Values are treated as immutable once returned to a caller.
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Path   string // source artifact being executed, if any
	Detail string

	// ExitCode is the guest exit status for KindExit errors.
	ExitCode uint32

	// Unrecoverable marks initialization failures that a retry cannot fix.
	Unrecoverable bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Message returns the human-readable description without phase, kind or path decoration.
func (e *Error) Message() string {
	switch {
	case e.Detail != "" && e.Cause != nil:
		return e.Detail + ": " + e.Cause.Error()
	case e.Detail != "":
		return e.Detail
	case e.Cause != nil:
		return e.Cause.Error()
	default:
		return string(e.Kind)
	}
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Clone returns a shallow copy, so the receiver can be stored without
// sharing it with whoever produced it.
func (e *Error) Clone() *Error {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the source path
func (b *Builder) Path(path string) *Builder {
	b.err.Path = path
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// ExitCode sets the guest exit status
func (b *Builder) ExitCode(code uint32) *Builder {
	b.err.ExitCode = code
	return b
}

// Unrecoverable marks the error as not retryable
func (b *Builder) Unrecoverable() *Builder {
	b.err.Unrecoverable = true
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Initialization creates an engine construction error
func Initialization(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseInit,
		Kind:   KindInitialization,
		Detail: detail,
		Cause:  cause,
	}
}

// Execution creates a generic execution failure for path
func Execution(path, detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindExecution,
		Path:   path,
		Detail: detail,
		Cause:  cause,
	}
}

// NotFound creates an error for an artifact that could not be located
func NotFound(path string, searched []string) *Error {
	detail := "source not found"
	if len(searched) > 0 {
		detail = fmt.Sprintf("source not found in %s", strings.Join(searched, ", "))
	}
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindNotFound,
		Path:   path,
		Detail: detail,
	}
}

// Load creates an error for an artifact that could not be read
func Load(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: "read source",
		Cause:  cause,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Unsupported creates an unsupported artifact error
func Unsupported(path, what string) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindUnsupported,
		Path:   path,
		Detail: what,
	}
}

// Compile creates a compilation error
func Compile(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: "compile module",
		Cause:  cause,
	}
}

// Exit creates an error for a guest that exited with a non-zero status
func Exit(path string, code uint32, cause error) *Error {
	return &Error{
		Phase:    PhaseExecute,
		Kind:     KindExit,
		Path:     path,
		Detail:   fmt.Sprintf("exit status %d", code),
		Cause:    cause,
		ExitCode: code,
	}
}

// Trap creates an error for a guest that trapped
func Trap(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindTrap,
		Path:   path,
		Detail: "guest trapped",
		Cause:  cause,
	}
}

// Release creates an engine teardown error
func Release(cause error) *Error {
	return &Error{
		Phase:  PhaseLifecycle,
		Kind:   KindRelease,
		Detail: "release engine",
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
