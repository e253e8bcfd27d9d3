// Package errors provides structured error types for the runhost library.
//
// Two channels are kept apart. Runtime failures (engine construction and
// artifact execution) are *Error values that a runtime stores in its
// last-error slot. Caller contract violations are *MisuseError values that
// are only ever returned at the call site.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). Use the Builder for structured construction:
//
//	err := errors.New(errors.PhaseExecute, errors.KindExit).
//		Path("jobs/report.wasm").
//		ExitCode(2).
//		Detail("exit status %d", 2).
//		Build()
//
// Or the convenience constructors for common patterns:
//
//	err := errors.NotFound("report.wasm", searchPaths)
//	err := errors.Initialization("create compilation cache", cause)
//
// All errors implement the standard error interface and support errors.Is/As.
// errors.Is(err, errors.ErrMisuse) matches any misuse error.
package errors
