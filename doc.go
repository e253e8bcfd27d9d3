// Package runhost hosts a single execution engine behind an explicit
// lifecycle and records the outcome of every execution.
//
// A runtime is created empty, initialized once, used to execute any number of
// source artifacts and finally disposed. Each execution either succeeds or
// leaves a structured error in the runtime's last-error slot, where it stays
// until the next execution overwrites or clears it.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	runhost/
//	├── runtime/         Lifecycle state machine and last-error slot
//	├── engine/          Engine contract and the wazero-backed implementation
//	├── errors/          Structured error records and the misuse error
//	├── registry/        Integer handles for callers across an FFI boundary
//	├── resource/        Generic handle table used by the registry
//	├── config/          HCL configuration files
//	└── cmd/
//	    ├── run/         Command-line runner with an interactive mode
//	    └── librt/       C shared library over the registry
//
// # Quick Start
//
//	rt := runtime.New()
//	if err := rt.Initialize(ctx); err != nil {
//	    log.Fatal(rt.LastError().Message())
//	}
//	defer rt.Close(ctx)
//
//	_ = rt.Execute(ctx, "job.wasm")
//	if e := rt.LastError(); e != nil {
//	    fmt.Println(e.Path, e.Message())
//	}
//
// # Error Channels
//
// Failures of the work itself (initialization or execution) are recorded in
// the last-error slot and returned. Calling an operation in the wrong state is
// misuse: it returns *errors.MisuseError, never touches the slot, and can be
// made to panic with runtime.Config.PanicOnMisuse.
//
// # Thread Safety
//
// A Runtime is used by one goroutine at a time. Independent runtimes share
// nothing and may run in parallel. The registry table is safe for concurrent
// use, but calls on one handle must still be serialized.
package runhost
