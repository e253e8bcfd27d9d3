// Package runtime provides the embeddable runtime handle.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt := runtime.New()
//	if err := rt.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	_ = rt.Execute(ctx, "jobs/report.wasm")
//	if e := rt.LastError(); e != nil {
//	    fmt.Println(e.Path, e.Message())
//	}
//
// # Lifecycle
//
// A runtime moves through three states:
//
//	uninitialized --Initialize--> ready --Close--> disposed
//
// New never fails. Initialize constructs the engine and may fail; a failed
// Initialize leaves the runtime uninitialized and may be retried unless the
// engine flagged the failure as unrecoverable. Execute may be called any
// number of times while ready. Close releases the engine exactly once.
//
// # Errors
//
// Two channels are kept apart:
//
//	*errors.Error        initialization and execution failures, recorded in
//	                     the last-error slot and also returned
//	*errors.MisuseError  an operation called in the wrong state, returned
//	                     only, never recorded
//
// The last-error slot holds one record. Each Execute overwrites it; a
// successful Execute clears it. It stays readable after Close.
//
// # Engines
//
// The engine is supplied through Config.Engine. The default constructs a
// wazero engine that runs WASI command modules:
//
//	rt := runtime.NewWithConfig(&runtime.Config{
//	    Engine: engine.NewFactory(&engine.Config{
//	        SearchPaths: []string{"./jobs"},
//	        Stdout:      os.Stdout,
//	    }),
//	    Logger: logger,
//	})
//
// # Thread Safety
//
// Runtime is NOT thread-safe. Use one goroutine per runtime, or guard every
// call with a lock. Independent runtimes can be used concurrently.
package runtime
