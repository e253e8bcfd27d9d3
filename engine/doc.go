// Package engine defines the contract a runtime uses to execute source
// artifacts and provides a wazero-backed implementation.
//
// WazeroEngine runs WASI preview1 command modules: Run resolves a path
// against the configured search paths, compiles the module, verifies its
// imports and instantiates it, which invokes the entry point (_start by
// default). Guest exit codes other than zero and traps are reported as
// *errors.Error values that carry the executed path.
//
// Engines are not safe for concurrent use. The owning runtime serializes
// every call.
package engine
