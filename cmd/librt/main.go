// Command librt builds a C shared library around the runtime lifecycle.
//
//	go build -buildmode=c-shared -o librt.so ./cmd/librt
//
// Every function takes the handle returned by rt_runtime_new. Status codes
// are 0 on success, 1 on failure (details via rt_runtime_last_error) and -1
// on misuse. The last error stays readable after rt_runtime_dispose and is
// gone after rt_runtime_delete. If RUNHOST_CONFIG names an HCL file it
// configures every runtime created by the library.
package main

/*
#include <stddef.h>
#include <stdint.h>
*/
import "C"

import (
	"context"
	"os"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/runhost/config"
	"github.com/wippyai/runhost/engine"
	"github.com/wippyai/runhost/errors"
	"github.com/wippyai/runhost/registry"
	"github.com/wippyai/runhost/runtime"
)

const configEnv = "RUNHOST_CONFIG"

var (
	regOnce sync.Once
	reg     *registry.Registry
)

func handles() *registry.Registry {
	regOnce.Do(func() {
		reg = registry.New(loadConfig())
	})
	return reg
}

// loadConfig falls back to defaults when the file cannot be used; the
// resulting initialization failure is reported through the last error.
func loadConfig() *runtime.Config {
	path := os.Getenv(configEnv)
	if path == "" {
		return nil
	}
	file, err := config.Load(path)
	if err != nil {
		return &runtime.Config{Engine: failingFactory(err)}
	}
	logger := zap.NewNop()
	if file.LogLevel != "" {
		if l, err := file.Logger(); err == nil {
			logger = l
		}
	}
	engine.SetLogger(logger)
	return &runtime.Config{
		Engine:        engine.NewFactory(file.EngineConfig()),
		Logger:        logger,
		PanicOnMisuse: file.PanicOnMisuse,
	}
}

func failingFactory(err error) engine.Factory {
	return func(context.Context) (engine.Engine, error) {
		return nil, errors.New(errors.PhaseInit, errors.KindInitialization).
			Detail("load %s", os.Getenv(configEnv)).
			Cause(err).
			Unrecoverable().
			Build()
	}
}

func status(err error) C.int {
	return C.int(statusCode(err))
}

//export rt_runtime_new
func rt_runtime_new() C.uint32_t {
	return C.uint32_t(handles().Create())
}

//export rt_runtime_init
func rt_runtime_init(h C.uint32_t) C.int {
	return status(handles().Initialize(context.Background(), registry.Handle(h)))
}

//export rt_runtime_execute
func rt_runtime_execute(h C.uint32_t, path *C.char) C.int {
	if path == nil {
		return status(handles().Execute(context.Background(), registry.Handle(h), ""))
	}
	return status(handles().Execute(context.Background(), registry.Handle(h), C.GoString(path)))
}

// rt_runtime_last_error copies the last error message into buf, truncated
// and NUL-terminated, and returns the full message length. 0 means no error.
//
//export rt_runtime_last_error
func rt_runtime_last_error(h C.uint32_t, buf *C.char, size C.size_t) C.int {
	return C.int(readLastError(handles(), registry.Handle(h), errorMessage, cBuffer(buf, size)))
}

// rt_runtime_last_error_path is rt_runtime_last_error for the source path.
// Initialization failures carry no path, so 0 does not mean "no error";
// check rt_runtime_last_error first.
//
//export rt_runtime_last_error_path
func rt_runtime_last_error_path(h C.uint32_t, buf *C.char, size C.size_t) C.int {
	return C.int(readLastError(handles(), registry.Handle(h), errorPath, cBuffer(buf, size)))
}

//export rt_runtime_dispose
func rt_runtime_dispose(h C.uint32_t) C.int {
	return status(handles().Dispose(context.Background(), registry.Handle(h)))
}

// rt_runtime_delete disposes the runtime if needed and invalidates the handle.
//
//export rt_runtime_delete
func rt_runtime_delete(h C.uint32_t) C.int {
	return status(handles().Release(context.Background(), registry.Handle(h)))
}

// cBuffer views a caller-owned C buffer as a byte slice.
func cBuffer(buf *C.char, size C.size_t) []byte {
	if buf == nil || size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(buf)), int(size))
}

func main() {}
