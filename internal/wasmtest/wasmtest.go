// Package wasmtest provides small hand-encoded WebAssembly modules for tests.
package wasmtest

import (
	"os"
	"path/filepath"
	"testing"
)

const (
	secType   = 0x01
	secImport = 0x02
	secFunc   = 0x03
	secExport = 0x07
	secCode   = 0x0a

	funcType = 0x60
	i32      = 0x7f
	extFunc  = 0x00

	opUnreachable = 0x00
	opCall        = 0x10
	opI32Const    = 0x41
	opEnd         = 0x0b
)

var header = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// Noop exports a _start that returns immediately.
func Noop() []byte {
	return module(
		section(secType, 0x01, funcType, 0x00, 0x00),
		section(secFunc, 0x01, 0x00),
		exportStart(0),
		code(opEnd),
	)
}

// Trap exports a _start that executes unreachable.
func Trap() []byte {
	return module(
		section(secType, 0x01, funcType, 0x00, 0x00),
		section(secFunc, 0x01, 0x00),
		exportStart(0),
		code(opUnreachable, opEnd),
	)
}

// Exit exports a _start that calls WASI proc_exit with status.
// status must be below 64 to fit a single-byte signed LEB128.
func Exit(status byte) []byte {
	if status >= 64 {
		panic("wasmtest: exit code must be below 64")
	}
	imp := append([]byte{0x01}, name("wasi_snapshot_preview1")...)
	imp = append(imp, name("proc_exit")...)
	imp = append(imp, extFunc, 0x00)

	return module(
		// type 0: (i32) -> (), type 1: () -> ()
		section(secType, 0x02, funcType, 0x01, i32, 0x00, funcType, 0x00, 0x00),
		section(secImport, imp...),
		section(secFunc, 0x01, 0x01),
		exportStart(1),
		code(opI32Const, status, opCall, 0x00, opEnd),
	)
}

// MissingImport imports env.missing, which no host provides.
func MissingImport() []byte {
	return CallImport("env", "missing")
}

// AdapterImport calls wasi_snapshot_preview1.reset_adapter_state, a
// function preview1 adapter shims expect the host to provide.
func AdapterImport() []byte {
	return CallImport("wasi_snapshot_preview1", "reset_adapter_state")
}

// CallImport exports a _start that calls the imported function mod.fn,
// typed () -> ().
func CallImport(mod, fn string) []byte {
	imp := append([]byte{0x01}, name(mod)...)
	imp = append(imp, name(fn)...)
	imp = append(imp, extFunc, 0x00)

	return module(
		section(secType, 0x01, funcType, 0x00, 0x00),
		section(secImport, imp...),
		section(secFunc, 0x01, 0x00),
		exportStart(1),
		code(opCall, 0x00, opEnd),
	)
}

// NoEntry is a valid module without any exports.
func NoEntry() []byte {
	return module(
		section(secType, 0x01, funcType, 0x00, 0x00),
		section(secFunc, 0x01, 0x00),
		code(opEnd),
	)
}

// Component returns the header of a component model binary.
func Component() []byte {
	return []byte{0x00, 0x61, 0x73, 0x6d, 0x0d, 0x00, 0x01, 0x00}
}

// WriteFile writes data to dir/name and returns the full path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func module(sections ...[]byte) []byte {
	out := append([]byte(nil), header...)
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

// section encodes id and content. Every fixture section is shorter than 128
// bytes, so the size fits a single LEB128 byte.
func section(id byte, content ...byte) []byte {
	if len(content) >= 128 {
		panic("wasmtest: section too large")
	}
	return append([]byte{id, byte(len(content))}, content...)
}

func name(s string) []byte {
	return append([]byte{byte(len(s))}, s...)
}

func exportStart(funcIdx byte) []byte {
	content := append([]byte{0x01}, name("_start")...)
	content = append(content, extFunc, funcIdx)
	return section(secExport, content...)
}

// code encodes a single function body with no locals.
func code(instrs ...byte) []byte {
	body := append([]byte{0x00}, instrs...)
	content := append([]byte{0x01, byte(len(body))}, body...)
	return section(secCode, content...)
}
