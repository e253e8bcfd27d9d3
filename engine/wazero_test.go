package engine

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wippyai/runhost/errors"
	"github.com/wippyai/runhost/internal/wasmtest"
)

func newTestEngine(t *testing.T, cfg *Config) *WazeroEngine {
	t.Helper()
	ctx := context.Background()
	eng, err := NewWazeroEngineWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("create engine: %v", err)
	}
	t.Cleanup(func() { _ = eng.Close(ctx) })
	return eng
}

func asError(t *testing.T, err error) *errors.Error {
	t.Helper()
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("expected *errors.Error, got %T: %v", err, err)
	}
	return e
}

func TestWazeroEngine_Run(t *testing.T) {
	dir := t.TempDir()
	wasmtest.WriteFile(t, dir, "noop.wasm", wasmtest.Noop())
	wasmtest.WriteFile(t, dir, "trap.wasm", wasmtest.Trap())
	wasmtest.WriteFile(t, dir, "exit0.wasm", wasmtest.Exit(0))
	wasmtest.WriteFile(t, dir, "exit3.wasm", wasmtest.Exit(3))
	wasmtest.WriteFile(t, dir, "missing.wasm", wasmtest.MissingImport())
	wasmtest.WriteFile(t, dir, "noentry.wasm", wasmtest.NoEntry())
	wasmtest.WriteFile(t, dir, "adapter.wasm", wasmtest.AdapterImport())
	wasmtest.WriteFile(t, dir, "component.wasm", wasmtest.Component())
	wasmtest.WriteFile(t, dir, "script.src", []byte("print 'hello'\n"))

	eng := newTestEngine(t, &Config{SearchPaths: []string{dir}})

	tests := []struct {
		name  string
		path  string
		phase errors.Phase
		kind  errors.Kind
		ok    bool
	}{
		{name: "noop", path: "noop.wasm", ok: true},
		{name: "exit zero", path: "exit0.wasm", ok: true},
		{name: "absolute path", path: filepath.Join(dir, "noop.wasm"), ok: true},
		{name: "adapter import", path: "adapter.wasm", ok: true},
		{name: "trap", path: "trap.wasm", phase: errors.PhaseExecute, kind: errors.KindTrap},
		{name: "exit non-zero", path: "exit3.wasm", phase: errors.PhaseExecute, kind: errors.KindExit},
		{name: "missing import", path: "missing.wasm", phase: errors.PhaseLink, kind: errors.KindMissingImport},
		{name: "no entry point", path: "noentry.wasm", phase: errors.PhaseLink, kind: errors.KindNotFound},
		{name: "component", path: "component.wasm", phase: errors.PhaseCompile, kind: errors.KindUnsupported},
		{name: "not wasm", path: "script.src", phase: errors.PhaseCompile, kind: errors.KindInvalidData},
		{name: "not found", path: "absent.wasm", phase: errors.PhaseLoad, kind: errors.KindNotFound},
		{name: "absolute not found", path: filepath.Join(dir, "absent.wasm"), phase: errors.PhaseLoad, kind: errors.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eng.Run(context.Background(), tt.path)
			if tt.ok {
				if err != nil {
					t.Fatalf("run %s: %v", tt.path, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("run %s: expected error", tt.path)
			}
			e := asError(t, err)
			if e.Phase != tt.phase || e.Kind != tt.kind {
				t.Errorf("got [%s] %s, want [%s] %s (%v)", e.Phase, e.Kind, tt.phase, tt.kind, err)
			}
			if e.Path != tt.path {
				t.Errorf("Path = %q, want %q", e.Path, tt.path)
			}
		})
	}
}

func TestWazeroEngine_ExitCode(t *testing.T) {
	dir := t.TempDir()
	wasmtest.WriteFile(t, dir, "exit7.wasm", wasmtest.Exit(7))

	eng := newTestEngine(t, &Config{SearchPaths: []string{dir}})

	e := asError(t, eng.Run(context.Background(), "exit7.wasm"))
	if e.ExitCode != 7 {
		t.Errorf("ExitCode = %d, want 7", e.ExitCode)
	}
}

func TestWazeroEngine_MissingImportDetail(t *testing.T) {
	dir := t.TempDir()
	wasmtest.WriteFile(t, dir, "missing.wasm", wasmtest.MissingImport())

	eng := newTestEngine(t, &Config{SearchPaths: []string{dir}})

	err := eng.Run(context.Background(), "missing.wasm")
	var missing *errors.MissingImportsError
	if !stderrors.As(err, &missing) {
		t.Fatalf("expected *MissingImportsError, got %v", err)
	}
	if len(missing.Imports) != 1 || missing.Imports[0].Module != "env" || missing.Imports[0].Function != "missing" {
		t.Errorf("Imports = %+v", missing.Imports)
	}
}

// Imports resolved against the WASI host module must be checked without
// touching its functions directly.
func TestWazeroEngine_HostModuleImports(t *testing.T) {
	dir := t.TempDir()
	wasmtest.WriteFile(t, dir, "exit.wasm", wasmtest.Exit(0))
	wasmtest.WriteFile(t, dir, "adapter.wasm", wasmtest.AdapterImport())
	wasmtest.WriteFile(t, dir, "unknown.wasm", wasmtest.CallImport("wasi_snapshot_preview1", "no_such_call"))

	eng := newTestEngine(t, &Config{SearchPaths: []string{dir}})

	for _, path := range []string{"exit.wasm", "adapter.wasm"} {
		if err := eng.Run(context.Background(), path); err != nil {
			t.Errorf("run %s: %v", path, err)
		}
	}

	err := eng.Run(context.Background(), "unknown.wasm")
	var missing *errors.MissingImportsError
	if !stderrors.As(err, &missing) {
		t.Fatalf("expected *MissingImportsError, got %v", err)
	}
	want := errors.MissingImport{Module: "wasi_snapshot_preview1", Function: "no_such_call"}
	if len(missing.Imports) != 1 || missing.Imports[0] != want {
		t.Errorf("Imports = %+v, want [%+v]", missing.Imports, want)
	}
}

func TestWazeroEngine_SearchPathOrder(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	wasmtest.WriteFile(t, first, "job.wasm", wasmtest.Trap())
	wasmtest.WriteFile(t, second, "job.wasm", wasmtest.Noop())
	wasmtest.WriteFile(t, second, "only-second.wasm", wasmtest.Noop())

	eng := newTestEngine(t, &Config{SearchPaths: []string{first, second}})

	// first match wins
	e := asError(t, eng.Run(context.Background(), "job.wasm"))
	if e.Kind != errors.KindTrap {
		t.Errorf("Kind = %v, want trap from first search path", e.Kind)
	}

	if err := eng.Run(context.Background(), "only-second.wasm"); err != nil {
		t.Errorf("fallback to second search path: %v", err)
	}
}

func TestWazeroEngine_RepeatedRuns(t *testing.T) {
	dir := t.TempDir()
	wasmtest.WriteFile(t, dir, "noop.wasm", wasmtest.Noop())
	wasmtest.WriteFile(t, dir, "trap.wasm", wasmtest.Trap())

	eng := newTestEngine(t, &Config{
		SearchPaths: []string{dir},
		CacheDir:    filepath.Join(t.TempDir(), "cache"),
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := eng.Run(ctx, "noop.wasm"); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if err := eng.Run(ctx, "trap.wasm"); err == nil {
			t.Fatalf("run %d: expected trap", i)
		}
	}
}

func TestNewWazeroEngine_InvalidConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		cfg  *Config
	}{
		{"memory limit", &Config{MemoryLimitPages: maxMemoryPages + 1}},
		{"search path missing", &Config{SearchPaths: []string{filepath.Join(t.TempDir(), "nope")}}},
		{"search path is file", &Config{SearchPaths: []string{file}}},
		{"mount missing", &Config{Mounts: map[string]string{filepath.Join(t.TempDir(), "nope"): "/data"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, err := NewWazeroEngineWithConfig(context.Background(), tt.cfg)
			if err == nil {
				_ = eng.Close(context.Background())
				t.Fatal("expected error")
			}
			if !errors.IsInitialization(err) {
				t.Errorf("expected initialization error, got %v", err)
			}
			if !errors.IsUnrecoverable(err) {
				t.Errorf("expected unrecoverable error, got %v", err)
			}
		})
	}
}

func TestNewWazeroEngine_Defaults(t *testing.T) {
	eng := newTestEngine(t, nil)

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	paths := eng.SearchPaths()
	if len(paths) != 1 || paths[0] != cwd {
		t.Errorf("SearchPaths = %v, want [%s]", paths, cwd)
	}
	if eng.cfg.EntryPoint != DefaultEntryPoint {
		t.Errorf("EntryPoint = %q, want %q", eng.cfg.EntryPoint, DefaultEntryPoint)
	}
}

func TestNewFactory(t *testing.T) {
	ctx := context.Background()

	eng, err := NewFactory(nil)(ctx)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if err := eng.Close(ctx); err != nil {
		t.Errorf("close: %v", err)
	}

	eng, err = NewFactory(&Config{MemoryLimitPages: maxMemoryPages + 1})(ctx)
	if err == nil {
		t.Fatal("expected error")
	}
	if eng != nil {
		t.Errorf("failed factory must return a nil Engine, got %#v", eng)
	}
}
