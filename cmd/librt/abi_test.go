package main

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/wippyai/runhost/engine"
	"github.com/wippyai/runhost/errors"
	"github.com/wippyai/runhost/registry"
	"github.com/wippyai/runhost/runtime"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, statusOK},
		{"execution", errors.Execution("a.src", "boom", nil), statusFailed},
		{"initialization", errors.Initialization("no engine", nil), statusFailed},
		{"plain", stderrors.New("boom"), statusFailed},
		{"misuse", errors.Misuse("execute", "disposed", ""), statusMisuse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusCode(tt.err); got != tt.want {
				t.Errorf("statusCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestCopyString(t *testing.T) {
	tests := []struct {
		name string
		size int
		s    string
		want string // dst contents up to the NUL
	}{
		{"fits", 16, "hello", "hello"},
		{"exact with terminator", 6, "hello", "hello"},
		{"truncated", 4, "hello", "hel"},
		{"room for terminator only", 1, "hello", ""},
		{"empty string", 4, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]byte, tt.size)
			for i := range dst {
				dst[i] = 'x'
			}
			if n := copyString(dst, tt.s); n != len(tt.s) {
				t.Errorf("length = %d, want %d", n, len(tt.s))
			}
			end := len(tt.want)
			if dst[end] != 0 {
				t.Fatalf("dst[%d] = %q, want NUL", end, dst[end])
			}
			if got := string(dst[:end]); got != tt.want {
				t.Errorf("dst = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCopyString_ZeroSize(t *testing.T) {
	if n := copyString(nil, "hello"); n != 5 {
		t.Errorf("length = %d, want 5", n)
	}
	if n := copyString([]byte{}, "hello"); n != 5 {
		t.Errorf("length = %d, want 5", n)
	}
}

type stubEngine struct{}

func (stubEngine) Run(_ context.Context, path string) error {
	if path == "bad.src" {
		return stderrors.New("parse error at line 3")
	}
	return nil
}

func (stubEngine) Close(context.Context) error { return nil }

func TestReadLastError(t *testing.T) {
	ctx := context.Background()
	reg := registry.New(&runtime.Config{
		Engine: func(context.Context) (engine.Engine, error) { return stubEngine{}, nil },
	})
	defer reg.Close(ctx)

	h := reg.Create()
	buf := make([]byte, 64)

	if n := readLastError(reg, h, errorMessage, buf); n != noLastError || buf[0] != 0 {
		t.Errorf("fresh handle: length %d, buf %q", n, buf[:1])
	}

	if code := statusCode(reg.Initialize(ctx, h)); code != statusOK {
		t.Fatalf("initialize status = %d", code)
	}
	if code := statusCode(reg.Execute(ctx, h, "bad.src")); code != statusFailed {
		t.Fatalf("execute status = %d", code)
	}
	if code := statusCode(reg.Execute(ctx, h, "")); code != statusMisuse {
		t.Fatalf("empty path status = %d", code)
	}

	// still readable once disposed
	if code := statusCode(reg.Dispose(ctx, h)); code != statusOK {
		t.Fatalf("dispose status = %d", code)
	}

	want := "parse error at line 3"
	n := readLastError(reg, h, errorMessage, buf)
	if n != len(want) || string(buf[:n]) != want || buf[n] != 0 {
		t.Errorf("message = %q (length %d), want %q", buf[:n], n, want)
	}
	n = readLastError(reg, h, errorPath, buf)
	if n != len("bad.src") || string(buf[:n]) != "bad.src" {
		t.Errorf("path = %q (length %d)", buf[:n], n)
	}

	short := make([]byte, 6)
	if n := readLastError(reg, h, errorMessage, short); n != len(want) || string(short[:5]) != "parse" || short[5] != 0 {
		t.Errorf("short buffer = %q (length %d)", short, n)
	}

	if code := statusCode(reg.Release(ctx, h)); code != statusOK {
		t.Fatalf("release status = %d", code)
	}
	if n := readLastError(reg, h, errorMessage, buf); n != lengthMisuse {
		t.Errorf("released handle length = %d, want %d", n, lengthMisuse)
	}
}

func TestReadLastError_InitFailureHasNoPath(t *testing.T) {
	ctx := context.Background()
	reg := registry.New(&runtime.Config{
		Engine: func(context.Context) (engine.Engine, error) { return nil, stderrors.New("no memory") },
	})
	defer reg.Close(ctx)

	h := reg.Create()
	if code := statusCode(reg.Initialize(ctx, h)); code != statusFailed {
		t.Fatalf("initialize status = %d", code)
	}

	buf := make([]byte, 32)
	if n := readLastError(reg, h, errorMessage, buf); n == noLastError {
		t.Error("init failure should have a message")
	}
	if n := readLastError(reg, h, errorPath, buf); n != 0 || buf[0] != 0 {
		t.Errorf("path length = %d, want empty", n)
	}
}
