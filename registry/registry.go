// Package registry exposes runtimes through integer handles, for callers on
// the far side of a foreign-function boundary that cannot hold Go pointers.
//
// Each operation mirrors one runtime.Runtime method. A handle stays valid
// after Dispose so its last error can still be read; Release forgets it.
package registry

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/runhost/errors"
	"github.com/wippyai/runhost/resource"
	"github.com/wippyai/runhost/runtime"
)

// Handle identifies a runtime in a Registry. 0 is never issued.
type Handle = resource.Handle

// Registry owns a table of runtimes. The table is safe for concurrent use;
// operations on the same handle must still be serialized by the caller.
type Registry struct {
	table  *resource.Table[*entry]
	cfg    runtime.Config
	logger *zap.Logger
}

type entry struct {
	rt     *runtime.Runtime
	logger *zap.Logger
}

// Drop disposes a runtime that is still live when it leaves the table.
func (e *entry) Drop() {
	if e.rt.State() == runtime.StateDisposed {
		return
	}
	if err := e.rt.Close(context.Background()); err != nil {
		e.logger.Warn("release dropped runtime", zap.Error(err))
	}
}

// New creates a registry whose runtimes are built from cfg. A nil cfg uses
// runtime defaults.
func New(cfg *runtime.Config) *Registry {
	var c runtime.Config
	if cfg != nil {
		c = *cfg
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return &Registry{
		table:  resource.NewTable[*entry](),
		cfg:    c,
		logger: c.Logger,
	}
}

// Create allocates an uninitialized runtime and returns its handle.
// It returns 0 only after the registry has been closed.
func (r *Registry) Create() Handle {
	h, err := r.table.Insert(&entry{rt: runtime.NewWithConfig(&r.cfg), logger: r.logger})
	if err != nil {
		r.logger.Error("create runtime", zap.Error(err))
		return 0
	}
	return h
}

// Initialize initializes the runtime behind h.
func (r *Registry) Initialize(ctx context.Context, h Handle) error {
	rt, err := r.lookup("initialize", h)
	if err != nil {
		return err
	}
	return rt.Initialize(ctx)
}

// Execute runs path on the runtime behind h.
func (r *Registry) Execute(ctx context.Context, h Handle, path string) error {
	rt, err := r.lookup("execute", h)
	if err != nil {
		return err
	}
	return rt.Execute(ctx, path)
}

// LastError returns the last error recorded by the runtime behind h. An
// unknown handle yields nil together with a misuse error.
func (r *Registry) LastError(h Handle) (*errors.Error, error) {
	rt, err := r.lookup("last_error", h)
	if err != nil {
		return nil, err
	}
	return rt.LastError(), nil
}

// State returns the lifecycle state of the runtime behind h.
func (r *Registry) State(h Handle) (runtime.State, error) {
	rt, err := r.lookup("state", h)
	if err != nil {
		return 0, err
	}
	return rt.State(), nil
}

// Dispose closes the runtime behind h. The handle keeps its last error until
// Release.
func (r *Registry) Dispose(ctx context.Context, h Handle) error {
	rt, err := r.lookup("dispose", h)
	if err != nil {
		return err
	}
	return rt.Close(ctx)
}

// Release forgets h, disposing its runtime first if needed. The handle may
// be reissued by a later Create.
func (r *Registry) Release(ctx context.Context, h Handle) error {
	rt, err := r.lookup("release", h)
	if err != nil {
		return err
	}
	var closeErr error
	if rt.State() != runtime.StateDisposed {
		closeErr = rt.Close(ctx)
	}
	r.table.Remove(h)
	return closeErr
}

// Len returns the number of handles, disposed or not, that have not been released.
func (r *Registry) Len() int {
	return r.table.Len()
}

// Close disposes and forgets every runtime. Release failures are joined
// into the returned error; every runtime is disposed regardless.
func (r *Registry) Close(ctx context.Context) error {
	var errs []error
	r.table.Each(func(h Handle, e *entry) bool {
		if e.rt.State() != runtime.StateDisposed {
			if err := e.rt.Close(ctx); err != nil {
				r.logger.Warn("release runtime", zap.Uint32("handle", uint32(h)), zap.Error(err))
				errs = append(errs, err)
			}
		}
		return true
	})
	if err := r.table.Close(); err != nil {
		errs = append(errs, err)
	}
	return stderrors.Join(errs...)
}

func (r *Registry) lookup(op string, h Handle) (*runtime.Runtime, error) {
	e, ok := r.table.Get(h)
	if !ok {
		return nil, r.misuse(op, h)
	}
	return e.rt, nil
}

func (r *Registry) misuse(op string, h Handle) error {
	err := errors.Misuse(op, "", fmt.Sprintf("unknown handle %d", h))
	r.logger.Error("registry misuse", zap.String("op", op), zap.Uint32("handle", uint32(h)))
	if r.cfg.PanicOnMisuse {
		panic(err)
	}
	return err
}
