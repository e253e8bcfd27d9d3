package runtime

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/wippyai/runhost/engine"
	"github.com/wippyai/runhost/errors"
)

// State is the lifecycle state of a Runtime
type State uint8

const (
	StateUninitialized State = iota
	StateReady
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Config holds configuration for runtime creation
type Config struct {
	// Engine constructs the engine on Initialize. nil means a wazero
	// engine with default configuration.
	Engine engine.Factory

	// Logger receives lifecycle events. nil means a no-op logger.
	Logger *zap.Logger

	// PanicOnMisuse turns every misuse into a panic in addition to the
	// returned error.
	PanicOnMisuse bool
}

// Runtime owns one engine between Initialize and Close and records the
// outcome of the most recent execution.
//
// A Runtime is NOT safe for concurrent use. Callers sharing one across
// goroutines must serialize every call. Distinct runtimes share nothing.
type Runtime struct {
	engine        engine.Engine
	factory       engine.Factory
	logger        *zap.Logger
	lastErr       *errors.Error
	initErr       *errors.Error // sticky unrecoverable init failure
	state         State
	panicOnMisuse bool
}

// New creates an uninitialized runtime with default configuration.
func New() *Runtime {
	return NewWithConfig(nil)
}

// NewWithConfig creates an uninitialized runtime. It never fails; anything
// that can fail is deferred to Initialize.
func NewWithConfig(cfg *Config) *Runtime {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.Engine == nil {
		c.Engine = engine.NewFactory(nil)
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return &Runtime{
		factory:       c.Engine,
		logger:        c.Logger,
		state:         StateUninitialized,
		panicOnMisuse: c.PanicOnMisuse,
	}
}

// State returns the current lifecycle state.
func (r *Runtime) State() State {
	return r.state
}

// Initialize constructs the engine and moves the runtime to StateReady.
//
// On failure the runtime stays uninitialized, the failure is recorded as the
// last error and returned. Initialize may be retried unless the failure was
// unrecoverable, in which case every later call fails with the same error
// without constructing anything.
func (r *Runtime) Initialize(ctx context.Context) error {
	if r.state != StateUninitialized {
		return r.misuse("initialize", "")
	}
	if r.initErr != nil {
		r.lastErr = r.initErr
		return r.initErr
	}

	eng, err := r.factory(ctx)
	if err != nil {
		initErr := initFailure(err)
		r.lastErr = initErr
		if initErr.Unrecoverable {
			r.initErr = initErr
		}
		r.logger.Warn("runtime initialization failed",
			zap.Error(initErr),
			zap.Bool("unrecoverable", initErr.Unrecoverable),
		)
		return initErr
	}
	if eng == nil {
		initErr := errors.Initialization("engine factory returned no engine", nil)
		r.lastErr = initErr
		return initErr
	}

	r.engine = eng
	r.lastErr = nil
	r.state = StateReady
	r.logger.Debug("runtime initialized")
	return nil
}

// Execute runs the artifact at path on the owned engine.
//
// Success clears the last error. Failure replaces it with an *errors.Error
// carrying path; the runtime stays ready either way. Calling Execute outside
// StateReady or with an empty path is misuse and leaves the last error alone.
func (r *Runtime) Execute(ctx context.Context, path string) error {
	if r.state != StateReady {
		return r.misuse("execute", "")
	}
	if path == "" {
		return r.misuse("execute", "empty path")
	}

	if err := r.engine.Run(ctx, path); err != nil {
		execErr := execFailure(path, err)
		r.lastErr = execErr
		r.logger.Debug("execution failed", zap.String("path", path), zap.Error(execErr))
		return execErr
	}

	r.lastErr = nil
	r.logger.Debug("execution succeeded", zap.String("path", path))
	return nil
}

// LastError returns the most recently recorded failure, or nil when the last
// execution succeeded or nothing has run. It is valid in every state,
// including after Close. The returned value must not be modified.
func (r *Runtime) LastError() *errors.Error {
	return r.lastErr
}

// Close releases the engine and moves the runtime to StateDisposed. The
// engine slot is emptied before the engine is released, so it is released
// at most once. Closing a disposed runtime is misuse.
//
// The last error survives Close and remains readable.
func (r *Runtime) Close(ctx context.Context) error {
	if r.state == StateDisposed {
		return r.misuse("dispose", "")
	}

	eng := r.engine
	r.engine = nil
	r.state = StateDisposed

	if eng == nil {
		r.logger.Debug("runtime disposed before initialization")
		return nil
	}
	if err := eng.Close(ctx); err != nil {
		r.logger.Warn("engine release failed", zap.Error(err))
		return errors.Release(err)
	}
	r.logger.Debug("runtime disposed")
	return nil
}

func (r *Runtime) misuse(op, detail string) error {
	err := errors.Misuse(op, r.state.String(), detail)
	r.logger.Error("runtime misuse", zap.String("op", op), zap.Stringer("state", r.state), zap.String("detail", detail))
	if r.panicOnMisuse {
		panic(err)
	}
	return err
}

// initFailure normalizes a factory error into an init-phase *errors.Error.
func initFailure(err error) *errors.Error {
	var e *errors.Error
	if stderrors.As(err, &e) && e.Phase == errors.PhaseInit {
		return e.Clone()
	}
	return &errors.Error{
		Phase:         errors.PhaseInit,
		Kind:          errors.KindInitialization,
		Cause:         err,
		Unrecoverable: errors.IsUnrecoverable(err),
	}
}

// execFailure normalizes an engine error into a record attributed to path.
// The engine's own record is copied so it cannot change after capture.
func execFailure(path string, err error) *errors.Error {
	var e *errors.Error
	if stderrors.As(err, &e) {
		c := e.Clone()
		if c.Path == "" {
			c.Path = path
		}
		return c
	}
	return &errors.Error{
		Phase: errors.PhaseExecute,
		Kind:  errors.KindExecution,
		Path:  path,
		Cause: err,
	}
}
