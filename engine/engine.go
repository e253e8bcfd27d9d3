package engine

import "context"

// Engine executes source artifacts on behalf of a runtime.
//
// A runtime owns exactly one Engine between initialization and disposal and
// guarantees that Close is called once. Run may be called any number of times
// before that; a failed Run must leave the Engine usable for the next one.
type Engine interface {
	// Run executes the artifact at path to completion. Failures describing
	// the artifact are returned as *errors.Error values carrying the path.
	Run(ctx context.Context, path string) error

	// Close releases every resource held by the engine.
	Close(ctx context.Context) error
}

// Factory constructs an Engine. A failure that a retry cannot fix should be
// reported as an *errors.Error with Unrecoverable set.
type Factory func(ctx context.Context) (Engine, error)

// NewFactory returns a Factory producing wazero engines configured by cfg.
// A nil cfg uses the defaults of NewWazeroEngine.
func NewFactory(cfg *Config) Factory {
	return func(ctx context.Context) (Engine, error) {
		eng, err := NewWazeroEngineWithConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return eng, nil
	}
}
