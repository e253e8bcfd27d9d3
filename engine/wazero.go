package engine

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	stderrors "errors"
	"io"
	"os"
	"sort"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/wippyai/runhost/errors"
)

const (
	// maxMemoryPages is the WebAssembly 32-bit address space limit (4GB).
	maxMemoryPages = 65536

	// DefaultEntryPoint is the WASI command entry point.
	DefaultEntryPoint = "_start"
)

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

// WazeroEngine implements Engine by running WASI command modules with wazero
type WazeroEngine struct {
	runtime     wazero.Runtime
	cache       wazero.CompilationCache
	cfg         Config
	searchPaths []string
}

// Config holds configuration for engine creation
type Config struct {
	// Stdin, Stdout and Stderr are handed to every guest. nil discards
	// output and provides an empty stdin.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Env is exposed to guests as environment variables.
	Env map[string]string

	// Mounts maps host directories to guest paths.
	Mounts map[string]string

	// CacheDir persists compiled modules across engines. Empty means an
	// in-memory cache scoped to this engine.
	CacheDir string

	// EntryPoint is the exported function invoked on instantiation.
	// Defaults to "_start".
	EntryPoint string

	// SearchPaths are tried in order when a relative path is executed.
	// Defaults to the current working directory.
	SearchPaths []string

	// Args follow the artifact path in the guest's argv.
	Args []string

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32
}

// NewWazeroEngine creates an engine with default configuration
func NewWazeroEngine(ctx context.Context) (*WazeroEngine, error) {
	return NewWazeroEngineWithConfig(ctx, nil)
}

// NewWazeroEngineWithConfig creates a new engine with custom configuration.
// Invalid configuration is reported as an unrecoverable initialization error.
func NewWazeroEngineWithConfig(ctx context.Context, cfg *Config) (*WazeroEngine, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.EntryPoint == "" {
		c.EntryPoint = DefaultEntryPoint
	}
	if c.MemoryLimitPages > maxMemoryPages {
		return nil, errors.New(errors.PhaseInit, errors.KindInvalidInput).
			Detail("memory limit %d pages exceeds %d", c.MemoryLimitPages, maxMemoryPages).
			Unrecoverable().
			Build()
	}

	searchPaths, err := normalizeSearchPaths(c.SearchPaths)
	if err != nil {
		return nil, err
	}
	if err := validateMounts(c.Mounts); err != nil {
		return nil, err
	}

	var cache wazero.CompilationCache
	if c.CacheDir != "" {
		cache, err = wazero.NewCompilationCacheWithDir(c.CacheDir)
		if err != nil {
			return nil, errors.Initialization("create compilation cache", err)
		}
	} else {
		cache = wazero.NewCompilationCache()
	}

	runtimeCfg := wazero.NewRuntimeConfig().WithCompilationCache(cache)
	if c.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(c.MemoryLimitPages)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	if _, err := instantiateWASI(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		_ = cache.Close(ctx)
		return nil, errors.Initialization("instantiate WASI", err)
	}

	Logger().Debug("engine created",
		zap.Strings("search_paths", searchPaths),
		zap.Uint32("memory_limit_pages", c.MemoryLimitPages),
		zap.String("cache_dir", c.CacheDir),
	)

	return &WazeroEngine{
		runtime:     rt,
		cache:       cache,
		cfg:         c,
		searchPaths: searchPaths,
	}, nil
}

// SearchPaths returns the absolute directories relative paths are resolved against.
func (e *WazeroEngine) SearchPaths() []string {
	return append([]string(nil), e.searchPaths...)
}

// Run resolves, compiles and instantiates the module at path. Instantiation
// invokes the entry point; the instance is closed once it returns.
func (e *WazeroEngine) Run(ctx context.Context, path string) error {
	start := time.Now()

	resolved, err := e.resolve(path)
	if err != nil {
		return err
	}

	wasmBytes, err := os.ReadFile(resolved)
	if err != nil {
		return errors.Load(path, err)
	}
	if err := checkHeader(path, wasmBytes); err != nil {
		return err
	}

	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return errors.Compile(path, err)
	}
	defer compiled.Close(ctx)

	if err := e.checkImports(path, compiled); err != nil {
		return err
	}
	if _, ok := compiled.ExportedFunctions()[e.cfg.EntryPoint]; !ok {
		return errors.New(errors.PhaseLink, errors.KindNotFound).
			Path(path).
			Detail("entry point %q not exported", e.cfg.EntryPoint).
			Build()
	}

	mod, err := e.runtime.InstantiateModule(ctx, compiled, e.moduleConfig(path))
	if mod != nil {
		defer mod.Close(ctx)
	}

	elapsed := time.Since(start)
	if err != nil {
		var exitErr *sys.ExitError
		if stderrors.As(err, &exitErr) {
			if exitErr.ExitCode() == 0 {
				Logger().Debug("run complete", zap.String("path", path), zap.Duration("elapsed", elapsed))
				return nil
			}
			return errors.Exit(path, exitErr.ExitCode(), err)
		}
		return errors.Trap(path, err)
	}

	Logger().Debug("run complete", zap.String("path", path), zap.Duration("elapsed", elapsed))
	return nil
}

// Close releases the wazero runtime and the compilation cache
func (e *WazeroEngine) Close(ctx context.Context) error {
	err := e.runtime.Close(ctx)
	if cerr := e.cache.Close(ctx); cerr != nil {
		err = stderrors.Join(err, cerr)
	}
	Logger().Debug("engine closed", zap.Error(err))
	return err
}

func (e *WazeroEngine) moduleConfig(path string) wazero.ModuleConfig {
	// Anonymous so the same runtime can instantiate any number of guests.
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions(e.cfg.EntryPoint).
		WithArgs(append([]string{path}, e.cfg.Args...)...).
		WithSysWalltime().
		WithSysNanotime().
		WithRandSource(rand.Reader)

	if e.cfg.Stdin != nil {
		cfg = cfg.WithStdin(e.cfg.Stdin)
	}
	if e.cfg.Stdout != nil {
		cfg = cfg.WithStdout(e.cfg.Stdout)
	}
	if e.cfg.Stderr != nil {
		cfg = cfg.WithStderr(e.cfg.Stderr)
	}

	for _, k := range sortedKeys(e.cfg.Env) {
		cfg = cfg.WithEnv(k, e.cfg.Env[k])
	}

	if len(e.cfg.Mounts) > 0 {
		fsCfg := wazero.NewFSConfig()
		for _, host := range sortedKeys(e.cfg.Mounts) {
			fsCfg = fsCfg.WithDirMount(host, e.cfg.Mounts[host])
		}
		cfg = cfg.WithFSConfig(fsCfg)
	}

	return cfg
}

// checkHeader rejects anything that is not a core WebAssembly module before
// handing it to the compiler, so the error says what the artifact is.
func checkHeader(path string, b []byte) error {
	if len(b) < 8 || !bytes.Equal(b[:4], wasmMagic) {
		return errors.New(errors.PhaseCompile, errors.KindInvalidData).
			Path(path).
			Detail("not a WebAssembly binary").
			Build()
	}
	// Component model binaries use layer 1 in the upper half of the version field.
	if layer := binary.LittleEndian.Uint16(b[6:8]); layer == 1 {
		return errors.Unsupported(path, "component model binaries are not supported")
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
