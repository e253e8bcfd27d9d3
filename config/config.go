// Package config loads runtime settings from HCL files.
//
//	memory_limit_pages = 1024
//	cache_dir          = ".cache/wasm"
//	search_paths       = ["jobs", "/opt/jobs"]
//	entry_point        = "_start"
//	args               = ["--verbose"]
//	env                = { GREETING = "hello" }
//	log_level          = "debug"
//	panic_on_misuse    = false
//
//	mount {
//	  host  = "data"
//	  guest = "/data"
//	}
//
// Relative paths are resolved against the directory of the file.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/runhost/engine"
)

// File is the decoded form of a runtime configuration file
type File struct {
	Env              map[string]string `hcl:"env,optional"`
	CacheDir         string            `hcl:"cache_dir,optional"`
	EntryPoint       string            `hcl:"entry_point,optional"`
	LogLevel         string            `hcl:"log_level,optional"`
	SearchPaths      []string          `hcl:"search_paths,optional"`
	Args             []string          `hcl:"args,optional"`
	Mounts           []Mount           `hcl:"mount,block"`
	MemoryLimitPages uint32            `hcl:"memory_limit_pages,optional"`
	PanicOnMisuse    bool              `hcl:"panic_on_misuse,optional"`
}

// Mount exposes a host directory to guests
type Mount struct {
	Host  string `hcl:"host"`
	Guest string `hcl:"guest,optional"`
}

// Load reads and decodes the HCL file at path.
func Load(path string) (*File, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %w", path, diags)
	}
	return decode(f, filepath.Dir(path))
}

// Parse decodes HCL source. filename is used in diagnostics and relative
// paths are resolved against baseDir.
func Parse(src []byte, filename, baseDir string) (*File, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %w", filename, diags)
	}
	return decode(f, baseDir)
}

func decode(f *hcl.File, baseDir string) (*File, error) {
	var file File
	if diags := gohcl.DecodeBody(f.Body, nil, &file); diags.HasErrors() {
		return nil, fmt.Errorf("decode config: %w", diags)
	}

	if file.LogLevel != "" {
		if _, err := zapcore.ParseLevel(file.LogLevel); err != nil {
			return nil, fmt.Errorf("log_level: %w", err)
		}
	}

	if file.CacheDir != "" {
		file.CacheDir = resolve(baseDir, file.CacheDir)
	}
	for i, p := range file.SearchPaths {
		file.SearchPaths[i] = resolve(baseDir, p)
	}
	for i, m := range file.Mounts {
		file.Mounts[i].Host = resolve(baseDir, m.Host)
		if m.Guest == "" {
			file.Mounts[i].Guest = "/"
		}
	}
	return &file, nil
}

// EngineConfig converts the file into an engine configuration. Standard
// streams are left for the caller to set.
func (f *File) EngineConfig() *engine.Config {
	cfg := &engine.Config{
		MemoryLimitPages: f.MemoryLimitPages,
		CacheDir:         f.CacheDir,
		EntryPoint:       f.EntryPoint,
		SearchPaths:      append([]string(nil), f.SearchPaths...),
		Args:             append([]string(nil), f.Args...),
	}
	if len(f.Env) > 0 {
		cfg.Env = make(map[string]string, len(f.Env))
		for k, v := range f.Env {
			cfg.Env[k] = v
		}
	}
	if len(f.Mounts) > 0 {
		cfg.Mounts = make(map[string]string, len(f.Mounts))
		for _, m := range f.Mounts {
			cfg.Mounts[m.Host] = m.Guest
		}
	}
	return cfg
}

// Logger builds a production zap logger at the configured level, info by default.
func (f *File) Logger() (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if f.LogLevel != "" {
		l, err := zapcore.ParseLevel(f.LogLevel)
		if err != nil {
			return nil, err
		}
		level = l
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func resolve(baseDir, p string) string {
	if filepath.IsAbs(p) || baseDir == "" {
		return p
	}
	return filepath.Join(baseDir, p)
}
