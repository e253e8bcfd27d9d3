package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/runhost/config"
	"github.com/wippyai/runhost/engine"
	"github.com/wippyai/runhost/errors"
	"github.com/wippyai/runhost/runtime"
)

type options struct {
	configFile  string
	cacheDir    string
	paths       string
	env         string
	argv        string
	mounts      string
	entry       string
	memPages    uint
	verbose     bool
	interactive bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configFile, "config", "", "HCL configuration file")
	flag.UintVar(&opts.memPages, "mem", 0, "Memory limit per instance in 64KB pages")
	flag.StringVar(&opts.cacheDir, "cache", "", "Compilation cache directory")
	flag.StringVar(&opts.paths, "path", "", "Search paths (comma-separated)")
	flag.StringVar(&opts.env, "env", "", "Environment variables (KEY=VAL,KEY2=VAL2)")
	flag.StringVar(&opts.argv, "argv", "", "Guest arguments (comma-separated)")
	flag.StringVar(&opts.mounts, "mount", "", "Mounted directories (/host:/guest,/host2:/guest2)")
	flag.StringVar(&opts.entry, "entry", "", "Exported entry point (default _start)")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	flag.BoolVar(&opts.interactive, "i", false, "Interactive mode with TUI")
	flag.Parse()

	if !opts.interactive && flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: run [flags] <file.wasm> [file.wasm...]")
		fmt.Fprintln(os.Stderr, "       run -i [flags]  (interactive mode)")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if opts.interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	os.Exit(runBatch(opts, flag.Args(), os.Stdout, os.Stderr))
}

// runBatch executes files in order on one runtime and returns the exit status:
// 1 when initialization or the last execution failed, 2 on misuse.
func runBatch(opts options, files []string, stdout, stderr io.Writer) int {
	ctx := context.Background()

	cfg, logger, err := buildConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	engCfg := *cfg.engine
	engCfg.Stdin = os.Stdin
	engCfg.Stdout = stdout
	engCfg.Stderr = stderr

	rt := runtime.NewWithConfig(&runtime.Config{
		Engine:        engine.NewFactory(&engCfg),
		Logger:        logger,
		PanicOnMisuse: cfg.panicOnMisuse,
	})
	if err := rt.Initialize(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: initialize runtime: %s\n", rt.LastError().Message())
		return 1
	}
	defer rt.Close(ctx)

	for _, file := range files {
		err := rt.Execute(ctx, file)
		if errors.IsMisuse(err) {
			// The last error belongs to an earlier file; do not report it again.
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		if e := rt.LastError(); e != nil {
			reportError(stderr, e.Path, e.Message(), e.ExitCode)
		}
	}

	if rt.LastError() != nil {
		return 1
	}
	return 0
}

func reportError(w io.Writer, path, msg string, exitCode uint32) {
	if exitCode != 0 {
		fmt.Fprintf(w, "%s: %s\n", path, msg)
		return
	}
	fmt.Fprintf(w, "%s: error: %s\n", path, msg)
}

type cliConfig struct {
	engine        *engine.Config
	panicOnMisuse bool
}

// buildConfig merges the configuration file, if any, with command-line
// flags. Flags win over the file.
func buildConfig(opts options) (*cliConfig, *zap.Logger, error) {
	engCfg := &engine.Config{}
	panicOnMisuse := false
	var logger *zap.Logger

	if opts.configFile != "" {
		file, err := config.Load(opts.configFile)
		if err != nil {
			return nil, nil, err
		}
		engCfg = file.EngineConfig()
		panicOnMisuse = file.PanicOnMisuse
		if file.LogLevel != "" {
			logger, err = file.Logger()
			if err != nil {
				return nil, nil, err
			}
		}
	}

	if opts.memPages > 0 {
		engCfg.MemoryLimitPages = uint32(opts.memPages)
	}
	if opts.cacheDir != "" {
		engCfg.CacheDir = opts.cacheDir
	}
	if opts.paths != "" {
		engCfg.SearchPaths = splitList(opts.paths)
	}
	if opts.entry != "" {
		engCfg.EntryPoint = opts.entry
	}
	if opts.argv != "" {
		engCfg.Args = splitList(opts.argv)
	}
	if opts.env != "" {
		if engCfg.Env == nil {
			engCfg.Env = make(map[string]string)
		}
		for k, v := range parsePairs(opts.env, "=") {
			engCfg.Env[k] = v
		}
	}
	if opts.mounts != "" {
		if engCfg.Mounts == nil {
			engCfg.Mounts = make(map[string]string)
		}
		for host, guest := range parsePairs(opts.mounts, ":") {
			engCfg.Mounts[host] = guest
		}
	}

	switch {
	case opts.verbose:
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, nil, err
		}
		logger = l
	case logger == nil:
		logger = zap.NewNop()
	}
	engine.SetLogger(logger)

	return &cliConfig{engine: engCfg, panicOnMisuse: panicOnMisuse}, logger, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parsePairs(s, sep string) map[string]string {
	out := make(map[string]string)
	for _, item := range splitList(s) {
		k, v, ok := strings.Cut(item, sep)
		if ok {
			out[k] = v
		}
	}
	return out
}
