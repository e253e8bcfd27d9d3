package engine

import (
	"os"
	"path/filepath"

	"github.com/wippyai/runhost/errors"
)

// normalizeSearchPaths makes every search path absolute and checks it is a
// directory. An empty list becomes the current working directory.
func normalizeSearchPaths(paths []string) ([]string, error) {
	if len(paths) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Initialization("resolve working directory", err)
		}
		return []string{cwd}, nil
	}

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, errors.Initialization("resolve search path "+p, err)
		}
		if !isDir(abs) {
			return nil, errors.New(errors.PhaseInit, errors.KindInvalidInput).
				Detail("search path %q is not a directory", p).
				Unrecoverable().
				Build()
		}
		out = append(out, abs)
	}
	return out, nil
}

func validateMounts(mounts map[string]string) error {
	for _, host := range sortedKeys(mounts) {
		if !isDir(host) {
			return errors.New(errors.PhaseInit, errors.KindInvalidInput).
				Detail("mount source %q is not a directory", host).
				Unrecoverable().
				Build()
		}
	}
	return nil
}

// resolve locates path on disk. Absolute paths are used as given; relative
// paths are tried against each search path in order.
func (e *WazeroEngine) resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		if isFile(path) {
			return path, nil
		}
		return "", errors.NotFound(path, nil)
	}

	for _, dir := range e.searchPaths {
		candidate := filepath.Join(dir, path)
		if isFile(candidate) {
			return candidate, nil
		}
	}
	return "", errors.NotFound(path, e.searchPaths)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
