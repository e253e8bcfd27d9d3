package engine

import (
	"github.com/tetratelabs/wazero"

	"github.com/wippyai/runhost/errors"
)

// checkImports verifies that every function the module imports is exported
// by a host module already instantiated in the engine's runtime.
func (e *WazeroEngine) checkImports(path string, compiled wazero.CompiledModule) error {
	var missing []string
	for _, def := range compiled.ImportedFunctions() {
		modName, name, ok := def.Import()
		if !ok {
			continue
		}
		// ExportedFunction panics on host modules; definitions are safe.
		host := e.runtime.Module(modName)
		if host == nil {
			missing = append(missing, modName+"#"+name)
			continue
		}
		if _, ok := host.ExportedFunctionDefinitions()[name]; !ok {
			missing = append(missing, modName+"#"+name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return errors.MissingImports(path, errors.NewMissingImportsError(missing))
}
