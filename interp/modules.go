// interp/modules.go
package interp

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// modulePath resolves an import name to a file under the module dir.
func (vm *Interpreter) modulePath(name string) string {
	file := name
	if !strings.HasSuffix(file, vm.ext) {
		file += vm.ext
	}
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(vm.moduleDir, file)
}

// importModule loads name into env's module registry.
//
// A missing file is not an error: the importer's own functions and
// variables are exported as a Dict (function names map to their name as
// a string) and also bound as a variable called name, so name.f(x)
// dispatches back to f. An existing file runs in a fresh Env seeded with
// natives and initial vars; its variables are recorded in the registry only.
func (vm *Interpreter) importModule(env *Env, name string) error {
	path := vm.modulePath(name)
	if _, err := os.Stat(path); err != nil {
		exports := map[string]Value{}
		for _, fn := range env.FuncNames() {
			exports[fn] = StrVal(fn)
		}
		for k, v := range env.vars {
			exports[k] = v
		}
		env.setModule(name, exports)
		env.Set(name, NewDict(exports))
		vm.logger.Debug("import synthesized", slog.String("module", name), slog.Int("exports", len(exports)))
		return nil
	}

	src, err := ReadSource(path)
	if err != nil {
		return err
	}
	mod, err := Parse(src)
	if err != nil {
		return err
	}
	modEnv := vm.newModuleEnv()
	if _, err := vm.execBlock(mod.Body, modEnv); err != nil {
		return err
	}
	env.setModule(name, modEnv.Vars())
	vm.logger.Debug("import loaded", slog.String("module", name), slog.String("path", path))
	return nil
}
