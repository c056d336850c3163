package vm

import (
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"

	"github.com/dolthub/swiss"

	"github.com/mna/aria/lang/isa"
	"github.com/mna/aria/lang/runtime"
)

// Module is one compiled, loaded unit: its constant pool, toplevel code
// object, materialized constant values (scalars eagerly converted,
// CodeObjects wrapped as Functions), and its exported global bindings.
type Module struct {
	Path     string
	Pool     *isa.ConstantPool
	Toplevel *isa.CodeObject
	Globals  *runtime.ObjectBox
	consts   []runtime.Value
}

// NewModule materializes a Module's constant pool into runtime Values
// once, so PUSH need only index into consts rather than re-convert on
// every execution of the same instruction.
func NewModule(path string, pool *isa.ConstantPool, toplevel *isa.CodeObject) *Module {
	m := &Module{Path: path, Pool: pool, Toplevel: toplevel, Globals: runtime.NewObjectBox()}

	all := pool.All()
	consts := make([]runtime.Value, len(all))
	for i, c := range all {
		switch c.Kind {
		case isa.ConstInteger:
			consts[i] = runtime.NewInteger(c.Int)
		case isa.ConstFloat:
			consts[i] = runtime.NewFloat(c.Float)
		case isa.ConstString:
			consts[i] = runtime.NewString(c.Str)
		case isa.ConstCodeObject:
			consts[i] = &runtime.Function{Name: c.Code.Name, Code: c.Code, Attrs: c.Code.Attrs, ModuleName: path, ModuleRef: m}
		}
	}
	m.consts = consts
	return m
}

func (m *Module) constant(idx uint16) (runtime.Value, error) {
	if int(idx) >= len(m.consts) {
		return nil, newError(ReasonUnexpectedVmState, unknownLoc(), "constant index %d out of range", idx)
	}
	return m.consts[idx], nil
}

// constantString resolves idx to its string payload directly from the
// pool (used for name/identifier operands rather than pushed values).
func (m *Module) constantString(idx uint16) (string, error) {
	c, ok := m.Pool.Get(idx)
	if !ok || c.Kind != isa.ConstString {
		return "", newError(ReasonUnexpectedVmState, unknownLoc(), "constant index %d is not a string", idx)
	}
	return c.Str, nil
}

// ModuleLoader resolves import paths to loaded Modules, memoized by
// resolved absolute path and guarded against circular imports via an
// in-progress set, matching the VM-level path-memoized module loading
// decided for repeated imports within one compilation/run.
type ModuleLoader struct {
	cache      *swiss.Map[string, *Module]
	inProgress map[string]bool
	libDirs    []string
}

// NewModuleLoader builds a loader that searches libDirs, in order, for
// import paths. Resolving ARIA_LIB_DIR / ARIA_LIB_DIR_EXTRA into libDirs
// is the CLI's job (internal/maincmd.Cmd, whose fields carry the matching
// env struct tags parsed by caarlos0/env/v6 through mainer.Parser) so
// that this package never reads the environment itself. With no libDirs
// given, falls back to well-known OS-dependent locations and finally a
// lib directory relative to the running executable, matching the import
// search path described for the IMPORT opcode.
func NewModuleLoader(libDirs ...string) *ModuleLoader {
	l := &ModuleLoader{cache: swiss.NewMap[string, *Module](uint32(8)), inProgress: map[string]bool{}}
	l.libDirs = append(l.libDirs, libDirs...)
	if len(l.libDirs) == 0 {
		l.libDirs = defaultLibDirs()
	}
	return l
}

// defaultLibDirs is tried when the caller configures no explicit search
// roots: a couple of well-known OS-dependent install locations, then a
// "lib" directory next to the running executable.
func defaultLibDirs() []string {
	dirs := wellKnownLibDirs()
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Join(filepath.Dir(exe), "lib"))
	}
	return dirs
}

func wellKnownLibDirs() []string {
	switch goruntime.GOOS {
	case "windows":
		return []string{`C:\Program Files\aria\lib`}
	case "darwin":
		return []string{"/usr/local/share/aria/lib", "/opt/homebrew/share/aria/lib"}
	default:
		return []string{"/usr/local/share/aria/lib", "/usr/share/aria/lib"}
	}
}

// Resolve finds the absolute path import name resolves to by searching
// the configured library directories in order.
func (l *ModuleLoader) Resolve(name string) (string, error) {
	for _, dir := range l.libDirs {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			abs, err := filepath.Abs(candidate)
			if err != nil {
				return "", err
			}
			return abs, nil
		}
	}
	return "", fmt.Errorf("module %q not found on ARIA_LIB_DIR", name)
}

// Load returns the cached Module for path if already loaded, otherwise
// invokes compile to produce one, caching the result. A path already
// mid-load (a cycle) returns ReasonCircularImport instead of recursing.
func (l *ModuleLoader) Load(path string, compile func(path string) (*Module, error)) (*Module, error) {
	if m, ok := l.cache.Get(path); ok {
		return m, nil
	}
	if l.inProgress[path] {
		return nil, newError(ReasonCircularImport, unknownLoc(), "circular import of %q", path)
	}
	l.inProgress[path] = true
	defer delete(l.inProgress, path)

	m, err := compile(path)
	if err != nil {
		return nil, err
	}
	l.cache.Put(path, m)
	return m, nil
}
