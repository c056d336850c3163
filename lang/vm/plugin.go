package vm

import (
	"fmt"
	"plugin"
	"sync"

	"github.com/mna/aria/lang/runtime"
)

// nativeEntryPoint is the symbol every native plugin must export: a
// function that returns the table of native callables it provides. Using
// the stdlib plugin package is the idiomatic Go equivalent of the
// original's dlopen-plus-symbol-lookup native extension mechanism (see
// DESIGN.md); it is POSIX-only and requires the host binary and the
// plugin to be built with the same toolchain version, a limitation
// inherent to plugin.Open itself.
const nativeEntryPoint = "DylibHaxbyInject"

// PluginRegistry loads and memoizes native plugins by path, so that a
// dylib imported from multiple modules is opened and initialized exactly
// once.
type PluginRegistry struct {
	mu      sync.Mutex
	loaded  map[string]map[string]*runtime.NativeFunction
}

func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{loaded: map[string]map[string]*runtime.NativeFunction{}}
}

// Load opens the shared object at path (if not already loaded), looks up
// its nativeEntryPoint symbol, and caches the table of native functions
// it returns.
func (r *PluginRegistry) Load(path string) (map[string]*runtime.NativeFunction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tbl, ok := r.loaded[path]; ok {
		return tbl, nil
	}

	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vm: loading native plugin %q: %w", path, err)
	}
	sym, err := p.Lookup(nativeEntryPoint)
	if err != nil {
		return nil, fmt.Errorf("vm: native plugin %q missing %s: %w", path, nativeEntryPoint, err)
	}
	inject, ok := sym.(func() map[string]func(args []runtime.Value) (runtime.Value, error))
	if !ok {
		return nil, fmt.Errorf("vm: native plugin %q has wrong %s signature", path, nativeEntryPoint)
	}

	raw := inject()
	tbl := make(map[string]*runtime.NativeFunction, len(raw))
	for name, fn := range raw {
		tbl[name] = &runtime.NativeFunction{Name: name, Fn: fn}
	}
	r.loaded[path] = tbl
	return tbl, nil
}
