package maincmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mna/mainer"

	"github.com/mna/aria/lang/compiler"
	"github.com/mna/aria/lang/runtime"
	"github.com/mna/aria/lang/vm"
)

// Run assembles a pseudo-assembly source file, runs the resulting
// module's toplevel initializer, then invokes its main function if one
// was bound, matching the data-flow description: the VM loads a module,
// runs its top-level initializer, then invokes main.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	start := time.Now()
	defer func() { c.logVerbose(stdio, "run", args[0], start) }()
	return RunFile(ctx, stdio, c.libDirs(), c.Trace, args[0])
}

func RunFile(ctx context.Context, stdio mainer.Stdio, libDirs []string, trace bool, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return printError(stdio, err)
	}

	prog, err := compiler.Asm(src)
	if err != nil {
		return printError(stdio, fmt.Errorf("%s: %w", path, err))
	}

	mod := vm.NewModule(path, prog.Pool, prog.Entry)
	toplevel := &runtime.Function{Name: "<toplevel>", Code: prog.Entry, ModuleName: path, ModuleRef: mod}
	closure := runtime.NewClosure(toplevel)

	th := vm.NewThread(ctx)
	th.Stdout = stdio.Stdout
	th.Stderr = stdio.Stderr
	th.Trace = trace
	if len(libDirs) > 0 {
		th.Modules = vm.NewModuleLoader(libDirs...)
	}

	if _, err := th.Call(closure, nil); err != nil {
		return printError(stdio, fmt.Errorf("%s: %w", path, err))
	}

	main, ok := mod.Globals.Get("main")
	if !ok {
		return nil
	}
	callable, ok := main.(runtime.Callable)
	if !ok {
		return printError(stdio, fmt.Errorf("%s: main is not callable", path))
	}

	result, err := th.Call(callable, nil)
	if err != nil {
		return printError(stdio, fmt.Errorf("%s: %w", path, err))
	}
	if result != nil {
		fmt.Fprintln(stdio.Stdout, result.String())
	}
	return nil
}
