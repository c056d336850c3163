package vm

import (
	"context"
	"io"
	"os"
	"sync/atomic"

	"github.com/mna/aria/lang/runtime"
)

// Thread is one execution context: its call stack, I/O, step budget, and
// the module/plugin loaders it shares across every frame it runs.
// Grounded on the teacher's machine.Thread, generalized with a module
// loader and native plugin registry.
type Thread struct {
	Name string

	Stdout io.Writer
	Stderr io.Writer

	// MaxSteps bounds the number of dispatched instructions before the
	// thread is cancelled; <= 0 means unlimited.
	MaxSteps int

	// Trace, when set, writes each dispatched instruction to Stderr before
	// it executes (the developer CLI's --trace flag).
	Trace bool

	Modules *ModuleLoader
	Plugins *PluginRegistry

	ctx       context.Context
	ctxCancel func()
	cancelled atomic.Bool
	steps     uint64
	maxSteps  uint64

	callStack []*Frame
}

// NewThread returns a ready-to-run Thread with its own module loader and
// plugin registry. Stdout/Stderr may still be assigned after NewThread
// returns (they are resolved lazily on first use, falling back to
// os.Stdout/os.Stderr), so CLI callers can construct a Thread then wire
// in the Stdio the host process was given.
func NewThread(ctx context.Context) *Thread {
	if ctx == nil {
		ctx = context.Background()
	}
	cctx, cancel := context.WithCancel(ctx)
	th := &Thread{
		ctx:       cctx,
		ctxCancel: cancel,
		Modules:   NewModuleLoader(),
		Plugins:   NewPluginRegistry(),
	}
	th.init()
	go func() {
		<-cctx.Done()
		th.cancelled.Store(true)
	}()
	return th
}

func (th *Thread) init() {
	if th.MaxSteps <= 0 {
		th.maxSteps--
	} else {
		th.maxSteps = uint64(th.MaxSteps)
	}
}

// stdoutW resolves the standard output writer, falling back to os.Stdout
// when the caller left Stdout unset.
func (th *Thread) stdoutW() io.Writer {
	if th.Stdout != nil {
		return th.Stdout
	}
	return os.Stdout
}

// stderrW resolves the writer diagnostics (trace output, uncaught errors)
// go to, falling back to os.Stderr when the caller left Stderr unset.
func (th *Thread) stderrW() io.Writer {
	if th.Stderr != nil {
		return th.Stderr
	}
	return os.Stderr
}

func (th *Thread) pushFrame(fr *Frame) {
	th.callStack = append(th.callStack, fr)
}

func (th *Thread) popFrame() {
	th.callStack = th.callStack[:len(th.callStack)-1]
}

func (th *Thread) currentFrame() *Frame {
	if len(th.callStack) == 0 {
		return nil
	}
	return th.callStack[len(th.callStack)-1]
}

// Invoke implements runtime.Invoke, letting the operator-overload dispatch
// code in lang/runtime call back into full VM call semantics.
func (th *Thread) Invoke(c runtime.Callable, args []runtime.Value) (runtime.Value, error) {
	return th.Call(c, args)
}
