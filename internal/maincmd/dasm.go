package maincmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mna/mainer"

	"github.com/mna/aria/lang/compiler"
)

// Dasm assembles a pseudo-assembly source file and disassembles it back
// to text. Bytecode is in-memory only and never persisted (see the
// external interfaces this tool exposes), so there is no separate binary
// format to round-trip through; Dasm instead normalizes the textual form
// the same way Asm+Dasm does in the assembler's own round-trip test.
func (c *Cmd) Dasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	start := time.Now()
	defer func() { c.logVerbose(stdio, "dasm", args[0], start) }()
	return DasmFile(stdio, args[0])
}

func DasmFile(stdio mainer.Stdio, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return printError(stdio, err)
	}

	prog, err := compiler.Asm(src)
	if err != nil {
		return printError(stdio, fmt.Errorf("%s: %w", path, err))
	}

	text, err := compiler.Dasm(prog)
	if err != nil {
		return printError(stdio, err)
	}
	stdio.Stdout.Write(text)
	return nil
}
