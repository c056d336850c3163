package maincmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mna/mainer"

	"github.com/mna/aria/lang/compiler"
)

// Asm assembles a pseudo-assembly source file and prints its
// disassembly, exactly as the teacher's own asm_test.go exercises the
// assembler/disassembler pair directly rather than through a CLI.
func (c *Cmd) Asm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	start := time.Now()
	defer func() { c.logVerbose(stdio, "asm", args[0], start) }()
	return AsmFile(stdio, args[0])
}

func AsmFile(stdio mainer.Stdio, path string) error {
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
