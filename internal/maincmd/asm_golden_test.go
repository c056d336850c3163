package maincmd_test

import (
	"bytes"
	"flag"
	"path/filepath"
	"testing"

	"github.com/mna/mainer"

	"github.com/mna/aria/internal/filetest"
	"github.com/mna/aria/internal/maincmd"
)

var testUpdateAsmTests = flag.Bool("test.update-asm-tests", false, "If set, replace expected asm test results with actual results.")

// TestAsmFiles assembles every testdata/in/*.asm source through the same
// AsmFile path cmd/aria's asm subcommand uses, diffing the printed
// disassembly against testdata/out golden files, mirroring the teacher's
// own resolver/parser/scanner golden-file tests.
func TestAsmFiles(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".asm") {
		t.Run(fi.Name(), func(t *testing.T) {
			var buf, ebuf bytes.Buffer
			stdio := mainer.Stdio{Stdout: &buf, Stderr: &ebuf}

			// error is ignored, we just want it printed to ebuf
			_ = maincmd.AsmFile(stdio, filepath.Join(srcDir, fi.Name()))
			filetest.DiffOutput(t, fi, buf.String(), resultDir, testUpdateAsmTests)
			filetest.DiffErrors(t, fi, ebuf.String(), resultDir, testUpdateAsmTests)
		})
	}
}
