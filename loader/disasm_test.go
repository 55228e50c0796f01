package loader_test

import (
	"flag"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvidlang/corvid/internal/filetest"
	"github.com/corvidlang/corvid/loader"
)

var updateDisasmGolden = flag.Bool("test.update-disasm-tests", false, "update loader disassembly golden files")

// TestDisassembleMatchesGoldenFiles assembles each .asm fixture under
// testdata/disasm and checks its disassembly against a golden .want file,
// one function's worth of assembly exercising plain three-operand
// instructions, the other a branch offset and a declared constant.
func TestDisassembleMatchesGoldenFiles(t *testing.T) {
	const dir = "testdata/disasm"
	for _, fi := range filetest.SourceFiles(t, dir, ".asm") {
		fi := fi
		t.Run(fi.Name(), func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join(dir, fi.Name()))
			require.NoError(t, err)

			blocks, err := loader.Assemble(string(src))
			require.NoError(t, err)

			names := make([]string, 0, len(blocks))
			for name := range blocks {
				names = append(names, name)
			}
			sort.Strings(names)

			var out string
			for _, name := range names {
				out += loader.Disassemble(name, blocks[name])
			}
			filetest.DiffOutput(t, fi, out, dir, updateDisasmGolden)
		})
	}
}
