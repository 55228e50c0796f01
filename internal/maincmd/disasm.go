package maincmd

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/mna/mainer"

	"github.com/corvidlang/corvid/loader"
)

// Disasm loads the JSON bytecode module named by args[0] and prints a
// listing of every function it defines, sorted by name for deterministic
// output.
func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	content, err := os.ReadFile(args[0])
	if err != nil {
		return printError(stdio, err)
	}

	blocks, _, err := loader.ParseFromJSON(content)
	if err != nil {
		return printError(stdio, err)
	}

	names := make([]string, 0, len(blocks))
	for name := range blocks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprint(stdio.Stdout, loader.Disassemble(name, blocks[name]))
	}
	return nil
}
