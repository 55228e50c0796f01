package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/corvidlang/corvid/loader"
	"github.com/corvidlang/corvid/runtime"
)

// Run loads the JSON bytecode module named by args[0], links and executes
// its entry function, and prints the values its outermost Return produced
// (runtime.FormatValue, one per line), mirroring print's own formatting so
// output is easy to eyeball in tests.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	content, err := os.ReadFile(args[0])
	if err != nil {
		return printError(stdio, err)
	}

	blocks, entry, err := loader.ParseFromJSON(content)
	if err != nil {
		return printError(stdio, err)
	}

	g := runtime.NewGlobalObject()
	runtime.Bootstrap(g, stdio.Stdout)

	fo := runtime.LinkTop(g, blocks[entry])
	rc := runtime.NewCoroutineRuntimeContext(g)
	if c.Steps > 0 {
		rc.SetStepBudget(int64(c.Steps))
	}

	results, err := runtime.LaunchScriptOn(rc, fo)
	if err != nil {
		return printError(stdio, err)
	}
	for _, v := range results {
		fmt.Fprintln(stdio.Stdout, runtime.FormatValue(v))
	}
	return nil
}
