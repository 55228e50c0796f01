package loader_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvidlang/corvid/lang/bytecode"
	"github.com/corvidlang/corvid/loader"
)

func TestAssembleErrors(t *testing.T) {
	cases := []struct {
		desc string
		in   string
		err  string // error "contains" this, empty means no error
	}{
		{"empty", ``, ""},
		{"unterminated function", `function foo params=0 frame=0 varargs=false`, "unterminated function"},
		{"endfunction without function", `endfunction`, "endfunction without function"},
		{"unknown mnemonic", `
function foo params=0 frame=1 varargs=false
  bogus 0
endfunction
`, `unknown mnemonic "bogus"`},
		{"wrong operand count", `
function foo params=0 frame=1 varargs=false
  move 0
endfunction
`, "expected 2 operands, got 1"},
		{"undefined label", `
function foo params=0 frame=1 varargs=false
  branchiftruthy 0 nowhere
  return 0 0 0
endfunction
`, `undefined label "nowhere"`},
		{"minimal valid", `
function foo params=0 frame=1 varargs=false
  return 0 0 0
endfunction
`, ""},
	}

	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			_, err := loader.Assemble(c.in)
			if c.err == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), c.err)
		})
	}
}

func TestAssembleResolvesForwardFunctionConstants(t *testing.T) {
	// "later" is referenced from "earlier"'s const table before its own
	// function block has been parsed; the two-pass stub-then-fill strategy
	// must resolve it anyway.
	src := `
function earlier params=0 frame=1 varargs=false
const func later
  newclosure c0 0
  return 0 1 0
endfunction

function later params=0 frame=1 varargs=false
  return 0 0 0
endfunction
`
	blocks, err := loader.Assemble(src)
	require.NoError(t, err)
	require.Contains(t, blocks, "earlier")
	require.Contains(t, blocks, "later")
	require.Len(t, blocks["earlier"].Constants, 1)
	require.True(t, blocks["earlier"].Constants[0].IsCodeBlock())
	require.Same(t, blocks["later"], blocks["earlier"].Constants[0].AsCodeBlock())
}

func TestAssembleConstantSlotOrdinalIsEndRelative(t *testing.T) {
	src := `
function foo params=0 frame=2 varargs=false
const double 1
const double 2
const double 3
  constant 0 c0
  constant 1 c2
  return 0 0 0
endfunction
`
	blocks, err := loader.Assemble(src)
	require.NoError(t, err)
	require.Len(t, blocks["foo"].Constants, 3)

	// c0 is the first of three constants (ordinal -3 from the end), c2 the
	// last (ordinal -1).
	r := bytecode.NewReader(blocks["foo"].Code, 0)
	r.Op()
	r.Slot()
	require.Equal(t, bytecode.BytecodeSlot(-3), r.Slot())
	r.Op()
	r.Slot()
	require.Equal(t, bytecode.BytecodeSlot(-1), r.Slot())
}
