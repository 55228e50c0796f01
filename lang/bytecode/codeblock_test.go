package bytecode_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/corvidlang/corvid/lang/bytecode"
	"github.com/corvidlang/corvid/lang/value"
)

// fakeGlobal is the smallest possible bytecode.GlobalObject: identity by
// address, nothing else. Standing in for runtime.GlobalObject without
// pulling in the runtime package (which imports bytecode), same boundary
// reason bytecode.GlobalObject itself documents.
type fakeGlobal struct{ _ int }

func (g *fakeGlobal) Identity() uintptr { return uintptr(unsafe.Pointer(g)) }

func TestLinkSpecializesPerGlobalObject(t *testing.T) {
	ucb := &bytecode.UnlinkedCodeBlock{
		Name:      "shared",
		Code:      []byte{0, 1, 2, 3},
		FrameSize: 2,
	}

	g1, g2 := &fakeGlobal{}, &fakeGlobal{}

	cb1 := bytecode.Link(ucb, g1)
	cb2 := bytecode.Link(ucb, g2)

	require.NotSame(t, cb1, cb2, "two GlobalObjects linking the same UnlinkedCodeBlock must get distinct CodeBlocks")
	require.Same(t, cb1, bytecode.Link(ucb, g1), "re-linking the same (ucb, global) pair must return the cached CodeBlock")
	require.Same(t, cb2, bytecode.Link(ucb, g2), "re-linking the second pair must return its own cached CodeBlock")

	// The two CodeBlocks' icSlot caches must not be shared: filling a slot
	// on cb1's call site must leave cb2's same-offset slot empty.
	tbl := value.TableOf(value.NewTable(0, 0))
	cb1.ICSlot(0).Fill(tbl, value.CreateDouble(1))
	_, hitOnCB1 := cb1.ICSlot(0).Lookup(tbl)
	_, hitOnCB2 := cb2.ICSlot(0).Lookup(tbl)
	require.True(t, hitOnCB1)
	require.False(t, hitOnCB2, "icSlot state must not leak across CodeBlocks linked from the same UnlinkedCodeBlock")
}

func TestLinkOverflowsPastThirdGlobalObject(t *testing.T) {
	ucb := &bytecode.UnlinkedCodeBlock{Code: []byte{0}, FrameSize: 1}

	globals := make([]*fakeGlobal, 4)
	blocks := make([]*bytecode.CodeBlock, len(globals))
	for i := range globals {
		globals[i] = &fakeGlobal{}
		blocks[i] = bytecode.Link(ucb, globals[i])
	}
	for i := range globals {
		require.Same(t, blocks[i], bytecode.Link(ucb, globals[i]))
		for j := range globals {
			if i != j {
				require.NotSame(t, blocks[i], blocks[j])
			}
		}
	}
}
