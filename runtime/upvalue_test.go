package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvidlang/corvid/lang/value"
	"github.com/corvidlang/corvid/runtime"
)

func TestFindOrCreateOpenUpvalueIsUnique(t *testing.T) {
	rc := runtime.NewCoroutineRuntimeContext(runtime.NewGlobalObject())
	rc.Stack[0] = value.CreateDouble(1)
	rc.Stack[1] = value.CreateDouble(2)

	a := rc.FindOrCreateOpenUpvalue(&rc.Stack[0], false)
	b := rc.FindOrCreateOpenUpvalue(&rc.Stack[0], false)
	require.Same(t, a, b, "the same stack slot must yield the same open upvalue")

	c := rc.FindOrCreateOpenUpvalue(&rc.Stack[1], false)
	require.NotSame(t, a, c)
}

func TestFindOrCreateOpenUpvalueOrdersByDescendingPtr(t *testing.T) {
	rc := runtime.NewCoroutineRuntimeContext(runtime.NewGlobalObject())

	lo := rc.FindOrCreateOpenUpvalue(&rc.Stack[0], false)
	hi := rc.FindOrCreateOpenUpvalue(&rc.Stack[5], false)
	mid := rc.FindOrCreateOpenUpvalue(&rc.Stack[2], false)

	require.Same(t, hi, rc.OpenUpvalues)
	require.Same(t, mid, rc.OpenUpvalues.Next)
	require.Same(t, lo, rc.OpenUpvalues.Next.Next)
}

func TestCloseUpvaluesDetachesAndFreezesValue(t *testing.T) {
	rc := runtime.NewCoroutineRuntimeContext(runtime.NewGlobalObject())
	rc.Stack[3] = value.CreateDouble(99)

	uv := rc.FindOrCreateOpenUpvalue(&rc.Stack[3], false)
	require.False(t, uv.Closed)

	rc.CloseUpvalues(&rc.Stack[3])
	require.True(t, uv.Closed)
	require.Equal(t, 99.0, uv.Get().AsDouble())
	require.Nil(t, rc.OpenUpvalues)

	// Mutating the original stack slot must no longer affect the closure.
	rc.Stack[3] = value.CreateDouble(-1)
	require.Equal(t, 99.0, uv.Get().AsDouble())
}

func TestCloseUpvaluesOnlyClosesAtOrAboveBase(t *testing.T) {
	rc := runtime.NewCoroutineRuntimeContext(runtime.NewGlobalObject())

	below := rc.FindOrCreateOpenUpvalue(&rc.Stack[1], false)
	above := rc.FindOrCreateOpenUpvalue(&rc.Stack[4], false)

	rc.CloseUpvalues(&rc.Stack[3])
	require.True(t, above.Closed)
	require.False(t, below.Closed)
	require.Same(t, below, rc.OpenUpvalues)
}
