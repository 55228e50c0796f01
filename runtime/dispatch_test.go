package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvidlang/corvid/lang/value"
	"github.com/corvidlang/corvid/loader"
	"github.com/corvidlang/corvid/runtime"
)

// run assembles src, links entry against a freshly bootstrapped global
// object, and runs it to completion.
func run(t *testing.T, src, entry string) []value.TValue {
	t.Helper()
	blocks, err := loader.Assemble(src)
	require.NoError(t, err)

	g := runtime.NewGlobalObject()
	runtime.Bootstrap(g, nil)
	fo := runtime.LinkTop(g, blocks[entry])
	results, err := runtime.LaunchScript(g, fo)
	require.NoError(t, err)
	return results
}

func TestCallReturnsArithmeticResult(t *testing.T) {
	src := `
function add params=2 frame=2 varargs=false
  add 0 0 1
  return 0 1 0
endfunction

function main params=0 frame=6 varargs=false
const func add
const double 2
const double 3
  newclosure c0 3
  constant 4 c1
  constant 5 c2
  call 3 2 1 0
  return 3 1 0
endfunction
`
	results := run(t, src, "main")
	require.Len(t, results, 1)
	require.True(t, results[0].IsDouble())
	require.Equal(t, 5.0, results[0].AsDouble())
}

func TestReturnPadsToMinimumThreeValues(t *testing.T) {
	// one returns a single value; main calls it expecting three results and
	// must observe (1, nil, nil).
	src := `
function one params=0 frame=1 varargs=false
const double 1
  constant 0 c0
  return 0 1 0
endfunction

function main params=0 frame=3 varargs=false
const func one
  newclosure c0 0
  call 0 0 3 0
  return 0 3 0
endfunction
`
	results := run(t, src, "main")
	require.Len(t, results, 3)
	require.Equal(t, 1.0, results[0].AsDouble())
	require.True(t, results[1].IsNil())
	require.True(t, results[2].IsNil())
}

func TestTailCallBoundedRecursion(t *testing.T) {
	// count(n) tail-calls itself (fetched back out of globals, since a
	// bytecode function has no other way to name itself) until n <= 0, then
	// returns n. Each call reclaims the caller's frame region instead of
	// growing the stack, so a large n must not overflow it.
	src := `
function count params=1 frame=3 varargs=false
const double 0
const double 1
const string "count"
  isle 0 c0 done
  globalget 1 c2
  sub 2 0 c1
  tailcall 1 1 0
label done
  return 0 1 0
endfunction

function main params=0 frame=2 varargs=false
const func count
const string "count"
const double 50000
  newclosure c0 0
  globalput 0 c1
  constant 1 c2
  call 0 1 1 0
  return 0 1 0
endfunction
`
	results := run(t, src, "main")
	require.Len(t, results, 1)
	require.Equal(t, 0.0, results[0].AsDouble())
}

func TestClosureCapturesClosedUpvalue(t *testing.T) {
	// make() closes over its own local before returning it; the returned
	// closure must still observe the captured value after make's frame is
	// long gone (exercises CloseUpvalues, not just an open alias).
	src := `
function inner params=0 frame=1 varargs=false
upvalue local 0 false
  upvalueget 0 0
  return 0 1 0
endfunction

function make params=0 frame=2 varargs=false
const double 42
const func inner
  constant 0 c0
  newclosure c1 1
  upvalueclose 0 after
label after
  return 1 1 0
endfunction

function main params=0 frame=1 varargs=false
const func make
  newclosure c0 0
  call 0 0 1 0
  call 0 0 1 0
  return 0 1 0
endfunction
`
	results := run(t, src, "main")
	require.Len(t, results, 1)
	require.True(t, results[0].IsDouble())
	require.Equal(t, 42.0, results[0].AsDouble())
}

func TestNumericForLoopTerminatesAndSums(t *testing.T) {
	// Classic "for i = 1, 5 do sum = sum + i end" shape, hand-assembled:
	// slots 0..3 are the loop-control quad (start, limit, step, induction),
	// slot 4 is the running sum.
	src := `
function main params=0 frame=5 varargs=false
const double 1
const double 5
const double 1
const double 0
  constant 0 c0
  constant 1 c1
  constant 2 c2
  constant 4 c3
  forloopinit 0 end
label body
  add 4 4 3
  forloopstep 0 body
label end
  return 4 1 0
endfunction
`
	results := run(t, src, "main")
	require.Len(t, results, 1)
	require.Equal(t, 15.0, results[0].AsDouble())
}

func TestVariadicRoundTrip(t *testing.T) {
	// variadic() forwards whatever it was called with straight back out as
	// its own variadic return, via VariadicArgsToVariadicRet; main calls it
	// with three fixed args and keepVarRet=1 so the three values land back
	// in its own stack starting at the call's funcSlot, exercising both the
	// capture half (dispatch.go's OpVariadicArgsToVariadicRet) and the
	// forward half (call.go's keepVarRet branch of deliverAt) of the path.
	src := `
function variadic params=0 frame=3 varargs=true
  variadicargstovariadicret
  return 0 0 1
endfunction

function main params=0 frame=6 varargs=false
const func variadic
const double 10
const double 20
const double 30
  newclosure c0 0
  constant 1 c1
  constant 2 c2
  constant 3 c3
  call 0 3 3 1
  return 0 3 0
endfunction
`
	results := run(t, src, "main")
	require.Len(t, results, 3)
	require.Equal(t, 10.0, results[0].AsDouble())
	require.Equal(t, 20.0, results[1].AsDouble())
	require.Equal(t, 30.0, results[2].AsDouble())
}

func TestVariadicArgsMaterializedByPutVariadicArgs(t *testing.T) {
	// Complements TestVariadicRoundTrip by exercising PutVariadicArgs
	// directly: the callee copies its captured varargs into named slots
	// (padding with nil past what was actually supplied) instead of
	// forwarding them as its own variadic return.
	src := `
function collect params=0 frame=4 varargs=true
  putvariadicargs 0 3
  return 0 3 0
endfunction

function main params=0 frame=4 varargs=false
const func collect
const double 7
const double 8
  newclosure c0 0
  constant 1 c1
  constant 2 c2
  call 0 2 3 0
  return 0 3 0
endfunction
`
	results := run(t, src, "main")
	require.Len(t, results, 3)
	require.Equal(t, 7.0, results[0].AsDouble())
	require.Equal(t, 8.0, results[1].AsDouble())
	require.True(t, results[2].IsNil())
}

func TestNumericForLoopCoercesStringLimit(t *testing.T) {
	// "for i = 1, "5" do sum = sum + i end": ForLoopInit's coerceNumber
	// must parse the string bound via strconv.ParseFloat and write the
	// coerced double back, exactly like TestNumericForLoopTerminatesAndSums
	// but with the limit supplied as a string constant.
	src := `
function main params=0 frame=5 varargs=false
const double 1
const string "5"
const double 1
const double 0
  constant 0 c0
  constant 1 c1
  constant 2 c2
  constant 4 c3
  forloopinit 0 end
label body
  add 4 4 3
  forloopstep 0 body
label end
  return 4 1 0
endfunction
`
	results := run(t, src, "main")
	require.Len(t, results, 1)
	require.Equal(t, 15.0, results[0].AsDouble())
}

func TestComparisonNaNAsymmetry(t *testing.T) {
	// IsNLT computes !(a < b), not a swapped-operand IsLT(b, a): with a=5
	// and b=NaN, IsLT(5, NaN) is false (so is IsLT(NaN, 5) — NaN compares
	// false every which way), but IsNLT(5, NaN) must be true. A buggy
	// implementation that computed IsNLT as IsLT(b, a) would get this wrong
	// even though it passes every non-NaN case.
	src := `
function main params=0 frame=3 varargs=false
const double 0
const double 5
const double 1
const double 9
  div 0 c0 c0
  constant 1 c1
  constant 2 c2
  isnlt 1 0 taken
  constant 2 c3
label taken
  return 2 1 0
endfunction
`
	results := run(t, src, "main")
	require.Len(t, results, 1)
	require.Equal(t, 1.0, results[0].AsDouble())
}
