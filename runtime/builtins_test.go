package runtime_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvidlang/corvid/lang/value"
	"github.com/corvidlang/corvid/loader"
	"github.com/corvidlang/corvid/runtime"
)

func TestFormatValue(t *testing.T) {
	cases := []struct {
		desc string
		v    value.TValue
		want string
	}{
		{"nil", value.Nil, "nil"},
		{"true", value.CreateBoolean(true), "true"},
		{"false", value.CreateBoolean(false), "false"},
		{"integer-valued double", value.CreateDouble(3), "3"},
		{"fractional double", value.CreateDouble(3.5), "3.5"},
		{"string", value.NewString("hi"), "hi"},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			require.Equal(t, c.want, runtime.FormatValue(c.v))
		})
	}
}

// bootstrappedRun is like run (dispatch_test.go) but bootstraps the
// built-in globals with a captured stdout and returns both the entry
// function's results and whatever print wrote to it.
func bootstrappedRun(t *testing.T, src, entry string) ([]value.TValue, string) {
	t.Helper()
	blocks, err := loader.Assemble(src)
	require.NoError(t, err)

	g := runtime.NewGlobalObject()
	var out bytes.Buffer
	runtime.Bootstrap(g, &out)

	fo := runtime.LinkTop(g, blocks[entry])
	results, err := runtime.LaunchScript(g, fo)
	require.NoError(t, err)
	return results, out.String()
}

func TestPrintBuiltinTabSeparatesArgsAndAppendsNewline(t *testing.T) {
	src := `
function main params=0 frame=3 varargs=false
const string "print"
const double 1
const string "two"
  globalget 0 c0
  constant 1 c1
  constant 2 c2
  call 0 2 0 0
  return 0 0 0
endfunction
`
	_, out := bootstrappedRun(t, src, "main")
	require.Equal(t, "1\ttwo\n", out)
}

func TestMathSqrtBuiltin(t *testing.T) {
	src := `
function main params=0 frame=3 varargs=false
const string "math"
const string "sqrt"
const double 9
  globalget 0 c0
  tablegetbyid 0 0 c1
  constant 1 c2
  call 0 1 1 0
  return 0 1 0
endfunction
`
	results, _ := bootstrappedRun(t, src, "main")
	require.Len(t, results, 1)
	require.Equal(t, 3.0, results[0].AsDouble())
}

func TestTypeBuiltin(t *testing.T) {
	src := `
function main params=0 frame=2 varargs=false
const string "type"
const double 5
  globalget 0 c0
  constant 1 c1
  call 0 1 1 0
  return 0 1 0
endfunction
`
	results, _ := bootstrappedRun(t, src, "main")
	require.Len(t, results, 1)
	require.Equal(t, "double", value.StringOf(results[0]))
}
