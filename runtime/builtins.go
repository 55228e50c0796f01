package runtime

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/corvidlang/corvid/lang/value"
)

// Bootstrap populates g with the built-in globals spec.md section 6
// requires (print, math.sqrt) plus the small supplemented surface
// SPEC_FULL.md section 9 adds (math.floor, math.abs, type) — native
// functions that exercise the same Call/TailCall dispatch as any
// bytecode-defined callee (spec.md section 9's three-way ExecutableCode
// dispatch). stdout is an explicit writer rather than a package logger, per
// this module's ambient diagnostics stack.
func Bootstrap(g *GlobalObject, stdout io.Writer) {
	g.Table.PutByName("print", newNative("print", -1, true, printBuiltin(stdout)))

	mathVal := value.NewTable(0, 4)
	mathTable := value.TableOf(mathVal)
	mathTable.PutByName("sqrt", newNative("math.sqrt", 1, false, mathSqrt))
	mathTable.PutByName("floor", newNative("math.floor", 1, false, mathFloor))
	mathTable.PutByName("abs", newNative("math.abs", 1, false, mathAbs))
	g.Table.PutByName("math", mathVal)

	g.Table.PutByName("type", newNative("type", 1, false, typeBuiltin))
}

func newNative(name string, numFixed int, varargs bool, fn NativeFunc) value.TValue {
	code := &ExecutableCode{
		Kind:         ExecNative,
		Name:         name,
		NumFixedArgs: maxInt(numFixed, 0),
		HasVarargs:   varargs || numFixed < 0,
		Native:       fn,
	}
	return NewFunctionObject(code, nil)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func printBuiltin(w io.Writer) NativeFunc {
	return func(_ *CoroutineRuntimeContext, args []value.TValue) ([]value.TValue, error) {
		for i, a := range args {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, FormatValue(a))
		}
		fmt.Fprint(w, "\n")
		return nil, nil
	}
}

func mathSqrt(_ *CoroutineRuntimeContext, args []value.TValue) ([]value.TValue, error) {
	x, ok := arg0Double(args)
	if !ok {
		return nil, &TypeError{Op: "math.sqrt", Expected: "double", Got: "non-double"}
	}
	return []value.TValue{value.CreateDouble(math.Sqrt(x))}, nil
}

func mathFloor(_ *CoroutineRuntimeContext, args []value.TValue) ([]value.TValue, error) {
	x, ok := arg0Double(args)
	if !ok {
		return nil, &TypeError{Op: "math.floor", Expected: "double", Got: "non-double"}
	}
	return []value.TValue{value.CreateDouble(math.Floor(x))}, nil
}

func mathAbs(_ *CoroutineRuntimeContext, args []value.TValue) ([]value.TValue, error) {
	x, ok := arg0Double(args)
	if !ok {
		return nil, &TypeError{Op: "math.abs", Expected: "double", Got: "non-double"}
	}
	return []value.TValue{value.CreateDouble(math.Abs(x))}, nil
}

func typeBuiltin(_ *CoroutineRuntimeContext, args []value.TValue) ([]value.TValue, error) {
	if len(args) == 0 {
		return []value.TValue{value.NewString("nil")}, nil
	}
	return []value.TValue{value.NewString(kindName(args[0]))}, nil
}

func arg0Double(args []value.TValue) (float64, bool) {
	if len(args) == 0 || !args[0].IsDouble() {
		return 0, false
	}
	return args[0].AsDouble(), true
}

// FormatValue implements print's type-directed formatting (spec.md section
// 6): integer-valued doubles print without a decimal point, nil/true/false
// print as words, strings print verbatim, and heap objects other than
// strings print as "<kind>: 0x<address>".
func FormatValue(v value.TValue) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBoolean():
		if v.AsBoolean() {
			return "true"
		}
		return "false"
	case v.IsInt32():
		return strconv.FormatInt(int64(v.AsInt32()), 10)
	case v.IsDouble():
		f := v.AsDouble()
		if f == math.Trunc(f) && !math.IsInf(f, 0) {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	case v.IsPointer():
		if v.Kind() == value.KindString {
			return value.StringOf(v)
		}
		return fmt.Sprintf("%s: %#x", v.Kind(), uintptr(v.AsPointerRaw()))
	default:
		return "<unknown>"
	}
}
