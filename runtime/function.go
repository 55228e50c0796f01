package runtime

import (
	"unsafe"

	"github.com/corvidlang/corvid/lang/bytecode"
	"github.com/corvidlang/corvid/lang/value"
)

// ExecKind distinguishes the three ways an ExecutableCode can be run
// (spec.md section 9's supplemented three-way dispatch): a bytecode
// function compiled from an UnlinkedCodeBlock, a host-provided native
// function, or an intrinsic the runtime itself defines (same calling
// convention as native, kept distinct only for diagnostics).
type ExecKind uint8

const (
	ExecBytecode ExecKind = iota
	ExecNative
	ExecIntrinsic
)

// NativeFunc is the Go calling convention for native and intrinsic
// functions: it receives the coroutine performing the call (so it can
// itself call back into bytecode, e.g. a "pcall" builtin) and the already
// materialized argument slice, and returns the result slice or an error.
type NativeFunc func(rc *CoroutineRuntimeContext, args []value.TValue) ([]value.TValue, error)

// ExecutableCode is the callee-independent half of a function: either the
// linked CodeBlock for bytecode, or a NativeFunc. FunctionObject pairs it
// with captured upvalues (spec.md section 3/4.3).
type ExecutableCode struct {
	Kind ExecKind
	Name string

	NumFixedArgs int
	HasVarargs   bool

	CodeBlock *bytecode.CodeBlock // ExecBytecode only
	Native    NativeFunc          // ExecNative / ExecIntrinsic only
}

// FunctionObject is the heap cell a closure evaluates to: an ExecutableCode
// reference plus the upvalues this particular closure instance captured
// (spec.md section 3).
type FunctionObject struct {
	value.CellHeader
	Code     *ExecutableCode
	Upvalues []*Upvalue
}

// NewFunctionObject wraps fo in a TValue of KindFunction.
func NewFunctionObject(code *ExecutableCode, upvalues []*Upvalue) value.TValue {
	fo := &FunctionObject{
		CellHeader: value.CellHeader{Kind: value.KindFunction},
		Code:       code,
		Upvalues:   upvalues,
	}
	return value.CreatePointer(unsafe.Pointer(fo))
}

func functionObjectOf(v value.TValue) (*FunctionObject, bool) {
	if !v.IsPointer() || v.Kind() != value.KindFunction {
		return nil, false
	}
	return value.AsPointer[FunctionObject](v), true
}
