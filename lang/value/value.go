// Package value implements the tagged runtime value (TValue) that is the
// sole representation of a value on the coroutine stack, in the constant
// table, and inside heap cells. See doc.go for the NaN-boxing resolution
// notes.
package value

import (
	"math"
	"unsafe"
)

// Tag discriminates the payload held by a TValue.
type Tag uint8

const (
	TagNil Tag = iota
	TagBool
	TagInt32
	TagDouble
	TagPointer
)

// HeapKind identifies the concrete type of a heap cell. Every heap object
// pointed to by a pointer-tagged TValue embeds a CellHeader as its first
// field so that, given only a pointer, the runtime can recover the concrete
// kind — mirroring the C++ original's "first bytes identify a concrete
// type" layout.
type HeapKind uint8

const (
	KindString HeapKind = iota
	KindTable
	KindFunction
	KindThread
	KindUpvalue
	KindUserdata
)

func (k HeapKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindTable:
		return "table"
	case KindFunction:
		return "function"
	case KindThread:
		return "thread"
	case KindUpvalue:
		return "upvalue"
	case KindUserdata:
		return "userdata"
	default:
		return "unknown"
	}
}

// CellHeader is embedded as the first field of every heap object reachable
// through a pointer-tagged TValue.
type CellHeader struct {
	Kind HeapKind
}

// TValue is a polymorphic 64-bit-semantics value: exactly one of nil,
// boolean, int32, double, or a pointer to a heap cell. Go cannot safely hide
// a live pointer inside an integer bit pattern (the GC would not trace it),
// so the payload is carried in an explicit unsafe.Pointer field rather than
// NaN-boxed into 64 bits; every operation below preserves the semantics
// spec'd for the C++ original.
type TValue struct {
	tag Tag
	num uint64         // bit pattern for TagBool/TagInt32/TagDouble
	ptr unsafe.Pointer // heap cell for TagPointer; nil otherwise
}

// Nil is the canonical nil value.
var Nil = TValue{tag: TagNil}

// CreateBoolean returns a TValue holding b.
func CreateBoolean(b bool) TValue {
	var n uint64
	if b {
		n = 1
	}
	return TValue{tag: TagBool, num: n}
}

// CreateInt32 returns a TValue holding i.
func CreateInt32(i int32) TValue {
	return TValue{tag: TagInt32, num: uint64(uint32(i))}
}

// CreateDouble returns a TValue holding f.
func CreateDouble(f float64) TValue {
	return TValue{tag: TagDouble, num: math.Float64bits(f)}
}

// CreatePointer returns a TValue pointing at the heap cell p. p's first
// field must be a CellHeader.
func CreatePointer(p unsafe.Pointer) TValue {
	return TValue{tag: TagPointer, ptr: p}
}

func (v TValue) IsNil() bool     { return v.tag == TagNil }
func (v TValue) IsBoolean() bool { return v.tag == TagBool }
func (v TValue) IsInt32() bool   { return v.tag == TagInt32 }
func (v TValue) IsDouble() bool  { return v.tag == TagDouble }
func (v TValue) IsPointer() bool { return v.tag == TagPointer }

func (v TValue) AsBoolean() bool    { return v.num != 0 }
func (v TValue) AsInt32() int32     { return int32(uint32(v.num)) }
func (v TValue) AsDouble() float64  { return math.Float64frombits(v.num) }
func (v TValue) AsPointerRaw() unsafe.Pointer { return v.ptr }

// AsPointer reinterprets the pointer payload as *T. Callers are expected to
// have checked HeapKind first, exactly as the C++ original trusts the
// bytecode emitter to only ever reach this call for the right opcode.
func AsPointer[T any](v TValue) *T {
	return (*T)(v.ptr)
}

// Kind returns the HeapKind of the pointed-to cell. Only valid if
// v.IsPointer().
func (v TValue) Kind() HeapKind {
	return (*CellHeader)(v.ptr).Kind
}

// IsTruthy returns false iff v is nil or the boolean false; every other
// value, including 0, 0.0 and NaN, is truthy.
func (v TValue) IsTruthy() bool {
	switch v.tag {
	case TagNil:
		return false
	case TagBool:
		return v.num != 0
	default:
		return true
	}
}

// IsEQ implements the IsEQ opcode's equality: IEEE comparison (NaN != NaN)
// when both operands are doubles, bitwise equality (tag + payload)
// otherwise. Pointer equality is therefore reference identity.
func IsEQ(x, y TValue) bool {
	if x.tag == TagDouble && y.tag == TagDouble {
		return x.AsDouble() == y.AsDouble()
	}
	return x.tag == y.tag && x.num == y.num && x.ptr == y.ptr
}

// IsNEQ is the negation of IsEQ.
func IsNEQ(x, y TValue) bool { return !IsEQ(x, y) }
