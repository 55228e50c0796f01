package value

import "unsafe"

// HeapString is the interned-string heap cell. Interning itself is an
// external collaborator (spec.md section 1): this module only needs a cell
// that carries the header and the bytes, not the intern table.
type HeapString struct {
	CellHeader
	S string
}

// NewString returns a pointer-tagged TValue wrapping s.
func NewString(s string) TValue {
	hs := &HeapString{CellHeader: CellHeader{Kind: KindString}, S: s}
	return CreatePointer(unsafe.Pointer(hs))
}

// StringOf returns the Go string backing a pointer TValue of KindString. It
// does not check v's kind, mirroring the bytecode emitter's contract of only
// ever calling this where the type is already known.
func StringOf(v TValue) string {
	return AsPointer[HeapString](v).S
}
