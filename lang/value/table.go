package value

import (
	"unsafe"

	"github.com/dolthub/swiss"
)

// Table is the minimal table/object collaborator the interpreter needs to
// run the TableNew/TableDup/TableGet*/TablePut* opcodes (spec.md section
// 4.5). The full hidden-class/inline-cache machinery that a production
// table implementation would carry is explicitly out of scope (spec.md
// section 1); this is the black box those opcodes are specified against,
// grounded on the teacher's lang/machine/map.go ("Map wraps
// *swiss.Map[Value, Value]").
//
// Named (by-string) fields live in their own Go-native map rather than in
// hash: a pointer-tagged TValue compares by pointer identity (lang/value's
// NaN-boxing resolution, see doc.go), which is exactly right for table and
// function keys but wrong for strings, which must compare by content the
// way every name-keyed lookup in the language expects. named sidesteps
// that by keying directly on the Go string instead of a boxed TValue.
type Table struct {
	CellHeader
	arr        []TValue // 1-based array part: arr[i] holds t[i+1]
	hash       *swiss.Map[TValue, TValue]
	named      map[string]TValue
	generation uint64 // bumped on every Put*, so a call-site memo can notice a shape change
}

// NewTable allocates a table with room for arrayHint array slots and
// capacityHint hash entries, per the TableNew opcode's operands.
func NewTable(arrayHint, capacityHint int) TValue {
	t := &Table{
		CellHeader: CellHeader{Kind: KindTable},
		hash:       swiss.NewMap[TValue, TValue](uint32(capacityHint)),
		named:      make(map[string]TValue),
	}
	if arrayHint > 0 {
		t.arr = make([]TValue, arrayHint)
		for i := range t.arr {
			t.arr[i] = Nil
		}
	}
	return CreatePointer(unsafe.Pointer(t))
}

// TableOf unwraps a pointer TValue of KindTable.
func TableOf(v TValue) *Table { return AsPointer[Table](v) }

// Clone performs the shallow copy TableDup needs: same-shaped array part, a
// fresh hash part with the same entries (the *values* are copied by TValue
// assignment, never deep-copied).
func (t *Table) Clone() TValue {
	nt := &Table{
		CellHeader: CellHeader{Kind: KindTable},
		hash:       swiss.NewMap[TValue, TValue](uint32(t.hash.Count())),
		named:      make(map[string]TValue, len(t.named)),
	}
	if t.arr != nil {
		nt.arr = append([]TValue(nil), t.arr...)
	}
	t.hash.Iter(func(k, v TValue) bool {
		nt.hash.Put(k, v)
		return true
	})
	for k, v := range t.named {
		nt.named[k] = v
	}
	return CreatePointer(unsafe.Pointer(nt))
}

func (t *Table) GetByInteger(idx int64) TValue {
	if idx >= 1 && int(idx) <= len(t.arr) {
		return t.arr[idx-1]
	}
	v, ok := t.hash.Get(CreateInt32(int32(idx)))
	if !ok {
		return Nil
	}
	return v
}

func (t *Table) PutByInteger(idx int64, v TValue) {
	if idx >= 1 && int(idx) <= len(t.arr) {
		t.arr[idx-1] = v
		t.generation++
		WriteBarrier(unsafe.Pointer(t))
		return
	}
	// grow the array part by exactly one when appending at its boundary,
	// matching the common "t[#t+1] = v" pattern; anything further out goes
	// to the hash part, same as the reference table implementation this
	// stands in for.
	if idx == int64(len(t.arr))+1 {
		t.arr = append(t.arr, v)
		t.generation++
		WriteBarrier(unsafe.Pointer(t))
		return
	}
	t.hash.Put(CreateInt32(int32(idx)), v)
	t.generation++
	WriteBarrier(unsafe.Pointer(t))
}

func (t *Table) GetByName(name string) TValue {
	v, ok := t.named[name]
	if !ok {
		return Nil
	}
	return v
}

func (t *Table) PutByName(name string, v TValue) {
	t.named[name] = v
	t.generation++
	WriteBarrier(unsafe.Pointer(t))
}

// Generation returns a counter bumped on every mutation, used by a
// TableGetById/PutById call site's icSlot memo to notice that a
// previously-cached lookup may no longer be valid.
func (t *Table) Generation() uint64 { return t.generation }

// GetByValue dispatches on the dynamic key's type, as TableGetByVal
// requires (spec.md section 4.5).
func (t *Table) GetByValue(key TValue) TValue {
	switch {
	case key.IsInt32():
		return t.GetByInteger(int64(key.AsInt32()))
	case key.IsDouble():
		if f := key.AsDouble(); f == float64(int64(f)) {
			return t.GetByInteger(int64(f))
		}
		v, ok := t.hash.Get(key)
		if !ok {
			return Nil
		}
		return v
	case key.IsPointer() && key.Kind() == KindString:
		return t.GetByName(StringOf(key))
	default:
		v, ok := t.hash.Get(key)
		if !ok {
			return Nil
		}
		return v
	}
}

func (t *Table) PutByValue(key, v TValue) {
	switch {
	case key.IsInt32():
		t.PutByInteger(int64(key.AsInt32()), v)
	case key.IsDouble():
		if f := key.AsDouble(); f == float64(int64(f)) {
			t.PutByInteger(int64(f), v)
			return
		}
		t.hash.Put(key, v)
		t.generation++
		WriteBarrier(unsafe.Pointer(t))
	case key.IsPointer() && key.Kind() == KindString:
		t.PutByName(StringOf(key), v)
	default:
		t.hash.Put(key, v)
		t.generation++
		WriteBarrier(unsafe.Pointer(t))
	}
}

// Length implements the LengthOperator "border" definition: any n >= 0 such
// that t[n] != nil and t[n+1] == nil. The array part's own length is a
// deterministic, always-valid border when the array part has no trailing
// nils introduced by explicit assignment, which is the common case; this
// mirrors the reference implementation's allowance that the choice among
// multiple valid borders is implementation-defined.
func (t *Table) Length() int64 {
	n := len(t.arr)
	for n > 0 && t.arr[n-1].IsNil() {
		n--
	}
	if n == len(t.arr) {
		// keep scanning into the hash part for a contiguous extension,
		// e.g. after PutByInteger grew past the array via the hash path.
		for {
			v, ok := t.hash.Get(CreateInt32(int32(n + 1)))
			if !ok || v.IsNil() {
				break
			}
			n++
		}
	}
	return int64(n)
}
