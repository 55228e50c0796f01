package runtime

import (
	"unsafe"

	"github.com/corvidlang/corvid/lang/value"
)

// Upvalue is a cell capturing a variable shared between a closure and its
// defining scope (spec.md section 3/GLOSSARY). Open, it aliases a live
// stack slot and is linked into its owning coroutine's open-upvalue list;
// closed, it owns the value directly and is unreachable from any
// coroutine's list (reachable only via FunctionObject.Upvalues).
type Upvalue struct {
	value.CellHeader
	Ptr         *value.TValue
	Stored      value.TValue
	Next        *Upvalue // towards lower stack addresses; list is sorted by Ptr descending
	IsImmutable bool
	Closed      bool
}

func (u *Upvalue) Get() value.TValue  { return *u.Ptr }
func (u *Upvalue) Set(v value.TValue) { *u.Ptr = v }

func slotAddr(p *value.TValue) uintptr { return uintptr(unsafe.Pointer(p)) }

// FindOrCreateOpenUpvalue implements spec.md section 4.2's "create-or-find
// open upvalue for stack slot dst": walks the coroutine's open-upvalue list
// (sorted by Ptr descending) for an existing node aliasing dst, or inserts
// a freshly opened one at the position that preserves the ordering.
func (rc *CoroutineRuntimeContext) FindOrCreateOpenUpvalue(dst *value.TValue, isImmutable bool) *Upvalue {
	var prev *Upvalue
	cur := rc.OpenUpvalues
	dstAddr := slotAddr(dst)
	for cur != nil {
		if cur.Ptr == dst {
			return cur
		}
		if slotAddr(cur.Ptr) < dstAddr {
			break
		}
		prev = cur
		cur = cur.Next
	}

	uv := &Upvalue{
		CellHeader:  value.CellHeader{Kind: value.KindUpvalue},
		Ptr:         dst,
		Next:        cur,
		IsImmutable: isImmutable,
	}
	if prev == nil {
		rc.OpenUpvalues = uv
		value.WriteBarrier(unsafe.Pointer(rc))
	} else {
		prev.Next = uv
		value.WriteBarrier(unsafe.Pointer(prev))
	}
	return uv
}

// CloseUpvalues closes every open upvalue whose Ptr aliases a slot at or
// above base (spec.md section 4.2): each such node's current value is
// copied into its own inline storage, the node is unlinked from the
// coroutine's list, and future reads/writes through the closure go through
// the inline copy regardless of subsequent stack reuse.
func (rc *CoroutineRuntimeContext) CloseUpvalues(base *value.TValue) {
	baseAddr := slotAddr(base)
	cur := rc.OpenUpvalues
	moved := false
	for cur != nil && slotAddr(cur.Ptr) >= baseAddr {
		cur.Stored = *cur.Ptr
		cur.Ptr = &cur.Stored
		cur.Closed = true
		moved = true
		cur = cur.Next
	}
	if moved {
		rc.OpenUpvalues = cur
		value.WriteBarrier(unsafe.Pointer(rc))
	}
}
