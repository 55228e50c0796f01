package bytecode

import (
	"sync"

	"golang.org/x/exp/slices"

	"github.com/corvidlang/corvid/lang/value"
)

// GlobalObject is the identity a CodeBlock gets linked against. The
// concrete implementation (bindings, builtin bootstrap) lives in the
// runtime package; this package only needs identity so UnlinkedCodeBlock
// can cache the (UCB, GlobalObject) -> CodeBlock pairing spec.md section 3
// describes, without importing runtime (which itself imports bytecode).
type GlobalObject interface {
	// Identity returns a value that uniquely and stably identifies this
	// global object for the lifetime of the process (typically the address
	// of the backing struct).
	Identity() uintptr
}

func sameGlobal(a, b GlobalObject) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Identity() == b.Identity()
}

// UpvalueMetadata describes one upvalue a closure must capture, either from
// a local slot in the immediately enclosing frame (IsParentLocal) or by
// forwarding a handle already held in the enclosing closure's own upvalue
// array.
type UpvalueMetadata struct {
	IsParentLocal bool
	IsImmutable   bool
	Slot          int32 // parent stack slot if IsParentLocal, else parent upvalue ordinal
}

// ConstantEntry is the tagged union described in spec.md section 3: either
// a TValue or a pointer to a nested UnlinkedCodeBlock (the NewClosure
// opcode's operand).
type ConstantEntry struct {
	ucb *UnlinkedCodeBlock
	tv  value.TValue
}

func ConstantTValue(v value.TValue) ConstantEntry        { return ConstantEntry{tv: v} }
func ConstantCodeBlock(u *UnlinkedCodeBlock) ConstantEntry { return ConstantEntry{ucb: u} }

func (c ConstantEntry) IsCodeBlock() bool             { return c.ucb != nil }
func (c ConstantEntry) AsCodeBlock() *UnlinkedCodeBlock { return c.ucb }
func (c ConstantEntry) AsTValue() value.TValue        { return c.tv }

// UnlinkedCodeBlock is the compiler's immutable, global-environment-
// independent output for a single function (spec.md section 3).
type UnlinkedCodeBlock struct {
	Parent       *UnlinkedCodeBlock
	Name         string
	Code         []byte
	Constants    []ConstantEntry
	Upvalues     []UpvalueMetadata
	FrameSize    int
	NumFixedArgs int
	HasVarargs   bool

	mu            sync.Mutex
	defaultGlobal GlobalObject
	defaultBlock  *CodeBlock
	altLinks      []linkedPair // overflow cache beyond the default pairing
}

type linkedPair struct {
	global GlobalObject
	block  *CodeBlock
}

// CodeBlock is the executable binding of an UnlinkedCodeBlock to a specific
// GlobalObject (spec.md section 3). It owns a copy of the bytecode so that
// per-codeblock opcode specialization (not implemented here, but left room
// for) never mutates the shared UnlinkedCodeBlock.
type CodeBlock struct {
	UCB          *UnlinkedCodeBlock
	GlobalObj    GlobalObject
	Code         []byte
	NumUpvalues  int
	FrameSize    int
	NumFixedArgs int
	HasVarargs   bool

	icMu    sync.Mutex
	icSlots map[uint32]*icSlot // keyed by the TableGetById/PutById instruction's byte offset
}

// icSlot is a one-entry memo attached to a single TableGetById/PutById call
// site, standing in for the inline-cache subsystem spec.md places out of
// scope: it remembers the table and resolved value it last saw, so a
// monomorphic site can skip the by-name lookup entirely on a repeat visit.
// It is not a full inline cache (no cached bucket/slot, no polymorphic
// chain) — just a last-seen-table-generation memo, invalidated in one shot
// whenever the table's generation counter moves.
type icSlot struct {
	table      *value.Table
	generation uint64
	value      value.TValue
}

// Lookup returns the cached value if this site last resolved against t at
// its current generation, i.e. nothing has mutated t since.
func (s *icSlot) Lookup(t *value.Table) (value.TValue, bool) {
	if s.table == t && s.generation == t.Generation() {
		return s.value, true
	}
	return value.Nil, false
}

// Fill records the call site's new steady state after a cache miss or a
// write, so the next visit to this site can skip the lookup.
func (s *icSlot) Fill(t *value.Table, v value.TValue) {
	s.table = t
	s.generation = t.Generation()
	s.value = v
}

// ICSlot returns the call-site memo for the TableGetById/TablePutById
// instruction at byte offset pc within cb, creating it on first use. Each
// linked CodeBlock owns its own slots keyed by instruction address, so two
// GlobalObjects linking the same UnlinkedCodeBlock never share a cache entry
// (spec.md section 3's per-codeblock specialization).
func (cb *CodeBlock) ICSlot(pc uint32) *icSlot {
	cb.icMu.Lock()
	defer cb.icMu.Unlock()
	if cb.icSlots == nil {
		cb.icSlots = make(map[uint32]*icSlot)
	}
	s, ok := cb.icSlots[pc]
	if !ok {
		s = &icSlot{}
		cb.icSlots[pc] = s
	}
	return s
}

// Link returns the CodeBlock for (ucb, g), creating and caching it on first
// use. A CodeBlock uniquely corresponds to a (UnlinkedCodeBlock,
// GlobalObject) pair; the UCB caches the default pairing plus an optional
// overflow mapping (spec.md section 3 invariant).
func Link(ucb *UnlinkedCodeBlock, g GlobalObject) *CodeBlock {
	ucb.mu.Lock()
	defer ucb.mu.Unlock()

	if ucb.defaultBlock != nil && sameGlobal(ucb.defaultGlobal, g) {
		return ucb.defaultBlock
	}
	if i := slices.IndexFunc(ucb.altLinks, func(p linkedPair) bool { return sameGlobal(p.global, g) }); i >= 0 {
		return ucb.altLinks[i].block
	}

	cb := &CodeBlock{
		UCB:          ucb,
		GlobalObj:    g,
		Code:         append([]byte(nil), ucb.Code...),
		NumUpvalues:  len(ucb.Upvalues),
		FrameSize:    ucb.FrameSize,
		NumFixedArgs: ucb.NumFixedArgs,
		HasVarargs:   ucb.HasVarargs,
	}
	if ucb.defaultBlock == nil {
		ucb.defaultGlobal = g
		ucb.defaultBlock = cb
	} else {
		ucb.altLinks = append(ucb.altLinks, linkedPair{global: g, block: cb})
	}
	return cb
}

// Constant resolves a BytecodeSlot that is known to reference the constant
// table (slot.IsConstant()).
func (cb *CodeBlock) Constant(slot BytecodeSlot) ConstantEntry {
	return cb.UCB.Constants[slot.ConstantIndex(len(cb.UCB.Constants))]
}
