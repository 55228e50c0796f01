// Package bytecode defines the instruction set that the interpreter
// dispatches over (spec.md section 4.5): the packed-record encoding, the
// BytecodeSlot sign convention, and a Reader/Writer pair used by both the
// dispatch loop (runtime package) and the assembler/loader (loader
// package). Grounded on the teacher's lang/compiler/opcode.go (packed
// opcode + varint argument, opcode name table, stack-effect style) adapted
// from its stack-machine shape to this spec's register-based one.
package bytecode

import (
	"encoding/binary"
	"fmt"
)

// Opcode identifies an instruction; it is encoded as the first byte of each
// instruction record.
type Opcode uint8

const (
	OpNop Opcode = iota

	OpMove
	OpConstant
	OpFillNil

	OpUpvalueGet
	OpUpvaluePut
	OpUpvalueClose

	OpGlobalGet
	OpGlobalPut

	OpTableGetById
	OpTablePutById
	OpTableGetByVal
	OpTablePutByVal
	OpTableGetByIntegerVal
	OpTablePutByIntegerVal
	OpTableVariadicPutByIntegerValSeq
	OpTableNew
	OpTableDup

	OpCall
	OpTailCall
	OpReturn

	OpVariadicArgsToVariadicRet
	OpPutVariadicArgs

	OpNewClosure

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod

	OpUnaryMinus
	OpIsFalsy
	OpLengthOperator

	OpIsLT
	OpIsNLT
	OpIsLE
	OpIsNLE
	OpIsEQ
	OpIsNEQ

	OpCopyAndBranchIfTruthy
	OpCopyAndBranchIfFalsy
	OpBranchIfTruthy
	OpBranchIfFalsy

	OpForLoopInit
	OpForLoopStep

	OpUnconditionalJump

	opcodeMax
)

var opcodeNames = [...]string{
	OpNop:                             "nop",
	OpMove:                            "move",
	OpConstant:                        "constant",
	OpFillNil:                         "fillnil",
	OpUpvalueGet:                      "upvalueget",
	OpUpvaluePut:                      "upvalueput",
	OpUpvalueClose:                    "upvalueclose",
	OpGlobalGet:                       "globalget",
	OpGlobalPut:                       "globalput",
	OpTableGetById:                    "tablegetbyid",
	OpTablePutById:                    "tableputbyid",
	OpTableGetByVal:                   "tablegetbyval",
	OpTablePutByVal:                   "tableputbyval",
	OpTableGetByIntegerVal:            "tablegetbyintegerval",
	OpTablePutByIntegerVal:            "tableputbyintegerval",
	OpTableVariadicPutByIntegerValSeq: "tablevariadicputbyintegervalseq",
	OpTableNew:                        "tablenew",
	OpTableDup:                        "tabledup",
	OpCall:                            "call",
	OpTailCall:                        "tailcall",
	OpReturn:                          "return",
	OpVariadicArgsToVariadicRet:       "variadicargstovariadicret",
	OpPutVariadicArgs:                 "putvariadicargs",
	OpNewClosure:                      "newclosure",
	OpAdd:                             "add",
	OpSub:                             "sub",
	OpMul:                             "mul",
	OpDiv:                             "div",
	OpMod:                             "mod",
	OpUnaryMinus:                      "unaryminus",
	OpIsFalsy:                         "isfalsy",
	OpLengthOperator:                  "lengthoperator",
	OpIsLT:                            "islt",
	OpIsNLT:                           "isnlt",
	OpIsLE:                            "isle",
	OpIsNLE:                           "isnle",
	OpIsEQ:                            "iseq",
	OpIsNEQ:                           "isneq",
	OpCopyAndBranchIfTruthy:           "copyandbranchiftruthy",
	OpCopyAndBranchIfFalsy:            "copyandbranchiffalsy",
	OpBranchIfTruthy:                  "branchiftruthy",
	OpBranchIfFalsy:                   "branchiffalsy",
	OpForLoopInit:                     "forloopinit",
	OpForLoopStep:                     "forloopstep",
	OpUnconditionalJump:               "unconditionaljump",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("illegal op (%d)", op)
}

var reverseOpcode = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, s := range opcodeNames {
		if s != "" {
			m[s] = Opcode(op)
		}
	}
	return m
}()

// Lookup returns the Opcode named by s (case-sensitive, lowercase), used by
// the text assembler.
func Lookup(s string) (Opcode, bool) {
	op, ok := reverseOpcode[s]
	return op, ok
}

// BytecodeSlot is a signed slot reference: non-negative is a frame-local
// slot index, negative is a constant-table ordinal counted from the end of
// the table (table[len(table)+ordinal]), per spec.md section 3.
type BytecodeSlot int32

// Local returns the BytecodeSlot for frame-local index i.
func Local(i int32) BytecodeSlot { return BytecodeSlot(i) }

// Const returns the BytecodeSlot for the constant at ordinal (0 = last
// constant, 1 = second-to-last, ...), matching "indexed from the end of the
// constant table."
func Const(ordinalFromEnd int32) BytecodeSlot { return BytecodeSlot(-1 - ordinalFromEnd) }

func (s BytecodeSlot) IsConstant() bool { return s < 0 }
func (s BytecodeSlot) LocalIndex() int  { return int(s) }

// ConstantIndex returns the absolute index into a constant table of length
// n. Only valid when IsConstant().
func (s BytecodeSlot) ConstantIndex(n int) int { return n + int(s) }

// Reader decodes a packed instruction stream, one field at a time, each
// read advancing an internal cursor. It has no bounds-safety beyond what
// Go's slice indexing provides, the same trust the original places in the
// compiler never emitting a malformed stream.
type Reader struct {
	code []byte
	pc   uint32
}

func NewReader(code []byte, pc uint32) *Reader { return &Reader{code: code, pc: pc} }

func (r *Reader) PC() uint32 { return r.pc }

func (r *Reader) Op() Opcode {
	op := Opcode(r.code[r.pc])
	r.pc++
	return op
}

func (r *Reader) Slot() BytecodeSlot {
	v := int32(binary.LittleEndian.Uint32(r.code[r.pc:]))
	r.pc += 4
	return BytecodeSlot(v)
}

func (r *Reader) I32() int32 {
	v := int32(binary.LittleEndian.Uint32(r.code[r.pc:]))
	r.pc += 4
	return v
}

func (r *Reader) U32() uint32 {
	v := binary.LittleEndian.Uint32(r.code[r.pc:])
	r.pc += 4
	return v
}

func (r *Reader) I16() int16 {
	v := int16(binary.LittleEndian.Uint16(r.code[r.pc:]))
	r.pc += 2
	return v
}

// Offset reads a signed 32-bit jump offset. Per spec.md section 4.5, it is
// measured in bytes from the start of the branching instruction, so callers
// must capture that start pc themselves (instrStart) and compute
// instrStart + offset.
func (r *Reader) Offset() int32 { return r.I32() }

// Writer appends an encoded instruction stream, used by the assembler and
// JSON loader (loader package) to build an UnlinkedCodeBlock's Code.
type Writer struct {
	buf []byte
}

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) Len() uint32 { return uint32(len(w.buf)) }

func (w *Writer) Op(op Opcode) *Writer {
	w.buf = append(w.buf, byte(op))
	return w
}

func (w *Writer) Slot(s BytecodeSlot) *Writer { return w.I32(int32(s)) }

func (w *Writer) I32(v int32) *Writer {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	w.buf = append(w.buf, b[:]...)
	return w
}

func (w *Writer) U32(v uint32) *Writer {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return w
}

func (w *Writer) I16(v int16) *Writer {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(v))
	w.buf = append(w.buf, b[:]...)
	return w
}

// PatchI32 overwrites the 4 bytes at byte offset at (used to back-patch
// forward jump offsets once the target address is known).
func (w *Writer) PatchI32(at uint32, v int32) {
	binary.LittleEndian.PutUint32(w.buf[at:], uint32(v))
}
