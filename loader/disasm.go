package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/corvidlang/corvid/lang/bytecode"
)

// Disassemble renders ucb as a human-readable instruction listing, one line
// per instruction, grounded on the text assembler's own operand notation
// (asm.go's parseSlot/encodeOperand) so a reader already familiar with the
// text format recognizes the slot and constant notation immediately. Branch
// operands print the absolute target address rather than a label, since a
// disassembly has no forward declarations to resolve.
func Disassemble(name string, ucb *bytecode.UnlinkedCodeBlock) string {
	var b strings.Builder
	fmt.Fprintf(&b, "function %s params=%d frame=%d varargs=%t\n",
		name, ucb.NumFixedArgs, ucb.FrameSize, ucb.HasVarargs)

	for i, c := range ucb.Constants {
		fmt.Fprintf(&b, "  const[%d] %s\n", i, describeConstant(c))
	}
	for i, u := range ucb.Upvalues {
		kind := "parent"
		if u.IsParentLocal {
			kind = "local"
		}
		fmt.Fprintf(&b, "  upvalue[%d] %s %d immutable=%t\n", i, kind, u.Slot, u.IsImmutable)
	}

	r := bytecode.NewReader(ucb.Code, 0)
	for int(r.PC()) < len(ucb.Code) {
		instrStart := r.PC()
		op := r.Op()
		kinds := operandDefs[op]
		operands := make([]string, len(kinds))
		for i, kind := range kinds {
			operands[i] = decodeOperand(r, kind, instrStart, len(ucb.Constants))
		}
		fmt.Fprintf(&b, "  %04d: %-28s %s\n", instrStart, op.String(), strings.Join(operands, " "))
	}
	return b.String()
}

func decodeOperand(r *bytecode.Reader, kind operandKind, instrStart uint32, numConsts int) string {
	switch kind {
	case kindSlot:
		s := r.Slot()
		if s.IsConstant() {
			return fmt.Sprintf("c%d", numConsts-1-s.ConstantIndex(numConsts))
		}
		return strconv.Itoa(s.LocalIndex())
	case kindI32:
		return strconv.Itoa(int(r.I32()))
	case kindI16:
		return strconv.Itoa(int(r.I16()))
	case kindOffset:
		off := r.Offset()
		return fmt.Sprintf("-> %04d", int32(instrStart)+off)
	default:
		return "?"
	}
}

func describeConstant(c bytecode.ConstantEntry) string {
	if c.IsCodeBlock() {
		return fmt.Sprintf("func %s", c.AsCodeBlock().Name)
	}
	v := c.AsTValue()
	switch {
	case v.IsDouble():
		return fmt.Sprintf("double %g", v.AsDouble())
	case v.IsInt32():
		return fmt.Sprintf("int %d", v.AsInt32())
	case v.IsPointer():
		return fmt.Sprintf("%s", v.Kind())
	default:
		return "nil"
	}
}
