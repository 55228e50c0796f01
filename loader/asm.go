package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/corvidlang/corvid/lang/bytecode"
	"github.com/corvidlang/corvid/lang/value"
)

// Assemble parses the small text format this module's tests write bytecode
// in, grounded on the teacher's lang/compiler/asm.go: a program is a
// sequence of function blocks, each declaring its frame shape, constants,
// upvalues, and a body of labeled instructions. It returns the named
// functions' UnlinkedCodeBlocks keyed by name.
//
// Grammar (one directive or instruction per line, blank lines and lines
// starting with # ignored):
//
//	function <name> params=<n> frame=<n> varargs=<true|false>
//	const double <float>
//	const int <int>
//	const string <quoted>
//	const func <name>
//	const table <arrayHint> <capHint>
//	upvalue local <parentSlot> <immutable:true|false>
//	upvalue parent <parentUpvalueIdx> <immutable:true|false>
//	label <name>
//	<mnemonic> <operand> <operand> ...
//	endfunction
//
// Registers are bare integers (r0 form also accepted); constants are
// referenced as c<idx> using the 0-based definition order within the
// function (the assembler converts to the end-relative ordinal spec.md
// section 3 mandates); branch/offset operands name a label.
func Assemble(src string) (map[string]*bytecode.UnlinkedCodeBlock, error) {
	blocks, order, err := splitFunctions(src)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*bytecode.UnlinkedCodeBlock, len(blocks))
	for name := range blocks {
		out[name] = &bytecode.UnlinkedCodeBlock{Name: name}
	}
	for _, name := range order {
		if err := assembleFunction(blocks[name], out); err != nil {
			return nil, fmt.Errorf("function %s: %w", name, err)
		}
	}
	return out, nil
}

func splitFunctions(src string) (map[string][]string, []string, error) {
	blocks := map[string][]string{}
	var order []string
	var cur string
	var body []string
	inFunc := false

	for _, raw := range strings.Split(src, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "function":
			if inFunc {
				return nil, nil, fmt.Errorf("nested function %q", fields[1])
			}
			inFunc = true
			cur = fields[1]
			body = []string{line}
		case "endfunction":
			if !inFunc {
				return nil, nil, fmt.Errorf("endfunction without function")
			}
			blocks[cur] = body
			order = append(order, cur)
			inFunc = false
		default:
			body = append(body, line)
		}
	}
	if inFunc {
		return nil, nil, fmt.Errorf("unterminated function %q", cur)
	}
	return blocks, order, nil
}

type pendingOffset struct {
	at         uint32
	instrStart uint32
	label      string
}

func assembleFunction(lines []string, all map[string]*bytecode.UnlinkedCodeBlock) error {
	header := strings.Fields(lines[0])
	name := header[1]
	ucb := all[name]

	for _, kv := range header[2:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("bad header attribute %q", kv)
		}
		switch k {
		case "params":
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			ucb.NumFixedArgs = n
		case "frame":
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			ucb.FrameSize = n
		case "varargs":
			ucb.HasVarargs = v == "true"
		default:
			return fmt.Errorf("unknown header attribute %q", k)
		}
	}

	var w bytecode.Writer
	labels := map[string]uint32{}
	var pending []pendingOffset

	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		switch fields[0] {
		case "const":
			entry, err := parseConst(fields[1:], all)
			if err != nil {
				return err
			}
			ucb.Constants = append(ucb.Constants, entry)
		case "upvalue":
			um, err := parseUpvalue(fields[1:])
			if err != nil {
				return err
			}
			ucb.Upvalues = append(ucb.Upvalues, um)
		case "label":
			labels[fields[1]] = w.Len()
		default:
			op, ok := bytecode.Lookup(fields[0])
			if !ok {
				return fmt.Errorf("unknown mnemonic %q", fields[0])
			}
			kinds, ok := operandDefs[op]
			if !ok {
				return fmt.Errorf("no operand definition for %q", fields[0])
			}
			operands := fields[1:]
			if len(operands) != len(kinds) {
				return fmt.Errorf("%s: expected %d operands, got %d", fields[0], len(kinds), len(operands))
			}
			instrStart := w.Len()
			w.Op(op)
			for i, kind := range kinds {
				if err := encodeOperand(&w, kind, operands[i], len(ucb.Constants), instrStart, labels, &pending); err != nil {
					return fmt.Errorf("%s operand %d: %w", fields[0], i, err)
				}
			}
		}
	}

	for _, p := range pending {
		target, ok := labels[p.label]
		if !ok {
			return fmt.Errorf("undefined label %q", p.label)
		}
		w.PatchI32(p.at, int32(target)-int32(p.instrStart))
	}

	ucb.Code = w.Bytes()
	return nil
}

func encodeOperand(w *bytecode.Writer, kind operandKind, tok string, numConsts int, instrStart uint32, labels map[string]uint32, pending *[]pendingOffset) error {
	switch kind {
	case kindSlot:
		slot, err := parseSlot(tok, numConsts)
		if err != nil {
			return err
		}
		w.Slot(slot)
	case kindI32:
		n, err := strconv.Atoi(tok)
		if err != nil {
			return err
		}
		w.I32(int32(n))
	case kindI16:
		n, err := strconv.Atoi(tok)
		if err != nil {
			return err
		}
		w.I16(int16(n))
	case kindOffset:
		at := w.Len()
		w.I32(0)
		if target, ok := labels[tok]; ok {
			w.PatchI32(at, int32(target)-int32(instrStart))
		} else {
			*pending = append(*pending, pendingOffset{at: at, instrStart: instrStart, label: tok})
		}
	}
	return nil
}

func parseSlot(tok string, numConsts int) (bytecode.BytecodeSlot, error) {
	tok = strings.TrimPrefix(tok, "r")
	if strings.HasPrefix(tok, "c") {
		idx, err := strconv.Atoi(tok[1:])
		if err != nil {
			return 0, err
		}
		return bytecode.Const(int32(numConsts - 1 - idx)), nil
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("bad slot %q: %w", tok, err)
	}
	return bytecode.Local(int32(n)), nil
}

func parseConst(fields []string, all map[string]*bytecode.UnlinkedCodeBlock) (bytecode.ConstantEntry, error) {
	switch fields[0] {
	case "double":
		f, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return bytecode.ConstantEntry{}, err
		}
		return bytecode.ConstantTValue(value.CreateDouble(f)), nil
	case "int":
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return bytecode.ConstantEntry{}, err
		}
		return bytecode.ConstantTValue(value.CreateInt32(int32(n))), nil
	case "string":
		s := strings.Join(fields[1:], " ")
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return bytecode.ConstantEntry{}, err
		}
		return bytecode.ConstantTValue(value.NewString(unquoted)), nil
	case "table":
		arrayHint, _ := strconv.Atoi(fields[1])
		capHint, _ := strconv.Atoi(fields[2])
		return bytecode.ConstantTValue(value.NewTable(arrayHint, capHint)), nil
	case "func":
		child, ok := all[fields[1]]
		if !ok {
			return bytecode.ConstantEntry{}, fmt.Errorf("undefined function %q", fields[1])
		}
		return bytecode.ConstantCodeBlock(child), nil
	default:
		return bytecode.ConstantEntry{}, fmt.Errorf("unknown const kind %q", fields[0])
	}
}

func parseUpvalue(fields []string) (bytecode.UpvalueMetadata, error) {
	if len(fields) != 3 {
		return bytecode.UpvalueMetadata{}, fmt.Errorf("upvalue needs 3 fields, got %d", len(fields))
	}
	slot, err := strconv.Atoi(fields[1])
	if err != nil {
		return bytecode.UpvalueMetadata{}, err
	}
	switch fields[0] {
	case "local":
		return bytecode.UpvalueMetadata{IsParentLocal: true, Slot: int32(slot), IsImmutable: fields[2] == "true"}, nil
	case "parent":
		return bytecode.UpvalueMetadata{IsParentLocal: false, Slot: int32(slot), IsImmutable: fields[2] == "true"}, nil
	default:
		return bytecode.UpvalueMetadata{}, fmt.Errorf("unknown upvalue kind %q", fields[0])
	}
}
