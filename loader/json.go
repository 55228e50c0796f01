package loader

import (
	"encoding/json"
	"fmt"

	"github.com/corvidlang/corvid/lang/bytecode"
	"github.com/corvidlang/corvid/lang/value"
)

// jsonModule is the concrete schema this module defines for spec.md section
// 6's ScriptModule.ParseFromJSON, whose format the spec explicitly leaves
// unstated. It mirrors the text assembler's operand conventions (asm.go) —
// "c<idx>" for a constant reference, a bare integer for a local slot, a
// label name for a branch target — so both loaders share encodeOperand and
// parseSlot.
type jsonModule struct {
	Entry     string         `json:"entry"`
	Functions []jsonFunction `json:"functions"`
}

type jsonFunction struct {
	Name      string           `json:"name"`
	Params    int              `json:"params"`
	Frame     int              `json:"frame"`
	Varargs   bool             `json:"varargs"`
	Constants []jsonConstant   `json:"constants"`
	Upvalues  []jsonUpvalue    `json:"upvalues"`
	Code      []jsonInstr      `json:"code"`
}

type jsonConstant struct {
	Kind      string  `json:"kind"` // double, int, string, func, table
	Number    float64 `json:"number,omitempty"`
	Text      string  `json:"text,omitempty"`
	Ref       string  `json:"ref,omitempty"`
	ArrayHint int     `json:"arrayHint,omitempty"`
	CapHint   int     `json:"capHint,omitempty"`
}

type jsonUpvalue struct {
	ParentLocal bool `json:"parentLocal"`
	Slot        int  `json:"slot"`
	Immutable   bool `json:"immutable"`
}

type jsonInstr struct {
	Label    string   `json:"label,omitempty"` // defines a label at this instruction's address, if set
	Op       string   `json:"op"`
	Operands []string `json:"operands"`
}

// ParseFromJSON parses content per the schema above and returns the named
// functions' UnlinkedCodeBlocks plus the entry point's name.
func ParseFromJSON(content []byte) (blocks map[string]*bytecode.UnlinkedCodeBlock, entry string, err error) {
	var mod jsonModule
	if err := json.Unmarshal(content, &mod); err != nil {
		return nil, "", fmt.Errorf("parse json module: %w", err)
	}

	blocks = make(map[string]*bytecode.UnlinkedCodeBlock, len(mod.Functions))
	for _, fn := range mod.Functions {
		blocks[fn.Name] = &bytecode.UnlinkedCodeBlock{Name: fn.Name}
	}
	for _, fn := range mod.Functions {
		if err := buildJSONFunction(fn, blocks); err != nil {
			return nil, "", fmt.Errorf("function %s: %w", fn.Name, err)
		}
	}
	if mod.Entry == "" {
		return nil, "", fmt.Errorf("module has no entry function")
	}
	if _, ok := blocks[mod.Entry]; !ok {
		return nil, "", fmt.Errorf("entry function %q not defined", mod.Entry)
	}
	return blocks, mod.Entry, nil
}

func buildJSONFunction(fn jsonFunction, all map[string]*bytecode.UnlinkedCodeBlock) error {
	ucb := all[fn.Name]
	ucb.NumFixedArgs = fn.Params
	ucb.FrameSize = fn.Frame
	ucb.HasVarargs = fn.Varargs

	for _, c := range fn.Constants {
		entry, err := jsonConst(c, all)
		if err != nil {
			return err
		}
		ucb.Constants = append(ucb.Constants, entry)
	}
	for _, u := range fn.Upvalues {
		ucb.Upvalues = append(ucb.Upvalues, bytecode.UpvalueMetadata{
			IsParentLocal: u.ParentLocal,
			Slot:          int32(u.Slot),
			IsImmutable:   u.Immutable,
		})
	}

	var w bytecode.Writer
	labels := map[string]uint32{}
	var pending []pendingOffset

	for _, instr := range fn.Code {
		if instr.Label != "" {
			labels[instr.Label] = w.Len()
		}
		op, ok := bytecode.Lookup(instr.Op)
		if !ok {
			return fmt.Errorf("unknown opcode %q", instr.Op)
		}
		kinds, ok := operandDefs[op]
		if !ok || len(kinds) != len(instr.Operands) {
			return fmt.Errorf("%s: operand count mismatch", instr.Op)
		}
		instrStart := w.Len()
		w.Op(op)
		for i, kind := range kinds {
			if err := encodeOperand(&w, kind, instr.Operands[i], len(ucb.Constants), instrStart, labels, &pending); err != nil {
				return fmt.Errorf("%s operand %d: %w", instr.Op, i, err)
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

func jsonConst(c jsonConstant, all map[string]*bytecode.UnlinkedCodeBlock) (bytecode.ConstantEntry, error) {
	switch c.Kind {
	case "double":
		return bytecode.ConstantTValue(value.CreateDouble(c.Number)), nil
	case "int":
		return bytecode.ConstantTValue(value.CreateInt32(int32(c.Number))), nil
	case "string":
		return bytecode.ConstantTValue(value.NewString(c.Text)), nil
	case "table":
		return bytecode.ConstantTValue(value.NewTable(c.ArrayHint, c.CapHint)), nil
	case "func":
		child, ok := all[c.Ref]
		if !ok {
			return bytecode.ConstantEntry{}, fmt.Errorf("undefined function %q", c.Ref)
		}
		return bytecode.ConstantCodeBlock(child), nil
	default:
		return bytecode.ConstantEntry{}, fmt.Errorf("unknown constant kind %q", c.Kind)
	}
}
