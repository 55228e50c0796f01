package runtime

import (
	"math"
	"strconv"

	"github.com/corvidlang/corvid/lang/bytecode"
	"github.com/corvidlang/corvid/lang/value"
)

// Run is the dispatch loop (spec.md section 4.4): a single Go `for` loop
// over a stream of packed instructions. Call, TailCall, and Return never
// recurse into Run or into each other — they rewrite rc.cur and loop again
// — which is the trampoline spec.md section 9 asks for in a language
// without guaranteed tail calls.
func (rc *CoroutineRuntimeContext) Run(fr *frame) ([]value.TValue, error) {
	rc.cur = fr
	for {
		if rc.maxSteps > 0 && rc.steps >= rc.maxSteps {
			return nil, &StepBudgetExceededError{}
		}
		rc.steps++

		cur := rc.cur
		cb := cur.fn.Code.CodeBlock
		r := bytecode.NewReader(cb.Code, cur.pc)
		instrStart := r.PC()
		op := r.Op()

		switch op {
		case bytecode.OpNop:
			cur.pc = r.PC()

		case bytecode.OpMove:
			dst, src := r.Slot(), r.Slot()
			rc.writeLocal(cur, dst, rc.readSlot(cur, cb, src))
			cur.pc = r.PC()

		case bytecode.OpConstant:
			dst, src := r.Slot(), r.Slot()
			rc.writeLocal(cur, dst, cb.Constant(src).AsTValue())
			cur.pc = r.PC()

		case bytecode.OpFillNil:
			first := r.Slot()
			count := r.I32()
			for i := int32(0); i < count; i++ {
				rc.writeLocal(cur, bytecode.Local(int32(first.LocalIndex())+i), value.Nil)
			}
			cur.pc = r.PC()

		case bytecode.OpUpvalueGet:
			dst := r.Slot()
			idx := r.I32()
			rc.writeLocal(cur, dst, cur.fn.Upvalues[idx].Get())
			cur.pc = r.PC()

		case bytecode.OpUpvaluePut:
			src := r.Slot()
			idx := r.I32()
			cur.fn.Upvalues[idx].Set(rc.readSlot(cur, cb, src))
			cur.pc = r.PC()

		case bytecode.OpUpvalueClose:
			base := r.Slot()
			offset := r.Offset()
			rc.CloseUpvalues(&rc.Stack[cur.base+base.LocalIndex()])
			cur.pc = uint32(int64(instrStart) + int64(offset))

		case bytecode.OpGlobalGet:
			dst, nameConst := r.Slot(), r.Slot()
			name := value.StringOf(cb.Constant(nameConst).AsTValue())
			rc.writeLocal(cur, dst, rc.Global.Table.GetByName(name))
			cur.pc = r.PC()

		case bytecode.OpGlobalPut:
			src, nameConst := r.Slot(), r.Slot()
			name := value.StringOf(cb.Constant(nameConst).AsTValue())
			rc.Global.Table.PutByName(name, rc.readSlot(cur, cb, src))
			cur.pc = r.PC()

		case bytecode.OpTableGetById:
			dst, tableSlot, nameConst := r.Slot(), r.Slot(), r.Slot()
			t, terr := rc.asTable(cur, cb, tableSlot)
			if terr != nil {
				return nil, rc.wrapErr(cur, instrStart, terr)
			}
			slot := cb.ICSlot(instrStart)
			v, ok := slot.Lookup(t)
			if !ok {
				name := value.StringOf(cb.Constant(nameConst).AsTValue())
				v = t.GetByName(name)
				slot.Fill(t, v)
			}
			rc.writeLocal(cur, dst, v)
			cur.pc = r.PC()

		case bytecode.OpTablePutById:
			tableSlot, nameConst, valSlot := r.Slot(), r.Slot(), r.Slot()
			t, terr := rc.asTable(cur, cb, tableSlot)
			if terr != nil {
				return nil, rc.wrapErr(cur, instrStart, terr)
			}
			name := value.StringOf(cb.Constant(nameConst).AsTValue())
			v := rc.readSlot(cur, cb, valSlot)
			t.PutByName(name, v)
			cb.ICSlot(instrStart).Fill(t, v)
			cur.pc = r.PC()

		case bytecode.OpTableGetByVal:
			dst, tableSlot, idxSlot := r.Slot(), r.Slot(), r.Slot()
			t, terr := rc.asTable(cur, cb, tableSlot)
			if terr != nil {
				return nil, rc.wrapErr(cur, instrStart, terr)
			}
			rc.writeLocal(cur, dst, t.GetByValue(rc.readSlot(cur, cb, idxSlot)))
			cur.pc = r.PC()

		case bytecode.OpTablePutByVal:
			tableSlot, idxSlot, valSlot := r.Slot(), r.Slot(), r.Slot()
			t, terr := rc.asTable(cur, cb, tableSlot)
			if terr != nil {
				return nil, rc.wrapErr(cur, instrStart, terr)
			}
			t.PutByValue(rc.readSlot(cur, cb, idxSlot), rc.readSlot(cur, cb, valSlot))
			cur.pc = r.PC()

		case bytecode.OpTableGetByIntegerVal:
			dst, tableSlot := r.Slot(), r.Slot()
			idx := r.I16()
			t, terr := rc.asTable(cur, cb, tableSlot)
			if terr != nil {
				return nil, rc.wrapErr(cur, instrStart, terr)
			}
			rc.writeLocal(cur, dst, t.GetByInteger(int64(idx)))
			cur.pc = r.PC()

		case bytecode.OpTablePutByIntegerVal:
			tableSlot := r.Slot()
			idx := r.I16()
			valSlot := r.Slot()
			t, terr := rc.asTable(cur, cb, tableSlot)
			if terr != nil {
				return nil, rc.wrapErr(cur, instrStart, terr)
			}
			t.PutByInteger(int64(idx), rc.readSlot(cur, cb, valSlot))
			cur.pc = r.PC()

		case bytecode.OpTableVariadicPutByIntegerValSeq:
			tableSlot := r.Slot()
			start := r.I16()
			t, terr := rc.asTable(cur, cb, tableSlot)
			if terr != nil {
				return nil, rc.wrapErr(cur, instrStart, terr)
			}
			for i := 0; i < rc.VariadicRetCount; i++ {
				t.PutByInteger(int64(start)+int64(i), rc.Stack[rc.VariadicRetBegin+i])
			}
			cur.pc = r.PC()

		case bytecode.OpTableNew:
			dst := r.Slot()
			arrayHint := r.I32()
			capHint := r.I32()
			rc.writeLocal(cur, dst, value.NewTable(int(arrayHint), int(capHint)))
			cur.pc = r.PC()

		case bytecode.OpTableDup:
			dst, constOrdinal := r.Slot(), r.Slot()
			template := cb.Constant(constOrdinal).AsTValue()
			rc.writeLocal(cur, dst, value.TableOf(template).Clone())
			cur.pc = r.PC()

		case bytecode.OpCall:
			funcSlot := r.Slot()
			numFixedParams := r.I32()
			numFixedRets := r.I32()
			flags := r.I32()
			cur.pc = r.PC()
			next, done, results, cerr := rc.doCall(cur, funcSlot.LocalIndex(), int(numFixedParams), int(numFixedRets), flags&1 != 0, flags&2 != 0, false)
			if cerr != nil {
				return nil, rc.wrapErr(cur, instrStart, cerr)
			}
			if done {
				return results, nil
			}
			rc.cur = next

		case bytecode.OpTailCall:
			funcSlot := r.Slot()
			numFixedParams := r.I32()
			flags := r.I32()
			next, done, results, cerr := rc.doCall(cur, funcSlot.LocalIndex(), int(numFixedParams), 0, false, flags&2 != 0, true)
			if cerr != nil {
				return nil, rc.wrapErr(cur, instrStart, cerr)
			}
			if done {
				return results, nil
			}
			rc.cur = next

		case bytecode.OpReturn:
			slotBegin := r.Slot()
			numReturnValues := r.I32()
			flags := r.I32()
			next, done, results, rerr := rc.handleReturn(cur, slotBegin.LocalIndex(), int(numReturnValues), flags&1 != 0)
			if rerr != nil {
				return nil, rc.wrapErr(cur, instrStart, rerr)
			}
			if done {
				return results, nil
			}
			rc.cur = next

		case bytecode.OpVariadicArgsToVariadicRet:
			rc.VariadicRetBegin = cur.varBase
			rc.VariadicRetCount = cur.numVarArgs
			cur.pc = r.PC()

		case bytecode.OpPutVariadicArgs:
			dst := r.Slot()
			count := r.I32()
			for i := int32(0); i < count; i++ {
				var v value.TValue
				if int(i) < cur.numVarArgs {
					v = rc.Stack[cur.varBase+int(i)]
				} else {
					v = value.Nil
				}
				rc.writeLocal(cur, bytecode.Local(int32(dst.LocalIndex())+i), v)
			}
			cur.pc = r.PC()

		case bytecode.OpNewClosure:
			constOrdinal, dst := r.Slot(), r.Slot()
			v, cerr := rc.newClosure(cur, cb, constOrdinal)
			if cerr != nil {
				return nil, rc.wrapErr(cur, instrStart, cerr)
			}
			rc.writeLocal(cur, dst, v)
			cur.pc = r.PC()

		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod:
			dst, lhs, rhs := r.Slot(), r.Slot(), r.Slot()
			v, aerr := arith(op, rc.readSlot(cur, cb, lhs), rc.readSlot(cur, cb, rhs))
			if aerr != nil {
				return nil, rc.wrapErr(cur, instrStart, aerr)
			}
			rc.writeLocal(cur, dst, v)
			cur.pc = r.PC()

		case bytecode.OpUnaryMinus:
			dst, src := r.Slot(), r.Slot()
			v := rc.readSlot(cur, cb, src)
			if !v.IsDouble() {
				return nil, rc.wrapErr(cur, instrStart, &TypeError{Op: "unaryminus", Expected: "double", Got: kindName(v)})
			}
			rc.writeLocal(cur, dst, value.CreateDouble(-v.AsDouble()))
			cur.pc = r.PC()

		case bytecode.OpIsFalsy:
			dst, src := r.Slot(), r.Slot()
			v := rc.readSlot(cur, cb, src)
			rc.writeLocal(cur, dst, value.CreateBoolean(!v.IsTruthy()))
			cur.pc = r.PC()

		case bytecode.OpLengthOperator:
			dst, src := r.Slot(), r.Slot()
			v := rc.readSlot(cur, cb, src)
			n, lerr := length(v)
			if lerr != nil {
				return nil, rc.wrapErr(cur, instrStart, lerr)
			}
			rc.writeLocal(cur, dst, value.CreateDouble(n))
			cur.pc = r.PC()

		case bytecode.OpIsLT, bytecode.OpIsNLT, bytecode.OpIsLE, bytecode.OpIsNLE, bytecode.OpIsEQ, bytecode.OpIsNEQ:
			lhs, rhs := r.Slot(), r.Slot()
			offset := r.Offset()
			a, b := rc.readSlot(cur, cb, lhs), rc.readSlot(cur, cb, rhs)
			cond, cerr := compare(op, a, b)
			if cerr != nil {
				return nil, rc.wrapErr(cur, instrStart, cerr)
			}
			if cond {
				cur.pc = uint32(int64(instrStart) + int64(offset))
			} else {
				cur.pc = r.PC()
			}

		case bytecode.OpCopyAndBranchIfTruthy, bytecode.OpCopyAndBranchIfFalsy:
			dst, src := r.Slot(), r.Slot()
			offset := r.Offset()
			v := rc.readSlot(cur, cb, src)
			rc.writeLocal(cur, dst, v)
			truthy := v.IsTruthy()
			if op == bytecode.OpCopyAndBranchIfFalsy {
				truthy = !truthy
			}
			if truthy {
				cur.pc = uint32(int64(instrStart) + int64(offset))
			} else {
				cur.pc = r.PC()
			}

		case bytecode.OpBranchIfTruthy, bytecode.OpBranchIfFalsy:
			src := r.Slot()
			offset := r.Offset()
			v := rc.readSlot(cur, cb, src)
			truthy := v.IsTruthy()
			if op == bytecode.OpBranchIfFalsy {
				truthy = !truthy
			}
			if truthy {
				cur.pc = uint32(int64(instrStart) + int64(offset))
			} else {
				cur.pc = r.PC()
			}

		case bytecode.OpForLoopInit:
			base := r.Slot()
			offset := r.Offset()
			next, ferr := rc.forLoopInit(cur, base.LocalIndex())
			if ferr != nil {
				return nil, rc.wrapErr(cur, instrStart, ferr)
			}
			if !next {
				cur.pc = uint32(int64(instrStart) + int64(offset))
			} else {
				cur.pc = r.PC()
			}

		case bytecode.OpForLoopStep:
			base := r.Slot()
			offset := r.Offset()
			if rc.forLoopStep(cur, base.LocalIndex()) {
				cur.pc = uint32(int64(instrStart) + int64(offset))
			} else {
				cur.pc = r.PC()
			}

		case bytecode.OpUnconditionalJump:
			offset := r.Offset()
			cur.pc = uint32(int64(instrStart) + int64(offset))

		default:
			return nil, rc.wrapErr(cur, instrStart, &TypeError{Op: "dispatch", Expected: "known opcode", Got: op.String()})
		}
	}
}

func (rc *CoroutineRuntimeContext) readSlot(cur *frame, cb *bytecode.CodeBlock, s bytecode.BytecodeSlot) value.TValue {
	if s.IsConstant() {
		return cb.Constant(s).AsTValue()
	}
	return rc.Stack[cur.base+s.LocalIndex()]
}

func (rc *CoroutineRuntimeContext) writeLocal(cur *frame, s bytecode.BytecodeSlot, v value.TValue) {
	rc.Stack[cur.base+s.LocalIndex()] = v
}

func (rc *CoroutineRuntimeContext) asTable(cur *frame, cb *bytecode.CodeBlock, s bytecode.BytecodeSlot) (*value.Table, error) {
	v := rc.readSlot(cur, cb, s)
	if !v.IsPointer() || v.Kind() != value.KindTable {
		return nil, &TypeError{Op: "tableaccess", Expected: "table", Got: kindName(v)}
	}
	return value.TableOf(v), nil
}

func (rc *CoroutineRuntimeContext) newClosure(cur *frame, cb *bytecode.CodeBlock, constOrdinal bytecode.BytecodeSlot) (value.TValue, error) {
	entry := cb.Constant(constOrdinal)
	ucb := entry.AsCodeBlock()
	childCB := bytecode.Link(ucb, cb.GlobalObj)
	childExec := &ExecutableCode{
		Kind:         ExecBytecode,
		Name:         childCB.UCB.Name,
		NumFixedArgs: childCB.NumFixedArgs,
		HasVarargs:   childCB.HasVarargs,
		CodeBlock:    childCB,
	}
	upvalues := make([]*Upvalue, len(ucb.Upvalues))
	for i, um := range ucb.Upvalues {
		if um.IsParentLocal {
			upvalues[i] = rc.FindOrCreateOpenUpvalue(&rc.Stack[cur.base+int(um.Slot)], um.IsImmutable)
		} else {
			upvalues[i] = cur.fn.Upvalues[um.Slot]
		}
	}
	return NewFunctionObject(childExec, upvalues), nil
}

// arith implements spec.md section 4.5's double-typed fast path for Add,
// Sub, Mul, Div, Mod. Non-double operands are a TypeError, matching the
// source's unimplemented non-double paths.
func arith(op bytecode.Opcode, a, b value.TValue) (value.TValue, error) {
	if !a.IsDouble() || !b.IsDouble() {
		return value.Nil, &TypeError{Op: op.String(), Expected: "double", Got: kindName(a) + "/" + kindName(b)}
	}
	x, y := a.AsDouble(), b.AsDouble()
	switch op {
	case bytecode.OpAdd:
		return value.CreateDouble(x + y), nil
	case bytecode.OpSub:
		return value.CreateDouble(x - y), nil
	case bytecode.OpMul:
		return value.CreateDouble(x * y), nil
	case bytecode.OpDiv:
		return value.CreateDouble(x / y), nil
	case bytecode.OpMod:
		r := math.Mod(x, y)
		if (r > 0 && y < 0) || (r < 0 && y > 0) {
			r += y
		}
		return value.CreateDouble(r), nil
	default:
		panic("arith: not an arithmetic opcode")
	}
}

// length implements LengthOperator (spec.md section 4.5): byte length for
// strings, the table "border" definition for tables.
func length(v value.TValue) (float64, error) {
	if v.IsPointer() {
		switch v.Kind() {
		case value.KindString:
			return float64(len(value.StringOf(v))), nil
		case value.KindTable:
			return float64(value.TableOf(v).Length()), nil
		}
	}
	return 0, &TypeError{Op: "lengthoperator", Expected: "string or table", Got: kindName(v)}
}

// compare implements the six comparison opcodes. Spec.md section 4.5
// requires the Not-variants to differ from a swapped-operand comparison in
// NaN's presence, which Go's IEEE float comparisons give for free by
// computing the positive form and negating rather than swapping operands.
func compare(op bytecode.Opcode, a, b value.TValue) (bool, error) {
	if op == bytecode.OpIsEQ {
		return value.IsEQ(a, b), nil
	}
	if op == bytecode.OpIsNEQ {
		return value.IsNEQ(a, b), nil
	}
	if !a.IsDouble() || !b.IsDouble() {
		return false, &TypeError{Op: op.String(), Expected: "double", Got: kindName(a) + "/" + kindName(b)}
	}
	x, y := a.AsDouble(), b.AsDouble()
	switch op {
	case bytecode.OpIsLT:
		return x < y, nil
	case bytecode.OpIsNLT:
		return !(x < y), nil
	case bytecode.OpIsLE:
		return x <= y, nil
	case bytecode.OpIsNLE:
		return !(x <= y), nil
	default:
		panic("compare: not a comparison opcode")
	}
}

func coerceNumber(v value.TValue) (float64, bool) {
	if v.IsDouble() {
		return v.AsDouble(), true
	}
	if v.IsPointer() && v.Kind() == value.KindString {
		f, err := strconv.ParseFloat(value.StringOf(v), 64)
		return f, err == nil
	}
	return 0, false
}

func forLoopCond(start, limit, step float64) bool {
	if step > 0 {
		return start <= limit
	}
	return start >= limit
}

// forLoopInit implements ForLoopInit (spec.md section 4.5): coerces the
// three loop-control slots to doubles, writing the coerced forms back so
// ForLoopStep never has to re-coerce a string bound, and returns whether
// the loop body should run at all.
func (rc *CoroutineRuntimeContext) forLoopInit(cur *frame, base int) (bool, error) {
	start, ok1 := coerceNumber(rc.Stack[cur.base+base])
	limit, ok2 := coerceNumber(rc.Stack[cur.base+base+1])
	step, ok3 := coerceNumber(rc.Stack[cur.base+base+2])
	if !ok1 || !ok2 || !ok3 {
		return false, &NameError{Name: "for-loop bound"}
	}
	if !forLoopCond(start, limit, step) {
		return false, nil
	}
	rc.Stack[cur.base+base] = value.CreateDouble(start)
	rc.Stack[cur.base+base+1] = value.CreateDouble(limit)
	rc.Stack[cur.base+base+2] = value.CreateDouble(step)
	rc.Stack[cur.base+base+3] = value.CreateDouble(start)
	return true, nil
}

// forLoopStep implements ForLoopStep: advances the induction variable and
// reports whether the loop continues.
func (rc *CoroutineRuntimeContext) forLoopStep(cur *frame, base int) bool {
	start := rc.Stack[cur.base+base].AsDouble()
	limit := rc.Stack[cur.base+base+1].AsDouble()
	step := rc.Stack[cur.base+base+2].AsDouble()
	start += step
	if !forLoopCond(start, limit, step) {
		return false
	}
	rc.Stack[cur.base+base] = value.CreateDouble(start)
	rc.Stack[cur.base+base+3] = value.CreateDouble(start)
	return true
}

func (rc *CoroutineRuntimeContext) wrapErr(cur *frame, pc uint32, err error) error {
	ee := &EvalError{Err: err}
	for fr := cur; fr != nil; fr = fr.caller {
		p := fr.pc
		if fr == cur {
			p = pc
		}
		ee.Frame = append(ee.Frame, EvalFrame{FuncName: fr.fn.Code.Name, PC: p})
	}
	return ee
}
