package runtime

import "github.com/corvidlang/corvid/lang/value"

// minNilFillReturnValues is x_minNilFillReturnValues from spec.md section
// 4.3: Return always pads its assembled slice up to this many values before
// handing off to OnReturn, regardless of how many the caller actually
// wants. The outermost Return hands the host only the values it actually
// returned, without the padding.
const minNilFillReturnValues = 3

func padNil(vals []value.TValue, n int) []value.TValue {
	for len(vals) < n {
		vals = append(vals, value.Nil)
	}
	return vals
}

// deliverAt is the OnReturn write-back (spec.md section 4.3): either
// captures vals as the coroutine's variadic-return slice in place
// (keepVarRet), or copies up to numFixed of them into the destination
// slots, nil-padding the remainder.
func (rc *CoroutineRuntimeContext) deliverAt(slotAbs int, numFixed int, keepVarRet bool, vals []value.TValue) {
	if keepVarRet {
		if need := slotAbs + len(vals); need > len(rc.Stack) {
			vals = vals[:len(rc.Stack)-slotAbs]
		}
		copy(rc.Stack[slotAbs:], vals)
		rc.VariadicRetBegin = slotAbs
		rc.VariadicRetCount = len(vals)
		return
	}
	for i := 0; i < numFixed; i++ {
		if i < len(vals) {
			rc.Stack[slotAbs+i] = vals[i]
		} else {
			rc.Stack[slotAbs+i] = value.Nil
		}
	}
}

// completeReturn performs the caller-resumption half shared by Return
// (after assembling its slice) and a tail-called native/intrinsic
// function's immediate completion: deliver vals to whoever is waiting on
// cur, then hand control back to cur.caller (or end the run if cur was the
// outermost frame).
func (rc *CoroutineRuntimeContext) completeReturn(cur *frame, vals []value.TValue) (next *frame, done bool, results []value.TValue, err error) {
	numVals := len(vals)
	vals = padNil(vals, minNilFillReturnValues)
	rc.VariadicRetBegin = -1
	rc.VariadicRetCount = 0

	caller := cur.caller
	if caller == nil {
		return nil, true, vals[:numVals], nil
	}
	rc.deliverAt(cur.retSlotAbs, cur.retNumFixed, cur.retKeepVar, vals)
	caller.pc = cur.callerResumePC
	return caller, false, nil, nil
}

// handleReturn implements the Return opcode (spec.md section 4.3): assemble
// the contiguous return slice, then hand off exactly as completeReturn
// does.
func (rc *CoroutineRuntimeContext) handleReturn(cur *frame, slotBegin, numReturnValues int, isVarRet bool) (next *frame, done bool, results []value.TValue, err error) {
	start := cur.base + slotBegin
	vals := append([]value.TValue(nil), rc.Stack[start:start+numReturnValues]...)
	if isVarRet && rc.VariadicRetCount > 0 {
		vals = append(vals, rc.Stack[rc.VariadicRetBegin:rc.VariadicRetBegin+rc.VariadicRetCount]...)
	}
	return rc.completeReturn(cur, vals)
}

// doCall implements the shared Call/TailCall protocol (spec.md section
// 4.3). It returns exactly one of: a frame to keep dispatching from
// (next, done=false, results=nil), a finished run (next=nil, done=true,
// results set), or an error.
func (rc *CoroutineRuntimeContext) doCall(cur *frame, funcSlot, numFixedParams, numFixedRets int, keepVarRet, passVarRetAsParam, isTail bool) (next *frame, done bool, results []value.TValue, err error) {
	fnVal := rc.Stack[cur.base+funcSlot]
	fo, ok := functionObjectOf(fnVal)
	if !ok {
		return nil, false, nil, &TypeError{Op: "call", Expected: "function", Got: kindName(fnVal)}
	}

	argStart := cur.base + funcSlot + 1
	args := make([]value.TValue, 0, numFixedParams+rc.VariadicRetCount)
	args = append(args, rc.Stack[argStart:argStart+numFixedParams]...)
	if passVarRetAsParam && rc.VariadicRetCount > 0 {
		args = append(args, rc.Stack[rc.VariadicRetBegin:rc.VariadicRetBegin+rc.VariadicRetCount]...)
	}
	suppliedArgs := len(args)
	for len(args) < fo.Code.NumFixedArgs {
		args = append(args, value.Nil)
	}

	if fo.Code.Kind != ExecBytecode {
		rets, nerr := fo.Code.Native(rc, args)
		if nerr != nil {
			return nil, false, nil, nerr
		}
		if !isTail {
			rc.deliverAt(cur.base+funcSlot, numFixedRets, keepVarRet, rets)
			return cur, false, nil, nil
		}
		return rc.completeReturn(cur, rets)
	}

	cb := fo.Code.CodeBlock
	needRelocate := fo.Code.HasVarargs && suppliedArgs > fo.Code.NumFixedArgs
	// args is always at least NumFixedArgs long (padded above); anything
	// beyond that is either captured as the variadic excess (needRelocate)
	// or simply discarded, matching ordinary extra-argument call semantics.
	fixedArgs := args[:fo.Code.NumFixedArgs]
	var extra []value.TValue
	if needRelocate {
		extra = args[fo.Code.NumFixedArgs:]
	}

	var placementBase int
	if isTail {
		// Reclaims the current frame's entire stack region (spec.md section
		// 4.3's tail-call relocation), so unbounded self-tail-recursion costs
		// O(1) stack regardless of call depth.
		placementBase = cur.varBase
	} else {
		placementBase = cur.base + cur.frameSize
	}
	newBase := placementBase + len(extra)
	if newBase+cb.FrameSize > len(rc.Stack) {
		return nil, false, nil, &StackOverflowError{}
	}

	copy(rc.Stack[placementBase:], extra)
	copy(rc.Stack[newBase:], fixedArgs)
	for i := len(fixedArgs); i < cb.FrameSize; i++ {
		rc.Stack[newBase+i] = value.Nil
	}

	nf := &frame{
		fn:         fo,
		base:       newBase,
		varBase:    placementBase,
		numVarArgs: len(extra),
		frameSize:  cb.FrameSize,
	}
	if isTail {
		nf.caller = cur.caller
		nf.callerResumePC = cur.callerResumePC
		nf.retSlotAbs = cur.retSlotAbs
		nf.retNumFixed = cur.retNumFixed
		nf.retKeepVar = cur.retKeepVar
	} else {
		nf.caller = cur
		nf.callerResumePC = cur.pc
		nf.retSlotAbs = cur.base + funcSlot
		nf.retNumFixed = numFixedRets
		nf.retKeepVar = keepVarRet
	}
	return nf, false, nil, nil
}

func kindName(v value.TValue) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBoolean():
		return "boolean"
	case v.IsInt32():
		return "int32"
	case v.IsDouble():
		return "double"
	case v.IsPointer():
		return v.Kind().String()
	default:
		return "unknown"
	}
}
