package runtime

import (
	"github.com/corvidlang/corvid/lang/bytecode"
	"github.com/corvidlang/corvid/lang/value"
)

// LinkTop links the given UnlinkedCodeBlock against g and wraps it in a
// FunctionObject with no captured upvalues, the shape a module's entry
// point or any other top-level function takes (spec.md section 6): nothing
// encloses it, so it has nothing to capture.
func LinkTop(g *GlobalObject, ucb *bytecode.UnlinkedCodeBlock) *FunctionObject {
	cb := bytecode.Link(ucb, g)
	code := &ExecutableCode{
		Kind:         ExecBytecode,
		Name:         ucb.Name,
		NumFixedArgs: cb.NumFixedArgs,
		HasVarargs:   cb.HasVarargs,
		CodeBlock:    cb,
	}
	tv := NewFunctionObject(code, nil)
	fo, _ := functionObjectOf(tv)
	return fo
}

// LaunchScript is the host entry point (spec.md section 6): it synthesizes
// the root coroutine's initial frame from entryPoint and runs it to
// completion, returning whatever the script's outermost Return produced.
func LaunchScript(g *GlobalObject, entryPoint *FunctionObject) ([]value.TValue, error) {
	rc := NewCoroutineRuntimeContext(g)
	fr, err := rc.newRootFrame(entryPoint)
	if err != nil {
		return nil, err
	}
	return rc.Run(fr)
}

// LaunchScriptOn runs entryPoint on an already-constructed coroutine,
// letting a caller (e.g. a test harness wanting a step budget) configure rc
// before execution starts.
func LaunchScriptOn(rc *CoroutineRuntimeContext, entryPoint *FunctionObject) ([]value.TValue, error) {
	fr, err := rc.newRootFrame(entryPoint)
	if err != nil {
		return nil, err
	}
	return rc.Run(fr)
}
