package runtime

import "fmt"

// TypeError reports an operation applied to a value of the wrong kind
// (spec.md section 4.5's "every opcode that can fail ... fails with a
// TypeError" edge cases).
type TypeError struct {
	Op       string
	Expected string
	Got      string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Op, e.Expected, e.Got)
}

// ArithError reports an arithmetic operation that is well-typed but
// otherwise invalid, e.g. integer division by zero.
type ArithError struct {
	Op  string
	Msg string
}

func (e *ArithError) Error() string { return fmt.Sprintf("%s: %s", e.Op, e.Msg) }

// NameError reports a numeric for-loop whose start, limit or step cannot be
// converted to a number (ForLoopInit); Name identifies the offending bound.
type NameError struct {
	Name string
}

func (e *NameError) Error() string { return fmt.Sprintf("undefined name: %s", e.Name) }

// StackOverflowError reports the coroutine stack running out of room, the
// bounded failure mode spec.md section 4.4 requires in place of unbounded
// native stack growth.
type StackOverflowError struct{}

func (e *StackOverflowError) Error() string { return "stack overflow" }

// StepBudgetExceededError reports SetStepBudget's limit being reached.
type StepBudgetExceededError struct{}

func (e *StepBudgetExceededError) Error() string { return "step budget exceeded" }

// EvalError wraps any of the above (or a native function's own error) with
// the bytecode location it surfaced at, forming the minimal backtrace the
// host entry point (LaunchScript) reports.
type EvalError struct {
	Frame []EvalFrame
	Err   error
}

// EvalFrame names one level of the backtrace: the function and the
// bytecode offset active in it when the error propagated through.
type EvalFrame struct {
	FuncName string
	PC       uint32
}

func (e *EvalError) Error() string {
	s := e.Err.Error()
	for _, f := range e.Frame {
		s += fmt.Sprintf("\n\tat %s+%d", f.FuncName, f.PC)
	}
	return s
}

func (e *EvalError) Unwrap() error { return e.Err }
