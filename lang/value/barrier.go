package value

import (
	"sync/atomic"
	"unsafe"
)

// barrierFires counts invocations of WriteBarrier, exposed via
// BarrierFireCount for the testable-property suite (spec.md section 8 is
// silent on the barrier directly, but SPEC_FULL.md's DOMAIN STACK wires it
// up as an instrumentation point so tests can assert it actually fires at
// the mutation sites spec.md section 4.2 and 4.5 name).
var barrierFires atomic.Uint64

// WriteBarrier must be invoked whenever a write stores a heap pointer into
// an already-allocated heap cell (spec.md section 5). This implementation
// has no generational/incremental GC to protect — Go's own collector is
// precise — so the barrier is a no-op beyond the counter, but the call
// sites are kept so a future tracing collector could be slotted in without
// auditing every mutation again.
func WriteBarrier(cell unsafe.Pointer) {
	_ = cell
	barrierFires.Add(1)
}

// BarrierFireCount returns the number of WriteBarrier invocations so far.
func BarrierFireCount() uint64 {
	return barrierFires.Load()
}
