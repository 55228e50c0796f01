// The TValue encoding here resolves spec.md's open question about the
// original's 64-bit NaN-boxed representation (a raw pointer packed into the
// low 48 bits of a double-shaped word, relied upon by the GC's conservative
// scan of the constant table). That trick is unsound in Go: the runtime only
// traces pointers it can see have pointer type, so a pointer smuggled inside
// a uint64/float64 is invisible to the collector and may be freed while
// still reachable only through that disguised bit pattern. TValue instead
// carries an explicit tag and a real unsafe.Pointer field, which the Go GC
// does trace, while keeping every externally observable operation from
// spec.md section 4.1 intact (same constructors, same IsEQ/IsNEQ split,
// same truthiness rule). See SPEC_FULL.md section 3 for the full writeup of
// this decision.
package value
