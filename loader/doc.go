// Package loader builds lang/bytecode.UnlinkedCodeBlock values from two
// external source formats, both explicitly out of scope for spec.md's core
// (section 6 names a JSON ScriptModule.ParseFromJSON entry point but leaves
// the schema undefined): a JSON document (json.go) meant as a stand-in for
// whatever a real compiler would emit, and a small line-oriented text
// assembler (asm.go) grounded on the teacher's lang/compiler/asm.go, used
// by this module's own tests instead of driving a full parser/compiler
// that is itself out of scope.
//
// Both formats share the same instruction shape (opdef.go): one entry per
// opcode describing its operand kinds, kept in lockstep with the decode
// order runtime/dispatch.go's Run loop uses.
package loader
