package runtime

import (
	"unsafe"

	"github.com/corvidlang/corvid/lang/value"
)

// GlobalObject is the per-program environment CodeBlocks get linked against
// (spec.md section 3's GlobalObject, section 6's "bootstrapped
// globalObject"). It satisfies bytecode.GlobalObject via Identity so the
// bytecode package can cache CodeBlock links without importing this
// package.
type GlobalObject struct {
	Table *value.Table
}

// NewGlobalObject allocates an empty global object; callers typically
// follow up with Bootstrap to populate the built-in surface (spec.md
// section 6).
func NewGlobalObject() *GlobalObject {
	t := value.TableOf(value.NewTable(0, 8))
	return &GlobalObject{Table: t}
}

func (g *GlobalObject) Identity() uintptr { return uintptr(unsafe.Pointer(g)) }
