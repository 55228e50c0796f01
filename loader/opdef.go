package loader

import "github.com/corvidlang/corvid/lang/bytecode"

// operandKind enumerates the wire shapes bytecode.Reader/Writer support.
// kindOffset operands are written as a branch-target label by both the
// assembler and the JSON loader, and encoded as a byte offset.
type operandKind int

const (
	kindSlot operandKind = iota
	kindI32
	kindI16
	kindOffset
)

// operandDefs lists each opcode's operands in exactly the order
// runtime/dispatch.go's Run loop reads them. Any divergence between this
// table and Run's decode order would desync encoder and decoder, so this
// is the single source of truth both loader formats assemble against.
var operandDefs = map[bytecode.Opcode][]operandKind{
	bytecode.OpNop:                             {},
	bytecode.OpMove:                            {kindSlot, kindSlot},
	bytecode.OpConstant:                        {kindSlot, kindSlot},
	bytecode.OpFillNil:                         {kindSlot, kindI32},
	bytecode.OpUpvalueGet:                      {kindSlot, kindI32},
	bytecode.OpUpvaluePut:                      {kindSlot, kindI32},
	bytecode.OpUpvalueClose:                    {kindSlot, kindOffset},
	bytecode.OpGlobalGet:                       {kindSlot, kindSlot},
	bytecode.OpGlobalPut:                       {kindSlot, kindSlot},
	bytecode.OpTableGetById:                    {kindSlot, kindSlot, kindSlot},
	bytecode.OpTablePutById:                    {kindSlot, kindSlot, kindSlot},
	bytecode.OpTableGetByVal:                   {kindSlot, kindSlot, kindSlot},
	bytecode.OpTablePutByVal:                   {kindSlot, kindSlot, kindSlot},
	bytecode.OpTableGetByIntegerVal:            {kindSlot, kindSlot, kindI16},
	bytecode.OpTablePutByIntegerVal:            {kindSlot, kindI16, kindSlot},
	bytecode.OpTableVariadicPutByIntegerValSeq: {kindSlot, kindI16},
	bytecode.OpTableNew:                        {kindSlot, kindI32, kindI32},
	bytecode.OpTableDup:                        {kindSlot, kindSlot},
	bytecode.OpCall:                            {kindSlot, kindI32, kindI32, kindI32},
	bytecode.OpTailCall:                        {kindSlot, kindI32, kindI32},
	bytecode.OpReturn:                          {kindSlot, kindI32, kindI32},
	bytecode.OpVariadicArgsToVariadicRet:       {},
	bytecode.OpPutVariadicArgs:                 {kindSlot, kindI32},
	bytecode.OpNewClosure:                      {kindSlot, kindSlot},
	bytecode.OpAdd:                             {kindSlot, kindSlot, kindSlot},
	bytecode.OpSub:                             {kindSlot, kindSlot, kindSlot},
	bytecode.OpMul:                             {kindSlot, kindSlot, kindSlot},
	bytecode.OpDiv:                             {kindSlot, kindSlot, kindSlot},
	bytecode.OpMod:                             {kindSlot, kindSlot, kindSlot},
	bytecode.OpUnaryMinus:                      {kindSlot, kindSlot},
	bytecode.OpIsFalsy:                         {kindSlot, kindSlot},
	bytecode.OpLengthOperator:                  {kindSlot, kindSlot},
	bytecode.OpIsLT:                            {kindSlot, kindSlot, kindOffset},
	bytecode.OpIsNLT:                           {kindSlot, kindSlot, kindOffset},
	bytecode.OpIsLE:                            {kindSlot, kindSlot, kindOffset},
	bytecode.OpIsNLE:                           {kindSlot, kindSlot, kindOffset},
	bytecode.OpIsEQ:                            {kindSlot, kindSlot, kindOffset},
	bytecode.OpIsNEQ:                           {kindSlot, kindSlot, kindOffset},
	bytecode.OpCopyAndBranchIfTruthy:           {kindSlot, kindSlot, kindOffset},
	bytecode.OpCopyAndBranchIfFalsy:            {kindSlot, kindSlot, kindOffset},
	bytecode.OpBranchIfTruthy:                  {kindSlot, kindOffset},
	bytecode.OpBranchIfFalsy:                   {kindSlot, kindOffset},
	bytecode.OpForLoopInit:                     {kindSlot, kindOffset},
	bytecode.OpForLoopStep:                     {kindSlot, kindOffset},
	bytecode.OpUnconditionalJump:               {kindOffset},
}
