// Package compiler lowers a type-checked, control-flow-checked set of
// functions into labeled instructions, then composes the per-function
// results into one ordered instruction stream ready for the assembler.
package compiler

import (
	"fmt"

	"nilanc/token"
)

// Opcode identifies one of nilan's instructions. Values are assigned by
// iota the way informatter-nilan/compiler/code.go assigns OP_CONSTANT;
// here the set is spec.md §4.6's full instruction table rather than the
// teacher's single OP_CONSTANT.
type Opcode byte

const (
	Ret Opcode = iota
	Push
	Pop
	Mov
	Add
	Sub
	Mul
	Div
	Mod
	And
	Or
	Xor
	Not
	Eq
	L
	Le
	G
	Ge
	Jmp
	Jz
	Jnz
	Call
	Fun
	Label
	Cast
	ArrLen
	ArrPush
	ArrPop
	ArrInd
	FreeArr
	ArrNew
)

// OpCodeDefinition names an opcode and its fixed assembled byte width
// (the whole instruction, opcode byte included; Label is 0).
type OpCodeDefinition struct {
	Name string
	Size int
}

var definitions = map[Opcode]*OpCodeDefinition{
	Ret:     {Name: "ret", Size: 3},
	Push:    {Name: "push", Size: 4},
	Pop:     {Name: "pop", Size: 1},
	Mov:     {Name: "mov", Size: 3},
	Add:     {Name: "add", Size: 1},
	Sub:     {Name: "sub", Size: 1},
	Mul:     {Name: "mul", Size: 1},
	Div:     {Name: "div", Size: 1},
	Mod:     {Name: "mod", Size: 1},
	And:     {Name: "and", Size: 1},
	Or:      {Name: "or", Size: 1},
	Xor:     {Name: "xor", Size: 1},
	Not:     {Name: "not", Size: 1},
	Eq:      {Name: "eq", Size: 1},
	L:       {Name: "l", Size: 1},
	Le:      {Name: "le", Size: 1},
	G:       {Name: "g", Size: 1},
	Ge:      {Name: "ge", Size: 1},
	Jmp:     {Name: "jmp", Size: 5},
	Jz:      {Name: "jz", Size: 5},
	Jnz:     {Name: "jnz", Size: 5},
	Call:    {Name: "call", Size: 5},
	Fun:     {Name: "fun", Size: 3},
	Label:   {Name: "label", Size: 0},
	Cast:    {Name: "cast", Size: 2},
	ArrLen:  {Name: "arrlen", Size: 1},
	ArrPush: {Name: "arrpush", Size: 1},
	ArrPop:  {Name: "arrpop", Size: 1},
	ArrInd:  {Name: "arrind", Size: 1},
	FreeArr: {Name: "freearr", Size: 1},
	ArrNew:  {Name: "arrnew", Size: 2},
}

func Get(op Opcode) (*OpCodeDefinition, error) {
	def, ok := definitions[op]
	if !ok {
		return nil, fmt.Errorf("🤖 opcode %d undefined", op)
	}
	return def, nil
}

// PushSrc selects whether a Push instruction reads from the current
// frame's stack or from the constant pool.
type PushSrc byte

const (
	SrcStack PushSrc = iota
	SrcConsts
)

// Instruction is one labeled instruction, prior to label resolution. The
// assembler consumes a stream of these and rewrites TargetLabel
// references into absolute byte offsets.
type Instruction struct {
	Op Opcode

	// Push(src, offset): SrcStack reads the value offset bytes below the
	// top of the current frame; SrcConsts reads the constant at byte
	// index offset in the constant pool.
	Src    PushSrc
	Offset uint16

	// Ret(frameBytes) / Fun(argCount) / Mov(offset) share Offset above
	// for Mov; Ret and Fun use the fields below.
	FrameBytes uint16
	ArgCount   uint16

	// Jmp/Jz/Jnz/Call(targetLabel)
	TargetLabel string

	// Label(name): defines a label at the current byte offset; assembled
	// to zero bytes.
	LabelName string

	// Cast(type) / ArrNew(type): the single type-tag-byte operand.
	TypeOperand token.Type
}

func (i Instruction) Size() int {
	def, err := Get(i.Op)
	if err != nil {
		return 0
	}
	return def.Size
}

func PushStack(offset uint16) Instruction { return Instruction{Op: Push, Src: SrcStack, Offset: offset} }
func PushConst(offset uint16) Instruction { return Instruction{Op: Push, Src: SrcConsts, Offset: offset} }
func MovInstr(offset uint16) Instruction  { return Instruction{Op: Mov, Offset: offset} }
func RetInstr(frameBytes uint16) Instruction { return Instruction{Op: Ret, FrameBytes: frameBytes} }
func FunInstr(argCount uint16) Instruction   { return Instruction{Op: Fun, ArgCount: argCount} }
func LabelInstr(name string) Instruction     { return Instruction{Op: Label, LabelName: name} }
func JumpInstr(op Opcode, target string) Instruction {
	return Instruction{Op: op, TargetLabel: target}
}
func CastInstr(t token.Type) Instruction  { return Instruction{Op: Cast, TypeOperand: t} }
func ArrNewInstr(t token.Type) Instruction { return Instruction{Op: ArrNew, TypeOperand: t} }
func Simple(op Opcode) Instruction        { return Instruction{Op: op} }
