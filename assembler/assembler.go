// Package assembler turns a composed, still-labeled instruction stream
// into nilan's final bytecode: a two-pass label resolver producing a
// flat little-endian byte sequence the VM executes directly.
//
// Grounded on original_source/src/lang/asm.rs for the instruction shape
// (Instruction/NoLabelInst, Jmp/Jz/Jnz/Call carrying a label name
// pre-assembly) and its own self-documented bug — the Rust comment
// above remove_labels reads "THIS WONT WORK ... needs the BYTE INDEX,
// not the VEC INDEX": it maps a label to its position in the
// instruction *vector*, not its byte offset in the assembled stream,
// which only happens to work when every instruction is one byte wide.
// This implementation fixes that with the two-pass byte-offset design
// spec.md §4.6 requires. original_source/src/lang/assembler.rs (a
// second, separately inconsistent opcode-numbering scheme) is not used.
package assembler

import (
	"encoding/binary"
	"fmt"

	"nilanc/compiler"
)

// AssemblyError reports a jump/call referencing an undefined label.
type AssemblyError struct {
	Label string
}

func (e AssemblyError) Error() string {
	return fmt.Sprintf("💥 undefined label %q", e.Label)
}

// Assemble resolves every label reference in code to an absolute byte
// offset and emits the final bytecode. Pass 1 tallies each label's byte
// offset (labels themselves contribute zero bytes); pass 2 rewrites
// Jmp/Jz/Jnz/Call operands and encodes every instruction at its fixed
// width.
func Assemble(code []compiler.Instruction) ([]byte, error) {
	offsets := make(map[string]uint32, len(code))
	var cursor uint32
	for _, inst := range code {
		if inst.Op == compiler.Label {
			offsets[inst.LabelName] = cursor
			continue
		}
		cursor += uint32(inst.Size())
	}

	out := make([]byte, 0, cursor)
	for _, inst := range code {
		if inst.Op == compiler.Label {
			continue
		}
		encoded, err := encode(inst, offsets)
		if err != nil {
			return nil, err
		}
		out = append(out, encoded...)
	}
	return out, nil
}

func encode(inst compiler.Instruction, offsets map[string]uint32) ([]byte, error) {
	buf := make([]byte, inst.Size())
	buf[0] = byte(inst.Op)

	switch inst.Op {
	case compiler.Ret:
		binary.LittleEndian.PutUint16(buf[1:], inst.FrameBytes)
	case compiler.Push:
		buf[1] = byte(inst.Src)
		binary.LittleEndian.PutUint16(buf[2:], inst.Offset)
	case compiler.Pop:
	case compiler.Mov:
		binary.LittleEndian.PutUint16(buf[1:], inst.Offset)
	case compiler.Add, compiler.Sub, compiler.Mul, compiler.Div, compiler.Mod,
		compiler.And, compiler.Or, compiler.Xor, compiler.Not,
		compiler.Eq, compiler.L, compiler.Le, compiler.G, compiler.Ge:
	case compiler.Jmp, compiler.Jz, compiler.Jnz, compiler.Call:
		addr, ok := offsets[inst.TargetLabel]
		if !ok {
			return nil, AssemblyError{Label: inst.TargetLabel}
		}
		binary.LittleEndian.PutUint32(buf[1:], addr)
	case compiler.Fun:
		binary.LittleEndian.PutUint16(buf[1:], inst.ArgCount)
	case compiler.Cast, compiler.ArrNew:
		buf[1] = byte(inst.TypeOperand.Tag)
	case compiler.ArrLen, compiler.ArrPush, compiler.ArrPop, compiler.ArrInd, compiler.FreeArr:
	default:
		return nil, fmt.Errorf("🤖 assembler: unreachable opcode %d", inst.Op)
	}
	return buf, nil
}

// Disassemble renders assembled bytecode back to a human-readable
// listing, one instruction per line prefixed with its byte offset —
// used by the CLI's bytecode-dump command. It trusts the fixed-size
// table to resynchronize after every instruction; malformed bytecode
// produces a truncated listing rather than a panic.
func Disassemble(code []byte) []string {
	var lines []string
	i := 0
	for i < len(code) {
		op := compiler.Opcode(code[i])
		def, err := compiler.Get(op)
		if err != nil {
			lines = append(lines, fmt.Sprintf("%04d: <invalid opcode %d>", i, op))
			break
		}
		lines = append(lines, fmt.Sprintf("%04d: %s", i, describe(code, i, op, def)))
		i += def.Size
		if def.Size == 0 {
			break
		}
	}
	return lines
}

func describe(code []byte, i int, op compiler.Opcode, def *compiler.OpCodeDefinition) string {
	if i+def.Size > len(code) {
		return fmt.Sprintf("%s <truncated>", def.Name)
	}
	switch op {
	case compiler.Ret:
		return fmt.Sprintf("%s %d", def.Name, binary.LittleEndian.Uint16(code[i+1:]))
	case compiler.Push:
		return fmt.Sprintf("%s %d, %d", def.Name, code[i+1], binary.LittleEndian.Uint16(code[i+2:]))
	case compiler.Mov:
		return fmt.Sprintf("%s %d", def.Name, binary.LittleEndian.Uint16(code[i+1:]))
	case compiler.Jmp, compiler.Jz, compiler.Jnz, compiler.Call:
		return fmt.Sprintf("%s %d", def.Name, binary.LittleEndian.Uint32(code[i+1:]))
	case compiler.Fun:
		return fmt.Sprintf("%s %d", def.Name, binary.LittleEndian.Uint16(code[i+1:]))
	case compiler.Cast, compiler.ArrNew:
		return fmt.Sprintf("%s tag=%d", def.Name, code[i+1])
	default:
		return def.Name
	}
}
