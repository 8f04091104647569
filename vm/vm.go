// Package vm executes nilan's assembled bytecode: a stack machine whose
// byte stack carries a 1-byte type tag atop every value's payload, backed
// by a side array table for Array(T) handles.
//
// Grounded on informatter-nilan/vm/vm.go for the fetch-decode-execute
// loop shape (an ip-indexed switch over compiler.Opcode, advancing ip by
// the executed instruction's size) and informatter-nilan/vm/errors.go's
// RuntimeError convention. original_source/src/lang/vm.rs is an
// unimplemented stub (its Instruction::execute body is `todo!()`), so
// every instruction's exact stack effect below is derived directly from
// spec.md §4.7 rather than ported from Rust; see DESIGN.md for the
// addressing-convention derivation this rests on.
package vm

import (
	"encoding/binary"
	"fmt"
	"math"

	"nilanc/arrayrt"
	"nilanc/compiler"
	"nilanc/token"
	"nilanc/value"
)

// MaxStackBytes bounds the VM's operand stack; exceeding it is treated as
// the out-of-memory condition spec.md §4.7 requires to be fatal.
const MaxStackBytes = 16 << 20

// VM is a single-program stack machine. One VM runs one assembled program
// to completion (or to a fatal RuntimeError) and is not reused.
type VM struct {
	bytecode   []byte
	consts     []byte
	stringPool []string
	stack      []byte
	arrays     *arrayrt.Table
	ip         uint32
}

// New constructs a VM ready to run the given assembled bytecode against
// its constant pool and string pool (as produced by compiler.Compile and
// assembler.Assemble).
func New(bytecode, consts []byte, stringPool []string) *VM {
	return &VM{
		bytecode:   bytecode,
		consts:     consts,
		stringPool: stringPool,
		arrays:     arrayrt.NewTable(),
	}
}

// StringPool exposes the program's string literal pool, e.g. for a
// caller resolving a returned/printed String(idx) handle.
func (vm *VM) StringPool() []string { return vm.stringPool }

// Run executes the program from its first instruction until main's Ret
// falls through to an empty call stack, returning the Int value it
// returned as an exit code.
func (vm *VM) Run() (int32, error) {
	for {
		if int(vm.ip) >= len(vm.bytecode) {
			return 0, RuntimeError{Message: fmt.Sprintf("instruction pointer %d ran past end of bytecode", vm.ip)}
		}
		op := compiler.Opcode(vm.bytecode[vm.ip])
		def, err := compiler.Get(op)
		if err != nil {
			return 0, RuntimeError{Message: err.Error()}
		}
		start := vm.ip
		operand := vm.bytecode[start+1 : start+uint32(def.Size)]

		jumped := false
		var exitCode int32
		halted := false

		switch op {
		case compiler.Push:
			if err := vm.execPush(operand); err != nil {
				return 0, err
			}
		case compiler.Pop:
			if _, err := vm.popTop(); err != nil {
				return 0, err
			}
		case compiler.Mov:
			if err := vm.execMov(binary.LittleEndian.Uint16(operand)); err != nil {
				return 0, err
			}
		case compiler.Add, compiler.Sub, compiler.Mul, compiler.Div, compiler.Mod:
			if err := vm.execArith(op); err != nil {
				return 0, err
			}
		case compiler.And, compiler.Or, compiler.Xor:
			if err := vm.execBitwise(op); err != nil {
				return 0, err
			}
		case compiler.Not:
			if err := vm.execNot(); err != nil {
				return 0, err
			}
		case compiler.Eq, compiler.L, compiler.Le, compiler.G, compiler.Ge:
			if err := vm.execCompare(op); err != nil {
				return 0, err
			}
		case compiler.Jmp:
			vm.ip = binary.LittleEndian.Uint32(operand)
			jumped = true
		case compiler.Jz:
			b, err := vm.popBool()
			if err != nil {
				return 0, err
			}
			if b {
				vm.ip = binary.LittleEndian.Uint32(operand)
				jumped = true
			}
		case compiler.Jnz:
			b, err := vm.popBool()
			if err != nil {
				return 0, err
			}
			if !b {
				vm.ip = binary.LittleEndian.Uint32(operand)
				jumped = true
			}
		case compiler.Call:
			if err := vm.pushValue(value.CallMarker(start + uint32(def.Size))); err != nil {
				return 0, err
			}
			vm.ip = binary.LittleEndian.Uint32(operand)
			jumped = true
		case compiler.Fun:
			if err := vm.execFun(binary.LittleEndian.Uint16(operand)); err != nil {
				return 0, err
			}
		case compiler.Ret:
			code, restoredIP, done, err := vm.execRet(binary.LittleEndian.Uint16(operand))
			if err != nil {
				return 0, err
			}
			if done {
				exitCode = code
				halted = true
				break
			}
			vm.ip = restoredIP
			jumped = true
		case compiler.Cast:
			if err := vm.execCast(token.Tag(operand[0])); err != nil {
				return 0, err
			}
		case compiler.ArrLen:
			if err := vm.execArrLen(); err != nil {
				return 0, err
			}
		case compiler.ArrPush:
			if err := vm.execArrPush(); err != nil {
				return 0, err
			}
		case compiler.ArrPop:
			if err := vm.execArrPop(); err != nil {
				return 0, err
			}
		case compiler.ArrInd:
			if err := vm.execArrInd(); err != nil {
				return 0, err
			}
		case compiler.FreeArr:
			if err := vm.execFreeArr(); err != nil {
				return 0, err
			}
		case compiler.ArrNew:
			if err := vm.pushValue(value.Array(vm.arrays.Alloc(token.Type{Tag: token.Tag(operand[0])}, nil))); err != nil {
				return 0, err
			}
		default:
			return 0, RuntimeError{Message: fmt.Sprintf("unhandled opcode %d", op)}
		}

		if halted {
			return exitCode, nil
		}
		if !jumped {
			vm.ip = start + uint32(def.Size)
		}
	}
}

// --- stack encoding -------------------------------------------------

func payloadSize(tag token.Tag) int { return token.Type{Tag: tag}.Size() }

// spanEndingAtTag locates the byte range [base, tagIdx] of the value
// whose tag byte sits at tagIdx, per the "payload then tag" encoding
// every stack value shares (constant-pool records are the other way
// round, tag then payload; see execPush).
func spanEndingAtTag(data []byte, tagIdx int) (base, wireSize int, tag token.Tag) {
	tag = token.Tag(data[tagIdx])
	size := payloadSize(tag)
	return tagIdx - size, size + 1, tag
}

func decodeValue(data []byte, base int, tag token.Tag) value.Value {
	payload := data[base:]
	switch tag {
	case token.IntTag:
		return value.Int(int32(binary.LittleEndian.Uint32(payload)))
	case token.DcmlTag:
		return value.Dcml(math.Float64frombits(binary.LittleEndian.Uint64(payload)))
	case token.BoolTag:
		return value.Bool(payload[0] != 0)
	case token.StringTag:
		return value.String(binary.LittleEndian.Uint16(payload))
	case token.ArrayTag:
		return value.Array(binary.LittleEndian.Uint16(payload))
	case token.CallStackTag:
		return value.CallMarker(binary.LittleEndian.Uint32(payload))
	default:
		return value.Value{}
	}
}

func encodeValue(v value.Value) []byte {
	switch v.Tag {
	case token.IntTag:
		buf := make([]byte, 5)
		binary.LittleEndian.PutUint32(buf, uint32(v.IntV))
		buf[4] = byte(token.IntTag)
		return buf
	case token.DcmlTag:
		buf := make([]byte, 9)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v.DcmlV))
		buf[8] = byte(token.DcmlTag)
		return buf
	case token.BoolTag:
		b := byte(0)
		if v.BoolV {
			b = 1
		}
		return []byte{b, byte(token.BoolTag)}
	case token.StringTag:
		buf := make([]byte, 3)
		binary.LittleEndian.PutUint16(buf, v.StringIdx)
		buf[2] = byte(token.StringTag)
		return buf
	case token.ArrayTag:
		buf := make([]byte, 3)
		binary.LittleEndian.PutUint16(buf, v.ArrayIdx)
		buf[2] = byte(token.ArrayTag)
		return buf
	case token.CallStackTag:
		buf := make([]byte, 5)
		binary.LittleEndian.PutUint32(buf, v.CallIP)
		buf[4] = byte(token.CallStackTag)
		return buf
	default:
		return nil
	}
}

func (vm *VM) pushValue(v value.Value) error {
	wire := (token.Type{Tag: v.Tag}).WireSize()
	if len(vm.stack)+wire > MaxStackBytes {
		return RuntimeError{Message: "out of memory: operand stack limit exceeded"}
	}
	vm.stack = append(vm.stack, encodeValue(v)...)
	return nil
}

// topSpan locates the topmost value's byte range without removing it.
func (vm *VM) topSpan() (base, wireSize int, tag token.Tag, err error) {
	if len(vm.stack) == 0 {
		return 0, 0, 0, RuntimeError{Message: "stack underflow"}
	}
	base, wireSize, tag = spanEndingAtTag(vm.stack, len(vm.stack)-1)
	if base < 0 {
		return 0, 0, 0, RuntimeError{Message: "stack underflow"}
	}
	return base, wireSize, tag, nil
}

// spanAtOffset locates the value whose tag byte is off+1 bytes below the
// stack's current top, the addressing convention shared by Push(stack,
// off) and Mov(off): tagIdx = len(stack)-1-off.
func (vm *VM) spanAtOffset(off uint16) (base, wireSize int, tag token.Tag, err error) {
	tagIdx := len(vm.stack) - 1 - int(off)
	if tagIdx < 0 || tagIdx >= len(vm.stack) {
		return 0, 0, 0, RuntimeError{Message: fmt.Sprintf("stack offset %d out of range", off)}
	}
	base, wireSize, tag = spanEndingAtTag(vm.stack, tagIdx)
	if base < 0 {
		return 0, 0, 0, RuntimeError{Message: fmt.Sprintf("stack offset %d out of range", off)}
	}
	return base, wireSize, tag, nil
}

func (vm *VM) popTop() (value.Value, error) {
	base, wireSize, tag, err := vm.topSpan()
	if err != nil {
		return value.Value{}, err
	}
	v := decodeValue(vm.stack, base, tag)
	vm.stack = vm.stack[:len(vm.stack)-wireSize]
	return v, nil
}

func (vm *VM) popBool() (bool, error) {
	v, err := vm.popTop()
	if err != nil {
		return false, err
	}
	if v.Tag != token.BoolTag {
		return false, RuntimeError{Message: fmt.Sprintf("expected Bool on top of stack, found %v", v.Tag)}
	}
	return v.BoolV, nil
}

// --- instruction bodies ----------------------------------------------

func (vm *VM) execPush(operand []byte) error {
	src := compiler.PushSrc(operand[0])
	off := binary.LittleEndian.Uint16(operand[1:])
	if src == compiler.SrcStack {
		base, _, tag, err := vm.spanAtOffset(off)
		if err != nil {
			return err
		}
		return vm.pushValue(decodeValue(vm.stack, base, tag))
	}
	tagIdx := int(off)
	if tagIdx >= len(vm.consts) {
		return RuntimeError{Message: fmt.Sprintf("constant index %d out of range", off)}
	}
	// Constant-pool records are tag-then-payload: off indexes the tag.
	tag := token.Tag(vm.consts[tagIdx])
	if tagIdx+1+payloadSize(tag) > len(vm.consts) {
		return RuntimeError{Message: fmt.Sprintf("constant index %d out of range", off)}
	}
	return vm.pushValue(decodeValue(vm.consts, tagIdx+1, tag))
}

func (vm *VM) execMov(off uint16) error {
	targetBase, targetWire, targetTag, err := vm.spanAtOffset(off)
	if err != nil {
		return err
	}
	topBase, topWire, topTag, err := vm.topSpan()
	if err != nil {
		return err
	}
	if targetTag != topTag {
		return RuntimeError{Message: "Mov: tag mismatch between target slot and top of stack"}
	}
	copy(vm.stack[targetBase:targetBase+targetWire], vm.stack[topBase:topBase+topWire])
	return nil
}

func (vm *VM) execArith(op compiler.Opcode) error {
	right, err := vm.popTop()
	if err != nil {
		return err
	}
	left, err := vm.popTop()
	if err != nil {
		return err
	}
	result, err := arithOp(op, left, right)
	if err != nil {
		return RuntimeError{Message: err.Error()}
	}
	return vm.pushValue(result)
}

// arithOp additionally traps Int overflow, which value.Add/Sub/Mul leave
// to Go's wraparound semantics; spec.md requires overflow be fatal.
func arithOp(op compiler.Opcode, left, right value.Value) (value.Value, error) {
	if left.Tag == token.IntTag && right.Tag == token.IntTag {
		var wide int64
		switch op {
		case compiler.Add:
			wide = int64(left.IntV) + int64(right.IntV)
		case compiler.Sub:
			wide = int64(left.IntV) - int64(right.IntV)
		case compiler.Mul:
			wide = int64(left.IntV) * int64(right.IntV)
		}
		if op == compiler.Add || op == compiler.Sub || op == compiler.Mul {
			if wide > math.MaxInt32 || wide < math.MinInt32 {
				return value.Value{}, value.ArithError{Message: "integer overflow"}
			}
		}
	}
	switch op {
	case compiler.Add:
		return value.Add(left, right)
	case compiler.Sub:
		return value.Sub(left, right)
	case compiler.Mul:
		return value.Mul(left, right)
	case compiler.Div:
		return value.Div(left, right)
	case compiler.Mod:
		return value.Mod(left, right)
	default:
		return value.Value{}, value.ArithError{Message: "not an arithmetic opcode"}
	}
}

func (vm *VM) execBitwise(op compiler.Opcode) error {
	right, err := vm.popTop()
	if err != nil {
		return err
	}
	left, err := vm.popTop()
	if err != nil {
		return err
	}
	var result value.Value
	switch op {
	case compiler.And:
		result, err = value.BitAnd(left, right)
	case compiler.Or:
		result, err = value.BitOr(left, right)
	case compiler.Xor:
		result, err = value.BitXor(left, right)
	}
	if err != nil {
		return RuntimeError{Message: err.Error()}
	}
	return vm.pushValue(result)
}

func (vm *VM) execNot() error {
	base, _, tag, err := vm.topSpan()
	if err != nil {
		return err
	}
	if tag != token.BoolTag {
		return RuntimeError{Message: fmt.Sprintf("Not requires Bool, found %v", tag)}
	}
	vm.stack[base] ^= 1
	return nil
}

func (vm *VM) execCompare(op compiler.Opcode) error {
	right, err := vm.popTop()
	if err != nil {
		return err
	}
	left, err := vm.popTop()
	if err != nil {
		return err
	}
	if op == compiler.Eq {
		eq, err := value.Equal(left, right)
		if err != nil {
			return RuntimeError{Message: err.Error()}
		}
		return vm.pushValue(value.Bool(eq))
	}
	cmp, err := value.Compare(left, right)
	if err != nil {
		return RuntimeError{Message: err.Error()}
	}
	var result bool
	switch op {
	case compiler.L:
		result = cmp < 0
	case compiler.Le:
		result = cmp <= 0
	case compiler.G:
		result = cmp > 0
	case compiler.Ge:
		result = cmp >= 0
	}
	return vm.pushValue(value.Bool(result))
}

// execFun relocates the CallStack marker Call pushed from on top of the
// now-pushed arguments to directly below them, so argument slots sit at
// fixed offsets from the callee's own frame base. A no-op when the stack
// is empty: that means this is main, never reached via Call.
func (vm *VM) execFun(argCount uint16) error {
	if len(vm.stack) == 0 {
		return nil
	}
	marker, err := vm.popTop()
	if err != nil {
		return err
	}
	if marker.Tag != token.CallStackTag {
		return RuntimeError{Message: "Fun: expected a CallStack marker on top of stack"}
	}
	args := make([]value.Value, argCount)
	for i := int(argCount) - 1; i >= 0; i-- {
		v, err := vm.popTop()
		if err != nil {
			return err
		}
		args[i] = v
	}
	if err := vm.pushValue(marker); err != nil {
		return err
	}
	for _, a := range args {
		if err := vm.pushValue(a); err != nil {
			return err
		}
	}
	return nil
}

// execRet pops the return value, tears down the rest of the frame, and
// either restores the caller (returning the new ip) or reports the
// program has halted (returning done=true and the process exit code).
func (vm *VM) execRet(frameBytes uint16) (code int32, restoredIP uint32, done bool, err error) {
	retVal, err := vm.popTop()
	if err != nil {
		return 0, 0, false, err
	}
	retWire := token.Type{Tag: retVal.Tag}.WireSize()
	remaining := int(frameBytes) - retWire
	if remaining < 0 || remaining > len(vm.stack) {
		return 0, 0, false, RuntimeError{Message: "Ret: frame size smaller than return value"}
	}
	vm.stack = vm.stack[:len(vm.stack)-remaining]

	if len(vm.stack) == 0 {
		if retVal.Tag != token.IntTag {
			return 0, 0, false, RuntimeError{Message: "program exit value must be Int"}
		}
		return retVal.IntV, 0, true, nil
	}
	if token.Tag(vm.stack[len(vm.stack)-1]) != token.CallStackTag {
		if retVal.Tag != token.IntTag {
			return 0, 0, false, RuntimeError{Message: "program exit value must be Int"}
		}
		return retVal.IntV, 0, true, nil
	}

	marker, err := vm.popTop()
	if err != nil {
		return 0, 0, false, err
	}
	if err := vm.pushValue(retVal); err != nil {
		return 0, 0, false, err
	}
	return 0, marker.CallIP, false, nil
}

func (vm *VM) execCast(target token.Tag) error {
	v, err := vm.popTop()
	if err != nil {
		return err
	}
	result, err := value.Cast(v, token.Type{Tag: target})
	if err != nil {
		return RuntimeError{Message: err.Error()}
	}
	return vm.pushValue(result)
}

func (vm *VM) execArrLen() error {
	v, err := vm.popTop()
	if err != nil {
		return err
	}
	if v.Tag != token.ArrayTag {
		return RuntimeError{Message: "ArrLen requires an Array"}
	}
	arr, err := vm.arrays.Get(v.ArrayIdx)
	if err != nil {
		return RuntimeError{Message: err.Error()}
	}
	return vm.pushValue(value.Int(int32(arr.Len())))
}

func (vm *VM) execArrPush() error {
	elem, err := vm.popTop()
	if err != nil {
		return err
	}
	_, _, tag, err := vm.topSpan()
	if err != nil {
		return err
	}
	if tag != token.ArrayTag {
		return RuntimeError{Message: "ArrPush requires an Array beneath the pushed element"}
	}
	arrIdx := binary.LittleEndian.Uint16(vm.stack[len(vm.stack)-3:])
	arr, err := vm.arrays.Get(arrIdx)
	if err != nil {
		return RuntimeError{Message: err.Error()}
	}
	arr.Push(elem)
	return nil
}

func (vm *VM) execArrPop() error {
	_, _, tag, err := vm.topSpan()
	if err != nil {
		return err
	}
	if tag != token.ArrayTag {
		return RuntimeError{Message: "ArrPop requires an Array on top"}
	}
	arrIdx := binary.LittleEndian.Uint16(vm.stack[len(vm.stack)-3:])
	arr, err := vm.arrays.Get(arrIdx)
	if err != nil {
		return RuntimeError{Message: err.Error()}
	}
	if err := arr.Pop(); err != nil {
		return RuntimeError{Message: err.Error()}
	}
	return nil
}

func (vm *VM) execArrInd() error {
	idx, err := vm.popTop()
	if err != nil {
		return err
	}
	if idx.Tag != token.IntTag {
		return RuntimeError{Message: "ArrInd requires an Int index"}
	}
	arrVal, err := vm.popTop()
	if err != nil {
		return err
	}
	if arrVal.Tag != token.ArrayTag {
		return RuntimeError{Message: "ArrInd requires an Array"}
	}
	arr, err := vm.arrays.Get(arrVal.ArrayIdx)
	if err != nil {
		return RuntimeError{Message: err.Error()}
	}
	elem, err := arr.Index(int(idx.IntV))
	if err != nil {
		return RuntimeError{Message: err.Error()}
	}
	return vm.pushValue(elem)
}

// execFreeArr frees the array table's top entry and pops the stack's
// Array handle: the code generator never emits a separate Pop for an
// array-typed local, so FreeArr alone must reclaim its stack slot too.
func (vm *VM) execFreeArr() error {
	v, err := vm.popTop()
	if err != nil {
		return err
	}
	if v.Tag != token.ArrayTag {
		return RuntimeError{Message: "FreeArr requires an Array on top"}
	}
	if err := vm.arrays.Free(); err != nil {
		return RuntimeError{Message: err.Error()}
	}
	return nil
}
