// Package value implements nilan's runtime tagged value model: the
// arithmetic, comparison, and bitwise semantics over the VM's tagged
// payloads. Grounded on original_source/src/lang/wrapped_val.rs
// (WrappedVal enum + Add/Sub/Mul/Div/Rem/BitAnd/BitOr/BitXor/PartialOrd
// trait impls), re-expressed as Go functions operating on a small tagged
// struct rather than Rust trait implementations.
package value

import (
	"fmt"

	"nilanc/token"
)

// Value is a runtime tagged value: exactly one of the IntV/DcmlV/BoolV/
// StringIdx/ArrayIdx fields is meaningful, selected by Tag.
type Value struct {
	Tag       token.Tag
	IntV      int32
	DcmlV     float64
	BoolV     bool
	StringIdx uint16
	ArrayIdx  uint16
	CallIP    uint32 // only meaningful when Tag == token.CallStackTag
}

func Int(v int32) Value    { return Value{Tag: token.IntTag, IntV: v} }
func Dcml(v float64) Value { return Value{Tag: token.DcmlTag, DcmlV: v} }
func Bool(v bool) Value    { return Value{Tag: token.BoolTag, BoolV: v} }
func String(idx uint16) Value { return Value{Tag: token.StringTag, StringIdx: idx} }
func Array(idx uint16) Value  { return Value{Tag: token.ArrayTag, ArrayIdx: idx} }
func CallMarker(ip uint32) Value { return Value{Tag: token.CallStackTag, CallIP: ip} }

func (v Value) String() string {
	switch v.Tag {
	case token.IntTag:
		return fmt.Sprintf("Int(%d)", v.IntV)
	case token.DcmlTag:
		return fmt.Sprintf("Dcml(%g)", v.DcmlV)
	case token.BoolTag:
		return fmt.Sprintf("Bool(%v)", v.BoolV)
	case token.StringTag:
		return fmt.Sprintf("String(#%d)", v.StringIdx)
	case token.ArrayTag:
		return fmt.Sprintf("Array(#%d)", v.ArrayIdx)
	case token.CallStackTag:
		return fmt.Sprintf("CallStack(%d)", v.CallIP)
	default:
		return "invalid"
	}
}

// ArithError reports an operation invalid at runtime for its operand tags,
// overflow, or division by zero.
type ArithError struct {
	Message string
}

func (e ArithError) Error() string { return e.Message }

func Add(a, b Value) (Value, error) { return arith(a, b, "add") }
func Sub(a, b Value) (Value, error) { return arith(a, b, "sub") }
func Mul(a, b Value) (Value, error) { return arith(a, b, "mul") }
func Div(a, b Value) (Value, error) { return arith(a, b, "div") }
func Mod(a, b Value) (Value, error) { return arith(a, b, "mod") }

func arith(a, b Value, op string) (Value, error) {
	if a.Tag != b.Tag {
		return Value{}, ArithError{Message: fmt.Sprintf("tag mismatch in %s: %v vs %v", op, a, b)}
	}
	switch a.Tag {
	case token.IntTag:
		if (op == "div" || op == "mod") && b.IntV == 0 {
			return Value{}, ArithError{Message: "division by zero"}
		}
		switch op {
		case "add":
			return Int(a.IntV + b.IntV), nil
		case "sub":
			return Int(a.IntV - b.IntV), nil
		case "mul":
			return Int(a.IntV * b.IntV), nil
		case "div":
			return Int(a.IntV / b.IntV), nil
		case "mod":
			return Int(a.IntV % b.IntV), nil
		}
	case token.DcmlTag:
		switch op {
		case "add":
			return Dcml(a.DcmlV + b.DcmlV), nil
		case "sub":
			return Dcml(a.DcmlV - b.DcmlV), nil
		case "mul":
			return Dcml(a.DcmlV * b.DcmlV), nil
		case "div":
			return Dcml(a.DcmlV / b.DcmlV), nil
		case "mod":
			return Value{}, ArithError{Message: "mod is not defined for dcml"}
		}
	}
	return Value{}, ArithError{Message: fmt.Sprintf("%s not defined for tag %v", op, a.Tag)}
}

func BitAnd(a, b Value) (Value, error) { return bitwise(a, b, "and") }
func BitOr(a, b Value) (Value, error)  { return bitwise(a, b, "or") }
func BitXor(a, b Value) (Value, error) { return bitwise(a, b, "xor") }

func bitwise(a, b Value, op string) (Value, error) {
	if a.Tag != b.Tag {
		return Value{}, ArithError{Message: fmt.Sprintf("tag mismatch in bitwise %s", op)}
	}
	switch a.Tag {
	case token.IntTag:
		switch op {
		case "and":
			return Int(a.IntV & b.IntV), nil
		case "or":
			return Int(a.IntV | b.IntV), nil
		case "xor":
			return Int(a.IntV ^ b.IntV), nil
		}
	case token.BoolTag:
		switch op {
		case "and":
			return Bool(a.BoolV && b.BoolV), nil
		case "or":
			return Bool(a.BoolV || b.BoolV), nil
		case "xor":
			return Bool(a.BoolV != b.BoolV), nil
		}
	}
	return Value{}, ArithError{Message: fmt.Sprintf("bitwise %s not defined for tag %v", op, a.Tag)}
}

// Compare implements the ordering operators (<, <=, >, >=) over Int/Dcml.
func Compare(a, b Value) (int, error) {
	if a.Tag != b.Tag {
		return 0, ArithError{Message: "tag mismatch in comparison"}
	}
	switch a.Tag {
	case token.IntTag:
		switch {
		case a.IntV < b.IntV:
			return -1, nil
		case a.IntV > b.IntV:
			return 1, nil
		default:
			return 0, nil
		}
	case token.DcmlTag:
		switch {
		case a.DcmlV < b.DcmlV:
			return -1, nil
		case a.DcmlV > b.DcmlV:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, ArithError{Message: fmt.Sprintf("ordering not defined for tag %v", a.Tag)}
}

// Equal implements the equality operator (==) over any matching-tag pair.
func Equal(a, b Value) (bool, error) {
	if a.Tag != b.Tag {
		return false, ArithError{Message: "tag mismatch in equality"}
	}
	switch a.Tag {
	case token.IntTag:
		return a.IntV == b.IntV, nil
	case token.DcmlTag:
		return a.DcmlV == b.DcmlV, nil
	case token.BoolTag:
		return a.BoolV == b.BoolV, nil
	case token.StringTag:
		return a.StringIdx == b.StringIdx, nil
	default:
		return false, ArithError{Message: fmt.Sprintf("equality not defined for tag %v", a.Tag)}
	}
}

// Cast converts v to the target type per the allowed conversions
// (Int<->Dcml, Bool->Int).
func Cast(v Value, target token.Type) (Value, error) {
	switch {
	case v.Tag == token.IntTag && target.Tag == token.DcmlTag:
		return Dcml(float64(v.IntV)), nil
	case v.Tag == token.DcmlTag && target.Tag == token.IntTag:
		return Int(int32(v.DcmlV)), nil
	case v.Tag == token.BoolTag && target.Tag == token.IntTag:
		if v.BoolV {
			return Int(1), nil
		}
		return Int(0), nil
	default:
		return Value{}, ArithError{Message: fmt.Sprintf("cannot cast %v to %s", v.Tag, target)}
	}
}
