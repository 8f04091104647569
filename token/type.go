package token

import "fmt"

// Type enumerates nilan's primitive and array types. Tag values are fixed
// per the wire format: Int=1, Dcml=2, Bool=3, String=4, CallStack=5,
// Array=6. CallStack is internal-only; it never appears in surface syntax.
type Type struct {
	Tag  Tag
	Elem *Type // non-nil only when Tag == ArrayTag
}

type Tag byte

const (
	IntTag Tag = iota + 1
	DcmlTag
	BoolTag
	StringTag
	CallStackTag
	ArrayTag
)

var (
	Int       = Type{Tag: IntTag}
	Dcml      = Type{Tag: DcmlTag}
	Bool      = Type{Tag: BoolTag}
	StringT   = Type{Tag: StringTag}
	CallStack = Type{Tag: CallStackTag}
)

// ArrayOf constructs the array-of-elem type.
func ArrayOf(elem Type) Type {
	e := elem
	return Type{Tag: ArrayTag, Elem: &e}
}

// Size returns the payload-only byte width of a value of this type,
// mirroring the original implementation's Type::size(): the 1-byte tag
// that every wire-level value carries on top of its payload is tracked
// separately by the assembler/VM, not by Size().
func (t Type) Size() int {
	switch t.Tag {
	case IntTag:
		return 4
	case DcmlTag:
		return 8
	case BoolTag:
		return 1
	case StringTag:
		return 2
	case CallStackTag:
		return 4
	case ArrayTag:
		return 2
	default:
		return 0
	}
}

// WireSize is Size() plus the one-byte type tag every stack/constant-pool
// value carries above its payload.
func (t Type) WireSize() int {
	return t.Size() + 1
}

func (t Type) String() string {
	switch t.Tag {
	case IntTag:
		return "int"
	case DcmlTag:
		return "dcml"
	case BoolTag:
		return "bool"
	case StringTag:
		return "string"
	case CallStackTag:
		return "callstack"
	case ArrayTag:
		return fmt.Sprintf("[%s]", t.Elem.String())
	default:
		return "invalid"
	}
}

func (t Type) Equal(other Type) bool {
	if t.Tag != other.Tag {
		return false
	}
	if t.Tag == ArrayTag {
		return t.Elem.Equal(*other.Elem)
	}
	return true
}

// TypeFromKeyword maps an int/dcml/bool/string keyword token to its Type.
func TypeFromKeyword(tt TokenType) (Type, bool) {
	switch tt {
	case INT_TYPE:
		return Int, true
	case DCML_TYPE:
		return Dcml, true
	case BOOL_TYPE:
		return Bool, true
	case STRING_TYPE:
		return StringT, true
	default:
		return Type{}, false
	}
}
