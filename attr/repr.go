// Package attr implements fixed-offset attribute storage for compiled
// classes: per-attribute descriptors, the per-representation sentinel
// scheme, the definedness bitmap, and the generic get/set/delete protocol
// that makes statically placed fields behave like ordinary dynamic
// attributes.
package attr

// Repr identifies the unboxed storage representation of an attribute.
// The set is closed; every accessor dispatches over it exhaustively.
type Repr uint8

const (
	// Reference stores an owned pointer to a boxed value. Null encodes
	// "unassigned".
	Reference Repr = iota
	// Tagged stores a pointer-sized tagged integer: small values inline,
	// large values as an owned boxed reference. The reserved tag word
	// encodes "unassigned".
	Tagged
	// Bool stores one byte, 0 or 1. The value 2 encodes "unassigned".
	Bool
	// Float stores an IEEE-754 double. A reserved bit pattern doubles as
	// the "unassigned" sentinel, disambiguated by the bitmap.
	Float
	// Int16, Int32 and Int64 store fixed-width integers. The minimum
	// representable value doubles as the "unassigned" sentinel,
	// disambiguated by the bitmap.
	Int16
	Int32
	Int64
)

var reprNames = map[Repr]string{
	Reference: "ref",
	Tagged:    "tagged",
	Bool:      "bool",
	Float:     "float",
	Int16:     "int16",
	Int32:     "int32",
	Int64:     "int64",
}

func (r Repr) String() string {
	if s, ok := reprNames[r]; ok {
		return s
	}
	return "invalid"
}

// ParseRepr maps a manifest representation name to its Repr.
func ParseRepr(name string) (Repr, bool) {
	for r, s := range reprNames {
		if s == name {
			return r, true
		}
	}
	return 0, false
}

// Size returns the width of the stored field in bytes.
func (r Repr) Size() uint32 {
	switch r {
	case Bool:
		return 1
	case Int16:
		return 2
	case Int32:
		return 4
	default:
		// Reference, Tagged, Float, Int64 are all 8-byte words.
		return 8
	}
}

// NeedsBitmap reports whether the representation's sentinel can collide
// with a legitimate value, requiring a definedness bit. Reference, Tagged
// and Bool have a genuinely free encoding and never touch the bitmap.
func (r Repr) NeedsBitmap() bool {
	switch r {
	case Float, Int16, Int32, Int64:
		return true
	default:
		return false
	}
}
