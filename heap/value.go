// Package heap is the boxed object model consumed by the attribute runtime:
// reference-counted dynamic values, the built-in class hierarchy, and
// integer boxing/unboxing with explicit overflow signaling.
//
// Reference counting is non-atomic. The host serializes access to each
// object, so no operation here is safe for concurrent use and none tries
// to be.
package heap

import (
	"errors"
	"fmt"
	"math/big"
)

// Value is a boxed dynamic value.
//
// Values are reference counted rather than garbage collected because
// compiled field storage holds their addresses as raw words the Go GC
// cannot see. Every live value is pinned in a package-level registry;
// releasing the last reference unpins it.
type Value struct {
	class *Class
	refs  int

	b bool
	f float64
	i *big.Int
	s string
}

// pinned keeps every live boxed value visible to the Go GC. Compiled field
// slots store value addresses as integers, which Go cannot trace; the
// registry maintains the only Go-visible reference. Same trick as a
// keep-alive registry for NaN-boxed cell pointers.
var pinned = make(map[*Value]struct{})

// None is the boxed null substitute. It is immortal: Retain and Release
// ignore it.
var None = &Value{class: NoneClass, refs: 1}

func newValue(c *Class) *Value {
	v := &Value{class: c, refs: 1}
	pinned[v] = struct{}{}
	return v
}

// NewBool returns a new boxed boolean with refcount 1.
// Booleans are ints in the host language, so the integer payload is set too.
func NewBool(b bool) *Value {
	v := newValue(BoolClass)
	v.b = b
	if b {
		v.i = big.NewInt(1)
	} else {
		v.i = big.NewInt(0)
	}
	return v
}

// NewInt returns a new boxed integer with refcount 1.
func NewInt(n int64) *Value {
	v := newValue(IntClass)
	v.i = big.NewInt(n)
	return v
}

// NewBigInt returns a new boxed arbitrary-precision integer with refcount 1.
// The *big.Int is adopted, not copied; the caller must not mutate it.
func NewBigInt(z *big.Int) *Value {
	v := newValue(IntClass)
	v.i = z
	return v
}

// NewFloat returns a new boxed float with refcount 1.
func NewFloat(f float64) *Value {
	v := newValue(FloatClass)
	v.f = f
	return v
}

// NewStr returns a new boxed string with refcount 1.
func NewStr(s string) *Value {
	v := newValue(StrClass)
	v.s = s
	return v
}

// NewObject returns a new boxed instance of an arbitrary class with
// refcount 1. Used for reference-typed fields of user-defined classes.
func NewObject(c *Class) *Value {
	return newValue(c)
}

// Retain increments v's reference count. nil and None are ignored.
func Retain(v *Value) {
	if v == nil || v == None {
		return
	}
	v.refs++
}

// Release decrements v's reference count. At zero the class finalizer
// runs, then the value is unpinned. Finalizers may re-enter the attribute
// runtime; by the time one runs, the field that held v has already been
// updated.
func Release(v *Value) {
	if v == nil || v == None {
		return
	}
	if v.refs <= 0 {
		panic(fmt.Sprintf("heap: release of dead %s value", v.class.Name))
	}
	v.refs--
	if v.refs == 0 {
		if v.class.Finalize != nil {
			v.class.Finalize(v)
		}
		delete(pinned, v)
	}
}

// Refcount returns v's current reference count.
func Refcount(v *Value) int {
	if v == nil {
		return 0
	}
	return v.refs
}

// Class returns the runtime class of v.
func (v *Value) Class() *Class {
	return v.class
}

// IsNone reports whether v is the None singleton.
func (v *Value) IsNone() bool {
	return v == None
}

// Bool returns the boolean payload.
// Panics if v is not a boxed bool.
func (v *Value) Bool() bool {
	if v.class != BoolClass {
		panic("heap: Value.Bool: not a bool")
	}
	return v.b
}

// Float64 returns the float payload.
// Panics if v is not a boxed float.
func (v *Value) Float64() float64 {
	if v.class != FloatClass {
		panic("heap: Value.Float64: not a float")
	}
	return v.f
}

// BigInt returns the integer payload.
// Panics if v is not a boxed integer (or bool).
func (v *Value) BigInt() *big.Int {
	if v.i == nil || !IsInstance(v, IntClass) {
		panic("heap: Value.BigInt: not an int")
	}
	return v.i
}

// Str returns the string payload.
// Panics if v is not a boxed string.
func (v *Value) Str() string {
	if v.class != StrClass {
		panic("heap: Value.Str: not a str")
	}
	return v.s
}

// ErrOverflow reports an integer that does not fit the requested fixed
// width. Attribute setters propagate it unchanged.
var ErrOverflow = errors.New("int too large to convert")

// AsInt64 unboxes an integer into 64 bits.
func (v *Value) AsInt64() (int64, error) {
	z := v.BigInt()
	if !z.IsInt64() {
		return 0, fmt.Errorf("%w to int64", ErrOverflow)
	}
	return z.Int64(), nil
}

// AsInt32 unboxes an integer into 32 bits.
func (v *Value) AsInt32() (int32, error) {
	n, err := v.AsInt64()
	if err != nil || n < -1<<31 || n > 1<<31-1 {
		return 0, fmt.Errorf("%w to int32", ErrOverflow)
	}
	return int32(n), nil
}

// AsInt16 unboxes an integer into 16 bits.
func (v *Value) AsInt16() (int16, error) {
	n, err := v.AsInt64()
	if err != nil || n < -1<<15 || n > 1<<15-1 {
		return 0, fmt.Errorf("%w to int16", ErrOverflow)
	}
	return int16(n), nil
}

// String renders v for diagnostics.
func (v *Value) String() string {
	switch {
	case v == nil:
		return "<nil>"
	case v == None:
		return "None"
	case v.class == BoolClass:
		if v.b {
			return "True"
		}
		return "False"
	case v.class == FloatClass:
		return fmt.Sprintf("%g", v.f)
	case v.i != nil:
		return v.i.String()
	case v.class == StrClass:
		return fmt.Sprintf("%q", v.s)
	default:
		return fmt.Sprintf("<%s object>", v.class.Name)
	}
}
