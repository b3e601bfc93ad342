package attr

import (
	"fmt"
	"math"

	"github.com/chazu/fieldrt/heap"
)

// Generic attribute accessors. Compiled code calls these with an instance
// and a compiler-emitted descriptor; dispatch over the representation is
// an exhaustive switch, and the bitmap is consulted only where the
// sentinel can collide with a legitimate value.

// undefined builds the user-visible unassigned-read failure. An
// always-defined attribute can never legitimately reach this path: the
// compiler proved a prior assignment, so observing the sentinel anyway
// means corrupted state or a miscompile, not a user error.
func undefined(inst *Instance, d *Descriptor) error {
	if d.AlwaysDefined {
		panic(fmt.Sprintf("attr: attribute %q of %q should be initialized", d.Name, inst.ClassName()))
	}
	return &UndefinedError{Attr: d.Name, Class: inst.ClassName()}
}

// Get reads an attribute and returns a new owning reference to its boxed
// value, or an *UndefinedError if the attribute was never assigned.
func Get(inst *Instance, d *Descriptor) (*heap.Value, error) {
	switch d.Repr {
	case Reference:
		w := inst.word(d.Offset)
		if w == 0 {
			return nil, undefined(inst, d)
		}
		v := refFromWord(w)
		heap.Retain(v)
		return v, nil

	case Tagged:
		w := inst.word(d.Offset)
		if w == taggedUndefined {
			return nil, undefined(inst, d)
		}
		return taggedToValue(w), nil

	case Bool:
		b := inst.data[d.Offset]
		if b == boolUndefined {
			return nil, undefined(inst, d)
		}
		return heap.NewBool(b != 0), nil

	case Float:
		f := math.Float64frombits(inst.word(d.Offset))
		// The sentinel pattern is a legitimate float; the bit decides.
		// Always-defined attributes skip the check entirely.
		if f == floatUndefined && !d.AlwaysDefined && inst.undefinedViaBitmap(d) {
			return nil, undefined(inst, d)
		}
		return heap.NewFloat(f), nil

	case Int16:
		n := int16(inst.u16(d.Offset))
		if n == int16Undefined && !d.AlwaysDefined && inst.undefinedViaBitmap(d) {
			return nil, undefined(inst, d)
		}
		return heap.NewInt(int64(n)), nil

	case Int32:
		n := int32(inst.u32(d.Offset))
		if n == int32Undefined && !d.AlwaysDefined && inst.undefinedViaBitmap(d) {
			return nil, undefined(inst, d)
		}
		return heap.NewInt(int64(n)), nil

	case Int64:
		n := int64(inst.word(d.Offset))
		if n == int64Undefined && !d.AlwaysDefined && inst.undefinedViaBitmap(d) {
			return nil, undefined(inst, d)
		}
		return heap.NewInt(n), nil

	default:
		panic(fmt.Sprintf("attr: invalid representation %d", d.Repr))
	}
}

// Set assigns a boxed value to an attribute. A nil value is a deletion
// request, matching the host setter protocol. On a type or conversion
// failure the attribute's prior state, value and definedness both, is
// left untouched.
//
// Reference and tagged commits install the new value before releasing the
// old one: releasing may run a finalizer that re-reads this very
// attribute, and it must observe the new value, never a half-updated
// field.
func Set(inst *Instance, d *Descriptor, v *heap.Value) error {
	if v == nil {
		return Delete(inst, d)
	}

	switch d.Repr {
	case Reference:
		if !referenceTypeOK(d, v) {
			return &TypeError{Expected: d.expectedName(), Got: v.Class().Name}
		}
		heap.Retain(v)
		old := inst.word(d.Offset)
		inst.putWord(d.Offset, wordFromRef(v))
		if old != 0 {
			heap.Release(refFromWord(old))
		}

	case Tagged:
		if !heap.IsInstance(v, heap.IntClass) {
			return &TypeError{Expected: "int", Got: v.Class().Name}
		}
		old := inst.word(d.Offset)
		inst.putWord(d.Offset, taggedFromValue(v))
		releaseTagged(old)

	case Bool:
		if !heap.IsInstance(v, heap.BoolClass) {
			return &TypeError{Expected: "bool", Got: v.Class().Name}
		}
		if v.Bool() {
			inst.data[d.Offset] = 1
		} else {
			inst.data[d.Offset] = 0
		}

	case Float:
		if !heap.IsInstance(v, heap.FloatClass) {
			return &TypeError{Expected: "float", Got: v.Class().Name}
		}
		inst.putWord(d.Offset, math.Float64bits(v.Float64()))
		if d.HasBitmap {
			// Unconditionally defined from here on; the bit, not the
			// stored pattern, is authoritative.
			inst.setDefinedness(d, true)
		}

	case Int16:
		if !heap.IsInstance(v, heap.IntClass) {
			return &TypeError{Expected: "int", Got: v.Class().Name}
		}
		n, err := v.AsInt16()
		if err != nil {
			return err
		}
		inst.putInt16(d.Offset, n)
		if d.HasBitmap {
			inst.setDefinedness(d, true)
		}

	case Int32:
		if !heap.IsInstance(v, heap.IntClass) {
			return &TypeError{Expected: "int", Got: v.Class().Name}
		}
		n, err := v.AsInt32()
		if err != nil {
			return err
		}
		inst.putInt32(d.Offset, n)
		if d.HasBitmap {
			inst.setDefinedness(d, true)
		}

	case Int64:
		if !heap.IsInstance(v, heap.IntClass) {
			return &TypeError{Expected: "int", Got: v.Class().Name}
		}
		n, err := v.AsInt64()
		if err != nil {
			return err
		}
		inst.putInt64(d.Offset, n)
		if d.HasBitmap {
			inst.setDefinedness(d, true)
		}

	default:
		panic(fmt.Sprintf("attr: invalid representation %d", d.Repr))
	}
	return nil
}

// Delete clears an attribute back to its unassigned state, releasing any
// owned reference. Deleting an already-unassigned deletable attribute is
// a no-op.
func Delete(inst *Instance, d *Descriptor) error {
	if !d.Deletable {
		return &UndeletableError{Attr: d.Name, Class: inst.ClassName()}
	}

	switch d.Repr {
	case Reference:
		old := inst.word(d.Offset)
		inst.putWord(d.Offset, 0)
		if old != 0 {
			heap.Release(refFromWord(old))
		}

	case Tagged:
		old := inst.word(d.Offset)
		inst.putWord(d.Offset, taggedUndefined)
		releaseTagged(old)

	case Bool:
		inst.data[d.Offset] = boolUndefined

	case Float:
		inst.putWord(d.Offset, math.Float64bits(floatUndefined))
		if d.HasBitmap {
			inst.setDefinedness(d, false)
		}

	case Int16:
		inst.putInt16(d.Offset, int16Undefined)
		if d.HasBitmap {
			inst.setDefinedness(d, false)
		}

	case Int32:
		inst.putInt32(d.Offset, int32Undefined)
		if d.HasBitmap {
			inst.setDefinedness(d, false)
		}

	case Int64:
		inst.putInt64(d.Offset, int64Undefined)
		if d.HasBitmap {
			inst.setDefinedness(d, false)
		}

	default:
		panic(fmt.Sprintf("attr: invalid representation %d", d.Repr))
	}
	return nil
}

// referenceTypeOK enforces the descriptor's expected type. A nil Expected
// means the attribute is object-typed and accepts any value, None
// included.
func referenceTypeOK(d *Descriptor, v *heap.Value) bool {
	if d.Expected == nil {
		return true
	}
	if d.Nullable && v.IsNone() {
		return true
	}
	return heap.IsInstance(v, d.Expected)
}
