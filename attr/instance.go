package attr

import (
	"encoding/binary"
	"math"

	"github.com/chazu/fieldrt/heap"
)

// Sentinel encodings per representation. Each marks "unassigned" in the
// raw field; for Float and the fixed-width integers the same pattern is
// also a legitimate value and the bitmap disambiguates.
const (
	boolUndefined byte = 2

	// floatUndefined is the reserved double. An ordinary value, chosen
	// only because compiled code is unlikely to hit it; the bitmap makes
	// the collision harmless.
	floatUndefined = -113.0

	int16Undefined = math.MinInt16
	int32Undefined = math.MinInt32
	int64Undefined = math.MinInt64
)

// Instance is one object of a compiled class: a layout pointer and an
// opaque byte region holding every field and the embedded bitmap words.
// All mutation goes through the accessor protocol. The host serializes
// access; nothing here locks.
type Instance struct {
	layout *Layout
	data   []byte
}

// NewInstance allocates an instance with every attribute in its
// unassigned state: reference and tagged words hold their sentinels,
// bools hold 2, floats and fixed-width ints hold their sentinel patterns,
// and all bitmap words are zero.
func NewInstance(l *Layout) *Instance {
	inst := &Instance{layout: l, data: make([]byte, l.size)}
	for _, d := range l.attrs {
		switch d.Repr {
		case Reference:
			// Zero already means null.
		case Tagged:
			inst.putWord(d.Offset, taggedUndefined)
		case Bool:
			inst.data[d.Offset] = boolUndefined
		case Float:
			inst.putWord(d.Offset, math.Float64bits(floatUndefined))
		case Int16:
			inst.putInt16(d.Offset, int16Undefined)
		case Int32:
			inst.putInt32(d.Offset, int32Undefined)
		case Int64:
			inst.putInt64(d.Offset, int64Undefined)
		}
	}
	return inst
}

// Layout returns the instance's class layout.
func (inst *Instance) Layout() *Layout {
	return inst.layout
}

// ClassName returns the concrete class name, for error messages.
func (inst *Instance) ClassName() string {
	if inst.layout == nil {
		return "?"
	}
	return inst.layout.className
}

// Finalize releases every reference the instance still owns: assigned
// reference fields and boxed tagged fields. The host calls it before
// reclaiming the object's memory. The instance is back in the
// all-unassigned state afterwards, so Finalize is idempotent.
func (inst *Instance) Finalize() {
	for _, d := range inst.layout.attrs {
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
		}
	}
}

// ---------------------------------------------------------------------------
// Field view
// ---------------------------------------------------------------------------

// The field region is a private in-memory ABI: little-endian words at
// descriptor offsets, read and written only through these views.

func (inst *Instance) word(off uint32) uint64 {
	return binary.LittleEndian.Uint64(inst.data[off:])
}

func (inst *Instance) putWord(off uint32, w uint64) {
	binary.LittleEndian.PutUint64(inst.data[off:], w)
}

func (inst *Instance) u32(off uint32) uint32 {
	return binary.LittleEndian.Uint32(inst.data[off:])
}

func (inst *Instance) putU32(off uint32, w uint32) {
	binary.LittleEndian.PutUint32(inst.data[off:], w)
}

func (inst *Instance) u16(off uint32) uint16 {
	return binary.LittleEndian.Uint16(inst.data[off:])
}

func (inst *Instance) putU16(off uint32, w uint16) {
	binary.LittleEndian.PutUint16(inst.data[off:], w)
}

func (inst *Instance) putInt16(off uint32, n int16) {
	inst.putU16(off, uint16(n))
}

func (inst *Instance) putInt32(off uint32, n int32) {
	inst.putU32(off, uint32(n))
}

func (inst *Instance) putInt64(off uint32, n int64) {
	inst.putWord(off, uint64(n))
}

// ---------------------------------------------------------------------------
// Definedness bitmap
// ---------------------------------------------------------------------------

// undefinedViaBitmap reports whether the bitmap marks the attribute
// unassigned. Only meaningful for descriptors with a bitmap slot.
func (inst *Instance) undefinedViaBitmap(d *Descriptor) bool {
	return inst.u32(d.BitmapOffset)&d.BitmapMask == 0
}

// setDefinedness flips the attribute's definedness bit.
func (inst *Instance) setDefinedness(d *Descriptor, defined bool) {
	word := inst.u32(d.BitmapOffset)
	if defined {
		word |= d.BitmapMask
	} else {
		word &^= d.BitmapMask
	}
	inst.putU32(d.BitmapOffset, word)
}
