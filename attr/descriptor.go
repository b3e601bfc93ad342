package attr

import (
	"fmt"

	"github.com/chazu/fieldrt/heap"
)

// Descriptor is the compile-time-constant metadata for one attribute.
// The compiler emits one per attribute per class; descriptors are created
// once at class-definition time, never mutated, and shared by every
// instance of the class.
type Descriptor struct {
	// Name is the attribute name as it appears in source, used in error
	// messages.
	Name string

	// Repr selects the storage representation.
	Repr Repr

	// Offset is the byte offset of the field within the instance's field
	// region.
	Offset uint32

	// Deletable permits clearing the attribute back to unassigned.
	Deletable bool

	// AlwaysDefined records a compiler-proven guarantee that the attribute
	// is assigned before any read. Reads skip the sentinel/bitmap check;
	// observing the unassigned state anyway is an internal fault.
	AlwaysDefined bool

	// HasBitmap, BitmapOffset and BitmapMask locate the attribute's
	// definedness bit: BitmapOffset is the byte offset of a 32-bit bitmap
	// word within the field region, BitmapMask the bit within that word.
	// Present only for representations whose sentinel can collide with a
	// legitimate value.
	HasBitmap    bool
	BitmapOffset uint32
	BitmapMask   uint32

	// Expected is the runtime type a Reference setter enforces. Nil means
	// any value is accepted. Nullable additionally accepts None.
	Expected *heap.Class
	Nullable bool
}

// expectedName renders the type a setter wanted, for TypeError messages.
func (d *Descriptor) expectedName() string {
	name := "object"
	if d.Expected != nil {
		name = d.Expected.Name
	}
	if d.Nullable {
		name += " or None"
	}
	return name
}

// Layout is the complete field layout of one compiled class: its concrete
// class name, the field-region size in bytes, and the attribute
// descriptors in declaration order. Layouts are immutable after
// construction and outlive all instances.
type Layout struct {
	className string
	size      uint32
	attrs     []*Descriptor
	byName    map[string]*Descriptor
}

// NewLayout builds a Layout from compiler-emitted descriptors. Descriptors
// are trusted compiler output: structural violations (fields out of
// bounds, duplicate names, missing or spurious bitmap slots) are
// programming errors and panic. Manifest-level validation with recoverable
// errors lives in the layout package.
func NewLayout(className string, size uint32, attrs []*Descriptor) *Layout {
	l := &Layout{
		className: className,
		size:      size,
		attrs:     attrs,
		byName:    make(map[string]*Descriptor, len(attrs)),
	}
	for _, d := range attrs {
		if _, dup := l.byName[d.Name]; dup {
			panic(fmt.Sprintf("attr: duplicate attribute %q in layout %s", d.Name, className))
		}
		// Widened to survive near-maximal offsets without wrapping.
		if uint64(d.Offset)+uint64(d.Repr.Size()) > uint64(size) {
			panic(fmt.Sprintf("attr: attribute %q of %s extends past field region", d.Name, className))
		}
		if d.HasBitmap {
			if !d.Repr.NeedsBitmap() {
				panic(fmt.Sprintf("attr: attribute %q of %s has a bitmap slot but a self-encoding sentinel", d.Name, className))
			}
			if uint64(d.BitmapOffset)+4 > uint64(size) {
				panic(fmt.Sprintf("attr: bitmap word of attribute %q of %s extends past field region", d.Name, className))
			}
			if d.BitmapMask == 0 {
				panic(fmt.Sprintf("attr: attribute %q of %s has an empty bitmap mask", d.Name, className))
			}
		} else if d.Repr.NeedsBitmap() && !d.AlwaysDefined {
			panic(fmt.Sprintf("attr: attribute %q of %s needs a bitmap slot", d.Name, className))
		}
		l.byName[d.Name] = d
	}
	return l
}

// ClassName returns the concrete class name the layout belongs to.
func (l *Layout) ClassName() string {
	return l.className
}

// Size returns the field-region size in bytes.
func (l *Layout) Size() uint32 {
	return l.size
}

// Descriptors returns the attribute descriptors in declaration order.
// The returned slice must not be mutated.
func (l *Layout) Descriptors() []*Descriptor {
	return l.attrs
}

// Attr returns the descriptor for the named attribute, or nil.
func (l *Layout) Attr(name string) *Descriptor {
	return l.byName[name]
}
