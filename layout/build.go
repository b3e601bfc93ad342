package layout

import (
	"fmt"

	"github.com/chazu/fieldrt/attr"
	"github.com/chazu/fieldrt/heap"
)

// Build validates the manifest and produces the immutable attr.Layout.
// classes resolves reference-attribute type names beyond the built-ins;
// it may be nil. Unlike attr.NewLayout, which treats violations as
// programming errors, Build returns recoverable errors: manifests are
// external input.
func (m *Manifest) Build(classes map[string]*heap.Class) (*attr.Layout, error) {
	if m.Class.Name == "" {
		return nil, fmt.Errorf("layout: class name missing")
	}
	if m.Class.Size == 0 && len(m.Attrs) > 0 {
		return nil, fmt.Errorf("layout %s: field-region size missing", m.Class.Name)
	}

	type span struct {
		name     string
		from, to uint32 // [from, to)
	}
	var fields []span
	bitmapWords := map[uint32]string{} // word offset -> first attr using it
	bitmapBits := map[[2]uint32]string{}
	seen := map[string]bool{}

	descs := make([]*attr.Descriptor, 0, len(m.Attrs))
	for _, a := range m.Attrs {
		if a.Name == "" {
			return nil, fmt.Errorf("layout %s: attribute with empty name", m.Class.Name)
		}
		if seen[a.Name] {
			return nil, fmt.Errorf("layout %s: duplicate attribute %q", m.Class.Name, a.Name)
		}
		seen[a.Name] = true

		repr, ok := attr.ParseRepr(a.Repr)
		if !ok {
			return nil, fmt.Errorf("layout %s: attribute %q: unknown representation %q", m.Class.Name, a.Name, a.Repr)
		}

		// Widened arithmetic: a near-maximal uint32 offset must not wrap
		// past the bounds check and blow up at instance allocation.
		width := repr.Size()
		if uint64(a.Offset)+uint64(width) > uint64(m.Class.Size) {
			return nil, fmt.Errorf("layout %s: attribute %q extends past field region (offset %d, width %d, size %d)",
				m.Class.Name, a.Name, a.Offset, width, m.Class.Size)
		}
		fields = append(fields, span{a.Name, a.Offset, a.Offset + width})

		d := &attr.Descriptor{
			Name:          a.Name,
			Repr:          repr,
			Offset:        a.Offset,
			Deletable:     a.Deletable,
			AlwaysDefined: a.AlwaysDefined,
			Nullable:      a.Nullable,
		}

		hasSlot := a.BitmapOffset != nil || a.BitmapBit != nil
		switch {
		case repr.NeedsBitmap() && !a.AlwaysDefined:
			if a.BitmapOffset == nil || a.BitmapBit == nil {
				return nil, fmt.Errorf("layout %s: attribute %q needs a bitmap slot", m.Class.Name, a.Name)
			}
			if *a.BitmapBit > 31 {
				return nil, fmt.Errorf("layout %s: attribute %q: bitmap bit %d out of range", m.Class.Name, a.Name, *a.BitmapBit)
			}
			if uint64(*a.BitmapOffset)+4 > uint64(m.Class.Size) {
				return nil, fmt.Errorf("layout %s: attribute %q: bitmap word extends past field region", m.Class.Name, a.Name)
			}
			key := [2]uint32{*a.BitmapOffset, *a.BitmapBit}
			if other, dup := bitmapBits[key]; dup {
				return nil, fmt.Errorf("layout %s: attributes %q and %q share bitmap bit %d of word %d",
					m.Class.Name, other, a.Name, *a.BitmapBit, *a.BitmapOffset)
			}
			bitmapBits[key] = a.Name
			if _, known := bitmapWords[*a.BitmapOffset]; !known {
				bitmapWords[*a.BitmapOffset] = a.Name
			}
			d.HasBitmap = true
			d.BitmapOffset = *a.BitmapOffset
			d.BitmapMask = 1 << *a.BitmapBit
		case hasSlot:
			return nil, fmt.Errorf("layout %s: attribute %q has a bitmap slot but does not need one", m.Class.Name, a.Name)
		}

		if a.Class != "" {
			if repr != attr.Reference {
				return nil, fmt.Errorf("layout %s: attribute %q: expected type on non-reference representation %s",
					m.Class.Name, a.Name, repr)
			}
			cls := classes[a.Class]
			if cls == nil {
				cls = heap.BuiltinClass(a.Class)
			}
			if cls == nil {
				return nil, fmt.Errorf("layout %s: attribute %q: unknown class %q", m.Class.Name, a.Name, a.Class)
			}
			d.Expected = cls
		}
		if a.Nullable && repr != attr.Reference {
			return nil, fmt.Errorf("layout %s: attribute %q: nullable on non-reference representation %s",
				m.Class.Name, a.Name, repr)
		}

		descs = append(descs, d)
	}

	// Field ranges must not overlap each other or any bitmap word.
	// Distinct bitmap bits sharing a word are expected.
	for i, a := range fields {
		for _, b := range fields[i+1:] {
			if a.from < b.to && b.from < a.to {
				return nil, fmt.Errorf("layout %s: attributes %q and %q overlap", m.Class.Name, a.name, b.name)
			}
		}
		for word := range bitmapWords {
			if a.from < word+4 && word < a.to {
				return nil, fmt.Errorf("layout %s: attribute %q overlaps a bitmap word at offset %d", m.Class.Name, a.name, word)
			}
		}
	}

	return attr.NewLayout(m.Class.Name, m.Class.Size, descs), nil
}
