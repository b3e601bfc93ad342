package attr

import (
	"math"
	"testing"
)

func TestReprNames(t *testing.T) {
	reprs := []Repr{Reference, Tagged, Bool, Float, Int16, Int32, Int64}
	for _, r := range reprs {
		parsed, ok := ParseRepr(r.String())
		if !ok || parsed != r {
			t.Errorf("ParseRepr(%q) = (%v, %v), want %v", r.String(), parsed, ok, r)
		}
	}
	if _, ok := ParseRepr("decimal"); ok {
		t.Error("ParseRepr should reject unknown names")
	}
}

func TestReprSizes(t *testing.T) {
	tests := []struct {
		repr Repr
		size uint32
	}{
		{Reference, 8}, {Tagged, 8}, {Float, 8}, {Int64, 8},
		{Int32, 4}, {Int16, 2}, {Bool, 1},
	}
	for _, tt := range tests {
		if got := tt.repr.Size(); got != tt.size {
			t.Errorf("%s.Size() = %d, want %d", tt.repr, got, tt.size)
		}
	}
}

func TestReprNeedsBitmap(t *testing.T) {
	for _, r := range []Repr{Float, Int16, Int32, Int64} {
		if !r.NeedsBitmap() {
			t.Errorf("%s should need a bitmap", r)
		}
	}
	for _, r := range []Repr{Reference, Tagged, Bool} {
		if r.NeedsBitmap() {
			t.Errorf("%s should not need a bitmap", r)
		}
	}
}

func TestNewLayoutRejectsBadDescriptors(t *testing.T) {
	tests := []struct {
		name  string
		size  uint32
		attrs []*Descriptor
	}{
		{"out of bounds", 8, []*Descriptor{{Name: "x", Repr: Int64, Offset: 4, HasBitmap: true, BitmapOffset: 0, BitmapMask: 1}}},
		{"offset wraps uint32", 8, []*Descriptor{{Name: "x", Repr: Int64, Offset: math.MaxUint32 - 7, HasBitmap: true, BitmapOffset: 0, BitmapMask: 1}}},
		{"bitmap offset wraps uint32", 16, []*Descriptor{{Name: "x", Repr: Int32, Offset: 4, HasBitmap: true, BitmapOffset: math.MaxUint32 - 3, BitmapMask: 1}}},
		{"duplicate name", 16, []*Descriptor{
			{Name: "x", Repr: Bool, Offset: 4},
			{Name: "x", Repr: Bool, Offset: 5},
		}},
		{"missing bitmap", 8, []*Descriptor{{Name: "x", Repr: Int32, Offset: 4}}},
		{"spurious bitmap", 16, []*Descriptor{{Name: "x", Repr: Bool, Offset: 4, HasBitmap: true, BitmapOffset: 0, BitmapMask: 1}}},
		{"empty mask", 16, []*Descriptor{{Name: "x", Repr: Int32, Offset: 4, HasBitmap: true, BitmapOffset: 0}}},
		{"bitmap out of bounds", 8, []*Descriptor{{Name: "x", Repr: Int16, Offset: 0, HasBitmap: true, BitmapOffset: 6, BitmapMask: 1}}},
	}

	for _, tt := range tests {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%s: NewLayout should panic", tt.name)
				}
			}()
			NewLayout("Bad", tt.size, tt.attrs)
		}()
	}
}

func TestLayoutAccessors(t *testing.T) {
	l := testClassLayout()
	if l.ClassName() != "Point" {
		t.Errorf("ClassName = %q", l.ClassName())
	}
	if l.Size() != 48 {
		t.Errorf("Size = %d, want 48", l.Size())
	}
	if len(l.Descriptors()) != 7 {
		t.Errorf("Descriptors len = %d, want 7", len(l.Descriptors()))
	}
	if d := l.Attr("ratio"); d == nil || d.Repr != Float {
		t.Errorf("Attr(ratio) = %+v", d)
	}
	if l.Attr("nope") != nil {
		t.Error("Attr of unknown name should be nil")
	}
}
