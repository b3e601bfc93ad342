package attr

import (
	"math/big"
	"unsafe"

	"github.com/chazu/fieldrt/heap"
)

// Tagged integer encoding, one pointer-sized word:
//
//	xxxx...xxx0  small integer, value stored as n<<1 (63-bit inline range)
//	pppp...ppp1  address of an owned boxed integer, low bit set
//	0000...0001  reserved: unassigned (tag bit with a null address)
//
// A legitimate boxed value never has a null address, so the reserved word
// is unambiguous and tagged fields need no bitmap.
const (
	taggedTagBit    uint64 = 1
	taggedUndefined uint64 = 1
)

// Inline range: one bit is lost to the tag.
const (
	maxInlineTagged = 1<<62 - 1
	minInlineTagged = -1 << 62
)

// refFromWord recovers a boxed value from a raw address word. The value
// is pinned by the heap registry for as long as a field owns it, so the
// round trip through an integer is safe.
func refFromWord(w uint64) *heap.Value {
	return (*heap.Value)(unsafe.Pointer(uintptr(w &^ taggedTagBit)))
}

func wordFromRef(v *heap.Value) uint64 {
	return uint64(uintptr(unsafe.Pointer(v)))
}

// taggedFromValue encodes a boxed integer into a tagged word. Small
// values are stored inline; large values retain v and store its tagged
// address. The caller must have type-checked v as an integer.
func taggedFromValue(v *heap.Value) uint64 {
	z := v.BigInt()
	if fitsInline(z) {
		return uint64(z.Int64()) << 1
	}
	heap.Retain(v)
	return wordFromRef(v) | taggedTagBit
}

// taggedToValue decodes a tagged word into a boxed integer, returning a
// new owning reference. The word must not be the reserved sentinel.
func taggedToValue(w uint64) *heap.Value {
	if w&taggedTagBit == 0 {
		return heap.NewInt(int64(w) >> 1)
	}
	v := refFromWord(w)
	heap.Retain(v)
	return v
}

// releaseTagged drops the ownership held by a tagged word, if any.
// Inline words and the reserved sentinel own nothing.
func releaseTagged(w uint64) {
	if w != taggedUndefined && w&taggedTagBit != 0 {
		heap.Release(refFromWord(w))
	}
}

// fitsInline reports whether an integer is stored inline rather than as
// an owned boxed reference.
func fitsInline(z *big.Int) bool {
	if !z.IsInt64() {
		return false
	}
	n := z.Int64()
	return n >= minInlineTagged && n <= maxInlineTagged
}
