package snapshot

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/chazu/fieldrt/attr"
	"github.com/chazu/fieldrt/heap"
)

func recordLayout() *attr.Layout {
	return attr.NewLayout("Record", 48, []*attr.Descriptor{
		{Name: "flag", Repr: attr.Bool, Offset: 4, Deletable: true},
		{Name: "count", Repr: attr.Int32, Offset: 8, Deletable: true, HasBitmap: true, BitmapOffset: 0, BitmapMask: 1},
		{Name: "ratio", Repr: attr.Float, Offset: 16, Deletable: true, HasBitmap: true, BitmapOffset: 0, BitmapMask: 2},
		{Name: "id", Repr: attr.Tagged, Offset: 24, Deletable: true},
		{Name: "label", Repr: attr.Reference, Offset: 32, Deletable: true, Expected: heap.StrClass, Nullable: true},
		{Name: "extra", Repr: attr.Reference, Offset: 40, Deletable: true},
	})
}

func set(t *testing.T, inst *attr.Instance, name string, v *heap.Value) {
	t.Helper()
	if err := attr.Set(inst, inst.Layout().Attr(name), v); err != nil {
		t.Fatalf("Set(%s): %v", name, err)
	}
}

func get(t *testing.T, inst *attr.Instance, name string) *heap.Value {
	t.Helper()
	v, err := attr.Get(inst, inst.Layout().Attr(name))
	if err != nil {
		t.Fatalf("Get(%s): %v", name, err)
	}
	return v
}

func TestRoundTrip(t *testing.T) {
	l := recordLayout()
	inst := attr.NewInstance(l)

	huge := new(big.Int).Lsh(big.NewInt(5), 90)
	set(t, inst, "flag", heap.NewBool(true))
	set(t, inst, "count", heap.NewInt(-7))
	set(t, inst, "ratio", heap.NewFloat(2.25))
	set(t, inst, "id", heap.NewBigInt(huge))
	set(t, inst, "label", heap.NewStr("hello"))
	// "extra" stays undefined.

	data, err := Dump(inst)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}

	restored := attr.NewInstance(l)
	if err := Restore(restored, data); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if !get(t, restored, "flag").Bool() {
		t.Error("flag lost")
	}
	if n := get(t, restored, "count").BigInt().Int64(); n != -7 {
		t.Errorf("count = %d, want -7", n)
	}
	if f := get(t, restored, "ratio").Float64(); f != 2.25 {
		t.Errorf("ratio = %g, want 2.25", f)
	}
	if z := get(t, restored, "id").BigInt(); z.Cmp(huge) != 0 {
		t.Errorf("id = %s, want %s", z, huge)
	}
	if s := get(t, restored, "label").Str(); s != "hello" {
		t.Errorf("label = %q, want hello", s)
	}

	var undef *attr.UndefinedError
	if _, err := attr.Get(restored, l.Attr("extra")); !errors.As(err, &undef) {
		t.Errorf("extra should stay undefined, got %v", err)
	}
}

func TestDumpIsDeterministic(t *testing.T) {
	l := recordLayout()
	inst := attr.NewInstance(l)
	set(t, inst, "flag", heap.NewBool(false))
	set(t, inst, "count", heap.NewInt(1))

	a, err := Dump(inst)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Dump(inst)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Error("canonical encoding should be byte-stable")
	}
}

func TestDumpSkipsUnencodableReference(t *testing.T) {
	widget := &heap.Class{Name: "Widget", Parent: heap.ObjectClass}
	l := attr.NewLayout("Holder", 8, []*attr.Descriptor{
		{Name: "w", Repr: attr.Reference, Offset: 0, Deletable: true, Expected: widget},
	})
	inst := attr.NewInstance(l)
	w := heap.NewObject(widget)
	if err := attr.Set(inst, l.Attr("w"), w); err != nil {
		t.Fatal(err)
	}
	heap.Release(w) // field is the sole owner

	data, err := Dump(inst)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	// Dump borrows through Get/Release; the field's ownership must be
	// intact and the value still live after the skip path.
	if got := heap.Refcount(w); got != 1 {
		t.Errorf("refcount after dump = %d, want 1", got)
	}
	restored := attr.NewInstance(l)
	if err := Restore(restored, data); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	var undef *attr.UndefinedError
	if _, err := attr.Get(restored, l.Attr("w")); !errors.As(err, &undef) {
		t.Errorf("unencodable reference should be absent after restore, got %v", err)
	}
}

func TestRestoreNone(t *testing.T) {
	l := recordLayout()
	inst := attr.NewInstance(l)
	set(t, inst, "label", heap.None)

	data, err := Dump(inst)
	if err != nil {
		t.Fatal(err)
	}
	restored := attr.NewInstance(l)
	if err := Restore(restored, data); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !get(t, restored, "label").IsNone() {
		t.Error("None did not survive the round trip")
	}
}

func TestRestoreClassMismatch(t *testing.T) {
	inst := attr.NewInstance(recordLayout())
	data, err := Dump(inst)
	if err != nil {
		t.Fatal(err)
	}

	other := attr.NewInstance(attr.NewLayout("Other", 8, nil))
	err = Restore(other, data)
	if err == nil || !strings.Contains(err.Error(), "class mismatch") {
		t.Errorf("Restore = %v, want class mismatch", err)
	}
}

func TestRestoreUnknownAttribute(t *testing.T) {
	// A snapshot naming an attribute the layout lacks is corrupt input.
	l := attr.NewLayout("Record", 8, nil)
	inst := attr.NewInstance(l)

	snap := Snapshot{Class: "Record", Attrs: map[string]any{"ghost": int64(1)}}
	data, err := cborEncMode.Marshal(&snap)
	if err != nil {
		t.Fatal(err)
	}
	err = Restore(inst, data)
	if err == nil || !strings.Contains(err.Error(), "no attribute") {
		t.Errorf("Restore = %v, want no-attribute error", err)
	}
}
