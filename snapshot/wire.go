// Package snapshot dumps and restores the defined attributes of an
// instance as canonical CBOR. It is a debugging and inspection surface,
// not a persistence format: the field region itself stays a private ABI,
// and everything goes through the generic accessor protocol.
package snapshot

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"github.com/tliron/commonlog"

	"github.com/chazu/fieldrt/attr"
	"github.com/chazu/fieldrt/heap"
)

var log = commonlog.GetLogger("fieldrt.snapshot")

// cborEncMode uses canonical mode for deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Snapshot is the wire form of an instance: class name plus one entry per
// defined attribute. Undefined attributes are absent, which is what makes
// a restore reproduce definedness, not just values.
type Snapshot struct {
	Class string         `cbor:"class"`
	Attrs map[string]any `cbor:"attrs"`
}

// Dump reads every defined attribute of inst through the accessor
// protocol and encodes the result. Reference attributes holding
// non-builtin objects have no value encoding and are skipped.
func Dump(inst *attr.Instance) ([]byte, error) {
	snap := Snapshot{
		Class: inst.ClassName(),
		Attrs: make(map[string]any),
	}
	for _, d := range inst.Layout().Descriptors() {
		v, err := attr.Get(inst, d)
		if err != nil {
			var undef *attr.UndefinedError
			if errors.As(err, &undef) {
				continue
			}
			return nil, fmt.Errorf("snapshot: dump %s.%s: %w", snap.Class, d.Name, err)
		}
		enc, ok := encodeValue(v)
		valueClass := v.Class().Name
		heap.Release(v)
		if !ok {
			log.Debugf("skipping %s.%s: no wire encoding for %s", snap.Class, d.Name, valueClass)
			continue
		}
		snap.Attrs[d.Name] = enc
	}
	return cborEncMode.Marshal(&snap)
}

// Restore replays a snapshot into inst through the setter protocol.
// Attributes absent from the snapshot are left untouched.
func Restore(inst *attr.Instance, data []byte) error {
	var snap Snapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	if snap.Class != inst.ClassName() {
		return fmt.Errorf("snapshot: class mismatch: snapshot of %s, instance of %s", snap.Class, inst.ClassName())
	}
	for name, raw := range snap.Attrs {
		d := inst.Layout().Attr(name)
		if d == nil {
			return fmt.Errorf("snapshot: %s has no attribute %q", snap.Class, name)
		}
		v, err := decodeValue(d, raw)
		if err != nil {
			return fmt.Errorf("snapshot: restore %s.%s: %w", snap.Class, name, err)
		}
		err = attr.Set(inst, d, v)
		heap.Release(v)
		if err != nil {
			return fmt.Errorf("snapshot: restore %s.%s: %w", snap.Class, name, err)
		}
	}
	return nil
}

// encodeValue maps a boxed value to its wire form. Integers that do not
// fit 64 bits travel as decimal strings.
func encodeValue(v *heap.Value) (any, bool) {
	switch {
	case v.IsNone():
		return nil, true
	case v.Class() == heap.BoolClass:
		return v.Bool(), true
	case v.Class() == heap.FloatClass:
		return v.Float64(), true
	case v.Class() == heap.StrClass:
		return v.Str(), true
	case heap.IsInstance(v, heap.IntClass):
		z := v.BigInt()
		if z.IsInt64() {
			return z.Int64(), true
		}
		return z.String(), true
	default:
		return nil, false
	}
}

// decodeValue builds a fresh boxed value from a wire form. The caller
// owns the returned reference. A string is a decimal big integer on
// integer-typed attributes and a plain str everywhere else.
func decodeValue(d *attr.Descriptor, raw any) (*heap.Value, error) {
	switch x := raw.(type) {
	case nil:
		return heap.None, nil
	case bool:
		return heap.NewBool(x), nil
	case float64:
		return heap.NewFloat(x), nil
	case int64:
		return heap.NewInt(x), nil
	case uint64:
		if x > 1<<63-1 {
			return heap.NewBigInt(new(big.Int).SetUint64(x)), nil
		}
		return heap.NewInt(int64(x)), nil
	case string:
		if intTyped(d) {
			z, ok := new(big.Int).SetString(x, 10)
			if !ok {
				return nil, fmt.Errorf("malformed integer %q", x)
			}
			return heap.NewBigInt(z), nil
		}
		return heap.NewStr(x), nil
	default:
		return nil, fmt.Errorf("unsupported wire value %T", raw)
	}
}

func intTyped(d *attr.Descriptor) bool {
	switch d.Repr {
	case attr.Tagged, attr.Int16, attr.Int32, attr.Int64:
		return true
	case attr.Reference:
		return d.Expected == heap.IntClass
	default:
		return false
	}
}
