package heap

// Class describes the runtime type of a boxed value. Classes form a single
// inheritance chain through Parent; IsInstance walks it.
type Class struct {
	Name   string
	Parent *Class

	// Finalize, if set, runs when the last reference to a value of this
	// class is released. It runs before the value is unpinned, so the
	// value is still fully usable inside the finalizer.
	Finalize func(*Value)
}

// Built-in classes. Bool derives from Int, mirroring the host language,
// so an int-typed field accepts a boolean value.
var (
	ObjectClass = &Class{Name: "object"}
	IntClass    = &Class{Name: "int", Parent: ObjectClass}
	BoolClass   = &Class{Name: "bool", Parent: IntClass}
	FloatClass  = &Class{Name: "float", Parent: ObjectClass}
	StrClass    = &Class{Name: "str", Parent: ObjectClass}
	NoneClass   = &Class{Name: "NoneType", Parent: ObjectClass}
)

var builtins = map[string]*Class{
	"object":   ObjectClass,
	"int":      IntClass,
	"bool":     BoolClass,
	"float":    FloatClass,
	"str":      StrClass,
	"NoneType": NoneClass,
}

// BuiltinClass looks up a built-in class by name. Returns nil if the name
// is not a built-in.
func BuiltinClass(name string) *Class {
	return builtins[name]
}

// IsInstance reports whether v is an instance of c or one of its subclasses.
func IsInstance(v *Value, c *Class) bool {
	if v == nil || c == nil {
		return false
	}
	for cls := v.class; cls != nil; cls = cls.Parent {
		if cls == c {
			return true
		}
	}
	return false
}
