package layout

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/fieldrt/attr"
)

var log = commonlog.GetLogger("fieldrt.layout")

// Registry maps class names to their layouts. Layouts never change after
// class definition, so the registry is append-only; re-registering a name
// is an error. Like the rest of the runtime it assumes the host
// serializes access and does not lock.
type Registry struct {
	layouts map[string]*attr.Layout
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{layouts: make(map[string]*attr.Layout)}
}

// Register adds a class layout.
func (r *Registry) Register(l *attr.Layout) error {
	name := l.ClassName()
	if _, exists := r.layouts[name]; exists {
		return fmt.Errorf("layout: class %s already registered", name)
	}
	r.layouts[name] = l
	log.Infof("registered class %s (%d attributes, %d field bytes)", name, len(l.Descriptors()), l.Size())
	return nil
}

// Lookup returns the layout for a class name, or nil.
func (r *Registry) Lookup(name string) *attr.Layout {
	return r.layouts[name]
}

// Classes returns the registered class names, in no particular order.
func (r *Registry) Classes() []string {
	names := make([]string, 0, len(r.layouts))
	for name := range r.layouts {
		names = append(names, name)
	}
	return names
}

// Default is the process-wide registry generated code registers into.
var Default = NewRegistry()

// Register adds a class layout to the default registry.
func Register(l *attr.Layout) error {
	return Default.Register(l)
}

// Lookup returns a layout from the default registry, or nil.
func Lookup(name string) *attr.Layout {
	return Default.Lookup(name)
}
