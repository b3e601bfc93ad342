package attr

import "fmt"

// UndefinedError reports a read of an attribute that was never assigned.
// Always user-recoverable; reaching it on an always-defined attribute is
// an internal fault and panics before one is built.
type UndefinedError struct {
	Attr  string
	Class string
}

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("attribute '%s' of '%s' undefined", e.Attr, e.Class)
}

// UndeletableError reports a deletion attempt on a non-deletable
// attribute. The stored value is left unchanged.
type UndeletableError struct {
	Attr  string
	Class string
}

func (e *UndeletableError) Error() string {
	return fmt.Sprintf("'%s' object attribute '%s' cannot be deleted", e.Class, e.Attr)
}

// TypeError reports an assigned value whose runtime type violates the
// descriptor's expected type. The attribute's prior state is preserved.
type TypeError struct {
	Expected string
	Got      string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s object expected; got %s", e.Expected, e.Got)
}
