package dictionary

import (
	"fmt"
	"slices"

	"splice/internal/codec"
)

// TypeDef describes the persisted shape of a property value.
type TypeDef struct {
	Kind codec.Tag
	// Elem is the element tag for Array kinds.
	Elem codec.Tag
	// Target names the referenced class for StrongRef, StrongRefVector and
	// WeakRef kinds.
	Target string
	// Enum maps symbolic names to values for enumerated integer kinds.
	Enum map[string]int64
}

// Accepts reports whether v can be stored under this type.
func (t TypeDef) Accepts(v codec.Value) bool {
	if v == nil || v.Tag() != t.Kind {
		return false
	}
	if op, ok := v.(codec.Opaque); ok {
		// Arrays of element kinds this build cannot decode stay raw.
		return op.Raw == codec.TagArray && !t.Elem.Known()
	}
	if arr, ok := v.(codec.Array); ok && t.Elem != codec.TagInvalid {
		return arr.Elem == t.Elem
	}
	if len(t.Enum) > 0 {
		n, ok := codec.AsInt64(v)
		if !ok {
			return false
		}
		for _, allowed := range t.Enum {
			if allowed == n {
				return true
			}
		}
		return false
	}
	return true
}

// EnumName returns the symbolic name of n, if the type is enumerated.
func (t TypeDef) EnumName(n int64) (string, bool) {
	for name, value := range t.Enum {
		if value == n {
			return name, true
		}
	}
	return "", false
}

func (t TypeDef) String() string {
	switch {
	case t.Kind == codec.TagArray:
		return fmt.Sprintf("Array<%s>", t.Elem)
	case t.Target != "":
		return fmt.Sprintf("%s<%s>", t.Kind, t.Target)
	default:
		return t.Kind.String()
	}
}

func (t TypeDef) equal(o TypeDef) bool {
	return t.Kind == o.Kind && t.Elem == o.Elem && t.Target == o.Target
}

// PropertyDef describes one property a class declares.
type PropertyDef struct {
	Name     string
	ID       codec.AUID
	PID      uint16
	Type     TypeDef
	Optional bool
	// UniqueID marks the property whose value identifies an instance; at most
	// one object per class may carry a given value.
	UniqueID bool
	// Extension is true for properties that came from a schema extension
	// rather than the baseline.
	Extension bool
}

func (p *PropertyDef) clone() *PropertyDef {
	cp := *p
	if p.Type.Enum != nil {
		cp.Type.Enum = make(map[string]int64, len(p.Type.Enum))
		for k, v := range p.Type.Enum {
			cp.Type.Enum[k] = v
		}
	}
	return &cp
}

// ClassDef describes a class: its identity, parent and owned properties.
type ClassDef struct {
	Name string
	ID   codec.AUID
	// Parent is the parent class identifier; nil only for the root.
	Parent codec.AUID
	// ParentName is consulted when Parent is nil and the class is not the
	// root, as extension files may refer to parents by name.
	ParentName string
	Properties []*PropertyDef
	Concrete   bool
	Extension  bool
}

func (c *ClassDef) clone() *ClassDef {
	cp := *c
	cp.Properties = make([]*PropertyDef, len(c.Properties))
	for i, p := range c.Properties {
		cp.Properties[i] = p.clone()
	}
	return &cp
}

// OwnProperty returns the property this class itself declares under name.
func (c *ClassDef) OwnProperty(name string) (*PropertyDef, bool) {
	idx := slices.IndexFunc(c.Properties, func(p *PropertyDef) bool { return p.Name == name })
	if idx < 0 {
		return nil, false
	}
	return c.Properties[idx], true
}

func (c *ClassDef) String() string {
	return c.Name
}
