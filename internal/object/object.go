package object

import (
	"fmt"
	"slices"

	"splice/internal/codec"
	"splice/internal/dictionary"
	"splice/internal/faults"
)

// Object is one instance in the graph. It is not safe for concurrent
// mutation.
type Object struct {
	dict    *dictionary.Dictionary
	class   *dictionary.ClassDef // nil for opaque objects
	classID codec.AUID

	values  map[uint16]codec.Value
	edges   map[uint16]*Edge
	vectors map[uint16][]*Edge
	unknown []codec.Record
	// unknownEdges are ObjectIDs carried by unknown reference records; they
	// keep the referenced objects reachable but are never resolved.
	unknownEdges []*Edge

	id       codec.ObjectID
	owner    *Object
	resolver Resolver
	dirty    bool
}

func newObject(dict *dictionary.Dictionary, class *dictionary.ClassDef, classID codec.AUID) *Object {
	return &Object{
		dict:    dict,
		class:   class,
		classID: classID,
		values:  make(map[uint16]codec.Value),
		edges:   make(map[uint16]*Edge),
		vectors: make(map[uint16][]*Edge),
		dirty:   true,
	}
}

// Class returns the class definition, or nil for opaque objects.
func (o *Object) Class() *dictionary.ClassDef { return o.class }

// ClassID returns the class identifier, which is known even for opaque
// objects.
func (o *Object) ClassID() codec.AUID { return o.classID }

// ClassName returns the class name, or the class identifier for opaque
// objects.
func (o *Object) ClassName() string {
	if o.class == nil {
		return o.classID.String()
	}
	return o.class.Name
}

// IsA reports whether the object's class is ancestor or derives from it.
func (o *Object) IsA(ancestor string) bool {
	return o.class != nil && o.dict.IsA(o.class, ancestor)
}

// Opaque reports whether the object's class was unknown when it was loaded.
func (o *Object) Opaque() bool { return o.class == nil }

// ID returns the persistent identifier, zero until first save.
func (o *Object) ID() codec.ObjectID { return o.id }

// Owner returns the object holding the strong reference to o, if known.
func (o *Object) Owner() *Object { return o.owner }

// Dictionary returns the dictionary the object is bound to.
func (o *Object) Dictionary() *dictionary.Dictionary { return o.dict }

// Dirty reports whether o changed since it was loaded or last saved.
func (o *Object) Dirty() bool { return o.dirty }

func (o *Object) property(name string) (*dictionary.PropertyDef, error) {
	if o.class == nil {
		return nil, faults.Wrap(faults.ErrUnknownProperty, "object", "lookup",
			fmt.Sprintf("opaque object of class %s has no named properties", o.classID), nil)
	}
	return o.dict.LookupProperty(o.class, name)
}

func isRef(t dictionary.TypeDef) bool {
	return t.Kind == codec.TagStrongRef || t.Kind == codec.TagStrongRefVector
}

// Get returns the value of a scalar property.
func (o *Object) Get(name string) (codec.Value, error) {
	p, err := o.property(name)
	if err != nil {
		return nil, err
	}
	if isRef(p.Type) {
		return nil, faults.Wrap(faults.ErrTypeMismatch, "object", "get",
			fmt.Sprintf("%s.%s is a strong reference; use Child or Children", o.class.Name, name), nil)
	}
	v, ok := o.values[p.PID]
	if !ok {
		return nil, faults.Wrap(faults.ErrPropertyNotPresent, "object", "get",
			fmt.Sprintf("%s.%s", o.class.Name, name), nil)
	}
	return v, nil
}

// Has reports whether a property, scalar or reference, is present.
func (o *Object) Has(name string) bool {
	p, err := o.property(name)
	if err != nil {
		return false
	}
	return o.hasPID(p.PID)
}

func (o *Object) hasPID(pid uint16) bool {
	if _, ok := o.values[pid]; ok {
		return true
	}
	if _, ok := o.edges[pid]; ok {
		return true
	}
	_, ok := o.vectors[pid]
	return ok
}

// Set stores a scalar property after checking it against the dictionary.
func (o *Object) Set(name string, v codec.Value) error {
	p, err := o.property(name)
	if err != nil {
		return err
	}
	if isRef(p.Type) {
		return faults.Wrap(faults.ErrTypeMismatch, "object", "set",
			fmt.Sprintf("%s.%s is a strong reference; use SetChild or SetChildren", o.class.Name, name), nil)
	}
	if !p.Type.Accepts(v) {
		return faults.Wrap(faults.ErrTypeMismatch, "object", "set",
			fmt.Sprintf("%s.%s wants %s, got %s", o.class.Name, name, p.Type, describe(v)), nil)
	}
	o.values[p.PID] = v
	o.dirty = true
	return nil
}

// SetAny converts a native Go value to the property's type and stores it.
func (o *Object) SetAny(name string, v any) error {
	p, err := o.property(name)
	if err != nil {
		return err
	}
	if s, ok := v.(string); ok && len(p.Type.Enum) > 0 {
		n, known := p.Type.Enum[s]
		if !known {
			return faults.Wrap(faults.ErrTypeMismatch, "object", "set",
				fmt.Sprintf("%s.%s has no enumerator %q", o.class.Name, name, s), nil)
		}
		v = n
	}
	cv, err := codec.Coerce(v, p.Type.Kind)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", o.class.Name, name, err)
	}
	return o.Set(name, cv)
}

func describe(v codec.Value) string {
	if v == nil {
		return "nil"
	}
	return v.Tag().String()
}

// Remove deletes a property. Removing an absent property is not an error.
func (o *Object) Remove(name string) error {
	p, err := o.property(name)
	if err != nil {
		return err
	}
	if !o.hasPID(p.PID) {
		return nil
	}
	if e, ok := o.edges[p.PID]; ok && e.obj != nil {
		e.obj.owner = nil
	}
	for _, e := range o.vectors[p.PID] {
		if e.obj != nil {
			e.obj.owner = nil
		}
	}
	delete(o.values, p.PID)
	delete(o.edges, p.PID)
	delete(o.vectors, p.PID)
	o.dirty = true
	return nil
}

// Properties returns the names of present properties in definition order,
// inherited properties first.
func (o *Object) Properties() []string {
	if o.class == nil {
		return nil
	}
	defs, err := o.dict.PropertiesOf(o.class)
	if err != nil {
		return nil
	}
	var out []string
	for _, p := range defs {
		if o.hasPID(p.PID) {
			out = append(out, p.Name)
		}
	}
	return out
}

// UnknownRecords returns the records kept verbatim because the dictionary
// does not describe them.
func (o *Object) UnknownRecords() []codec.Record {
	return slices.Clone(o.unknown)
}

// Validate checks that every mandatory property is present.
func (o *Object) Validate() error {
	if o.class == nil {
		return nil
	}
	defs, err := o.dict.PropertiesOf(o.class)
	if err != nil {
		return err
	}
	for _, p := range defs {
		if !p.Optional && !o.hasPID(p.PID) {
			return faults.Wrap(faults.ErrMissingProperty, "object", "validate",
				fmt.Sprintf("%s.%s", o.class.Name, p.Name), nil)
		}
	}
	return nil
}
