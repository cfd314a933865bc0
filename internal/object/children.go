package object

import (
	"fmt"

	"splice/internal/codec"
	"splice/internal/dictionary"
	"splice/internal/faults"
)

func (o *Object) refProperty(name string, kind codec.Tag) (*dictionary.PropertyDef, error) {
	p, err := o.property(name)
	if err != nil {
		return nil, err
	}
	if p.Type.Kind != kind {
		return nil, faults.Wrap(faults.ErrTypeMismatch, "object", "reference",
			fmt.Sprintf("%s.%s is %s, not %s", o.class.Name, name, p.Type, kind), nil)
	}
	return p, nil
}

// adopt checks that child may be stored under p and takes ownership.
func (o *Object) adopt(p *dictionary.PropertyDef, child *Object) error {
	if child == nil {
		return faults.Wrap(faults.ErrTypeMismatch, "object", "reference", "nil child", nil)
	}
	if child == o {
		return faults.Wrap(faults.ErrTypeMismatch, "object", "reference", "object cannot own itself", nil)
	}
	if p.Type.Target != "" && child.class != nil && !o.dict.IsA(child.class, p.Type.Target) {
		return faults.Wrap(faults.ErrTypeMismatch, "object", "reference",
			fmt.Sprintf("%s.%s wants %s, got %s", o.class.Name, p.Name, p.Type.Target, child.ClassName()), nil)
	}
	if child.owner != nil && child.owner != o {
		return faults.Wrap(faults.ErrTypeMismatch, "object", "reference",
			fmt.Sprintf("%s is already owned by %s", child.ClassName(), child.owner.ClassName()), nil)
	}
	for anc := o; anc != nil; anc = anc.owner {
		if anc == child {
			return faults.Wrap(faults.ErrTypeMismatch, "object", "reference", "ownership cycle", nil)
		}
	}
	return nil
}

// SetChild stores child under a strong reference property, replacing any
// previous child. A nil child removes the property.
func (o *Object) SetChild(name string, child *Object) error {
	p, err := o.refProperty(name, codec.TagStrongRef)
	if err != nil {
		return err
	}
	if child == nil {
		return o.Remove(name)
	}
	if err := o.adopt(p, child); err != nil {
		return err
	}
	if prev, ok := o.edges[p.PID]; ok && prev.obj != nil && prev.obj != child {
		prev.obj.owner = nil
	}
	o.edges[p.PID] = &Edge{obj: child}
	child.owner = o
	o.dirty = true
	return nil
}

// Child returns the object under a strong reference property, loading it
// on first access.
func (o *Object) Child(name string) (*Object, error) {
	p, err := o.refProperty(name, codec.TagStrongRef)
	if err != nil {
		return nil, err
	}
	e, ok := o.edges[p.PID]
	if !ok {
		return nil, faults.Wrap(faults.ErrPropertyNotPresent, "object", "child",
			fmt.Sprintf("%s.%s", o.class.Name, name), nil)
	}
	return o.resolve(e)
}

// SetChildren replaces a strong reference vector. The vector is left
// untouched if any child is rejected.
func (o *Object) SetChildren(name string, children []*Object) error {
	p, err := o.refProperty(name, codec.TagStrongRefVector)
	if err != nil {
		return err
	}
	seen := make(map[*Object]struct{}, len(children))
	for _, child := range children {
		if err := o.adopt(p, child); err != nil {
			return err
		}
		if _, dup := seen[child]; dup {
			return faults.Wrap(faults.ErrTypeMismatch, "object", "reference",
				fmt.Sprintf("%s appears twice in %s.%s", child.ClassName(), o.class.Name, name), nil)
		}
		seen[child] = struct{}{}
	}
	for _, e := range o.vectors[p.PID] {
		if e.obj != nil {
			if _, kept := seen[e.obj]; !kept {
				e.obj.owner = nil
			}
		}
	}
	edges := make([]*Edge, len(children))
	for i, child := range children {
		edges[i] = &Edge{obj: child}
		child.owner = o
	}
	o.vectors[p.PID] = edges
	o.dirty = true
	return nil
}

// AppendChild adds child to the end of a strong reference vector.
func (o *Object) AppendChild(name string, child *Object) error {
	p, err := o.refProperty(name, codec.TagStrongRefVector)
	if err != nil {
		return err
	}
	if err := o.adopt(p, child); err != nil {
		return err
	}
	for _, e := range o.vectors[p.PID] {
		if e.obj == child {
			return faults.Wrap(faults.ErrTypeMismatch, "object", "reference",
				fmt.Sprintf("%s already in %s.%s", child.ClassName(), o.class.Name, name), nil)
		}
	}
	o.vectors[p.PID] = append(o.vectors[p.PID], &Edge{obj: child})
	child.owner = o
	o.dirty = true
	return nil
}

// ChildCount returns the length of a strong reference vector without
// loading any element.
func (o *Object) ChildCount(name string) (int, error) {
	p, err := o.refProperty(name, codec.TagStrongRefVector)
	if err != nil {
		return 0, err
	}
	return len(o.vectors[p.PID]), nil
}

// ChildAt returns element i of a strong reference vector.
func (o *Object) ChildAt(name string, i int) (*Object, error) {
	p, err := o.refProperty(name, codec.TagStrongRefVector)
	if err != nil {
		return nil, err
	}
	vec := o.vectors[p.PID]
	if i < 0 || i >= len(vec) {
		return nil, faults.Wrap(faults.ErrPropertyNotPresent, "object", "child",
			fmt.Sprintf("%s.%s[%d] of %d", o.class.Name, name, i, len(vec)), nil)
	}
	return o.resolve(vec[i])
}

// Children returns every element of a strong reference vector, loading
// unresolved ones. An absent vector yields no children.
func (o *Object) Children(name string) ([]*Object, error) {
	p, err := o.refProperty(name, codec.TagStrongRefVector)
	if err != nil {
		return nil, err
	}
	vec := o.vectors[p.PID]
	out := make([]*Object, 0, len(vec))
	for _, e := range vec {
		child, err := o.resolve(e)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

// Edges returns every strong reference slot of o in definition order,
// without resolving any.
func (o *Object) Edges() []*Edge {
	var out []*Edge
	for _, pid := range o.refPIDs() {
		if e, ok := o.edges[pid]; ok {
			out = append(out, e)
		}
		out = append(out, o.vectors[pid]...)
	}
	return append(out, o.unknownEdges...)
}
