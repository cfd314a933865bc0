package object

import (
	"fmt"

	"splice/internal/codec"
	"splice/internal/faults"
)

// Resolver materializes persisted objects on demand.
type Resolver interface {
	Materialize(id codec.ObjectID) (*Object, error)
}

// Edge is one strong reference slot. It starts either resolved (holding the
// child) or unresolved (holding only the child's ObjectID).
type Edge struct {
	id  codec.ObjectID
	obj *Object
}

// ID returns the persistent identifier of the target, zero when the target
// has never been saved.
func (e *Edge) ID() codec.ObjectID {
	if e.obj != nil {
		return e.obj.id
	}
	return e.id
}

// Resolved reports whether the target is in memory.
func (e *Edge) Resolved() bool {
	return e.obj != nil
}

// Target returns the in-memory target, or nil when unresolved.
func (e *Edge) Target() *Object {
	return e.obj
}

func (o *Object) resolve(e *Edge) (*Object, error) {
	if e.obj != nil {
		return e.obj, nil
	}
	if o.resolver == nil {
		return nil, faults.Wrap(faults.ErrUnresolvedReference, "object", "resolve",
			fmt.Sprintf("object %d has no resolver", e.id), nil)
	}
	child, err := o.resolver.Materialize(e.id)
	if err != nil {
		return nil, err
	}
	e.obj = child
	child.owner = o
	return child, nil
}

// LoadSubtree resolves every strong reference below o, so the subtree no
// longer depends on the container it was read from.
func (o *Object) LoadSubtree() error {
	for _, e := range o.Edges() {
		child, err := o.resolve(e)
		if err != nil {
			return err
		}
		if err := child.LoadSubtree(); err != nil {
			return err
		}
	}
	return nil
}
