package timeline

import (
	"errors"

	"splice/internal/faults"
)

// SkipChildren may be returned by a Walk callback to skip the children of
// the current component.
var SkipChildren = errors.New("skip children")

// Walk visits c and its nested components depth-first: sequence members,
// operation group inputs and rendering, and transition effects. depth is 0
// for c.
func Walk(c Component, fn func(c Component, depth int) error) error {
	return walk(c, 0, fn)
}

func walk(c Component, depth int, fn func(Component, int) error) error {
	if err := fn(c, depth); err != nil {
		if errors.Is(err, SkipChildren) {
			return nil
		}
		return err
	}
	var kids []Component
	switch x := c.(type) {
	case *Sequence:
		comps, err := x.Components()
		if err != nil {
			return err
		}
		kids = comps
	case *OperationGroup:
		inputs, err := x.Inputs()
		if err != nil && !errors.Is(err, faults.ErrPropertyNotPresent) {
			return err
		}
		for _, in := range inputs {
			kids = append(kids, in)
		}
		rendering, err := x.Rendering()
		if err != nil {
			return err
		}
		if rendering != nil {
			kids = append(kids, rendering)
		}
	case *Transition:
		op, err := x.OperationGroup()
		if err != nil {
			return err
		}
		kids = append(kids, op)
	}
	for _, k := range kids {
		if err := walk(k, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}
