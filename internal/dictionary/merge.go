package dictionary

import (
	"fmt"

	"splice/internal/codec"
	"splice/internal/faults"
	"splice/internal/logging"
)

// Merge folds extension definitions into the dictionary. The whole batch is
// applied or none of it is: classes may refer to parents defined later in
// the same batch, and the result is validated before it replaces the live
// registry.
//
// A definition whose identifier is already registered is treated as an
// overlay. It may add properties and may make an abstract class concrete.
// An overlay never makes a class abstract. Re-parenting, renaming or
// redefining an existing property fails with faults.ErrIncompatibleExtension. Re-declaring an identical property is a
// no-op so merging the same table twice is harmless.
func (d *Dictionary) Merge(ext []*ClassDef) error {
	if len(ext) == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	stage := d.cloneLocked()
	var added, extended int
	for _, c := range ext {
		if c == nil || c.Name == "" || c.ID.IsNil() {
			return faults.Wrap(faults.ErrIncompatibleExtension, "dictionary", "merge",
				"extension class needs a name and identifier", nil)
		}
		if existing, ok := stage.classes[c.ID]; ok {
			if err := overlay(existing, c); err != nil {
				return err
			}
			extended++
			continue
		}
		if other, ok := stage.byName[c.Name]; ok {
			return faults.Wrap(faults.ErrDuplicateClass, "dictionary", "merge",
				fmt.Sprintf("%s (%s) collides with %s", c.Name, c.ID, other.ID), nil)
		}
		cp := c.clone()
		cp.Extension = true
		for _, p := range cp.Properties {
			p.Extension = true
		}
		stage.classes[cp.ID] = cp
		stage.byName[cp.Name] = cp
		added++
	}

	for _, c := range stage.classes {
		if c.Parent.IsNil() && c.ParentName != "" {
			parent, ok := stage.byName[c.ParentName]
			if !ok {
				return faults.Wrap(faults.ErrUnknownClass, "dictionary", "merge",
					fmt.Sprintf("parent %q of %s", c.ParentName, c.Name), nil)
			}
			c.Parent = parent.ID
		}
		if c.Parent.IsNil() && c.Name != RootClassName {
			return faults.Wrap(faults.ErrUnknownClass, "dictionary", "merge",
				fmt.Sprintf("%s has no parent", c.Name), nil)
		}
	}
	for _, c := range stage.classes {
		if _, err := stage.propertiesLocked(c); err != nil {
			return err
		}
	}

	// Keep existing *ClassDef pointers valid for objects already bound to
	// them.
	for id, c := range stage.classes {
		if live, ok := d.classes[id]; ok {
			*live = *c
			continue
		}
		d.classes[id] = c
		d.byName[c.Name] = c
	}
	d.logger.Debug("schema extension merged",
		logging.Int("classes_added", added),
		logging.Int("classes_extended", extended),
	)
	return nil
}

func overlay(existing, ext *ClassDef) error {
	if ext.Name != existing.Name {
		return faults.Wrap(faults.ErrIncompatibleExtension, "dictionary", "merge",
			fmt.Sprintf("%s renamed to %s", existing.Name, ext.Name), nil)
	}
	if !ext.Parent.IsNil() && ext.Parent != existing.Parent {
		return faults.Wrap(faults.ErrIncompatibleExtension, "dictionary", "merge",
			fmt.Sprintf("%s re-parented", existing.Name), nil)
	}
	for _, p := range ext.Properties {
		var match *PropertyDef
		for _, q := range existing.Properties {
			if q.PID == p.PID || q.Name == p.Name || q.ID == p.ID {
				match = q
				break
			}
		}
		if match == nil {
			cp := p.clone()
			cp.Extension = true
			existing.Properties = append(existing.Properties, cp)
			continue
		}
		if match.PID != p.PID || match.Name != p.Name || !match.Type.equal(p.Type) {
			return faults.Wrap(faults.ErrIncompatibleExtension, "dictionary", "merge",
				fmt.Sprintf("%s.%s redefined", existing.Name, p.Name), nil)
		}
	}
	if ext.Concrete {
		existing.Concrete = true
	}
	return nil
}

func (d *Dictionary) cloneLocked() *Dictionary {
	cp := &Dictionary{
		classes:  make(map[codec.AUID]*ClassDef, len(d.classes)),
		byName:   make(map[string]*ClassDef, len(d.byName)),
		baseline: d.baseline,
		logger:   d.logger,
	}
	for id, c := range d.classes {
		cc := c.clone()
		cp.classes[id] = cc
		cp.byName[cc.Name] = cc
	}
	return cp
}
