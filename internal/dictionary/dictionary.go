package dictionary

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"splice/internal/codec"
	"splice/internal/faults"
	"splice/internal/logging"
)

// RootClassName is the class every other class descends from.
const RootClassName = "InterchangeObject"

// Dictionary is the registry of class definitions for one file session.
// It is safe for concurrent readers; registration and merging take the
// write lock.
type Dictionary struct {
	mu       sync.RWMutex
	classes  map[codec.AUID]*ClassDef
	byName   map[string]*ClassDef
	baseline map[codec.AUID]baselineShape
	logger   *slog.Logger
}

// baselineShape remembers which properties a baseline class shipped with so
// Extensions can report only what was added on top.
type baselineShape struct {
	concrete bool
	pids     map[uint16]struct{}
}

// New returns an empty dictionary. Most callers want NewBaseline.
func New(logger *slog.Logger) *Dictionary {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dictionary{
		classes:  make(map[codec.AUID]*ClassDef),
		byName:   make(map[string]*ClassDef),
		baseline: make(map[codec.AUID]baselineShape),
		logger:   logger,
	}
}

// NewBaseline returns a dictionary loaded with the compiled-in schema.
func NewBaseline(logger *slog.Logger) *Dictionary {
	d := New(logger)
	for _, c := range baselineClasses() {
		if err := d.Register(c); err != nil {
			panic(fmt.Sprintf("baseline schema: %v", err))
		}
	}
	for id, c := range d.classes {
		shape := baselineShape{concrete: c.Concrete, pids: make(map[uint16]struct{}, len(c.Properties))}
		for _, p := range c.Properties {
			shape.pids[p.PID] = struct{}{}
		}
		d.baseline[id] = shape
	}
	return d
}

// Register adds a class whose parent is already registered.
func (d *Dictionary) Register(c *ClassDef) error {
	if c == nil || strings.TrimSpace(c.Name) == "" || c.ID.IsNil() {
		return faults.Wrap(faults.ErrSchema, "dictionary", "register", "class needs a name and identifier", nil)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkNew(c); err != nil {
		return err
	}
	if c.Parent.IsNil() && c.ParentName != "" {
		parent, ok := d.byName[c.ParentName]
		if !ok {
			return faults.Wrap(faults.ErrUnknownClass, "dictionary", "register",
				fmt.Sprintf("parent %q of %s", c.ParentName, c.Name), nil)
		}
		c.Parent = parent.ID
	}
	if c.Parent.IsNil() {
		if c.Name != RootClassName {
			return faults.Wrap(faults.ErrUnknownClass, "dictionary", "register",
				fmt.Sprintf("%s has no parent", c.Name), nil)
		}
	} else if _, ok := d.classes[c.Parent]; !ok {
		return faults.Wrap(faults.ErrUnknownClass, "dictionary", "register",
			fmt.Sprintf("parent %s of %s", c.Parent, c.Name), nil)
	}
	d.classes[c.ID] = c
	d.byName[c.Name] = c
	if _, err := d.propertiesLocked(c); err != nil {
		delete(d.classes, c.ID)
		delete(d.byName, c.Name)
		return err
	}
	return nil
}

func (d *Dictionary) checkNew(c *ClassDef) error {
	if existing, ok := d.classes[c.ID]; ok {
		return faults.Wrap(faults.ErrDuplicateClass, "dictionary", "register",
			fmt.Sprintf("%s already registered as %s", c.ID, existing.Name), nil)
	}
	if _, ok := d.byName[c.Name]; ok {
		return faults.Wrap(faults.ErrDuplicateClass, "dictionary", "register",
			fmt.Sprintf("class name %q already registered", c.Name), nil)
	}
	return nil
}

// Resolve returns the class registered under id.
func (d *Dictionary) Resolve(id codec.AUID) (*ClassDef, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.classes[id]
	if !ok {
		return nil, faults.Wrap(faults.ErrUnknownClass, "dictionary", "resolve", id.String(), nil)
	}
	return c, nil
}

// ResolveName returns the class registered under name.
func (d *Dictionary) ResolveName(name string) (*ClassDef, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.byName[name]
	if !ok {
		return nil, faults.Wrap(faults.ErrUnknownClass, "dictionary", "resolve", name, nil)
	}
	return c, nil
}

// PropertiesOf returns the full inherited property set of c, root first.
func (d *Dictionary) PropertiesOf(c *ClassDef) ([]*PropertyDef, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.propertiesLocked(c)
}

func (d *Dictionary) propertiesLocked(c *ClassDef) ([]*PropertyDef, error) {
	chain, err := d.chainLocked(c)
	if err != nil {
		return nil, err
	}
	var props []*PropertyDef
	names := make(map[string]string)
	pids := make(map[uint16]string)
	for i := len(chain) - 1; i >= 0; i-- {
		for _, p := range chain[i].Properties {
			if owner, dup := names[p.Name]; dup {
				return nil, faults.Wrap(faults.ErrDuplicateProperty, "dictionary", "properties",
					fmt.Sprintf("%s.%s also declared by %s", chain[i].Name, p.Name, owner), nil)
			}
			if owner, dup := pids[p.PID]; dup {
				return nil, faults.Wrap(faults.ErrDuplicateProperty, "dictionary", "properties",
					fmt.Sprintf("%s.%s reuses pid 0x%04x of %s", chain[i].Name, p.Name, p.PID, owner), nil)
			}
			names[p.Name] = chain[i].Name
			pids[p.PID] = chain[i].Name
			props = append(props, p)
		}
	}
	return props, nil
}

// chainLocked returns c followed by its ancestors up to the root.
func (d *Dictionary) chainLocked(c *ClassDef) ([]*ClassDef, error) {
	if c == nil {
		return nil, faults.Wrap(faults.ErrUnknownClass, "dictionary", "walk", "nil class", nil)
	}
	seen := make(map[codec.AUID]struct{})
	var chain []*ClassDef
	for cur := c; cur != nil; {
		if _, loop := seen[cur.ID]; loop {
			return nil, faults.Wrap(faults.ErrCyclicInheritance, "dictionary", "walk",
				fmt.Sprintf("%s reached twice from %s", cur.Name, c.Name), nil)
		}
		seen[cur.ID] = struct{}{}
		chain = append(chain, cur)
		if cur.Parent.IsNil() {
			break
		}
		parent, ok := d.classes[cur.Parent]
		if !ok {
			return nil, faults.Wrap(faults.ErrUnknownClass, "dictionary", "walk",
				fmt.Sprintf("parent %s of %s", cur.Parent, cur.Name), nil)
		}
		cur = parent
	}
	return chain, nil
}

// LookupProperty finds name in the inherited property set of c.
func (d *Dictionary) LookupProperty(c *ClassDef, name string) (*PropertyDef, error) {
	props, err := d.PropertiesOf(c)
	if err != nil {
		return nil, err
	}
	for _, p := range props {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, faults.Wrap(faults.ErrUnknownProperty, "dictionary", "lookup",
		fmt.Sprintf("%s has no property %q", c.Name, name), nil)
}

// PropertyByPID finds a property of c by local identifier.
func (d *Dictionary) PropertyByPID(c *ClassDef, pid uint16) (*PropertyDef, bool) {
	props, err := d.PropertiesOf(c)
	if err != nil {
		return nil, false
	}
	for _, p := range props {
		if p.PID == pid {
			return p, true
		}
	}
	return nil, false
}

// IsA reports whether c is ancestor or descends from it.
func (d *Dictionary) IsA(c *ClassDef, ancestor string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	chain, err := d.chainLocked(c)
	if err != nil {
		return false
	}
	return slices.ContainsFunc(chain, func(cd *ClassDef) bool { return cd.Name == ancestor })
}

// Classes returns every registered class ordered by name.
func (d *Dictionary) Classes() []*ClassDef {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*ClassDef, 0, len(d.classes))
	for _, c := range d.classes {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *ClassDef) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Extensions returns what this dictionary holds beyond the baseline: whole
// classes that are not baseline classes, and, for baseline classes, a
// partial definition carrying only the added properties. The result is
// ordered so parents precede children.
func (d *Dictionary) Extensions() []*ClassDef {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*ClassDef
	for _, c := range d.classes {
		shape, isBase := d.baseline[c.ID]
		if !isBase {
			out = append(out, c.clone())
			continue
		}
		partial := &ClassDef{Name: c.Name, ID: c.ID, Parent: c.Parent, Concrete: c.Concrete, Extension: true}
		for _, p := range c.Properties {
			if _, ok := shape.pids[p.PID]; !ok {
				partial.Properties = append(partial.Properties, p.clone())
			}
		}
		if len(partial.Properties) > 0 || partial.Concrete != shape.concrete {
			out = append(out, partial)
		}
	}
	depth := func(c *ClassDef) int {
		chain, _ := d.chainLocked(d.classes[c.ID])
		return len(chain)
	}
	slices.SortFunc(out, func(a, b *ClassDef) int {
		if da, db := depth(a), depth(b); da != db {
			return da - db
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// IsBaseline reports whether id names a compiled-in class.
func (d *Dictionary) IsBaseline(id codec.AUID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.baseline[id]
	return ok
}
