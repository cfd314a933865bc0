package object

import (
	"encoding/binary"
	"fmt"
	"slices"

	"splice/internal/codec"
	"splice/internal/dictionary"
	"splice/internal/faults"
)

// SetID assigns the persistent identifier. It is called by the storage
// layer when an object is first saved.
func (o *Object) SetID(id codec.ObjectID) { o.id = id }

// MarkClean records that o matches its persisted form.
func (o *Object) MarkClean() { o.dirty = false }

// MarkDirty forces o to be rewritten on the next save.
func (o *Object) MarkDirty() { o.dirty = true }

// SetResolver installs the resolver used to load unresolved children.
func (o *Object) SetResolver(r Resolver) { o.resolver = r }

// Detach clears o's owner so it can be adopted elsewhere.
func (o *Object) Detach() { o.owner = nil }

// refPIDs lists present reference properties in definition order.
func (o *Object) refPIDs() []uint16 {
	if o.class == nil {
		return nil
	}
	defs, err := o.dict.PropertiesOf(o.class)
	if err != nil {
		return nil
	}
	var out []uint16
	for _, p := range defs {
		if !isRef(p.Type) {
			continue
		}
		_, single := o.edges[p.PID]
		_, vector := o.vectors[p.PID]
		if single || vector {
			out = append(out, p.PID)
		}
	}
	return out
}

// Records encodes o's properties. Every child must already carry an
// ObjectID. Known properties come first in definition order, followed by
// unknown records in their original order.
func (o *Object) Records(order binary.ByteOrder) ([]codec.Record, error) {
	var out []codec.Record
	if o.class != nil {
		defs, err := o.dict.PropertiesOf(o.class)
		if err != nil {
			return nil, err
		}
		for _, p := range defs {
			var v codec.Value
			if val, ok := o.values[p.PID]; ok {
				v = val
			} else if e, ok := o.edges[p.PID]; ok {
				if e.ID() == 0 {
					return nil, unsaved(o, p)
				}
				v = codec.StrongRef(e.ID())
			} else if vec, ok := o.vectors[p.PID]; ok {
				ids := make(codec.StrongRefVector, len(vec))
				for i, e := range vec {
					if ids[i] = e.ID(); ids[i] == 0 {
						return nil, unsaved(o, p)
					}
				}
				v = ids
			} else {
				continue
			}
			rec, err := codec.NewRecord(p.PID, v, order)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", o.class.Name, p.Name, err)
			}
			out = append(out, rec)
		}
	}
	return append(out, o.unknown...), nil
}

func unsaved(o *Object, p *dictionary.PropertyDef) error {
	return faults.Wrap(faults.ErrUnresolvedReference, "object", "encode",
		fmt.Sprintf("%s.%s refers to an object without an id", o.class.Name, p.Name), nil)
}

// Decode rebuilds an object from its persisted records. Children are left
// unresolved and are loaded through resolver on first access. A class the
// dictionary does not know yields an opaque object.
func Decode(dict *dictionary.Dictionary, id codec.ObjectID, classID codec.AUID, records []codec.Record, order binary.ByteOrder, resolver Resolver) (*Object, error) {
	class, _ := dict.Resolve(classID)
	o := newObject(dict, class, classID)
	o.id = id
	o.resolver = resolver
	o.dirty = false

	for _, rec := range records {
		var p *dictionary.PropertyDef
		if class != nil {
			p, _ = dict.PropertyByPID(class, rec.PID)
		}
		if p == nil || p.Type.Kind != rec.Tag {
			if err := o.keepUnknown(rec, order); err != nil {
				return nil, err
			}
			continue
		}
		v, err := rec.Value(order)
		if err != nil {
			return nil, fmt.Errorf("object %d %s.%s: %w", id, class.Name, p.Name, err)
		}
		switch x := v.(type) {
		case codec.StrongRef:
			o.edges[p.PID] = &Edge{id: codec.ObjectID(x)}
		case codec.StrongRefVector:
			edges := make([]*Edge, len(x))
			for i, cid := range x {
				edges[i] = &Edge{id: cid}
			}
			o.vectors[p.PID] = edges
		default:
			o.values[p.PID] = v
		}
	}
	return o, nil
}

func (o *Object) keepUnknown(rec codec.Record, order binary.ByteOrder) error {
	o.unknown = append(o.unknown, rec)
	if rec.Tag != codec.TagStrongRef && rec.Tag != codec.TagStrongRefVector {
		return nil
	}
	v, err := rec.Value(order)
	if err != nil {
		return fmt.Errorf("object %d unknown reference 0x%04x: %w", o.id, rec.PID, err)
	}
	switch x := v.(type) {
	case codec.StrongRef:
		o.unknownEdges = append(o.unknownEdges, &Edge{id: codec.ObjectID(x)})
	case codec.StrongRefVector:
		for _, cid := range x {
			o.unknownEdges = append(o.unknownEdges, &Edge{id: cid})
		}
	}
	return nil
}

// Clone returns a detached, unsaved deep copy of o and every child reachable
// through resolved or resolvable edges. Unknown records are copied as they
// are; references inside them are dropped since their targets are not
// copied.
func (o *Object) Clone() (*Object, error) {
	cp := newObject(o.dict, o.class, o.classID)
	for pid, v := range o.values {
		cp.values[pid] = v
	}
	for _, rec := range o.unknown {
		if rec.Tag == codec.TagStrongRef || rec.Tag == codec.TagStrongRefVector {
			continue
		}
		cp.unknown = append(cp.unknown, codec.Record{PID: rec.PID, Tag: rec.Tag, Data: slices.Clone(rec.Data)})
	}
	for pid, e := range o.edges {
		child, err := o.resolve(e)
		if err != nil {
			return nil, err
		}
		dup, err := child.Clone()
		if err != nil {
			return nil, err
		}
		dup.owner = cp
		cp.edges[pid] = &Edge{obj: dup}
	}
	for pid, vec := range o.vectors {
		edges := make([]*Edge, len(vec))
		for i, e := range vec {
			child, err := o.resolve(e)
			if err != nil {
				return nil, err
			}
			dup, err := child.Clone()
			if err != nil {
				return nil, err
			}
			dup.owner = cp
			edges[i] = &Edge{obj: dup}
		}
		cp.vectors[pid] = edges
	}
	return cp, nil
}
