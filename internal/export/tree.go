package export

import (
	"encoding/binary"
	"encoding/hex"
	"math"
	"strconv"

	"splice/internal/aaf"
	"splice/internal/codec"
	"splice/internal/dictionary"
	"splice/internal/object"
	"splice/internal/timeline"
)

// Document is one node of an exported tree.
type Document = map[string]any

// FileTree renders every mob of f. All mobs are loaded.
func FileTree(f *aaf.File) (Document, error) {
	order := "little"
	if f.ByteOrder() == binary.BigEndian {
		order = "big"
	}
	doc := Document{
		"file_id":    f.FileID().String(),
		"generation": int64(f.Generation()),
		"byte_order": order,
	}
	mobs := []any{}
	for m, err := range f.Storage().MobIterator(timeline.KindAny) {
		if err != nil {
			return nil, err
		}
		md, err := MobTree(m)
		if err != nil {
			return nil, err
		}
		mobs = append(mobs, md)
	}
	doc["mobs"] = mobs
	return doc, nil
}

// MobTree renders one mob with its slots.
func MobTree(m *timeline.Mob) (Document, error) {
	id, err := m.ID()
	if err != nil {
		return nil, err
	}
	doc := Document{
		"mob_id": id.String(),
		"kind":   m.Kind().String(),
		"class":  m.Object().ClassName(),
		"name":   m.Name(),
	}
	if t, err := m.CreationTime(); err == nil {
		doc["created"] = t
	}
	if t, err := m.LastModified(); err == nil {
		doc["modified"] = t
	}
	if m.Kind() == timeline.KindSource {
		desc, err := m.EssenceDescriptor()
		if err != nil {
			return nil, err
		}
		dd, err := ObjectTree(desc.Object())
		if err != nil {
			return nil, err
		}
		doc["descriptor"] = dd
	}
	slots := []any{}
	for slot, err := range m.SlotIterator() {
		if err != nil {
			return nil, err
		}
		sd, err := slotTree(slot)
		if err != nil {
			return nil, err
		}
		slots = append(slots, sd)
	}
	doc["slots"] = slots
	return doc, nil
}

func slotTree(s *timeline.Slot) (Document, error) {
	id, err := s.ID()
	if err != nil {
		return nil, err
	}
	rate, err := s.EditRate()
	if err != nil {
		return nil, err
	}
	doc := Document{
		"slot_id":   int64(id),
		"name":      s.Name(),
		"edit_rate": rate.String(),
	}
	if track, ok := s.PhysicalTrackNumber(); ok {
		doc["track"] = int64(track)
	}
	if origin, err := s.Origin(); err == nil {
		doc["origin"] = origin
	}
	length, err := s.Length()
	if err != nil {
		return nil, err
	}
	doc["length"] = lengthValue(length)
	seg, err := s.Segment()
	if err != nil {
		return nil, err
	}
	sd, err := ObjectTree(seg.Object())
	if err != nil {
		return nil, err
	}
	doc["segment"] = sd
	return doc, nil
}

func lengthValue(l timeline.Length) any {
	if l.Indeterminate {
		return "indeterminate"
	}
	return l.Units
}

// ObjectTree renders obj and everything it owns.
func ObjectTree(obj *object.Object) (Document, error) {
	if obj.Opaque() {
		return Document{
			"class_id": obj.ClassID().String(),
			"opaque":   true,
			"records":  recordsValue(obj.UnknownRecords()),
		}, nil
	}
	dict := obj.Dictionary()
	props := Document{}
	for _, name := range obj.Properties() {
		def, err := dict.LookupProperty(obj.Class(), name)
		if err != nil {
			return nil, err
		}
		switch def.Type.Kind {
		case codec.TagStrongRef:
			child, err := obj.Child(name)
			if err != nil {
				return nil, err
			}
			cd, err := ObjectTree(child)
			if err != nil {
				return nil, err
			}
			props[name] = cd
		case codec.TagStrongRefVector:
			children, err := obj.Children(name)
			if err != nil {
				return nil, err
			}
			list := make([]any, 0, len(children))
			for _, child := range children {
				cd, err := ObjectTree(child)
				if err != nil {
					return nil, err
				}
				list = append(list, cd)
			}
			props[name] = list
		default:
			v, err := obj.Get(name)
			if err != nil {
				return nil, err
			}
			props[name] = propertyValue(def, v)
		}
	}
	doc := Document{
		"class":      obj.ClassName(),
		"properties": props,
	}
	if unknown := obj.UnknownRecords(); len(unknown) > 0 {
		doc["unknown"] = recordsValue(unknown)
	}
	return doc, nil
}

func recordsValue(recs []codec.Record) []any {
	out := make([]any, 0, len(recs))
	for _, r := range recs {
		out = append(out, Document{
			"pid":  int64(r.PID),
			"tag":  r.Tag.String(),
			"data": hex.EncodeToString(r.Data),
		})
	}
	return out
}

// propertyValue prefers symbolic names for enumerations and well-known
// data definitions.
func propertyValue(def *dictionary.PropertyDef, v codec.Value) any {
	if len(def.Type.Enum) > 0 {
		if n, ok := codec.AsInt64(v); ok {
			if name, ok := def.Type.EnumName(n); ok {
				return name
			}
		}
	}
	if ref, ok := v.(codec.WeakRef); ok {
		if name, ok := dictionary.DataDefNames[codec.AUID(ref)]; ok {
			return name
		}
	}
	return scalar(v)
}

func scalar(v codec.Value) any {
	switch x := v.(type) {
	case codec.Int8:
		return int64(x)
	case codec.UInt8:
		return int64(x)
	case codec.Int16:
		return int64(x)
	case codec.UInt16:
		return int64(x)
	case codec.Int32:
		return int64(x)
	case codec.UInt32:
		return int64(x)
	case codec.Int64:
		return int64(x)
	case codec.UInt64:
		if uint64(x) > math.MaxInt64 {
			return strconv.FormatUint(uint64(x), 10)
		}
		return int64(x)
	case codec.Boolean:
		return bool(x)
	case codec.String:
		return string(x)
	case codec.Bytes:
		return []byte(x)
	case codec.Rational:
		return x.String()
	case codec.Timestamp:
		return x.UTC()
	case codec.AUID:
		return x.String()
	case codec.WeakRef:
		return codec.AUID(x).String()
	case codec.MobID:
		return x.String()
	case codec.Array:
		out := make([]any, 0, len(x.Items))
		for _, item := range x.Items {
			out = append(out, scalar(item))
		}
		return out
	case codec.Opaque:
		return Document{"tag": int64(x.Raw), "data": hex.EncodeToString(x.Data)}
	default:
		return nil
	}
}
