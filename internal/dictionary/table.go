package dictionary

import (
	"encoding/binary"
	"fmt"
	"slices"

	"splice/internal/codec"
	"splice/internal/faults"
)

// The extension table is stored as meta-objects in the same record framing
// as ordinary objects, so it reuses the value codec end to end.
var (
	metaDictionaryID = codec.MustParseAUID("0d010101-0225-0000-060e-2b3402060101")
	metaClassID      = codec.MustParseAUID("0d010101-0201-0000-060e-2b3402060101")
	metaPropertyID   = codec.MustParseAUID("0d010101-0202-0000-060e-2b3402060101")
)

const extensionTableVersion = 1

const (
	metaPIDVersion uint16 = iota + 1
	metaPIDClasses
)

const (
	classPIDID uint16 = iota + 1
	classPIDName
	classPIDParent
	classPIDConcrete
	classPIDProperties
)

const (
	propPIDID uint16 = iota + 1
	propPIDName
	propPIDLocal
	propPIDKind
	propPIDElem
	propPIDTarget
	propPIDOptional
	propPIDUnique
	propPIDEnumNames
	propPIDEnumValues
)

// EncodeExtensions serializes the dictionary's extensions for embedding in
// a container. An empty table is still a valid table.
func (d *Dictionary) EncodeExtensions(order binary.ByteOrder) ([]byte, error) {
	return EncodeTable(d.Extensions(), order)
}

// EncodeTable serializes classes as an extension table.
func EncodeTable(classes []*ClassDef, order binary.ByteOrder) ([]byte, error) {
	items := make([]codec.Value, 0, len(classes))
	for _, c := range classes {
		blob, err := encodeClass(c, order)
		if err != nil {
			return nil, err
		}
		items = append(items, codec.Bytes(blob))
	}
	recs, err := records(order,
		metaPIDVersion, codec.UInt16(extensionTableVersion),
		metaPIDClasses, codec.Array{Elem: codec.TagBytes, Items: items},
	)
	if err != nil {
		return nil, err
	}
	return codec.EncodeObject(metaDictionaryID, recs, order)
}

// DecodeTable parses an extension table written by EncodeTable. Record
// identifiers it does not know are skipped.
func DecodeTable(data []byte, order binary.ByteOrder) ([]*ClassDef, error) {
	fields, err := decodeMeta(data, metaDictionaryID, order)
	if err != nil {
		return nil, fmt.Errorf("extension table: %w", err)
	}
	if v, ok := fields[metaPIDVersion].(codec.UInt16); !ok || v > extensionTableVersion {
		return nil, faults.Wrap(faults.ErrMalformedValue, "dictionary", "decode table",
			fmt.Sprintf("unsupported table version %v", fields[metaPIDVersion]), nil)
	}
	arr, _ := fields[metaPIDClasses].(codec.Array)
	out := make([]*ClassDef, 0, len(arr.Items))
	for i, item := range arr.Items {
		blob, ok := item.(codec.Bytes)
		if !ok {
			return nil, faults.Wrap(faults.ErrMalformedValue, "dictionary", "decode table",
				fmt.Sprintf("class %d is %s", i, item.Tag()), nil)
		}
		c, err := decodeClass(blob, order)
		if err != nil {
			return nil, fmt.Errorf("extension table class %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func encodeClass(c *ClassDef, order binary.ByteOrder) ([]byte, error) {
	props := make([]codec.Value, 0, len(c.Properties))
	for _, p := range c.Properties {
		blob, err := encodeProperty(p, order)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", c.Name, err)
		}
		props = append(props, codec.Bytes(blob))
	}
	recs, err := records(order,
		classPIDID, c.ID,
		classPIDName, codec.String(c.Name),
		classPIDParent, c.Parent,
		classPIDConcrete, codec.Boolean(c.Concrete),
		classPIDProperties, codec.Array{Elem: codec.TagBytes, Items: props},
	)
	if err != nil {
		return nil, fmt.Errorf("class %s: %w", c.Name, err)
	}
	return codec.EncodeObject(metaClassID, recs, order)
}

func decodeClass(data []byte, order binary.ByteOrder) (*ClassDef, error) {
	fields, err := decodeMeta(data, metaClassID, order)
	if err != nil {
		return nil, err
	}
	c := &ClassDef{Extension: true}
	c.ID, _ = fields[classPIDID].(codec.AUID)
	c.Parent, _ = fields[classPIDParent].(codec.AUID)
	name, _ := fields[classPIDName].(codec.String)
	c.Name = string(name)
	concrete, _ := fields[classPIDConcrete].(codec.Boolean)
	c.Concrete = bool(concrete)
	if c.ID.IsNil() || c.Name == "" {
		return nil, faults.Wrap(faults.ErrMalformedValue, "dictionary", "decode class", "missing identity", nil)
	}
	arr, _ := fields[classPIDProperties].(codec.Array)
	for i, item := range arr.Items {
		blob, ok := item.(codec.Bytes)
		if !ok {
			return nil, faults.Wrap(faults.ErrMalformedValue, "dictionary", "decode class",
				fmt.Sprintf("%s property %d is %s", c.Name, i, item.Tag()), nil)
		}
		p, err := decodeProperty(blob, order)
		if err != nil {
			return nil, fmt.Errorf("%s property %d: %w", c.Name, i, err)
		}
		c.Properties = append(c.Properties, p)
	}
	return c, nil
}

func encodeProperty(p *PropertyDef, order binary.ByteOrder) ([]byte, error) {
	names := make([]string, 0, len(p.Type.Enum))
	for name := range p.Type.Enum {
		names = append(names, name)
	}
	slices.Sort(names)
	enumNames := codec.Array{Elem: codec.TagString}
	enumValues := codec.Array{Elem: codec.TagInt64}
	for _, name := range names {
		enumNames.Items = append(enumNames.Items, codec.String(name))
		enumValues.Items = append(enumValues.Items, codec.Int64(p.Type.Enum[name]))
	}
	recs, err := records(order,
		propPIDID, p.ID,
		propPIDName, codec.String(p.Name),
		propPIDLocal, codec.UInt16(p.PID),
		propPIDKind, codec.UInt8(p.Type.Kind),
		propPIDElem, codec.UInt8(p.Type.Elem),
		propPIDTarget, codec.String(p.Type.Target),
		propPIDOptional, codec.Boolean(p.Optional),
		propPIDUnique, codec.Boolean(p.UniqueID),
		propPIDEnumNames, enumNames,
		propPIDEnumValues, enumValues,
	)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", p.Name, err)
	}
	return codec.EncodeObject(metaPropertyID, recs, order)
}

func decodeProperty(data []byte, order binary.ByteOrder) (*PropertyDef, error) {
	fields, err := decodeMeta(data, metaPropertyID, order)
	if err != nil {
		return nil, err
	}
	p := &PropertyDef{Extension: true}
	p.ID, _ = fields[propPIDID].(codec.AUID)
	name, _ := fields[propPIDName].(codec.String)
	p.Name = string(name)
	pid, ok := fields[propPIDLocal].(codec.UInt16)
	if !ok || p.Name == "" {
		return nil, faults.Wrap(faults.ErrMalformedValue, "dictionary", "decode property", "missing identity", nil)
	}
	p.PID = uint16(pid)
	kind, _ := fields[propPIDKind].(codec.UInt8)
	elem, _ := fields[propPIDElem].(codec.UInt8)
	target, _ := fields[propPIDTarget].(codec.String)
	p.Type = TypeDef{Kind: codec.Tag(kind), Elem: codec.Tag(elem), Target: string(target)}
	optional, _ := fields[propPIDOptional].(codec.Boolean)
	unique, _ := fields[propPIDUnique].(codec.Boolean)
	p.Optional, p.UniqueID = bool(optional), bool(unique)

	enumNames, _ := fields[propPIDEnumNames].(codec.Array)
	enumValues, _ := fields[propPIDEnumValues].(codec.Array)
	if len(enumNames.Items) != len(enumValues.Items) {
		return nil, faults.Wrap(faults.ErrMalformedValue, "dictionary", "decode property",
			fmt.Sprintf("%s enum has %d names and %d values", p.Name, len(enumNames.Items), len(enumValues.Items)), nil)
	}
	if len(enumNames.Items) > 0 {
		p.Type.Enum = make(map[string]int64, len(enumNames.Items))
		for i := range enumNames.Items {
			n, _ := enumNames.Items[i].(codec.String)
			v, _ := enumValues.Items[i].(codec.Int64)
			p.Type.Enum[string(n)] = int64(v)
		}
	}
	return p, nil
}

// records builds records from alternating pid, value pairs.
func records(order binary.ByteOrder, pairs ...any) ([]codec.Record, error) {
	out := make([]codec.Record, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		rec, err := codec.NewRecord(pairs[i].(uint16), pairs[i+1].(codec.Value), order)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func decodeMeta(data []byte, want codec.AUID, order binary.ByteOrder) (map[uint16]codec.Value, error) {
	class, recs, err := codec.DecodeObject(data, order)
	if err != nil {
		return nil, err
	}
	if class != want {
		return nil, faults.Wrap(faults.ErrMalformedValue, "dictionary", "decode",
			fmt.Sprintf("meta class %s, want %s", class, want), nil)
	}
	fields := make(map[uint16]codec.Value, len(recs))
	for _, rec := range recs {
		v, err := rec.Value(order)
		if err != nil {
			return nil, err
		}
		fields[rec.PID] = v
	}
	return fields, nil
}
