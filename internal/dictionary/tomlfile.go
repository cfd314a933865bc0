package dictionary

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"splice/internal/codec"
	"splice/internal/faults"
)

// extensionFile is the TOML shape of a schema extension:
//
//	[[class]]
//	name = "VendorClip"
//	id = "b4c1b0e2-..."
//	parent = "SourceClip"
//	concrete = true
//
//	  [[class.property]]
//	  name = "VendorTag"
//	  pid = 0xff01
//	  type = "String"
type extensionFile struct {
	Class []extensionClass `toml:"class"`
}

type extensionClass struct {
	Name     string              `toml:"name"`
	ID       string              `toml:"id"`
	Parent   string              `toml:"parent"`
	Concrete bool                `toml:"concrete"`
	Property []extensionProperty `toml:"property"`
}

type extensionProperty struct {
	Name     string           `toml:"name"`
	ID       string           `toml:"id"`
	PID      int              `toml:"pid"`
	Type     string           `toml:"type"`
	Elem     string           `toml:"elem"`
	Target   string           `toml:"target"`
	Optional bool             `toml:"optional"`
	Unique   bool             `toml:"unique"`
	Enum     map[string]int64 `toml:"enum"`
}

// LoadExtensionFile reads a TOML schema extension from path.
func LoadExtensionFile(path string) ([]*ClassDef, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema extension: %w", err)
	}
	defer file.Close()
	classes, err := ParseExtensions(file)
	if err != nil {
		return nil, fmt.Errorf("schema extension %s: %w", path, err)
	}
	return classes, nil
}

// ParseExtensions decodes TOML extension definitions from r. Parent names
// are left for Merge to resolve so a file may extend its own classes.
func ParseExtensions(r io.Reader) ([]*ClassDef, error) {
	var doc extensionFile
	decoder := toml.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&doc); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, faults.Wrap(faults.ErrIncompatibleExtension, "dictionary", "parse extension", strict.String(), nil)
		}
		return nil, fmt.Errorf("parse extension: %w", err)
	}

	out := make([]*ClassDef, 0, len(doc.Class))
	for _, ec := range doc.Class {
		c, err := ec.toClassDef()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (ec extensionClass) toClassDef() (*ClassDef, error) {
	name := strings.TrimSpace(ec.Name)
	if name == "" {
		return nil, faults.Wrap(faults.ErrIncompatibleExtension, "dictionary", "parse extension", "class without name", nil)
	}
	c := &ClassDef{Name: name, Concrete: ec.Concrete, Extension: true}
	if ec.ID == "" {
		c.ID = PropertyAUID("class", name)
	} else {
		id, err := codec.ParseAUID(ec.ID)
		if err != nil {
			return nil, faults.Wrap(faults.ErrIncompatibleExtension, "dictionary", "parse extension", name, err)
		}
		c.ID = id
	}
	if parent := strings.TrimSpace(ec.Parent); parent != "" {
		if id, err := codec.ParseAUID(parent); err == nil {
			c.Parent = id
		} else {
			c.ParentName = parent
		}
	}
	for _, ep := range ec.Property {
		p, err := ep.toPropertyDef(name)
		if err != nil {
			return nil, err
		}
		c.Properties = append(c.Properties, p)
	}
	return c, nil
}

func (ep extensionProperty) toPropertyDef(className string) (*PropertyDef, error) {
	fail := func(msg string, err error) error {
		return faults.Wrap(faults.ErrIncompatibleExtension, "dictionary", "parse extension",
			fmt.Sprintf("%s.%s: %s", className, ep.Name, msg), err)
	}
	if strings.TrimSpace(ep.Name) == "" {
		return nil, fail("property without name", nil)
	}
	if ep.PID <= 0 || ep.PID > 0xffff {
		return nil, fail(fmt.Sprintf("pid %d out of range", ep.PID), nil)
	}
	kind, ok := codec.ParseTag(ep.Type)
	if !ok {
		return nil, fail(fmt.Sprintf("unknown type %q", ep.Type), nil)
	}
	p := &PropertyDef{
		Name:      ep.Name,
		PID:       uint16(ep.PID),
		Type:      TypeDef{Kind: kind, Target: ep.Target, Enum: ep.Enum},
		Optional:  ep.Optional,
		UniqueID:  ep.Unique,
		Extension: true,
	}
	if ep.Elem != "" {
		elem, ok := codec.ParseTag(ep.Elem)
		if !ok {
			return nil, fail(fmt.Sprintf("unknown element type %q", ep.Elem), nil)
		}
		p.Type.Elem = elem
	}
	if kind == codec.TagArray && p.Type.Elem == codec.TagInvalid {
		return nil, fail("array without element type", nil)
	}
	if len(p.Type.Enum) > 0 && !codec.IsInteger(kind) {
		return nil, fail("enum on non-integer type", nil)
	}
	if ep.ID == "" {
		p.ID = PropertyAUID(className, ep.Name)
	} else {
		id, err := codec.ParseAUID(ep.ID)
		if err != nil {
			return nil, fail("bad id", err)
		}
		p.ID = id
	}
	return p, nil
}
