package dictionary_test

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"splice/internal/codec"
	"splice/internal/dictionary"
	"splice/internal/faults"
)

func TestBaselineHierarchy(t *testing.T) {
	d := dictionary.NewBaseline(nil)

	edge, err := d.ResolveName(dictionary.ClassEdgeCode)
	if err != nil {
		t.Fatalf("ResolveName failed: %v", err)
	}
	if !edge.Concrete {
		t.Fatal("EdgeCode should be concrete")
	}
	for _, ancestor := range []string{"Segment", "Component", "InterchangeObject"} {
		if !d.IsA(edge, ancestor) {
			t.Fatalf("EdgeCode should be a %s", ancestor)
		}
	}
	if d.IsA(edge, dictionary.ClassMob) {
		t.Fatal("EdgeCode is not a Mob")
	}

	props, err := d.PropertiesOf(edge)
	if err != nil {
		t.Fatalf("PropertiesOf failed: %v", err)
	}
	var names []string
	for _, p := range props {
		names = append(names, p.Name)
	}
	got := strings.Join(names, ",")
	want := "Generation,DataDefinition,Length,Start,FilmKind,CodeFormat,Header"
	if got != want {
		t.Fatalf("inherited properties = %s, want %s", got, want)
	}

	byID, err := d.Resolve(edge.ID)
	if err != nil || byID != edge {
		t.Fatalf("Resolve by id returned %v, %v", byID, err)
	}
}

func TestLookupProperty(t *testing.T) {
	d := dictionary.NewBaseline(nil)
	clip, err := d.ResolveName(dictionary.ClassSourceClip)
	if err != nil {
		t.Fatalf("ResolveName failed: %v", err)
	}

	p, err := d.LookupProperty(clip, dictionary.PropLength)
	if err != nil {
		t.Fatalf("LookupProperty failed: %v", err)
	}
	if p.Type.Kind != codec.TagInt64 || p.PID != 0x0202 {
		t.Fatalf("Length = %+v", p)
	}
	if byPID, ok := d.PropertyByPID(clip, 0x1102); !ok || byPID.Name != dictionary.PropSourceMobSlotID {
		t.Fatalf("PropertyByPID(0x1102) = %v, %v", byPID, ok)
	}
	if _, err := d.LookupProperty(clip, "Bogus"); !errors.Is(err, faults.ErrUnknownProperty) {
		t.Fatalf("expected ErrUnknownProperty, got %v", err)
	}
}

func TestRegisterRejectsDuplicatesAndOrphans(t *testing.T) {
	d := dictionary.NewBaseline(nil)
	seg, _ := d.ResolveName(dictionary.ClassSegment)

	dup := &dictionary.ClassDef{Name: "Filler", ID: codec.NewAUID(), Parent: seg.ID, Concrete: true}
	if err := d.Register(dup); !errors.Is(err, faults.ErrDuplicateClass) {
		t.Fatalf("expected ErrDuplicateClass for name, got %v", err)
	}
	dupID := &dictionary.ClassDef{Name: "Other", ID: seg.ID, Parent: seg.ID}
	if err := d.Register(dupID); !errors.Is(err, faults.ErrDuplicateClass) {
		t.Fatalf("expected ErrDuplicateClass for id, got %v", err)
	}
	orphan := &dictionary.ClassDef{Name: "Orphan", ID: codec.NewAUID(), Parent: codec.NewAUID()}
	if err := d.Register(orphan); !errors.Is(err, faults.ErrUnknownClass) {
		t.Fatalf("expected ErrUnknownClass, got %v", err)
	}
	shadow := &dictionary.ClassDef{
		Name: "Shadow", ID: codec.NewAUID(), Parent: seg.ID, Concrete: true,
		Properties: []*dictionary.PropertyDef{{Name: "Length", PID: 0x7001, Type: dictionary.TypeDef{Kind: codec.TagInt64}}},
	}
	if err := d.Register(shadow); !errors.Is(err, faults.ErrDuplicateProperty) {
		t.Fatalf("expected ErrDuplicateProperty, got %v", err)
	}
	if _, err := d.ResolveName("Shadow"); !errors.Is(err, faults.ErrUnknownClass) {
		t.Fatalf("failed registration should not leave the class behind, got %v", err)
	}
}

func TestMergeCycleDetected(t *testing.T) {
	d := dictionary.NewBaseline(nil)
	a := codec.NewAUID()
	b := codec.NewAUID()
	err := d.Merge([]*dictionary.ClassDef{
		{Name: "LoopA", ID: a, Parent: b},
		{Name: "LoopB", ID: b, Parent: a},
	})
	if !errors.Is(err, faults.ErrCyclicInheritance) {
		t.Fatalf("expected ErrCyclicInheritance, got %v", err)
	}
	if _, err := d.ResolveName("LoopA"); err == nil {
		t.Fatal("failed merge should leave the dictionary untouched")
	}
}

func TestMergeOverlayRules(t *testing.T) {
	d := dictionary.NewBaseline(nil)
	clip, _ := d.ResolveName(dictionary.ClassSourceClip)
	seg, _ := d.ResolveName(dictionary.ClassSegment)

	vendor := &dictionary.PropertyDef{Name: "VendorTag", PID: 0xff01, Type: dictionary.TypeDef{Kind: codec.TagString}, Optional: true}
	if err := d.Merge([]*dictionary.ClassDef{{Name: clip.Name, ID: clip.ID, Properties: []*dictionary.PropertyDef{vendor}}}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if _, err := d.LookupProperty(clip, "VendorTag"); err != nil {
		t.Fatalf("merged property not visible through existing class pointer: %v", err)
	}
	if err := d.Merge([]*dictionary.ClassDef{{Name: clip.Name, ID: clip.ID, Properties: []*dictionary.PropertyDef{vendor}}}); err != nil {
		t.Fatalf("re-merging identical extension failed: %v", err)
	}

	retyped := &dictionary.PropertyDef{Name: "VendorTag", PID: 0xff01, Type: dictionary.TypeDef{Kind: codec.TagInt32}}
	err := d.Merge([]*dictionary.ClassDef{{Name: clip.Name, ID: clip.ID, Properties: []*dictionary.PropertyDef{retyped}}})
	if !errors.Is(err, faults.ErrIncompatibleExtension) {
		t.Fatalf("expected ErrIncompatibleExtension for retype, got %v", err)
	}
	err = d.Merge([]*dictionary.ClassDef{{Name: clip.Name, ID: clip.ID, Parent: seg.ID}})
	if !errors.Is(err, faults.ErrIncompatibleExtension) {
		t.Fatalf("expected ErrIncompatibleExtension for re-parent, got %v", err)
	}

	locator, _ := d.ResolveName(dictionary.ClassLocator)
	if err := d.Merge([]*dictionary.ClassDef{{Name: locator.Name, ID: locator.ID, Concrete: true}}); err != nil {
		t.Fatalf("abstract to concrete overlay failed: %v", err)
	}
	if !locator.Concrete {
		t.Fatal("overlay should make Locator concrete")
	}
}

func TestExtensionTableRoundTrip(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		src := dictionary.NewBaseline(nil)
		clip, _ := src.ResolveName(dictionary.ClassSourceClip)
		ext := []*dictionary.ClassDef{
			{
				Name: "VendorClip", ID: codec.NewAUID(), ParentName: dictionary.ClassSourceClip, Concrete: true,
				Properties: []*dictionary.PropertyDef{{
					Name: "Grade", PID: 0xff10,
					Type: dictionary.TypeDef{Kind: codec.TagUInt8, Enum: map[string]int64{"Rough": 0, "Final": 1}},
				}},
			},
			{
				Name: clip.Name, ID: clip.ID,
				Properties: []*dictionary.PropertyDef{{
					Name: "Keywords", PID: 0xff11, Optional: true,
					Type: dictionary.TypeDef{Kind: codec.TagArray, Elem: codec.TagString},
				}},
			},
		}
		if err := src.Merge(ext); err != nil {
			t.Fatalf("Merge failed: %v", err)
		}
		table, err := src.EncodeExtensions(order)
		if err != nil {
			t.Fatalf("EncodeExtensions failed: %v", err)
		}
		decoded, err := dictionary.DecodeTable(table, order)
		if err != nil {
			t.Fatalf("DecodeTable failed: %v", err)
		}
		if len(decoded) != 2 {
			t.Fatalf("decoded %d classes, want 2", len(decoded))
		}

		dst := dictionary.NewBaseline(nil)
		if err := dst.Merge(decoded); err != nil {
			t.Fatalf("Merge decoded failed: %v", err)
		}
		vendor, err := dst.ResolveName("VendorClip")
		if err != nil {
			t.Fatalf("VendorClip missing after round trip: %v", err)
		}
		if !dst.IsA(vendor, dictionary.ClassSourceClip) {
			t.Fatal("VendorClip lost its parent")
		}
		grade, err := dst.LookupProperty(vendor, "Grade")
		if err != nil {
			t.Fatalf("Grade missing: %v", err)
		}
		if grade.Type.Enum["Final"] != 1 || !grade.Type.Accepts(codec.UInt8(1)) || grade.Type.Accepts(codec.UInt8(7)) {
			t.Fatalf("Grade enum not preserved: %+v", grade.Type)
		}
		dstClip, _ := dst.ResolveName(dictionary.ClassSourceClip)
		kw, err := dst.LookupProperty(dstClip, "Keywords")
		if err != nil || kw.Type.Elem != codec.TagString {
			t.Fatalf("Keywords overlay not preserved: %+v, %v", kw, err)
		}
		if len(dst.Extensions()) != 2 {
			t.Fatalf("Extensions() after round trip = %d, want 2", len(dst.Extensions()))
		}
	}
}

func TestBaselineHasNoExtensions(t *testing.T) {
	d := dictionary.NewBaseline(nil)
	if ext := d.Extensions(); len(ext) != 0 {
		t.Fatalf("baseline reported %d extensions", len(ext))
	}
	table, err := d.EncodeExtensions(binary.LittleEndian)
	if err != nil {
		t.Fatalf("EncodeExtensions failed: %v", err)
	}
	decoded, err := dictionary.DecodeTable(table, binary.LittleEndian)
	if err != nil || len(decoded) != 0 {
		t.Fatalf("empty table decoded to %v, %v", decoded, err)
	}
}

func TestDecodeTableRejectsGarbage(t *testing.T) {
	if _, err := dictionary.DecodeTable([]byte{1, 2, 3}, binary.LittleEndian); !errors.Is(err, faults.ErrMalformedValue) {
		t.Fatalf("expected ErrMalformedValue, got %v", err)
	}
}

func TestLoadExtensionFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vendor.toml")
	content := `
[[class]]
name = "VendorLocator"
parent = "Locator"
concrete = true

  [[class.property]]
  name = "Bucket"
  pid = 0xff20
  type = "String"

  [[class.property]]
  name = "Region"
  pid = 0xff21
  type = "String"
  optional = true

[[class]]
name = "MirroredLocator"
parent = "VendorLocator"
concrete = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write extension: %v", err)
	}
	classes, err := dictionary.LoadExtensionFile(path)
	if err != nil {
		t.Fatalf("LoadExtensionFile failed: %v", err)
	}
	d := dictionary.NewBaseline(nil)
	if err := d.Merge(classes); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	mirrored, err := d.ResolveName("MirroredLocator")
	if err != nil {
		t.Fatalf("ResolveName failed: %v", err)
	}
	if !d.IsA(mirrored, dictionary.ClassLocator) {
		t.Fatal("MirroredLocator should inherit from Locator")
	}
	bucket, err := d.LookupProperty(mirrored, "Bucket")
	if err != nil {
		t.Fatalf("Bucket not inherited: %v", err)
	}
	if bucket.Optional || !bucket.Extension {
		t.Fatalf("Bucket flags = %+v", bucket)
	}
}

func TestParseExtensionsRejectsUnknownKeys(t *testing.T) {
	_, err := dictionary.ParseExtensions(strings.NewReader("[[class]]\nname = \"X\"\ncolour = \"red\"\n"))
	if !errors.Is(err, faults.ErrIncompatibleExtension) {
		t.Fatalf("expected ErrIncompatibleExtension, got %v", err)
	}
	_, err = dictionary.ParseExtensions(strings.NewReader("[[class]]\nname = \"X\"\n[[class.property]]\nname = \"P\"\npid = 1\ntype = \"Float\"\n"))
	if !errors.Is(err, faults.ErrIncompatibleExtension) {
		t.Fatalf("expected ErrIncompatibleExtension for unknown type, got %v", err)
	}
}

func TestLookupDataDef(t *testing.T) {
	id, ok := dictionary.LookupDataDef("Edgecode")
	if !ok || id != dictionary.DataDefEdgecode {
		t.Fatalf("LookupDataDef(Edgecode) = %s, %v", id, ok)
	}
	if _, ok := dictionary.LookupDataDef("Smell"); ok {
		t.Fatal("unexpected data definition")
	}
}

func TestTypeAcceptsOpaqueArrays(t *testing.T) {
	raw, err := codec.Decode(codec.TagArray, []byte{40, 1, 0, 0, 0, 0xAA}, binary.LittleEndian)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	future := dictionary.TypeDef{Kind: codec.TagArray, Elem: codec.Tag(40)}
	if !future.Accepts(raw) {
		t.Fatal("array of a future element kind should accept its raw value")
	}
	ints := dictionary.TypeDef{Kind: codec.TagArray, Elem: codec.TagInt32}
	if ints.Accepts(raw) {
		t.Fatal("array of Int32 must not accept an undecodable value")
	}
	if !ints.Accepts(codec.Array{Elem: codec.TagInt32, Items: []codec.Value{codec.Int32(1)}}) {
		t.Fatal("array of Int32 should accept Int32 items")
	}
}
