package export_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"splice/internal/aaf"
	"splice/internal/codec"
	"splice/internal/dictionary"
	"splice/internal/export"
	"splice/internal/testsupport"
	"splice/internal/timeline"
)

var rate25 = codec.Rational{Num: 25, Den: 1}

func buildFile(t *testing.T) *aaf.File {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	f := testsupport.MustCreate(t, cfg, "export.splc")

	desc, _ := f.Create.FileDescriptor(codec.Rational{Num: 48000, Den: 1}, 96000)
	loc, _ := f.Create.NetworkLocator("file:///media/a01.wav")
	if err := desc.AddLocator(loc); err != nil {
		t.Fatalf("AddLocator failed: %v", err)
	}
	src, err := f.Create.SourceMob("tape A01", desc)
	if err != nil {
		t.Fatalf("SourceMob failed: %v", err)
	}

	comp, _ := f.Create.CompositionMob("reel 1")
	ec, _ := f.Create.EdgeCode("BOB")
	_ = ec.SetLength(10)
	if _, err := comp.AddTimelineSlot(codec.Rational{Num: 0, Den: 1}, ec, 1, "edgecode", 0); err != nil {
		t.Fatalf("AddTimelineSlot failed: %v", err)
	}
	seq, _ := f.Create.Sequence(dictionary.DataDefSound)
	clip, _ := f.Create.SourceClip(dictionary.DataDefSound, 40, timeline.SourceRef{MobID: src.MustID(), SlotID: 1})
	fill, _ := f.Create.Filler(dictionary.DataDefSound, 5)
	_ = seq.Append(clip)
	_ = seq.Append(fill)
	if _, err := comp.AddTimelineSlot(rate25, seq, 2, "A1", 1); err != nil {
		t.Fatalf("AddTimelineSlot failed: %v", err)
	}
	for _, m := range []*timeline.Mob{src, comp} {
		if err := f.Storage().AddMob(m); err != nil {
			t.Fatalf("AddMob failed: %v", err)
		}
	}
	if _, err := f.Save(context.Background()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return f
}

type jsonDoc struct {
	FileID    string `json:"file_id"`
	ByteOrder string `json:"byte_order"`
	Mobs      []struct {
		MobID      string         `json:"mob_id"`
		Kind       string         `json:"kind"`
		Name       string         `json:"name"`
		Created    time.Time      `json:"created"`
		Descriptor map[string]any `json:"descriptor"`
		Slots      []struct {
			SlotID   int64  `json:"slot_id"`
			Name     string `json:"name"`
			EditRate string `json:"edit_rate"`
			Length   any    `json:"length"`
			Segment  struct {
				Class      string         `json:"class"`
				Properties map[string]any `json:"properties"`
			} `json:"segment"`
		} `json:"slots"`
	} `json:"mobs"`
}

func TestJSONExport(t *testing.T) {
	f := buildFile(t)
	var buf bytes.Buffer
	if err := export.WriteFile(&buf, f, export.FormatJSON); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	var doc jsonDoc
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if doc.FileID != f.FileID().String() || doc.ByteOrder != "little" {
		t.Fatalf("unexpected header %s/%s", doc.FileID, doc.ByteOrder)
	}
	if len(doc.Mobs) != 2 {
		t.Fatalf("expected 2 mobs, got %d", len(doc.Mobs))
	}
	src, comp := doc.Mobs[0], doc.Mobs[1]
	if src.Kind != "source" || src.Descriptor == nil {
		t.Fatalf("source mob missing descriptor: %+v", src)
	}
	if comp.Kind != "composition" || comp.Name != "reel 1" || comp.Created.IsZero() {
		t.Fatalf("unexpected composition %+v", comp)
	}
	if len(comp.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(comp.Slots))
	}

	edge := comp.Slots[0]
	if edge.Name != "edgecode" || edge.EditRate != "0/1" || edge.Length != float64(10) {
		t.Fatalf("unexpected edgecode slot %+v", edge)
	}
	if edge.Segment.Class != "EdgeCode" {
		t.Fatalf("segment class = %s", edge.Segment.Class)
	}
	props := edge.Segment.Properties
	if props["Header"] != "BOB" || props["FilmKind"] != "FtNull" || props["DataDefinition"] != "Edgecode" {
		t.Fatalf("unexpected edgecode properties %v", props)
	}

	audio := comp.Slots[1]
	if audio.Length != float64(45) || audio.Segment.Class != "Sequence" {
		t.Fatalf("unexpected audio slot %+v", audio)
	}
	parts, ok := audio.Segment.Properties["Components"].([]any)
	if !ok || len(parts) != 2 {
		t.Fatalf("expected 2 components, got %v", audio.Segment.Properties["Components"])
	}
	clip := parts[0].(map[string]any)
	if clip["class"] != "SourceClip" {
		t.Fatalf("first component class = %v", clip["class"])
	}
	clipProps := clip["properties"].(map[string]any)
	if clipProps["SourceID"] != src.MobID {
		t.Fatalf("clip source = %v, want %s", clipProps["SourceID"], src.MobID)
	}
}

type bsonDoc struct {
	FileID string `bson:"file_id"`
	Mobs   []struct {
		Name  string `bson:"name"`
		Slots []struct {
			Length  any `bson:"length"`
			Segment struct {
				Class      string `bson:"class"`
				Properties bson.M `bson:"properties"`
			} `bson:"segment"`
		} `bson:"slots"`
	} `bson:"mobs"`
}

func TestBSONExport(t *testing.T) {
	f := buildFile(t)
	var buf bytes.Buffer
	if err := export.WriteFile(&buf, f, export.FormatBSON); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	var doc bsonDoc
	if err := bson.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decode bson: %v", err)
	}
	if doc.FileID != f.FileID().String() || len(doc.Mobs) != 2 {
		t.Fatalf("unexpected document %+v", doc)
	}
	edge := doc.Mobs[1].Slots[0]
	if edge.Length != int64(10) || edge.Segment.Class != "EdgeCode" {
		t.Fatalf("unexpected edgecode slot %+v", edge)
	}
	if edge.Segment.Properties["Header"] != "BOB" {
		t.Fatalf("header = %v", edge.Segment.Properties["Header"])
	}

	generic, err := export.DecodeBSON(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeBSON failed: %v", err)
	}
	if generic["byte_order"] != "little" {
		t.Fatalf("byte_order = %v", generic["byte_order"])
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]export.Format{"": export.FormatJSON, "JSON": export.FormatJSON, " bson ": export.FormatBSON}
	for in, want := range cases {
		got, err := export.ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := export.ParseFormat("xml"); err == nil {
		t.Fatal("expected error for xml")
	}
}

func TestIndeterminateSlotLength(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	f := testsupport.MustCreate(t, cfg, "open.splc")
	comp, _ := f.Create.CompositionMob("open")
	ec, _ := f.Create.EdgeCode("OPEN")
	if _, err := comp.AddTimelineSlot(rate25, ec, 1, "edgecode", 0); err != nil {
		t.Fatalf("AddTimelineSlot failed: %v", err)
	}
	doc, err := export.MobTree(comp)
	if err != nil {
		t.Fatalf("MobTree failed: %v", err)
	}
	slots := doc["slots"].([]any)
	if got := slots[0].(export.Document)["length"]; got != "indeterminate" {
		t.Fatalf("length = %v", got)
	}
}
