package aaf_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"splice/internal/aaf"
	"splice/internal/codec"
	"splice/internal/dictionary"
	"splice/internal/faults"
	"splice/internal/testsupport"
	"splice/internal/timeline"
)

var rate25 = codec.Rational{Num: 25, Den: 1}

const wipeSchema = `
[[class]]
name = "VendorWipe"
id = "5f1c0a8e-2d1b-4c55-9a0e-7d2f3c9b1a01"
parent = "Segment"
concrete = true

  [[class.property]]
  name = "Pattern"
  pid = 0xff20
  type = "UInt16"
`

func mustSave(t *testing.T, f *aaf.File) aaf.SaveStats {
	t.Helper()
	stats, err := f.Save(context.Background())
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return stats
}

func mustClose(t *testing.T, f *aaf.File) {
	t.Helper()
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

// addEdgeCodeComposition registers a composition with one edgecode slot
// stamped "BOB" and ten units long.
func addEdgeCodeComposition(t *testing.T, f *aaf.File) *timeline.Mob {
	t.Helper()
	comp, err := f.Create.CompositionMob("reel 1")
	if err != nil {
		t.Fatalf("CompositionMob failed: %v", err)
	}
	ec, err := f.Create.EdgeCode("BOB")
	if err != nil {
		t.Fatalf("EdgeCode failed: %v", err)
	}
	if err := ec.SetLength(10); err != nil {
		t.Fatalf("SetLength failed: %v", err)
	}
	if _, err := comp.AddTimelineSlot(codec.Rational{Num: 0, Den: 1}, ec, 1, "edgecode", 0); err != nil {
		t.Fatalf("AddTimelineSlot failed: %v", err)
	}
	if err := f.Storage().AddMob(comp); err != nil {
		t.Fatalf("AddMob failed: %v", err)
	}
	return comp
}

func TestEdgeCodeRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	f := testsupport.MustCreate(t, cfg, "edgecode.splc")
	path := f.Path()
	addEdgeCodeComposition(t, f)
	mustSave(t, f)
	mustClose(t, f)

	r := testsupport.MustOpen(t, cfg, path, aaf.ModeRead)
	comps, err := r.Storage().CompositionMobs()
	if err != nil {
		t.Fatalf("CompositionMobs failed: %v", err)
	}
	if len(comps) != 1 {
		t.Fatalf("expected 1 composition, got %d", len(comps))
	}
	slots, err := comps[0].Slots()
	if err != nil {
		t.Fatalf("Slots failed: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	slot := slots[0]
	if slot.Name() != "edgecode" {
		t.Fatalf("slot name = %q", slot.Name())
	}
	if track, ok := slot.PhysicalTrackNumber(); !ok || track != 0 {
		t.Fatalf("track = %d, %v", track, ok)
	}
	seg, err := slot.Segment()
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	ec, ok := seg.(*timeline.EdgeCode)
	if !ok {
		t.Fatalf("expected *EdgeCode, got %T", seg)
	}
	header, err := ec.Header()
	if err != nil || header != "BOB" {
		t.Fatalf("header = %q, %v", header, err)
	}
	length, err := ec.Length()
	if err != nil || length != timeline.Units(10) {
		t.Fatalf("length = %v, %v", length, err)
	}
}

func TestDuplicateSlotID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	f := testsupport.MustCreate(t, cfg, "dup.splc")
	comp := addEdgeCodeComposition(t, f)

	fill, err := f.Create.Filler(dictionary.DataDefPicture, 5)
	if err != nil {
		t.Fatalf("Filler failed: %v", err)
	}
	_, err = comp.AddTimelineSlot(rate25, fill, 1, "V1", 1)
	if !errors.Is(err, faults.ErrDuplicateSlotID) {
		t.Fatalf("expected ErrDuplicateSlotID, got %v", err)
	}
	if comp.SlotCount() != 1 {
		t.Fatalf("slot count changed to %d", comp.SlotCount())
	}
}

func TestOpenRejectsNonContainer(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := testsupport.FilePath(cfg, "notes.txt")
	testsupport.WriteFile(t, path, 4096)

	_, err := aaf.Open(path, aaf.ModeRead)
	if !errors.Is(err, faults.ErrNotAContainer) {
		t.Fatalf("expected ErrNotAContainer, got %v", err)
	}
	if faults.Category(err) != "container" {
		t.Fatalf("category = %q", faults.Category(err))
	}
}

func TestSourceClipResolvesAfterReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	f := testsupport.MustCreate(t, cfg, "clips.splc")
	path := f.Path()

	master, _ := f.Create.MasterMob("camera A")
	fill, _ := f.Create.Filler(dictionary.DataDefPicture, 100)
	if _, err := master.AddTimelineSlot(rate25, fill, 1, "V1", 1); err != nil {
		t.Fatalf("AddTimelineSlot failed: %v", err)
	}
	comp, _ := f.Create.CompositionMob("cut")
	seq, _ := f.Create.Sequence(dictionary.DataDefPicture)
	clip, err := f.Create.SourceClip(dictionary.DataDefPicture, 40,
		timeline.SourceRef{MobID: master.MustID(), SlotID: 1, StartTime: 10})
	if err != nil {
		t.Fatalf("SourceClip failed: %v", err)
	}
	if err := seq.Append(clip); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := comp.AddTimelineSlot(rate25, seq, 1, "V1", 1); err != nil {
		t.Fatalf("AddTimelineSlot failed: %v", err)
	}
	for _, m := range []*timeline.Mob{master, comp} {
		if err := f.Storage().AddMob(m); err != nil {
			t.Fatalf("AddMob failed: %v", err)
		}
	}
	mustSave(t, f)
	mustClose(t, f)

	r := testsupport.MustOpen(t, cfg, path, aaf.ModeRead)
	comps, err := r.Storage().CompositionMobs()
	if err != nil || len(comps) != 1 {
		t.Fatalf("CompositionMobs = %d, %v", len(comps), err)
	}
	slot, err := comps[0].SlotByID(1)
	if err != nil {
		t.Fatalf("SlotByID failed: %v", err)
	}
	seg, _ := slot.Segment()
	parts, err := seg.(*timeline.Sequence).Components()
	if err != nil || len(parts) != 1 {
		t.Fatalf("Components = %d, %v", len(parts), err)
	}
	loaded := parts[0].(*timeline.SourceClip)
	target, err := loaded.ResolveSlot(r.Storage())
	if err != nil {
		t.Fatalf("ResolveSlot failed: %v", err)
	}
	if target.Name() != "V1" {
		t.Fatalf("resolved slot name = %q", target.Name())
	}
	mob, err := loaded.ResolveMob(r.Storage())
	if err != nil || mob.Name() != "camera A" {
		t.Fatalf("ResolveMob = %v, %v", mob, err)
	}
}

func TestResaveWithoutChangesKeepsGeneration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	f := testsupport.MustCreate(t, cfg, "idem.splc")
	path := f.Path()
	addEdgeCodeComposition(t, f)
	mustSave(t, f)
	mustClose(t, f)

	u := testsupport.MustOpen(t, cfg, path, aaf.ModeUpdate)
	before := u.Generation()
	stats := mustSave(t, u)
	if stats.Written != 0 || stats.Removed != 0 {
		t.Fatalf("expected empty save, got %+v", stats)
	}
	if u.Generation() != before {
		t.Fatalf("generation moved from %d to %d", before, u.Generation())
	}
}

func TestCancelledSaveKeepsPreviousCommit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	f := testsupport.MustCreate(t, cfg, "abort.splc")
	path := f.Path()
	addEdgeCodeComposition(t, f)
	mustSave(t, f)

	master, _ := f.Create.MasterMob("late")
	if err := f.Storage().AddMob(master); err != nil {
		t.Fatalf("AddMob failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Save(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	mustClose(t, f)

	r := testsupport.MustOpen(t, cfg, path, aaf.ModeRead)
	if n := r.Storage().CountMobs(); n != 1 {
		t.Fatalf("expected 1 mob after cancelled save, got %d", n)
	}
}

func TestDuplicateMobRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	f := testsupport.MustCreate(t, cfg, "dupmob.splc")
	first := addEdgeCodeComposition(t, f)

	second, _ := f.Create.MasterMob("clone")
	if err := second.SetID(first.MustID()); err != nil {
		t.Fatalf("SetID failed: %v", err)
	}
	if err := f.Storage().AddMob(second); !errors.Is(err, faults.ErrDuplicateMob) {
		t.Fatalf("expected ErrDuplicateMob, got %v", err)
	}
}

func TestExtensionFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithExtensionTOML("wipe.toml", wipeSchema))
	f := testsupport.MustCreate(t, cfg, "ext.splc")
	path := f.Path()

	wipe, err := f.Create.Object("VendorWipe")
	if err != nil {
		t.Fatalf("Object failed: %v", err)
	}
	_ = wipe.Set(dictionary.PropDataDefinition, codec.WeakRef(dictionary.DataDefPicture))
	_ = wipe.Set(dictionary.PropLength, codec.Int64(12))
	if err := wipe.Set("Pattern", codec.UInt16(3)); err != nil {
		t.Fatalf("Set Pattern failed: %v", err)
	}
	seg, err := timeline.WrapSegment(wipe)
	if err != nil {
		t.Fatalf("WrapSegment failed: %v", err)
	}
	comp, _ := f.Create.CompositionMob("fx")
	if _, err := comp.AddTimelineSlot(rate25, seg, 1, "FX", 1); err != nil {
		t.Fatalf("AddTimelineSlot failed: %v", err)
	}
	if err := f.Storage().AddMob(comp); err != nil {
		t.Fatalf("AddMob failed: %v", err)
	}
	mustSave(t, f)
	mustClose(t, f)

	// Open without the extension file: the schema comes from the container.
	r, err := aaf.Open(path, aaf.ModeRead)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()
	if _, err := r.Dictionary().ResolveName("VendorWipe"); err != nil {
		t.Fatalf("ResolveName failed: %v", err)
	}
	m, err := r.Storage().LookupMob(comp.MustID())
	if err != nil {
		t.Fatalf("LookupMob failed: %v", err)
	}
	slot, _ := m.SlotByID(1)
	got, err := slot.Segment()
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	v, err := got.Object().Get("Pattern")
	if err != nil || v != codec.UInt16(3) {
		t.Fatalf("Pattern = %v, %v", v, err)
	}
}

func TestBadExtensionFileFailsOptions(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithExtensionTOML("bad.toml", "[[class]]\nname = \"\"\n"))
	if _, err := aaf.OptionsFromConfig(cfg); !errors.Is(err, faults.ErrSchema) {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestSaveAsWritesCompactedCopy(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBlobThreshold(16))
	f := testsupport.MustCreate(t, cfg, "orig.splc")
	orig := f.Path()
	addEdgeCodeComposition(t, f)
	mustSave(t, f)

	master, _ := f.Create.MasterMob("a master mob whose name is longer than sixteen bytes")
	if err := f.Storage().AddMob(master); err != nil {
		t.Fatalf("AddMob failed: %v", err)
	}
	dst := filepath.Join(filepath.Dir(orig), "copy.splc")
	if _, err := f.SaveAs(context.Background(), dst); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}
	if f.Path() != dst || f.Mode() != aaf.ModeUpdate {
		t.Fatalf("file now at %s in %s mode", f.Path(), f.Mode())
	}
	mustClose(t, f)

	o := testsupport.MustOpen(t, cfg, orig, aaf.ModeRead)
	if n := o.Storage().CountMobs(); n != 1 {
		t.Fatalf("original has %d mobs, want 1", n)
	}
	c := testsupport.MustOpen(t, cfg, dst, aaf.ModeRead)
	masters, err := c.Storage().MasterMobs()
	if err != nil || len(masters) != 1 {
		t.Fatalf("MasterMobs = %d, %v", len(masters), err)
	}
	if masters[0].Name() != "a master mob whose name is longer than sixteen bytes" {
		t.Fatalf("master name = %q", masters[0].Name())
	}
	if n := c.Storage().CountMobs(); n != 2 {
		t.Fatalf("copy has %d mobs, want 2", n)
	}
}

func TestBigEndianFile(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithByteOrder("big"))
	f := testsupport.MustCreate(t, cfg, "be.splc")
	path := f.Path()
	addEdgeCodeComposition(t, f)
	mustSave(t, f)
	mustClose(t, f)

	r, err := aaf.Open(path, aaf.ModeRead)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()
	mobs, err := r.Storage().Mobs()
	if err != nil || len(mobs) != 1 {
		t.Fatalf("Mobs = %d, %v", len(mobs), err)
	}
	if mobs[0].Name() != "reel 1" {
		t.Fatalf("name = %q", mobs[0].Name())
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	f := testsupport.MustCreate(t, cfg, "close.splc")
	mustClose(t, f)
	mustClose(t, f)
	if _, err := f.Save(context.Background()); !errors.Is(err, faults.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := os.Stat(f.Path()); err != nil {
		t.Fatalf("file missing after close: %v", err)
	}
}

func TestMobIteratorRestarts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	f := testsupport.MustCreate(t, cfg, "iter.splc")
	addEdgeCodeComposition(t, f)
	master, _ := f.Create.MasterMob("m")
	_ = f.Storage().AddMob(master)

	count := func(kind timeline.Kind) int {
		n := 0
		for m, err := range f.Storage().MobIterator(kind) {
			if err != nil {
				t.Fatalf("iterate failed: %v", err)
			}
			if m == nil {
				t.Fatal("nil mob")
			}
			n++
		}
		return n
	}
	for range 2 {
		if got := count(timeline.KindAny); got != 2 {
			t.Fatalf("any = %d", got)
		}
		if got := count(timeline.KindMaster); got != 1 {
			t.Fatalf("master = %d", got)
		}
		if got := count(timeline.KindSource); got != 0 {
			t.Fatalf("source = %d", got)
		}
	}
}
