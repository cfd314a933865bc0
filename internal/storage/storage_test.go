package storage_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"splice/internal/codec"
	"splice/internal/container"
	"splice/internal/dictionary"
	"splice/internal/faults"
	"splice/internal/logging"
	"splice/internal/object"
	"splice/internal/storage"
	"splice/internal/timeline"
)

var rate25 = codec.Rational{Num: 25, Den: 1}

func createSession(t *testing.T, dict *dictionary.Dictionary, opts storage.Options) (string, *storage.Session) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.splc")
	c, err := container.Create(path, container.Options{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return path, storage.NewSession(c, dict, opts)
}

func openSession(t *testing.T, path string, mode container.Mode, dict *dictionary.Dictionary, opts storage.Options) *storage.Session {
	t.Helper()
	c, err := container.Open(path, mode, container.Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	s := storage.NewSession(c, dict, opts)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return s
}

func mustSave(t *testing.T, s *storage.Session) storage.SaveStats {
	t.Helper()
	stats, err := s.Save(context.Background())
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return stats
}

func closeSession(t *testing.T, s *storage.Session) {
	t.Helper()
	if err := s.Container().Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

// buildGraph registers a master mob and a composition whose second slot
// clips the master.
func buildGraph(t *testing.T, s *storage.Session) (comp, master *timeline.Mob) {
	t.Helper()
	f := s.Factory()
	master, err := timeline.NewMasterMob(f, "master")
	if err != nil {
		t.Fatalf("NewMasterMob failed: %v", err)
	}
	fill, _ := timeline.NewFiller(f, dictionary.DataDefPicture)
	_ = fill.SetLength(100)
	if _, err := master.AddSlot(rate25, fill, 1, "V1", 1); err != nil {
		t.Fatalf("AddSlot failed: %v", err)
	}

	comp, err = timeline.NewCompositionMob(f, "comp")
	if err != nil {
		t.Fatalf("NewCompositionMob failed: %v", err)
	}
	ec, _ := timeline.NewEdgeCode(f, "BOB")
	_ = ec.SetLength(10)
	if _, err := comp.AddSlot(codec.Rational{Num: 0, Den: 1}, ec, 1, "edgecode", 0); err != nil {
		t.Fatalf("AddSlot edgecode failed: %v", err)
	}
	seq, _ := timeline.NewSequence(f, dictionary.DataDefPicture)
	clip, _ := timeline.NewSourceClip(f, dictionary.DataDefPicture, 50, timeline.SourceRef{MobID: master.MustID(), SlotID: 1})
	if err := seq.Append(clip); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := comp.AddSlot(rate25, seq, 2, "V1", 1); err != nil {
		t.Fatalf("AddSlot sequence failed: %v", err)
	}
	for _, m := range []*timeline.Mob{master, comp} {
		if err := s.AddMob(m.Object()); err != nil {
			t.Fatalf("AddMob failed: %v", err)
		}
	}
	return comp, master
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path, s := createSession(t, dictionary.NewBaseline(nil), storage.Options{})
	comp, master := buildGraph(t, s)
	stats := mustSave(t, s)
	if stats.Written == 0 || stats.Generation < 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	compID := comp.MustID()
	closeSession(t, s)

	r := openSession(t, path, container.ModeRead, dictionary.NewBaseline(nil), storage.Options{})
	if r.MobCount() != 2 {
		t.Fatalf("expected 2 mobs, got %d", r.MobCount())
	}
	comps, err := r.MobsOfClass(dictionary.ClassCompositionMob)
	if err != nil || len(comps) != 1 {
		t.Fatalf("MobsOfClass = %d, %v", len(comps), err)
	}
	got, err := timeline.AsMob(r.Factory(), comps[0])
	if err != nil {
		t.Fatalf("AsMob failed: %v", err)
	}
	if got.MustID() != compID || got.Name() != "comp" {
		t.Fatalf("unexpected mob %s %q", got.MustID(), got.Name())
	}
	slots, err := got.Slots()
	if err != nil || len(slots) != 2 {
		t.Fatalf("Slots = %d, %v", len(slots), err)
	}
	seg, err := slots[0].Segment()
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	ec, ok := seg.(*timeline.EdgeCode)
	if !ok {
		t.Fatalf("expected EdgeCode, got %T", seg)
	}
	if h, _ := ec.Header(); h != "BOB" {
		t.Fatalf("expected header BOB, got %q", h)
	}
	if l, _ := ec.Length(); l != timeline.Units(10) {
		t.Fatalf("expected length 10, got %v", l)
	}
	rate, _ := slots[0].EditRate()
	if rate != (codec.Rational{Num: 0, Den: 1}) || slots[0].Name() != "edgecode" {
		t.Fatalf("unexpected slot %v %q", rate, slots[0].Name())
	}

	seg, _ = slots[1].Segment()
	seq := seg.(*timeline.Sequence)
	comps2, _ := seq.Components()
	clip := comps2[0].(*timeline.SourceClip)
	ref, _ := clip.SourceRef()
	if ref.MobID != master.MustID() {
		t.Fatalf("clip lost its source mob")
	}
	if refs := r.Index().Referrers(master.MustID()); len(refs) != 1 || refs[0] != clip.Object().ID() {
		t.Fatalf("unexpected referrers %v", refs)
	}
}

func TestLoadIsLazyAndCached(t *testing.T) {
	path, s := createSession(t, dictionary.NewBaseline(nil), storage.Options{})
	comp, _ := buildGraph(t, s)
	mustSave(t, s)
	compObj := comp.Object().ID()
	closeSession(t, s)

	r := openSession(t, path, container.ModeRead, dictionary.NewBaseline(nil), storage.Options{})
	if r.Cached(compObj) {
		t.Fatal("Load should not materialize objects")
	}
	a, err := r.MobByID(comp.MustID())
	if err != nil {
		t.Fatalf("MobByID failed: %v", err)
	}
	b, err := r.Materialize(compObj)
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if a != b {
		t.Fatal("expected one shared instance per ObjectID")
	}
	for _, e := range a.Edges() {
		if e.Resolved() {
			t.Fatal("children should stay unresolved until accessed")
		}
	}
	if _, err := r.Materialize(9999); !errors.Is(err, faults.ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestResaveWithoutChangesIsNoop(t *testing.T) {
	path, s := createSession(t, dictionary.NewBaseline(nil), storage.Options{})
	buildGraph(t, s)
	mustSave(t, s)
	closeSession(t, s)

	u := openSession(t, path, container.ModeUpdate, dictionary.NewBaseline(nil), storage.Options{})
	before := u.Container().Generation()
	if _, err := u.MobsOfClass(""); err != nil {
		t.Fatalf("MobsOfClass failed: %v", err)
	}
	stats := mustSave(t, u)
	if stats.Written != 0 || stats.Removed != 0 || stats.Generation != before {
		t.Fatalf("expected no-op save, got %+v (was gen %d)", stats, before)
	}
}

func TestSaveReadOnlyFails(t *testing.T) {
	path, s := createSession(t, dictionary.NewBaseline(nil), storage.Options{})
	buildGraph(t, s)
	mustSave(t, s)
	closeSession(t, s)

	r := openSession(t, path, container.ModeRead, dictionary.NewBaseline(nil), storage.Options{})
	if _, err := r.Save(context.Background()); !errors.Is(err, faults.ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
}

// cancelAfter reports cancellation once Err has been called n times.
type cancelAfter struct {
	context.Context
	n int
}

func (c *cancelAfter) Err() error {
	if c.n <= 0 {
		return context.Canceled
	}
	c.n--
	return nil
}

func TestCancelledSaveKeepsLastCommit(t *testing.T) {
	path, s := createSession(t, dictionary.NewBaseline(nil), storage.Options{})
	first, err := timeline.NewMasterMob(s.Factory(), "first")
	if err != nil {
		t.Fatalf("NewMasterMob failed: %v", err)
	}
	if err := s.AddMob(first.Object()); err != nil {
		t.Fatalf("AddMob failed: %v", err)
	}
	mustSave(t, s)
	committed := s.Container().Generation()

	buildGraph(t, s)
	ctx := &cancelAfter{Context: context.Background(), n: 2}
	if _, err := s.Save(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if s.Container().Generation() != committed || s.Container().Dirty() {
		t.Fatal("cancelled save must leave the last commit in place")
	}
	closeSession(t, s)

	r := openSession(t, path, container.ModeRead, dictionary.NewBaseline(nil), storage.Options{})
	if r.MobCount() != 1 {
		t.Fatalf("expected only the committed mob, got %d", r.MobCount())
	}
}

func TestRetryAfterCancelledSave(t *testing.T) {
	path, s := createSession(t, dictionary.NewBaseline(nil), storage.Options{})
	buildGraph(t, s)
	if _, err := s.Save(&cancelAfter{Context: context.Background(), n: 3}); err == nil {
		t.Fatal("expected cancelled save to fail")
	}
	mustSave(t, s)
	closeSession(t, s)

	r := openSession(t, path, container.ModeRead, dictionary.NewBaseline(nil), storage.Options{})
	mobs, err := r.MobsOfClass("")
	if err != nil || len(mobs) != 2 {
		t.Fatalf("expected 2 mobs after retry, got %d, %v", len(mobs), err)
	}
}

func TestRemoveMobReclaimsStreams(t *testing.T) {
	path, s := createSession(t, dictionary.NewBaseline(nil), storage.Options{})
	comp, _ := buildGraph(t, s)
	mustSave(t, s)
	before := s.Index().Len()

	if err := s.RemoveMob(comp.MustID()); err != nil {
		t.Fatalf("RemoveMob failed: %v", err)
	}
	if err := s.RemoveMob(comp.MustID()); !errors.Is(err, faults.ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound on second remove, got %v", err)
	}
	stats := mustSave(t, s)
	if stats.Removed == 0 || s.Index().Len() >= before {
		t.Fatalf("expected unreachable objects to be removed, stats %+v, %d -> %d", stats, before, s.Index().Len())
	}
	entries, err := s.Container().ListChildren("/objects")
	if err != nil {
		t.Fatalf("ListChildren failed: %v", err)
	}
	if len(entries) != s.Index().Len() {
		t.Fatalf("expected %d object streams, got %d", s.Index().Len(), len(entries))
	}
	closeSession(t, s)

	r := openSession(t, path, container.ModeRead, dictionary.NewBaseline(nil), storage.Options{})
	if _, err := r.MobByID(comp.MustID()); !errors.Is(err, faults.ErrObjectNotFound) {
		t.Fatalf("removed mob should be gone, got %v", err)
	}
}

func TestRemovedMobCanBeAddedBack(t *testing.T) {
	path, s := createSession(t, dictionary.NewBaseline(nil), storage.Options{})
	comp, _ := buildGraph(t, s)
	compID := comp.MustID()
	mustSave(t, s)
	closeSession(t, s)

	u := openSession(t, path, container.ModeUpdate, dictionary.NewBaseline(nil), storage.Options{})
	obj, err := u.MobByID(compID)
	if err != nil {
		t.Fatalf("MobByID failed: %v", err)
	}
	if err := u.RemoveMob(compID); err != nil {
		t.Fatalf("RemoveMob failed: %v", err)
	}
	mustSave(t, u)
	if err := u.AddMob(obj); err != nil {
		t.Fatalf("AddMob failed: %v", err)
	}
	mustSave(t, u)
	closeSession(t, u)

	r := openSession(t, path, container.ModeRead, dictionary.NewBaseline(nil), storage.Options{})
	back, err := r.MobByID(compID)
	if err != nil {
		t.Fatalf("re-added mob missing: %v", err)
	}
	m, err := timeline.AsMob(r.Factory(), back)
	if err != nil {
		t.Fatalf("AsMob failed: %v", err)
	}
	slots, err := m.Slots()
	if err != nil || len(slots) != 2 {
		t.Fatalf("Slots = %d, %v", len(slots), err)
	}
	seg, err := slots[0].Segment()
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	ec, ok := seg.(*timeline.EdgeCode)
	if !ok {
		t.Fatalf("expected EdgeCode, got %T", seg)
	}
	if h, _ := ec.Header(); h != "BOB" {
		t.Fatalf("expected header BOB, got %q", h)
	}
	if l, _ := ec.Length(); l != timeline.Units(10) {
		t.Fatalf("expected length 10, got %v", l)
	}
	if _, err := slots[1].Segment(); err != nil {
		t.Fatalf("sequence slot lost: %v", err)
	}
}

func TestDuplicateMob(t *testing.T) {
	_, s := createSession(t, dictionary.NewBaseline(nil), storage.Options{})
	a, _ := timeline.NewCompositionMob(s.Factory(), "a")
	b, _ := timeline.NewCompositionMob(s.Factory(), "b")
	if err := s.AddMob(a.Object()); err != nil {
		t.Fatalf("AddMob failed: %v", err)
	}
	if err := s.AddMob(a.Object()); !errors.Is(err, faults.ErrDuplicateMob) {
		t.Fatalf("expected ErrDuplicateMob for same object, got %v", err)
	}
	if err := b.SetID(a.MustID()); err != nil {
		t.Fatalf("SetID failed: %v", err)
	}
	if err := s.AddMob(b.Object()); !errors.Is(err, faults.ErrDuplicateMob) {
		t.Fatalf("expected ErrDuplicateMob for same MobID, got %v", err)
	}

	c, _ := timeline.NewCompositionMob(s.Factory(), "c")
	if err := s.AddMob(c.Object()); err != nil {
		t.Fatalf("AddMob failed: %v", err)
	}
	_ = c.SetID(a.MustID())
	if _, err := s.Save(context.Background()); !errors.Is(err, faults.ErrDuplicateMob) {
		t.Fatalf("expected ErrDuplicateMob at save, got %v", err)
	}
}

func TestMissingMandatoryPropertyBlocksSave(t *testing.T) {
	_, s := createSession(t, dictionary.NewBaseline(nil), storage.Options{})
	mob, _ := timeline.NewCompositionMob(s.Factory(), "broken")
	if err := mob.Object().Remove(dictionary.PropCreationTime); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := s.AddMob(mob.Object()); err != nil {
		t.Fatalf("AddMob failed: %v", err)
	}
	gen := s.Container().Generation()
	if _, err := s.Save(context.Background()); !errors.Is(err, faults.ErrMissingProperty) {
		t.Fatalf("expected ErrMissingProperty, got %v", err)
	}
	if s.Container().Generation() != gen {
		t.Fatal("failed save must not commit")
	}
}

func TestLargeValuesGoOutOfLine(t *testing.T) {
	opts := storage.Options{BlobThreshold: 64}
	path, s := createSession(t, dictionary.NewBaseline(nil), opts)
	name := strings.Repeat("long mob name ", 20)
	mob, _ := timeline.NewMasterMob(s.Factory(), name)
	if err := s.AddMob(mob.Object()); err != nil {
		t.Fatalf("AddMob failed: %v", err)
	}
	mustSave(t, s)
	blobs, err := s.Container().ListChildren("/blobs")
	if err != nil || len(blobs) != 1 {
		t.Fatalf("expected one blob stream, got %d, %v", len(blobs), err)
	}

	if err := mob.SetName("short"); err != nil {
		t.Fatalf("SetName failed: %v", err)
	}
	mustSave(t, s)
	if blobs, _ := s.Container().ListChildren("/blobs"); len(blobs) != 0 {
		t.Fatalf("stale blob kept after rewrite: %d", len(blobs))
	}
	if err := mob.SetName(name); err != nil {
		t.Fatalf("SetName failed: %v", err)
	}
	mustSave(t, s)
	closeSession(t, s)

	r := openSession(t, path, container.ModeRead, dictionary.NewBaseline(nil), opts)
	obj, err := r.MobByID(mob.MustID())
	if err != nil {
		t.Fatalf("MobByID failed: %v", err)
	}
	got, _ := timeline.AsMob(r.Factory(), obj)
	if got.Name() != name {
		t.Fatalf("blob value not restored: %q", got.Name())
	}
}

var wipeClassID = codec.MustParseAUID("5f1c0a8e-2d1b-4c55-9a0e-7d2f3c9b1a01")

func wipeDictionary(t *testing.T) *dictionary.Dictionary {
	t.Helper()
	dict := dictionary.NewBaseline(nil)
	err := dict.Merge([]*dictionary.ClassDef{{
		Name: "VendorWipe", ID: wipeClassID, ParentName: dictionary.ClassSegment, Concrete: true,
		Properties: []*dictionary.PropertyDef{
			{Name: "Pattern", PID: 0xff20, Type: dictionary.TypeDef{Kind: codec.TagUInt16}},
			{Name: "Label", PID: 0xff21, Optional: true, Type: dictionary.TypeDef{Kind: codec.TagString}},
		},
	}})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	return dict
}

func saveWipe(t *testing.T, dict *dictionary.Dictionary) (string, codec.MobID) {
	t.Helper()
	path, s := createSession(t, dict, storage.Options{})
	f := s.Factory()
	wipe, err := f.Create("VendorWipe")
	if err != nil {
		t.Fatalf("Create VendorWipe failed: %v", err)
	}
	_ = wipe.Set(dictionary.PropDataDefinition, codec.WeakRef(dictionary.DataDefPicture))
	_ = wipe.Set(dictionary.PropLength, codec.Int64(12))
	_ = wipe.Set("Pattern", codec.UInt16(7))
	_ = wipe.Set("Label", codec.String("iris"))
	seg, err := timeline.WrapSegment(wipe)
	if err != nil {
		t.Fatalf("WrapSegment failed: %v", err)
	}
	mob, _ := timeline.NewCompositionMob(f, "wipes")
	if _, err := mob.AddSlot(rate25, seg, 1, "FX", 1); err != nil {
		t.Fatalf("AddSlot failed: %v", err)
	}
	if err := s.AddMob(mob.Object()); err != nil {
		t.Fatalf("AddMob failed: %v", err)
	}
	mustSave(t, s)
	closeSession(t, s)
	return path, mob.MustID()
}

func wipeSegment(t *testing.T, s *storage.Session, id codec.MobID) timeline.Segment {
	t.Helper()
	obj, err := s.MobByID(id)
	if err != nil {
		t.Fatalf("MobByID failed: %v", err)
	}
	mob, _ := timeline.AsMob(s.Factory(), obj)
	slot, err := mob.SlotByID(1)
	if err != nil {
		t.Fatalf("SlotByID failed: %v", err)
	}
	seg, err := slot.Segment()
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	return seg
}

func TestExtensionSchemaTravelsWithContainer(t *testing.T) {
	path, id := saveWipe(t, wipeDictionary(t))

	r := openSession(t, path, container.ModeRead, dictionary.NewBaseline(nil), storage.Options{})
	if _, err := r.Dictionary().ResolveName("VendorWipe"); err != nil {
		t.Fatalf("embedded schema not merged: %v", err)
	}
	seg := wipeSegment(t, r, id)
	if seg.Kind() != "VendorWipe" {
		t.Fatalf("expected VendorWipe, got %s", seg.Kind())
	}
	v, err := seg.Object().Get("Pattern")
	if err != nil || v != codec.UInt16(7) {
		t.Fatalf("Pattern = %v, %v", v, err)
	}
	if l, _ := seg.Length(); l != timeline.Units(12) {
		t.Fatalf("expected length 12, got %v", l)
	}
}

func TestUnknownClassSurvivesResave(t *testing.T) {
	path, id := saveWipe(t, wipeDictionary(t))

	// Strip the embedded schema so the class is unknown on the next load.
	c, err := container.Open(path, container.ModeUpdate, container.Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := c.Remove("/dictionary"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := c.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	_ = c.Close()

	u := openSession(t, path, container.ModeUpdate, dictionary.NewBaseline(nil), storage.Options{})
	seg := wipeSegment(t, u, id)
	if !seg.Object().Opaque() {
		t.Fatalf("expected opaque segment, got %s", seg.Kind())
	}
	if _, ok := seg.(*timeline.OpaqueSegment); !ok {
		t.Fatalf("expected *OpaqueSegment, got %T", seg)
	}
	seg.Object().MarkDirty()
	mob, _ := u.MobByID(id)
	if err := mob.Set(dictionary.PropName, codec.String("renamed")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if stats := mustSave(t, u); stats.Written < 2 {
		t.Fatalf("expected mob and opaque segment rewritten, got %+v", stats)
	}
	closeSession(t, u)

	// With the schema supplied again the values are intact.
	r := openSession(t, path, container.ModeRead, wipeDictionary(t), storage.Options{})
	seg = wipeSegment(t, r, id)
	if seg.Object().Opaque() {
		t.Fatal("segment should be typed with the schema present")
	}
	if v, _ := seg.Object().Get("Label"); v != codec.String("iris") {
		t.Fatalf("Label lost through opaque resave: %v", v)
	}
}

func TestMobIteratorFiltersByClass(t *testing.T) {
	path, s := createSession(t, dictionary.NewBaseline(nil), storage.Options{})
	buildGraph(t, s)
	mustSave(t, s)
	closeSession(t, s)

	r := openSession(t, path, container.ModeRead, dictionary.NewBaseline(nil), storage.Options{})
	count := func(class string) int {
		n := 0
		for obj, err := range r.MobIterator(class) {
			if err != nil {
				t.Fatalf("iteration failed: %v", err)
			}
			if obj == nil {
				t.Fatal("nil mob yielded")
			}
			n++
		}
		return n
	}
	if n := count(dictionary.ClassMasterMob); n != 1 {
		t.Fatalf("expected 1 master mob, got %d", n)
	}
	if n := count(dictionary.ClassSourceMob); n != 0 {
		t.Fatalf("expected no source mobs, got %d", n)
	}
	if n := count(""); n != 2 {
		t.Fatalf("expected 2 mobs, got %d", n)
	}
	if n := count(""); n != 2 {
		t.Fatalf("iterator should restart, got %d", n)
	}
}

func TestIndexLookupsLeaveOtherMobsUnloaded(t *testing.T) {
	path, s := createSession(t, dictionary.NewBaseline(nil), storage.Options{})
	comp, master := buildGraph(t, s)
	mustSave(t, s)
	closeSession(t, s)

	r := openSession(t, path, container.ModeRead, dictionary.NewBaseline(nil), storage.Options{})
	compOID, ok := r.Index().LookupMob(comp.MustID())
	if !ok {
		t.Fatal("composition missing from index")
	}
	masterOID, ok := r.Index().LookupMob(master.MustID())
	if !ok {
		t.Fatal("master missing from index")
	}
	obj, err := r.MobByID(master.MustID())
	if err != nil {
		t.Fatalf("MobByID failed: %v", err)
	}
	if obj.ID() != masterOID {
		t.Fatalf("expected object %d, got %d", masterOID, obj.ID())
	}
	if r.Cached(compOID) {
		t.Fatal("lookup by MobID loaded an unrelated mob")
	}
	mobs, err := r.MobsOfClass(dictionary.ClassMasterMob)
	if err != nil || len(mobs) != 1 {
		t.Fatalf("MobsOfClass = %d, %v", len(mobs), err)
	}
	if r.Cached(compOID) {
		t.Fatal("class filter loaded a mob of another class")
	}
	if _, err := r.MobByID(codec.NewMobID()); !errors.Is(err, faults.ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestSaveLogsStatsAndElapsed(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("logging.New failed: %v", err)
	}
	_, s := createSession(t, dictionary.NewBaseline(nil), storage.Options{Logger: logger})
	buildGraph(t, s)
	mustSave(t, s)

	var saved map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var record map[string]any
		if err := json.Unmarshal(line, &record); err != nil {
			t.Fatalf("decode json log: %v", err)
		}
		if record["msg"] == "graph saved" {
			saved = record
		}
	}
	if saved == nil {
		t.Fatalf("no save record in %q", buf.String())
	}
	if saved[logging.FieldComponent] != "storage" || saved[logging.FieldEventType] != "save" {
		t.Fatalf("unexpected save record %v", saved)
	}
	if _, ok := saved["elapsed"]; !ok {
		t.Fatalf("expected elapsed field, got %v", saved)
	}
	if n, _ := saved["written"].(float64); n == 0 {
		t.Fatalf("expected written count, got %v", saved["written"])
	}
}

var _ object.Resolver = (*storage.Session)(nil)
