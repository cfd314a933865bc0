package storage

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"splice/internal/codec"
	"splice/internal/container"
	"splice/internal/dictionary"
	"splice/internal/faults"
	"splice/internal/logging"
	"splice/internal/object"
)

// savePlan is the result of walking the graph before anything is written.
type savePlan struct {
	// objects are the in-memory objects reachable from the mobs, in
	// depth-first order.
	objects []*object.Object
	// reach holds every reachable ObjectID, loaded or not.
	reach map[codec.ObjectID]bool
	mobs  codec.StrongRefVector
}

// SaveStats summarizes one save.
type SaveStats struct {
	Written    int
	Removed    int
	Generation uint64
}

// Save writes every change since the last save and commits. Objects are
// only written when new or modified; objects no longer reachable from a
// registered mob are removed. On any failure, including cancellation of
// ctx, the container is rolled back to its last commit.
func (s *Session) Save(ctx context.Context) (SaveStats, error) {
	if s.c.Mode() != container.ModeUpdate {
		return SaveStats{}, faults.Wrap(faults.ErrReadOnly, "storage", "save", s.c.Path(), nil)
	}
	if err := ctx.Err(); err != nil {
		return SaveStats{}, err
	}
	start := time.Now()
	plan, err := s.plan()
	if err != nil {
		return SaveStats{}, err
	}
	idx, stats, err := s.write(ctx, plan)
	if err == nil && s.c.Dirty() {
		err = s.c.Commit()
	}
	if err != nil {
		if abortErr := s.c.Abort(); abortErr != nil {
			logging.WarnWithContext(s.logger, "save rollback failed", "save_abort",
				logging.String(logging.FieldErrorHint, "reopen the container before retrying"),
				logging.Error(abortErr),
			)
		}
		return SaveStats{}, err
	}

	for _, obj := range plan.objects {
		obj.MarkClean()
	}
	for id := range s.cache {
		if !plan.reach[id] {
			delete(s.cache, id)
		}
	}
	for _, ref := range s.mobs {
		if ref.obj != nil {
			ref.id = ref.obj.ID()
		}
	}
	s.index = idx
	stats.Generation = s.c.Generation()
	s.logger.Info("graph saved",
		logging.String(logging.FieldEventType, "save"),
		logging.Int("written", stats.Written),
		logging.Int("removed", stats.Removed),
		logging.Uint64(logging.FieldGeneration, stats.Generation),
		logging.Duration("elapsed", time.Since(start)),
	)
	return stats, nil
}

// plan assigns ids to new objects, validates them and checks mob
// uniqueness. Nothing is written to the container.
func (s *Session) plan() (*savePlan, error) {
	p := &savePlan{reach: make(map[codec.ObjectID]bool)}
	seen := make(map[codec.MobID]bool, len(s.mobs))
	for _, ref := range s.mobs {
		mobID := s.mobIDOf(ref)
		if seen[mobID] {
			return nil, faults.Wrap(faults.ErrDuplicateMob, "storage", "save", mobID.String(), nil)
		}
		seen[mobID] = true
		if ref.obj != nil {
			if err := s.visit(p, ref.obj); err != nil {
				return nil, err
			}
			p.mobs = append(p.mobs, ref.obj.ID())
			continue
		}
		if err := s.visitID(p, ref.id); err != nil {
			return nil, err
		}
		p.mobs = append(p.mobs, ref.id)
	}
	return p, nil
}

func (s *Session) visit(p *savePlan, obj *object.Object) error {
	if obj.ID() == 0 {
		obj.SetID(s.nextID)
		s.nextID++
		obj.SetResolver(s)
		s.cache[obj.ID()] = obj
	}
	if p.reach[obj.ID()] {
		return nil
	}
	p.reach[obj.ID()] = true
	if err := obj.Validate(); err != nil {
		return err
	}
	p.objects = append(p.objects, obj)
	for _, e := range obj.Edges() {
		var err error
		if child := e.Target(); child != nil {
			err = s.visit(p, child)
		} else {
			err = s.visitID(p, e.ID())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// visitID marks a persisted subtree reachable. Objects that were loaded
// through another path are walked in memory so their changes are kept.
func (s *Session) visitID(p *savePlan, id codec.ObjectID) error {
	if obj, ok := s.cache[id]; ok {
		return s.visit(p, obj)
	}
	if p.reach[id] {
		return nil
	}
	e, ok := s.index.Lookup(id)
	if !ok {
		return faults.Wrap(faults.ErrObjectNotFound, "storage", "save",
			fmt.Sprintf("object %d is referenced but not stored", id), nil)
	}
	p.reach[id] = true
	for _, child := range e.Children {
		if err := s.visitID(p, child); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) write(ctx context.Context, p *savePlan) (*Index, SaveStats, error) {
	var stats SaveStats
	idx := newIndex()
	if _, err := s.c.EnsureStorage(objectsStorage); err != nil {
		return nil, stats, err
	}
	if _, err := s.c.EnsureStorage(blobsStorage); err != nil {
		return nil, stats, err
	}

	written := make(map[codec.ObjectID]bool, len(p.objects))
	for _, obj := range p.objects {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		id := obj.ID()
		written[id] = true
		entry := entryFor(obj)
		old, had := s.index.Lookup(id)
		if had && !obj.Dirty() {
			entry.Stream, entry.Blobs = old.Stream, old.Blobs
			idx.put(entry)
			continue
		}
		if err := s.writeObject(obj, entry, old); err != nil {
			return nil, stats, fmt.Errorf("save object %d (%s): %w", id, obj.ClassName(), err)
		}
		idx.put(entry)
		stats.Written++
	}
	for id := range p.reach {
		if written[id] {
			continue
		}
		e, _ := s.index.Lookup(id)
		idx.put(e)
	}
	for _, id := range s.index.IDs() {
		if p.reach[id] {
			continue
		}
		e, _ := s.index.Lookup(id)
		if err := s.removeStreams(append([]container.StreamID{e.Stream}, e.Blobs...)); err != nil {
			return nil, stats, err
		}
		stats.Removed++
		s.logger.Debug("unreachable object removed", logging.Uint64(logging.FieldObjectID, uint64(id)))
	}

	if err := s.writeMeta(idx, p); err != nil {
		return nil, stats, err
	}
	return idx, stats, nil
}

func (s *Session) writeObject(obj *object.Object, entry, old *IndexEntry) error {
	recs, err := obj.Records(s.order)
	if err != nil {
		return err
	}
	if old != nil {
		if err := s.removeStreams(old.Blobs); err != nil {
			return err
		}
	}
	recs, blobs, err := s.outlineBlobs(obj.ID(), recs)
	if err != nil {
		return err
	}
	data, err := codec.EncodeObject(obj.ClassID(), recs, s.order)
	if err != nil {
		return err
	}
	if old != nil {
		entry.Stream = old.Stream
	} else {
		sid, err := s.c.CreateStream(objectsStorage, strconv.FormatUint(uint64(obj.ID()), 10))
		if err != nil {
			return err
		}
		entry.Stream = sid
	}
	entry.Blobs = blobs
	return s.c.WriteStream(entry.Stream, data)
}

func (s *Session) writeMeta(idx *Index, p *savePlan) error {
	recs, err := metaRecords(s.order,
		rootPIDVersion, codec.UInt16(rootVersion),
		rootPIDNextID, codec.UInt64(s.nextID),
		rootPIDMobs, p.mobs,
	)
	if err != nil {
		return err
	}
	root, err := codec.EncodeObject(metaRootID, recs, s.order)
	if err != nil {
		return err
	}
	index, err := idx.encode(s.order)
	if err != nil {
		return err
	}
	ext, err := s.dict.EncodeExtensions(s.order)
	if err != nil {
		return err
	}
	for _, m := range []struct {
		path string
		data []byte
	}{
		{dictionaryStream, ext},
		{indexStream, index},
		{rootStream, root},
	} {
		if err := s.replaceStream(m.path, m.data); err != nil {
			return fmt.Errorf("write %s: %w", m.path, err)
		}
	}
	return nil
}

// replaceStream writes data to path unless it already holds exactly data.
func (s *Session) replaceStream(path string, data []byte) error {
	current, ok, err := s.readOptional(path)
	if err != nil {
		return err
	}
	if ok && bytes.Equal(current, data) {
		return nil
	}
	e, err := s.c.StreamByPath(path)
	var sid container.StreamID
	if err == nil {
		sid = e.ID
	} else if sid, err = s.c.CreateStream("/", path[1:]); err != nil {
		return err
	}
	return s.c.WriteStream(sid, data)
}

// entryFor describes obj for the index. Stream and blobs are filled in by
// the caller.
func entryFor(obj *object.Object) *IndexEntry {
	e := &IndexEntry{ID: obj.ID(), Class: obj.ClassID()}
	if obj.IsA(dictionary.ClassMob) {
		e.MobID = objectMobID(obj)
	}
	for _, edge := range obj.Edges() {
		e.Children = append(e.Children, edge.ID())
	}
	e.Refs = weakRefs(obj)
	return e
}

// weakRefs lists the mobs obj points at by MobID, excluding its own
// identity.
func weakRefs(obj *object.Object) []codec.MobID {
	if obj.Opaque() {
		return nil
	}
	var out []codec.MobID
	for _, name := range obj.Properties() {
		p, err := obj.Dictionary().LookupProperty(obj.Class(), name)
		if err != nil || p.UniqueID || p.Type.Kind != codec.TagMobID {
			continue
		}
		v, err := obj.Get(name)
		if err != nil {
			continue
		}
		if id, ok := v.(codec.MobID); ok && !id.IsNil() {
			out = append(out, id)
		}
	}
	return out
}
