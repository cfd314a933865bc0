package storage

import (
	"encoding/binary"
	"fmt"
	"maps"
	"slices"

	"splice/internal/codec"
	"splice/internal/container"
	"splice/internal/faults"
)

var (
	metaIndexID = codec.MustParseAUID("0d010101-0230-0000-060e-2b3402060101")
	metaEntryID = codec.MustParseAUID("0d010101-0231-0000-060e-2b3402060101")
)

const indexVersion = 1

const (
	indexPIDVersion uint16 = iota + 1
	indexPIDEntries
)

const (
	entryPIDObject uint16 = iota + 1
	entryPIDClass
	entryPIDStream
	entryPIDMob
	entryPIDChildren
	entryPIDBlobs
	entryPIDRefs
)

// IndexEntry locates one persisted object.
type IndexEntry struct {
	ID     codec.ObjectID
	Class  codec.AUID
	Stream container.StreamID
	// MobID is set for mobs only.
	MobID codec.MobID
	// Children are the strong reference targets, in property order.
	Children []codec.ObjectID
	Blobs    []container.StreamID
	// Refs are the mobs this object points at by MobID.
	Refs []codec.MobID
}

// Index is the in-container table of persisted objects. It is rebuilt on
// every save and read back on load, so the graph can be navigated and
// collected without materializing objects.
type Index struct {
	entries map[codec.ObjectID]*IndexEntry
	byMob   map[codec.MobID]codec.ObjectID
	byClass map[codec.AUID][]codec.ObjectID
}

func newIndex() *Index {
	return &Index{
		entries: make(map[codec.ObjectID]*IndexEntry),
		byMob:   make(map[codec.MobID]codec.ObjectID),
		byClass: make(map[codec.AUID][]codec.ObjectID),
	}
}

// Len returns the number of indexed objects.
func (x *Index) Len() int { return len(x.entries) }

// Lookup returns the entry for id.
func (x *Index) Lookup(id codec.ObjectID) (*IndexEntry, bool) {
	e, ok := x.entries[id]
	return e, ok
}

// LookupMob returns the ObjectID of the mob with the given MobID.
func (x *Index) LookupMob(id codec.MobID) (codec.ObjectID, bool) {
	oid, ok := x.byMob[id]
	return oid, ok
}

// OfClass returns the objects whose class is exactly class, in id order.
func (x *Index) OfClass(class codec.AUID) []codec.ObjectID {
	return slices.Clone(x.byClass[class])
}

// IDs returns every indexed ObjectID in ascending order.
func (x *Index) IDs() []codec.ObjectID {
	return slices.Sorted(maps.Keys(x.entries))
}

// Referrers returns the objects that refer to mob by MobID.
func (x *Index) Referrers(mob codec.MobID) []codec.ObjectID {
	var out []codec.ObjectID
	for _, id := range x.IDs() {
		if slices.Contains(x.entries[id].Refs, mob) {
			out = append(out, id)
		}
	}
	return out
}

func (x *Index) put(e *IndexEntry) {
	if old, ok := x.entries[e.ID]; ok {
		x.unlink(old)
	}
	x.entries[e.ID] = e
	if !e.MobID.IsNil() {
		x.byMob[e.MobID] = e.ID
	}
	ids := x.byClass[e.Class]
	pos, _ := slices.BinarySearch(ids, e.ID)
	x.byClass[e.Class] = slices.Insert(ids, pos, e.ID)
}

func (x *Index) unlink(e *IndexEntry) {
	if !e.MobID.IsNil() && x.byMob[e.MobID] == e.ID {
		delete(x.byMob, e.MobID)
	}
	ids := x.byClass[e.Class]
	if pos, ok := slices.BinarySearch(ids, e.ID); ok {
		ids = slices.Delete(ids, pos, pos+1)
	}
	if len(ids) == 0 {
		delete(x.byClass, e.Class)
	} else {
		x.byClass[e.Class] = ids
	}
}

func (x *Index) encode(order binary.ByteOrder) ([]byte, error) {
	items := make([]codec.Value, 0, len(x.entries))
	for _, id := range x.IDs() {
		blob, err := encodeEntry(x.entries[id], order)
		if err != nil {
			return nil, fmt.Errorf("index entry %d: %w", id, err)
		}
		items = append(items, codec.Bytes(blob))
	}
	recs, err := metaRecords(order,
		indexPIDVersion, codec.UInt16(indexVersion),
		indexPIDEntries, codec.Array{Elem: codec.TagBytes, Items: items},
	)
	if err != nil {
		return nil, err
	}
	return codec.EncodeObject(metaIndexID, recs, order)
}

func encodeEntry(e *IndexEntry, order binary.ByteOrder) ([]byte, error) {
	pairs := []any{
		entryPIDObject, codec.UInt64(e.ID),
		entryPIDClass, e.Class,
		entryPIDStream, codec.UInt32(e.Stream),
	}
	if !e.MobID.IsNil() {
		pairs = append(pairs, entryPIDMob, e.MobID)
	}
	if len(e.Children) > 0 {
		pairs = append(pairs, entryPIDChildren, codec.StrongRefVector(e.Children))
	}
	if len(e.Blobs) > 0 {
		items := make([]codec.Value, len(e.Blobs))
		for i, b := range e.Blobs {
			items[i] = codec.UInt32(b)
		}
		pairs = append(pairs, entryPIDBlobs, codec.Array{Elem: codec.TagUInt32, Items: items})
	}
	if len(e.Refs) > 0 {
		items := make([]codec.Value, len(e.Refs))
		for i, r := range e.Refs {
			items[i] = r
		}
		pairs = append(pairs, entryPIDRefs, codec.Array{Elem: codec.TagMobID, Items: items})
	}
	recs, err := metaRecords(order, pairs...)
	if err != nil {
		return nil, err
	}
	return codec.EncodeObject(metaEntryID, recs, order)
}

func decodeIndex(data []byte, order binary.ByteOrder) (*Index, error) {
	fields, err := decodeMeta(data, metaIndexID, order)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	if v, ok := fields[indexPIDVersion].(codec.UInt16); !ok || v > indexVersion {
		return nil, faults.Wrap(faults.ErrCorruptContainer, "storage", "decode index",
			fmt.Sprintf("unsupported index version %v", fields[indexPIDVersion]), nil)
	}
	x := newIndex()
	arr, _ := fields[indexPIDEntries].(codec.Array)
	for i, item := range arr.Items {
		blob, ok := item.(codec.Bytes)
		if !ok {
			return nil, faults.Wrap(faults.ErrCorruptContainer, "storage", "decode index",
				fmt.Sprintf("entry %d is %s", i, item.Tag()), nil)
		}
		e, err := decodeEntry(blob, order)
		if err != nil {
			return nil, fmt.Errorf("index entry %d: %w", i, err)
		}
		x.put(e)
	}
	return x, nil
}

func decodeEntry(data []byte, order binary.ByteOrder) (*IndexEntry, error) {
	fields, err := decodeMeta(data, metaEntryID, order)
	if err != nil {
		return nil, err
	}
	id, ok1 := fields[entryPIDObject].(codec.UInt64)
	class, ok2 := fields[entryPIDClass].(codec.AUID)
	stream, ok3 := fields[entryPIDStream].(codec.UInt32)
	if !ok1 || !ok2 || !ok3 || id == 0 {
		return nil, faults.Wrap(faults.ErrCorruptContainer, "storage", "decode index", "entry missing id, class or stream", nil)
	}
	e := &IndexEntry{ID: codec.ObjectID(id), Class: class, Stream: container.StreamID(stream)}
	if mob, ok := fields[entryPIDMob].(codec.MobID); ok {
		e.MobID = mob
	}
	if kids, ok := fields[entryPIDChildren].(codec.StrongRefVector); ok {
		e.Children = []codec.ObjectID(kids)
	}
	if arr, ok := fields[entryPIDBlobs].(codec.Array); ok {
		for _, item := range arr.Items {
			if n, ok := item.(codec.UInt32); ok {
				e.Blobs = append(e.Blobs, container.StreamID(n))
			}
		}
	}
	if arr, ok := fields[entryPIDRefs].(codec.Array); ok {
		for _, item := range arr.Items {
			if m, ok := item.(codec.MobID); ok {
				e.Refs = append(e.Refs, m)
			}
		}
	}
	return e, nil
}

func metaRecords(order binary.ByteOrder, pairs ...any) ([]codec.Record, error) {
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
		return nil, faults.Wrap(faults.ErrCorruptContainer, "storage", "decode", "meta object", err)
	}
	if class != want {
		return nil, faults.Wrap(faults.ErrCorruptContainer, "storage", "decode",
			fmt.Sprintf("meta class %s, want %s", class, want), nil)
	}
	fields := make(map[uint16]codec.Value, len(recs))
	for _, rec := range recs {
		v, err := rec.Value(order)
		if err != nil {
			return nil, faults.Wrap(faults.ErrCorruptContainer, "storage", "decode", "meta record", err)
		}
		fields[rec.PID] = v
	}
	return fields, nil
}
