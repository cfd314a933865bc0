package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"splice/internal/codec"
	"splice/internal/container"
	"splice/internal/dictionary"
	"splice/internal/faults"
	"splice/internal/logging"
	"splice/internal/object"
)

// Stream layout inside the container.
const (
	rootStream       = "/root"
	indexStream      = "/index"
	dictionaryStream = "/dictionary"
	objectsStorage   = "/objects"
	blobsStorage     = "/blobs"
)

var metaRootID = codec.MustParseAUID("0d010101-0232-0000-060e-2b3402060101")

const rootVersion = 1

const (
	rootPIDVersion uint16 = iota + 1
	rootPIDNextID
	rootPIDMobs
)

// Options tune a Session.
type Options struct {
	// BlobThreshold is the payload size above which a value is stored in
	// its own stream. Zero keeps every value inline.
	BlobThreshold int
	Logger        *slog.Logger
}

// mobRef is one registered mob. Loaded mobs have obj set; mobs that have
// not been touched since load are known only by id.
type mobRef struct {
	id  codec.ObjectID
	obj *object.Object
}

// Session persists one object graph into one container.
type Session struct {
	c       *container.Container
	dict    *dictionary.Dictionary
	factory *object.Factory
	order   binary.ByteOrder
	opts    Options
	logger  *slog.Logger

	cache  map[codec.ObjectID]*object.Object
	index  *Index
	mobs   []*mobRef
	nextID codec.ObjectID
}

// NewSession binds c and dict. Call Load before using a container that
// already holds a graph.
func NewSession(c *container.Container, dict *dictionary.Dictionary, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Session{
		c:       c,
		dict:    dict,
		factory: object.NewFactory(dict),
		order:   c.ByteOrder(),
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "storage"),
		cache:   make(map[codec.ObjectID]*object.Object),
		index:   newIndex(),
		nextID:  1,
	}
}

// Container returns the bound container.
func (s *Session) Container() *container.Container { return s.c }

// Dictionary returns the session dictionary.
func (s *Session) Dictionary() *dictionary.Dictionary { return s.dict }

// Factory returns a factory bound to the session dictionary.
func (s *Session) Factory() *object.Factory { return s.factory }

// Index returns the index as of the last load or save.
func (s *Session) Index() *Index { return s.index }

// Load reads the root, index and extension table of the container. No
// object is materialized. A container without a root is an empty graph.
func (s *Session) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.loadDictionary(); err != nil {
		return err
	}
	root, ok, err := s.readOptional(rootStream)
	if err != nil || !ok {
		return err
	}
	fields, err := decodeMeta(root, metaRootID, s.order)
	if err != nil {
		return fmt.Errorf("root: %w", err)
	}
	if v, ok := fields[rootPIDVersion].(codec.UInt16); !ok || v > rootVersion {
		return faults.Wrap(faults.ErrCorruptContainer, "storage", "load",
			fmt.Sprintf("unsupported root version %v", fields[rootPIDVersion]), nil)
	}
	if next, ok := fields[rootPIDNextID].(codec.UInt64); ok {
		s.nextID = codec.ObjectID(next)
	}

	data, ok, err := s.readOptional(indexStream)
	if err != nil {
		return err
	}
	if ok {
		if s.index, err = decodeIndex(data, s.order); err != nil {
			return err
		}
	}
	mobs, _ := fields[rootPIDMobs].(codec.StrongRefVector)
	s.mobs = s.mobs[:0]
	for _, id := range mobs {
		if _, ok := s.index.Lookup(id); !ok {
			return faults.Wrap(faults.ErrCorruptContainer, "storage", "load",
				fmt.Sprintf("mob object %d missing from index", id), nil)
		}
		s.mobs = append(s.mobs, &mobRef{id: id})
	}
	for _, id := range s.index.IDs() {
		if id >= s.nextID {
			s.nextID = id + 1
		}
	}
	s.logger.Debug("graph loaded",
		logging.Int("mobs", len(s.mobs)),
		logging.Int("objects", s.index.Len()),
	)
	return nil
}

func (s *Session) loadDictionary() error {
	data, ok, err := s.readOptional(dictionaryStream)
	if err != nil || !ok {
		return err
	}
	ext, err := dictionary.DecodeTable(data, s.order)
	if err != nil {
		return err
	}
	if len(ext) == 0 {
		return nil
	}
	if err := s.dict.Merge(ext); err != nil {
		return fmt.Errorf("embedded schema: %w", err)
	}
	return nil
}

func (s *Session) readOptional(path string) ([]byte, bool, error) {
	e, err := s.c.StreamByPath(path)
	if errors.Is(err, faults.ErrStreamNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	data, err := s.c.ReadAll(e.ID)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Materialize returns the object with the given id, decoding it on first
// request. Later requests return the same instance. Children stay
// unresolved until accessed.
func (s *Session) Materialize(id codec.ObjectID) (*object.Object, error) {
	if obj, ok := s.cache[id]; ok {
		return obj, nil
	}
	e, ok := s.index.Lookup(id)
	if !ok {
		return nil, faults.Wrap(faults.ErrObjectNotFound, "storage", "materialize",
			fmt.Sprintf("object %d", id), nil)
	}
	data, err := s.c.ReadAll(e.Stream)
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", id, err)
	}
	classID, recs, err := codec.DecodeObject(data, s.order)
	if err != nil {
		return nil, faults.Wrap(faults.ErrCorruptContainer, "storage", "materialize",
			fmt.Sprintf("object %d", id), err)
	}
	if recs, err = s.inlineBlobs(recs); err != nil {
		return nil, fmt.Errorf("object %d: %w", id, err)
	}
	obj, err := object.Decode(s.dict, id, classID, recs, s.order, s)
	if err != nil {
		return nil, err
	}
	s.cache[id] = obj
	if obj.Opaque() {
		s.logger.Debug("opaque object loaded",
			logging.Uint64(logging.FieldObjectID, uint64(id)),
			logging.String("class_id", classID.String()),
		)
	}
	return obj, nil
}

// Cached reports whether id has been materialized in this session.
func (s *Session) Cached(id codec.ObjectID) bool {
	_, ok := s.cache[id]
	return ok
}

func (s *Session) mobObject(ref *mobRef) (*object.Object, error) {
	if ref.obj != nil {
		return ref.obj, nil
	}
	obj, err := s.Materialize(ref.id)
	if err != nil {
		return nil, err
	}
	ref.obj = obj
	return obj, nil
}

// mobIDOf returns the MobID of a registered mob without loading it when
// possible.
func (s *Session) mobIDOf(ref *mobRef) codec.MobID {
	if ref.obj == nil {
		if e, ok := s.index.Lookup(ref.id); ok {
			return e.MobID
		}
		return codec.NilMobID
	}
	return objectMobID(ref.obj)
}

func objectMobID(obj *object.Object) codec.MobID {
	v, err := obj.Get(dictionary.PropMobID)
	if err != nil {
		return codec.NilMobID
	}
	id, _ := v.(codec.MobID)
	return id
}

// AddMob registers obj as a top-level mob. Its MobID must be set and must
// not already be registered.
func (s *Session) AddMob(obj *object.Object) error {
	if obj == nil || !obj.IsA(dictionary.ClassMob) {
		return faults.Wrap(faults.ErrTypeMismatch, "storage", "add mob", "object is not a mob", nil)
	}
	if obj.Owner() != nil {
		return faults.Wrap(faults.ErrTypeMismatch, "storage", "add mob", "mob is owned by another object", nil)
	}
	id := objectMobID(obj)
	if id.IsNil() {
		return faults.Wrap(faults.ErrMissingProperty, "storage", "add mob", "mob has no MobID", nil)
	}
	for _, ref := range s.mobs {
		if ref.obj == obj {
			return faults.Wrap(faults.ErrDuplicateMob, "storage", "add mob", "mob already registered", nil)
		}
		if s.mobIDOf(ref) == id {
			return faults.Wrap(faults.ErrDuplicateMob, "storage", "add mob", id.String(), nil)
		}
	}
	s.mobs = append(s.mobs, &mobRef{id: obj.ID(), obj: obj})
	return nil
}

// RemoveMob unregisters the mob with the given MobID. Its streams are
// reclaimed by the next save. A mob the caller already holds is loaded in
// full first, so it can be registered again after that save.
func (s *Session) RemoveMob(id codec.MobID) error {
	for i, ref := range s.mobs {
		if s.mobIDOf(ref) != id {
			continue
		}
		obj := ref.obj
		if obj == nil {
			obj = s.cache[ref.id]
		}
		if obj != nil {
			if err := obj.LoadSubtree(); err != nil {
				return fmt.Errorf("remove mob %s: %w", id, err)
			}
		}
		s.mobs = append(s.mobs[:i], s.mobs[i+1:]...)
		return nil
	}
	return faults.Wrap(faults.ErrObjectNotFound, "storage", "remove mob", id.String(), nil)
}

// MobCount returns the number of registered mobs.
func (s *Session) MobCount() int { return len(s.mobs) }

// MobByID returns the registered mob with the given MobID. Persisted mobs
// are found through the index; mobs added or renamed since the last save
// are found by scanning.
func (s *Session) MobByID(id codec.MobID) (*object.Object, error) {
	if oid, ok := s.index.LookupMob(id); ok {
		for _, ref := range s.mobs {
			if ref.id == oid && (ref.obj == nil || objectMobID(ref.obj) == id) {
				return s.mobObject(ref)
			}
		}
	}
	for _, ref := range s.mobs {
		if s.mobIDOf(ref) == id {
			return s.mobObject(ref)
		}
	}
	return nil, faults.Wrap(faults.ErrObjectNotFound, "storage", "lookup mob", id.String(), nil)
}

// indexedOfClass returns the persisted objects of className or any of its
// subclasses.
func (s *Session) indexedOfClass(className string) map[codec.ObjectID]bool {
	out := make(map[codec.ObjectID]bool)
	for _, c := range s.dict.Classes() {
		if !s.dict.IsA(c, className) {
			continue
		}
		for _, id := range s.index.OfClass(c.ID) {
			out[id] = true
		}
	}
	return out
}

// MobIterator yields registered mobs of className (or any mob when
// className is empty) in registration order, loading each as it is
// reached. Mobs that are not loaded are filtered through the index.
// Ranging again restarts from the first mob.
func (s *Session) MobIterator(className string) iter.Seq2[*object.Object, error] {
	if className == "" {
		className = dictionary.ClassMob
	}
	return func(yield func(*object.Object, error) bool) {
		refs := append([]*mobRef(nil), s.mobs...)
		indexed := s.indexedOfClass(className)
		for _, ref := range refs {
			if ref.obj != nil && !ref.obj.IsA(className) || ref.obj == nil && !indexed[ref.id] {
				continue
			}
			obj, err := s.mobObject(ref)
			if !yield(obj, err) || err != nil {
				return
			}
		}
	}
}

// MobsOfClass returns every registered mob of className.
func (s *Session) MobsOfClass(className string) ([]*object.Object, error) {
	var out []*object.Object
	for obj, err := range s.MobIterator(className) {
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

// Rebind switches the session to c, which must hold the same committed
// graph under the same stream identifiers, as a compacted copy does.
func (s *Session) Rebind(c *container.Container) {
	s.c = c
	s.order = c.ByteOrder()
}
