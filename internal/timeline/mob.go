package timeline

import (
	"errors"
	"fmt"
	"time"

	"splice/internal/codec"
	"splice/internal/dictionary"
	"splice/internal/faults"
	"splice/internal/object"
)

// Kind classifies mobs.
type Kind int

const (
	KindAny Kind = iota
	KindComposition
	KindMaster
	KindSource
)

func (k Kind) String() string {
	switch k {
	case KindComposition:
		return "composition"
	case KindMaster:
		return "master"
	case KindSource:
		return "source"
	default:
		return "any"
	}
}

// ClassName returns the dictionary class for the kind.
func (k Kind) ClassName() string {
	switch k {
	case KindComposition:
		return dictionary.ClassCompositionMob
	case KindMaster:
		return dictionary.ClassMasterMob
	case KindSource:
		return dictionary.ClassSourceMob
	default:
		return dictionary.ClassMob
	}
}

// ParseKind accepts the String form of a kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range []Kind{KindAny, KindComposition, KindMaster, KindSource} {
		if k.String() == s {
			return k, nil
		}
	}
	return KindAny, fmt.Errorf("unknown mob kind %q", s)
}

// now is replaceable so tests can pin timestamps.
var now = time.Now

// Mob is a timeline-bearing unit that owns an ordered list of slots.
type Mob struct {
	obj *object.Object
	f   *object.Factory
}

func newMob(f *object.Factory, kind Kind, name string) (*Mob, error) {
	obj, err := f.Create(kind.ClassName())
	if err != nil {
		return nil, err
	}
	m := &Mob{obj: obj, f: f}
	stamp := codec.NewTimestamp(now())
	if err := obj.Set(dictionary.PropMobID, codec.NewMobID()); err != nil {
		return nil, err
	}
	if err := obj.SetChildren(dictionary.PropSlots, nil); err != nil {
		return nil, err
	}
	if err := obj.Set(dictionary.PropCreationTime, stamp); err != nil {
		return nil, err
	}
	if err := obj.Set(dictionary.PropLastModified, stamp); err != nil {
		return nil, err
	}
	if name != "" {
		if err := obj.Set(dictionary.PropName, codec.String(name)); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewCompositionMob creates an empty composition.
func NewCompositionMob(f *object.Factory, name string) (*Mob, error) {
	return newMob(f, KindComposition, name)
}

// NewMasterMob creates an empty master mob.
func NewMasterMob(f *object.Factory, name string) (*Mob, error) {
	return newMob(f, KindMaster, name)
}

// NewSourceMob creates a source mob described by desc.
func NewSourceMob(f *object.Factory, name string, desc *FileDescriptor) (*Mob, error) {
	if desc == nil {
		return nil, faults.Wrap(faults.ErrMissingProperty, "timeline", "source mob", "essence descriptor required", nil)
	}
	m, err := newMob(f, KindSource, name)
	if err != nil {
		return nil, err
	}
	if err := m.obj.SetChild(dictionary.PropEssenceDescription, desc.Object()); err != nil {
		return nil, err
	}
	return m, nil
}

// AsMob wraps a graph object that is a Mob.
func AsMob(f *object.Factory, obj *object.Object) (*Mob, error) {
	if obj == nil || !obj.IsA(dictionary.ClassMob) {
		name := "nil"
		if obj != nil {
			name = obj.ClassName()
		}
		return nil, faults.Wrap(faults.ErrTypeMismatch, "timeline", "mob", fmt.Sprintf("%s is not a mob", name), nil)
	}
	return &Mob{obj: obj, f: f}, nil
}

// Object returns the underlying graph object.
func (m *Mob) Object() *object.Object { return m.obj }

// Kind classifies the mob by class.
func (m *Mob) Kind() Kind {
	switch {
	case m.obj.IsA(dictionary.ClassCompositionMob):
		return KindComposition
	case m.obj.IsA(dictionary.ClassMasterMob):
		return KindMaster
	case m.obj.IsA(dictionary.ClassSourceMob):
		return KindSource
	default:
		return KindAny
	}
}

// ID returns the mob's UMID.
func (m *Mob) ID() (codec.MobID, error) {
	v, err := m.obj.Get(dictionary.PropMobID)
	if err != nil {
		return codec.NilMobID, err
	}
	id, ok := v.(codec.MobID)
	if !ok {
		return codec.NilMobID, mismatch(m.obj, dictionary.PropMobID, v)
	}
	return id, nil
}

// MustID returns the mob's UMID or the nil id when unreadable.
func (m *Mob) MustID() codec.MobID {
	id, _ := m.ID()
	return id
}

// SetID replaces the mob's UMID.
func (m *Mob) SetID(id codec.MobID) error {
	return m.obj.Set(dictionary.PropMobID, id)
}

// Name returns the mob's name, or "" when unnamed.
func (m *Mob) Name() string {
	name, _ := getString(m.obj, dictionary.PropName)
	return name
}

// SetName renames the mob.
func (m *Mob) SetName(name string) error {
	if err := m.obj.Set(dictionary.PropName, codec.String(name)); err != nil {
		return err
	}
	return m.touch()
}

// CreationTime returns when the mob was created.
func (m *Mob) CreationTime() (time.Time, error) {
	return m.timestamp(dictionary.PropCreationTime)
}

// LastModified returns when the mob's own structure last changed.
func (m *Mob) LastModified() (time.Time, error) {
	return m.timestamp(dictionary.PropLastModified)
}

func (m *Mob) timestamp(name string) (time.Time, error) {
	v, err := m.obj.Get(name)
	if err != nil {
		return time.Time{}, err
	}
	ts, ok := v.(codec.Timestamp)
	if !ok {
		return time.Time{}, mismatch(m.obj, name, v)
	}
	return ts.Time, nil
}

func (m *Mob) touch() error {
	return m.obj.Set(dictionary.PropLastModified, codec.NewTimestamp(now()))
}

// AddSlot appends a timeline slot holding seg. It fails with
// faults.ErrDuplicateSlotID, leaving the slots unchanged, when slotID is
// already used on this mob.
func (m *Mob) AddSlot(editRate codec.Rational, seg Segment, slotID uint32, name string, physicalTrackNumber uint32) (*Slot, error) {
	if seg == nil {
		return nil, faults.Wrap(faults.ErrTypeMismatch, "timeline", "add slot", "nil segment", nil)
	}
	if _, err := m.SlotByID(slotID); err == nil {
		return nil, faults.Wrap(faults.ErrDuplicateSlotID, "timeline", "add slot",
			fmt.Sprintf("slot %d already on %s", slotID, m.MustID()), nil)
	} else if !errors.Is(err, faults.ErrPropertyNotPresent) {
		return nil, err
	}
	slot, err := newSlot(m.f, editRate, seg, slotID, name, physicalTrackNumber)
	if err != nil {
		return nil, err
	}
	if err := m.obj.AppendChild(dictionary.PropSlots, slot.obj); err != nil {
		return nil, err
	}
	if err := m.touch(); err != nil {
		return nil, err
	}
	return slot, nil
}

// AddTimelineSlot is AddSlot under the name binding layers expect.
func (m *Mob) AddTimelineSlot(editRate codec.Rational, seg Segment, slotID uint32, name string, trackNumber uint32) (*Slot, error) {
	return m.AddSlot(editRate, seg, slotID, name, trackNumber)
}

// SlotCount returns the number of slots without loading them.
func (m *Mob) SlotCount() int {
	n, _ := m.obj.ChildCount(dictionary.PropSlots)
	return n
}

// Slots returns the slots in order.
func (m *Mob) Slots() ([]*Slot, error) {
	var out []*Slot
	for slot, err := range m.SlotIterator() {
		if err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	return out, nil
}

// SlotByID finds the slot with the given identifier. It fails with
// faults.ErrPropertyNotPresent when there is none.
func (m *Mob) SlotByID(id uint32) (*Slot, error) {
	for slot, err := range m.SlotIterator() {
		if err != nil {
			return nil, err
		}
		sid, err := slot.ID()
		if err != nil {
			return nil, err
		}
		if sid == id {
			return slot, nil
		}
	}
	return nil, faults.Wrap(faults.ErrPropertyNotPresent, "timeline", "slot",
		fmt.Sprintf("no slot %d", id), nil)
}

// EssenceDescriptor returns the descriptor of a source mob.
func (m *Mob) EssenceDescriptor() (*FileDescriptor, error) {
	obj, err := m.obj.Child(dictionary.PropEssenceDescription)
	if err != nil {
		return nil, err
	}
	return AsFileDescriptor(obj)
}

// Copy returns an unsaved deep copy of the mob under a fresh MobID.
func (m *Mob) Copy(name string) (*Mob, error) {
	obj, err := m.obj.Clone()
	if err != nil {
		return nil, err
	}
	cp := &Mob{obj: obj, f: m.f}
	if err := cp.SetID(codec.NewMobID()); err != nil {
		return nil, err
	}
	stamp := codec.NewTimestamp(now())
	if err := obj.Set(dictionary.PropCreationTime, stamp); err != nil {
		return nil, err
	}
	if err := obj.Set(dictionary.PropLastModified, stamp); err != nil {
		return nil, err
	}
	if name != "" {
		if err := obj.Set(dictionary.PropName, codec.String(name)); err != nil {
			return nil, err
		}
	}
	return cp, nil
}
