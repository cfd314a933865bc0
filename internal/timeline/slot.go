package timeline

import (
	"errors"
	"iter"

	"splice/internal/codec"
	"splice/internal/dictionary"
	"splice/internal/faults"
	"splice/internal/object"
)

// Slot is a track on a mob holding one root segment at an edit rate.
type Slot struct {
	obj *object.Object
}

func newSlot(f *object.Factory, editRate codec.Rational, seg Segment, slotID uint32, name string, track uint32) (*Slot, error) {
	obj, err := f.Create(dictionary.ClassTimelineMobSlot)
	if err != nil {
		return nil, err
	}
	sets := []struct {
		name  string
		value codec.Value
	}{
		{dictionary.PropSlotID, codec.UInt32(slotID)},
		{dictionary.PropEditRate, editRate},
		{dictionary.PropOrigin, codec.Int64(0)},
		{dictionary.PropPhysicalTrackNumber, codec.UInt32(track)},
	}
	for _, s := range sets {
		if err := obj.Set(s.name, s.value); err != nil {
			return nil, err
		}
	}
	if name != "" {
		if err := obj.Set(dictionary.PropSlotName, codec.String(name)); err != nil {
			return nil, err
		}
	}
	if err := obj.SetChild(dictionary.PropSegment, seg.Object()); err != nil {
		return nil, err
	}
	return &Slot{obj: obj}, nil
}

// AsSlot wraps a graph object that is a MobSlot.
func AsSlot(obj *object.Object) (*Slot, error) {
	if obj == nil || !obj.IsA(dictionary.ClassMobSlot) {
		return nil, faults.Wrap(faults.ErrTypeMismatch, "timeline", "slot", "object is not a mob slot", nil)
	}
	return &Slot{obj: obj}, nil
}

// SlotIterator yields the mob's slots in order, loading each on demand.
// Ranging over it again starts from the first slot.
func (m *Mob) SlotIterator() iter.Seq2[*Slot, error] {
	return func(yield func(*Slot, error) bool) {
		n := m.SlotCount()
		for i := 0; i < n; i++ {
			obj, err := m.obj.ChildAt(dictionary.PropSlots, i)
			if err != nil {
				yield(nil, err)
				return
			}
			slot, err := AsSlot(obj)
			if !yield(slot, err) || err != nil {
				return
			}
		}
	}
}

// Object returns the underlying graph object.
func (s *Slot) Object() *object.Object { return s.obj }

// ID returns the slot identifier, unique within its mob.
func (s *Slot) ID() (uint32, error) {
	n, err := getInt(s.obj, dictionary.PropSlotID)
	return uint32(n), err
}

// Name returns the slot name, or "" when unnamed.
func (s *Slot) Name() string {
	name, _ := getString(s.obj, dictionary.PropSlotName)
	return name
}

// PhysicalTrackNumber returns the output track, if recorded.
func (s *Slot) PhysicalTrackNumber() (uint32, bool) {
	n, err := getInt(s.obj, dictionary.PropPhysicalTrackNumber)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

// EditRate returns the slot's edit rate. Static slots have none and report
// 0/1.
func (s *Slot) EditRate() (codec.Rational, error) {
	r, err := getRational(s.obj, dictionary.PropEditRate)
	if errors.Is(err, faults.ErrUnknownProperty) {
		return codec.Rational{Num: 0, Den: 1}, nil
	}
	return r, err
}

// Origin returns the slot's zero point in edit units.
func (s *Slot) Origin() (int64, error) {
	return getInt(s.obj, dictionary.PropOrigin)
}

// Segment returns the slot's root segment, loading it on first access.
func (s *Slot) Segment() (Segment, error) {
	obj, err := s.obj.Child(dictionary.PropSegment)
	if err != nil {
		return nil, err
	}
	return WrapSegment(obj)
}

// SetSegment replaces the root segment.
func (s *Slot) SetSegment(seg Segment) error {
	if seg == nil {
		return faults.Wrap(faults.ErrTypeMismatch, "timeline", "slot", "nil segment", nil)
	}
	return s.obj.SetChild(dictionary.PropSegment, seg.Object())
}

// Length is the length of the root segment.
func (s *Slot) Length() (Length, error) {
	seg, err := s.Segment()
	if err != nil {
		return Length{}, err
	}
	return seg.Length()
}
