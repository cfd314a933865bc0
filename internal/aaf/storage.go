package aaf

import (
	"iter"

	"splice/internal/codec"
	"splice/internal/object"
	"splice/internal/storage"
	"splice/internal/timeline"
)

// Storage is the file's set of top-level mobs. It implements
// timeline.MobResolver so source clips can be dereferenced against it.
type Storage struct {
	s *storage.Session
}

var _ timeline.MobResolver = (*Storage)(nil)

// AddMob registers m as a top-level mob. A second mob with the same MobID
// fails with faults.ErrDuplicateMob.
func (st *Storage) AddMob(m *timeline.Mob) error {
	return st.s.AddMob(m.Object())
}

// RemoveMob unregisters the mob with id. Its objects are reclaimed by the
// next save.
func (st *Storage) RemoveMob(id codec.MobID) error {
	return st.s.RemoveMob(id)
}

// CountMobs returns the number of registered mobs.
func (st *Storage) CountMobs() int { return st.s.MobCount() }

// LookupMob loads the mob with id.
func (st *Storage) LookupMob(id codec.MobID) (*timeline.Mob, error) {
	obj, err := st.s.MobByID(id)
	if err != nil {
		return nil, err
	}
	return st.wrap(obj)
}

// MobIterator yields the mobs of kind in registration order, loading each
// as it is reached. The sequence is finite and may be ranged again.
func (st *Storage) MobIterator(kind timeline.Kind) iter.Seq2[*timeline.Mob, error] {
	return func(yield func(*timeline.Mob, error) bool) {
		for obj, err := range st.s.MobIterator(kind.ClassName()) {
			if err != nil {
				yield(nil, err)
				return
			}
			m, err := st.wrap(obj)
			if !yield(m, err) || err != nil {
				return
			}
		}
	}
}

// Mobs returns every registered mob.
func (st *Storage) Mobs() ([]*timeline.Mob, error) { return st.collect(timeline.KindAny) }

func (st *Storage) CompositionMobs() ([]*timeline.Mob, error) {
	return st.collect(timeline.KindComposition)
}

func (st *Storage) MasterMobs() ([]*timeline.Mob, error) { return st.collect(timeline.KindMaster) }

func (st *Storage) SourceMobs() ([]*timeline.Mob, error) { return st.collect(timeline.KindSource) }

func (st *Storage) collect(kind timeline.Kind) ([]*timeline.Mob, error) {
	var out []*timeline.Mob
	for m, err := range st.MobIterator(kind) {
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (st *Storage) wrap(obj *object.Object) (*timeline.Mob, error) {
	return timeline.AsMob(st.s.Factory(), obj)
}
