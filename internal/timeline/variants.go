package timeline

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"splice/internal/codec"
	"splice/internal/dictionary"
	"splice/internal/faults"
	"splice/internal/object"
)

// Sequence is an ordered list of components sharing the slot's edit rate.
type Sequence struct{ segmentBase }

// NewSequence creates an empty sequence of the given data kind.
func NewSequence(f *object.Factory, dataDef codec.AUID) (*Sequence, error) {
	obj, err := newComponent(f, dictionary.ClassSequence, dataDef)
	if err != nil {
		return nil, err
	}
	if err := obj.SetChildren(dictionary.PropComponents, nil); err != nil {
		return nil, err
	}
	return &Sequence{segmentBase{base{obj}}}, nil
}

func (s *Sequence) Kind() string { return dictionary.ClassSequence }

// Append adds c at the end of the sequence.
func (s *Sequence) Append(c Component) error {
	if c == nil {
		return faults.Wrap(faults.ErrTypeMismatch, "timeline", "append", "nil component", nil)
	}
	return s.obj.AppendChild(dictionary.PropComponents, c.Object())
}

// Components returns the typed children in order.
func (s *Sequence) Components() ([]Component, error) {
	objs, err := s.obj.Children(dictionary.PropComponents)
	if err != nil {
		return nil, err
	}
	out := make([]Component, 0, len(objs))
	for _, o := range objs {
		c, err := Wrap(o)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Length sums the segment lengths and subtracts transition lengths, since
// a transition overlaps its neighbours. Any indeterminate child makes the
// sequence indeterminate.
func (s *Sequence) Length() (Length, error) {
	comps, err := s.Components()
	if err != nil {
		return Length{}, err
	}
	total := Units(0)
	for _, c := range comps {
		l, err := c.Length()
		if err != nil {
			return Length{}, err
		}
		if _, ok := c.(*Transition); ok {
			total = total.Sub(l)
		} else {
			total = total.Add(l)
		}
	}
	return total, nil
}

// SourceRef addresses a span of a slot in another mob.
type SourceRef struct {
	MobID     codec.MobID
	SlotID    uint32
	StartTime int64
}

// MobResolver finds mobs by identifier, typically across a whole file.
type MobResolver interface {
	LookupMob(id codec.MobID) (*Mob, error)
}

// SourceClip refers to a span of another mob's slot by MobID. The target is
// not owned and is only looked up when dereferenced.
type SourceClip struct{ segmentBase }

// NewSourceClip creates a clip of length units pointing at ref.
func NewSourceClip(f *object.Factory, dataDef codec.AUID, length int64, ref SourceRef) (*SourceClip, error) {
	obj, err := newComponent(f, dictionary.ClassSourceClip, dataDef)
	if err != nil {
		return nil, err
	}
	clip := &SourceClip{segmentBase{base{obj}}}
	if err := clip.SetLength(length); err != nil {
		return nil, err
	}
	if err := clip.SetSourceRef(ref); err != nil {
		return nil, err
	}
	return clip, nil
}

func (c *SourceClip) Kind() string { return dictionary.ClassSourceClip }

// Length is the declared length; the target is never consulted.
func (c *SourceClip) Length() (Length, error) { return c.declaredLength() }

// SetSourceRef replaces the clip's target.
func (c *SourceClip) SetSourceRef(ref SourceRef) error {
	if ref.MobID.IsNil() {
		if err := c.obj.Remove(dictionary.PropSourceID); err != nil {
			return err
		}
	} else if err := c.obj.Set(dictionary.PropSourceID, ref.MobID); err != nil {
		return err
	}
	if err := c.obj.Set(dictionary.PropSourceMobSlotID, codec.UInt32(ref.SlotID)); err != nil {
		return err
	}
	return c.obj.Set(dictionary.PropStartTime, codec.Int64(ref.StartTime))
}

// SourceRef returns the clip's target. A nil MobID marks the end of a
// source chain.
func (c *SourceClip) SourceRef() (SourceRef, error) {
	var ref SourceRef
	if v, err := c.obj.Get(dictionary.PropSourceID); err == nil {
		id, ok := v.(codec.MobID)
		if !ok {
			return ref, mismatch(c.obj, dictionary.PropSourceID, v)
		}
		ref.MobID = id
	} else if !errors.Is(err, faults.ErrPropertyNotPresent) {
		return ref, err
	}
	slot, err := getInt(c.obj, dictionary.PropSourceMobSlotID)
	if err != nil {
		return ref, err
	}
	ref.SlotID = uint32(slot)
	if start, err := getInt(c.obj, dictionary.PropStartTime); err == nil {
		ref.StartTime = start
	} else if !errors.Is(err, faults.ErrPropertyNotPresent) {
		return ref, err
	}
	return ref, nil
}

// ResolveMob dereferences the clip's target mob.
func (c *SourceClip) ResolveMob(r MobResolver) (*Mob, error) {
	ref, err := c.SourceRef()
	if err != nil {
		return nil, err
	}
	if ref.MobID.IsNil() {
		return nil, faults.Wrap(faults.ErrUnresolvedReference, "timeline", "resolve clip",
			"clip has no source mob", nil)
	}
	if r == nil {
		return nil, faults.Wrap(faults.ErrUnresolvedReference, "timeline", "resolve clip",
			ref.MobID.String(), nil)
	}
	mob, err := r.LookupMob(ref.MobID)
	if err != nil {
		if errors.Is(err, faults.ErrUnresolvedReference) {
			return nil, err
		}
		return nil, faults.Wrap(faults.ErrUnresolvedReference, "timeline", "resolve clip", ref.MobID.String(), err)
	}
	return mob, nil
}

// ResolveSlot dereferences the clip's target slot.
func (c *SourceClip) ResolveSlot(r MobResolver) (*Slot, error) {
	mob, err := c.ResolveMob(r)
	if err != nil {
		return nil, err
	}
	ref, _ := c.SourceRef()
	slot, err := mob.SlotByID(ref.SlotID)
	if err != nil {
		return nil, faults.Wrap(faults.ErrUnresolvedReference, "timeline", "resolve clip",
			fmt.Sprintf("%s slot %d", ref.MobID, ref.SlotID), err)
	}
	return slot, nil
}

// Transition blends the segments on either side of it in a sequence. It is
// a component but not a segment.
type Transition struct{ base }

// NewTransition creates a transition of length units using effect op.
func NewTransition(f *object.Factory, dataDef codec.AUID, length int64, op *OperationGroup, cutPoint int64) (*Transition, error) {
	obj, err := newComponent(f, dictionary.ClassTransition, dataDef)
	if err != nil {
		return nil, err
	}
	t := &Transition{base{obj}}
	if err := t.SetLength(length); err != nil {
		return nil, err
	}
	if op == nil {
		return nil, faults.Wrap(faults.ErrTypeMismatch, "timeline", "transition", "operation group required", nil)
	}
	if err := obj.SetChild(dictionary.PropOperationGroup, op.Object()); err != nil {
		return nil, err
	}
	if err := obj.Set(dictionary.PropCutPoint, codec.Int64(cutPoint)); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Transition) Kind() string { return dictionary.ClassTransition }

func (t *Transition) Length() (Length, error) { return t.declaredLength() }

// CutPoint is the offset within the transition where a cut would fall.
func (t *Transition) CutPoint() (int64, error) { return getInt(t.obj, dictionary.PropCutPoint) }

// OperationGroup returns the effect applied by the transition.
func (t *Transition) OperationGroup() (*OperationGroup, error) {
	obj, err := t.obj.Child(dictionary.PropOperationGroup)
	if err != nil {
		return nil, err
	}
	c, err := Wrap(obj)
	if err != nil {
		return nil, err
	}
	op, ok := c.(*OperationGroup)
	if !ok {
		return nil, faults.Wrap(faults.ErrTypeMismatch, "timeline", "transition",
			fmt.Sprintf("operation group is %s", obj.ClassName()), nil)
	}
	return op, nil
}

// OperationGroup applies an effect to its input segments.
type OperationGroup struct{ segmentBase }

// NewOperationGroup creates an effect node of length units.
func NewOperationGroup(f *object.Factory, dataDef codec.AUID, length int64, operation codec.AUID) (*OperationGroup, error) {
	obj, err := newComponent(f, dictionary.ClassOperationGroup, dataDef)
	if err != nil {
		return nil, err
	}
	g := &OperationGroup{segmentBase{base{obj}}}
	if err := g.SetLength(length); err != nil {
		return nil, err
	}
	if err := obj.Set(dictionary.PropOperation, codec.WeakRef(operation)); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *OperationGroup) Kind() string { return dictionary.ClassOperationGroup }

func (g *OperationGroup) Length() (Length, error) { return g.declaredLength() }

// Operation returns the identifier of the applied operation definition.
func (g *OperationGroup) Operation() (codec.AUID, error) {
	return getAUID(g.obj, dictionary.PropOperation)
}

// AddInput appends an input segment.
func (g *OperationGroup) AddInput(seg Segment) error {
	if seg == nil {
		return faults.Wrap(faults.ErrTypeMismatch, "timeline", "add input", "nil segment", nil)
	}
	return g.obj.AppendChild(dictionary.PropInputSegments, seg.Object())
}

// Inputs returns the input segments in order.
func (g *OperationGroup) Inputs() ([]Segment, error) {
	objs, err := g.obj.Children(dictionary.PropInputSegments)
	if err != nil {
		return nil, err
	}
	out := make([]Segment, 0, len(objs))
	for _, o := range objs {
		seg, err := WrapSegment(o)
		if err != nil {
			return nil, err
		}
		out = append(out, seg)
	}
	return out, nil
}

// SetRendering attaches a precomputed rendering of the effect.
func (g *OperationGroup) SetRendering(clip *SourceClip) error {
	if clip == nil {
		return g.obj.Remove(dictionary.PropRendering)
	}
	return g.obj.SetChild(dictionary.PropRendering, clip.Object())
}

// Rendering returns the precomputed rendering, or nil when there is none.
func (g *OperationGroup) Rendering() (*SourceClip, error) {
	obj, err := g.obj.Child(dictionary.PropRendering)
	if errors.Is(err, faults.ErrPropertyNotPresent) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c, err := Wrap(obj)
	if err != nil {
		return nil, err
	}
	clip, ok := c.(*SourceClip)
	if !ok {
		return nil, faults.Wrap(faults.ErrTypeMismatch, "timeline", "rendering",
			fmt.Sprintf("rendering is %s", obj.ClassName()), nil)
	}
	return clip, nil
}

// MaxHeaderLength is the width of the EdgeCode header stamp.
const MaxHeaderLength = 8

// EdgeCode tracks film or tape edge numbers.
type EdgeCode struct{ segmentBase }

// NewEdgeCode creates an edge code segment stamped with header. Length is
// left indeterminate until SetLength.
func NewEdgeCode(f *object.Factory, header string) (*EdgeCode, error) {
	obj, err := newComponent(f, dictionary.ClassEdgeCode, dictionary.DataDefEdgecode)
	if err != nil {
		return nil, err
	}
	e := &EdgeCode{segmentBase{base{obj}}}
	if err := obj.Set(dictionary.PropStart, codec.Int64(0)); err != nil {
		return nil, err
	}
	if err := obj.SetAny(dictionary.PropFilmKind, "FtNull"); err != nil {
		return nil, err
	}
	if err := obj.SetAny(dictionary.PropCodeFormat, "EtNull"); err != nil {
		return nil, err
	}
	if err := e.SetHeader(header); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *EdgeCode) Kind() string { return dictionary.ClassEdgeCode }

func (e *EdgeCode) Length() (Length, error) { return e.declaredLength() }

// SetHeader stamps the header. It must be printable ASCII of at most
// MaxHeaderLength characters.
func (e *EdgeCode) SetHeader(header string) error {
	if len(header) > MaxHeaderLength || strings.IndexFunc(header, func(r rune) bool {
		return r > unicode.MaxASCII || !unicode.IsPrint(r)
	}) >= 0 {
		return faults.Wrap(faults.ErrMalformedValue, "timeline", "edge code",
			fmt.Sprintf("header %q is not up to %d printable ASCII characters", header, MaxHeaderLength), nil)
	}
	return e.obj.Set(dictionary.PropHeader, codec.String(header))
}

// Header returns the stamp, or "" when none was recorded.
func (e *EdgeCode) Header() (string, error) {
	h, err := getString(e.obj, dictionary.PropHeader)
	if errors.Is(err, faults.ErrPropertyNotPresent) {
		return "", nil
	}
	return h, err
}

// Start is the first edge number covered.
func (e *EdgeCode) Start() (int64, error) { return getInt(e.obj, dictionary.PropStart) }

// SetStart changes the first edge number.
func (e *EdgeCode) SetStart(n int64) error {
	return e.obj.Set(dictionary.PropStart, codec.Int64(n))
}

// FilmKind returns the film gauge name, such as "Ft35MM".
func (e *EdgeCode) FilmKind() (string, error) { return getEnum(e.obj, dictionary.PropFilmKind) }

// SetFilmKind sets the film gauge by name.
func (e *EdgeCode) SetFilmKind(name string) error {
	return e.obj.SetAny(dictionary.PropFilmKind, name)
}

// CodeFormat returns the edge code format name, such as "EtKeycode".
func (e *EdgeCode) CodeFormat() (string, error) { return getEnum(e.obj, dictionary.PropCodeFormat) }

// SetCodeFormat sets the edge code format by name.
func (e *EdgeCode) SetCodeFormat(name string) error {
	return e.obj.SetAny(dictionary.PropCodeFormat, name)
}

// Filler is a placeholder span. Without a Length it is indeterminate.
type Filler struct{ segmentBase }

// NewFiller creates a filler; call SetLength to make it determinate.
func NewFiller(f *object.Factory, dataDef codec.AUID) (*Filler, error) {
	obj, err := newComponent(f, dictionary.ClassFiller, dataDef)
	if err != nil {
		return nil, err
	}
	return &Filler{segmentBase{base{obj}}}, nil
}

func (x *Filler) Kind() string { return dictionary.ClassFiller }

func (x *Filler) Length() (Length, error) { return x.declaredLength() }

// Timecode maps edit units to SMPTE timecode.
type Timecode struct{ segmentBase }

// NewTimecode creates a timecode segment of length units.
func NewTimecode(f *object.Factory, start int64, fps uint16, drop bool, length int64) (*Timecode, error) {
	obj, err := newComponent(f, dictionary.ClassTimecode, dictionary.DataDefTimecode)
	if err != nil {
		return nil, err
	}
	tc := &Timecode{segmentBase{base{obj}}}
	if err := tc.SetLength(length); err != nil {
		return nil, err
	}
	if err := obj.Set(dictionary.PropStart, codec.Int64(start)); err != nil {
		return nil, err
	}
	if err := obj.Set(dictionary.PropFPS, codec.UInt16(fps)); err != nil {
		return nil, err
	}
	if err := obj.Set(dictionary.PropDrop, codec.Boolean(drop)); err != nil {
		return nil, err
	}
	return tc, nil
}

func (tc *Timecode) Kind() string { return dictionary.ClassTimecode }

func (tc *Timecode) Length() (Length, error) { return tc.declaredLength() }

// Start is the timecode of the first frame, as a frame count.
func (tc *Timecode) Start() (int64, error) { return getInt(tc.obj, dictionary.PropStart) }

// FPS is the nominal frames per second.
func (tc *Timecode) FPS() (uint16, error) {
	n, err := getInt(tc.obj, dictionary.PropFPS)
	return uint16(n), err
}

// Drop reports drop-frame counting.
func (tc *Timecode) Drop() (bool, error) {
	v, err := tc.obj.Get(dictionary.PropDrop)
	if err != nil {
		return false, err
	}
	b, ok := v.(codec.Boolean)
	if !ok {
		return false, mismatch(tc.obj, dictionary.PropDrop, v)
	}
	return bool(b), nil
}

// OpaqueSegment wraps segments this package does not model, including
// objects whose class is unknown to the dictionary.
type OpaqueSegment struct{ segmentBase }

// Kind returns the class name, or the class identifier when unknown.
func (s *OpaqueSegment) Kind() string { return s.obj.ClassName() }

func (s *OpaqueSegment) Length() (Length, error) { return s.declaredLength() }
