package timeline

import (
	"errors"
	"fmt"

	"splice/internal/codec"
	"splice/internal/dictionary"
	"splice/internal/faults"
	"splice/internal/object"
)

// Component is anything that can sit in a Sequence.
type Component interface {
	Object() *object.Object
	Kind() string
	Length() (Length, error)
	DataDefinition() codec.AUID
	component()
}

// Segment is a Component that can also be the root of a Slot or an input
// of an OperationGroup. The variants are Sequence, SourceClip,
// OperationGroup, EdgeCode, Filler, Timecode and OpaqueSegment.
type Segment interface {
	Component
	segment()
}

type base struct {
	obj *object.Object
}

func (b base) component() {}

// Object returns the underlying graph object.
func (b base) Object() *object.Object { return b.obj }

// DataDefinition returns the data kind identifier, or nil when unset.
func (b base) DataDefinition() codec.AUID {
	v, err := b.obj.Get(dictionary.PropDataDefinition)
	if err != nil {
		return codec.NilAUID
	}
	ref, _ := v.(codec.WeakRef)
	return codec.AUID(ref)
}

// SetLength declares the component length in edit units.
func (b base) SetLength(n int64) error {
	return b.obj.Set(dictionary.PropLength, codec.Int64(n))
}

// ClearLength removes the declared length, making it indeterminate.
func (b base) ClearLength() error {
	return b.obj.Remove(dictionary.PropLength)
}

// declaredLength reads the Length property; absence means indeterminate.
func (b base) declaredLength() (Length, error) {
	v, err := b.obj.Get(dictionary.PropLength)
	if errors.Is(err, faults.ErrPropertyNotPresent) || errors.Is(err, faults.ErrUnknownProperty) {
		return Indeterminate, nil
	}
	if err != nil {
		return Length{}, err
	}
	n, ok := codec.AsInt64(v)
	if !ok {
		return Length{}, faults.Wrap(faults.ErrTypeMismatch, "timeline", "length",
			fmt.Sprintf("%s.Length is %s", b.obj.ClassName(), v.Tag()), nil)
	}
	return Units(n), nil
}

type segmentBase struct {
	base
}

func (segmentBase) segment() {}

// newComponent creates an object of class with its data definition set.
func newComponent(f *object.Factory, class string, dataDef codec.AUID) (*object.Object, error) {
	obj, err := f.Create(class)
	if err != nil {
		return nil, err
	}
	if err := obj.Set(dictionary.PropDataDefinition, codec.WeakRef(dataDef)); err != nil {
		return nil, err
	}
	return obj, nil
}

// Wrap returns the typed view of a component object.
func Wrap(obj *object.Object) (Component, error) {
	if obj == nil {
		return nil, faults.Wrap(faults.ErrTypeMismatch, "timeline", "wrap", "nil object", nil)
	}
	if obj.Opaque() {
		return &OpaqueSegment{segmentBase{base{obj}}}, nil
	}
	switch {
	case obj.IsA(dictionary.ClassEdgeCode):
		return &EdgeCode{segmentBase{base{obj}}}, nil
	case obj.IsA(dictionary.ClassFiller):
		return &Filler{segmentBase{base{obj}}}, nil
	case obj.IsA(dictionary.ClassOperationGroup):
		return &OperationGroup{segmentBase{base{obj}}}, nil
	case obj.IsA(dictionary.ClassSequence):
		return &Sequence{segmentBase{base{obj}}}, nil
	case obj.IsA(dictionary.ClassSourceClip):
		return &SourceClip{segmentBase{base{obj}}}, nil
	case obj.IsA(dictionary.ClassTimecode):
		return &Timecode{segmentBase{base{obj}}}, nil
	case obj.IsA(dictionary.ClassTransition):
		return &Transition{base{obj}}, nil
	case obj.IsA(dictionary.ClassSegment):
		return &OpaqueSegment{segmentBase{base{obj}}}, nil
	default:
		return nil, faults.Wrap(faults.ErrTypeMismatch, "timeline", "wrap",
			fmt.Sprintf("%s is not a component", obj.ClassName()), nil)
	}
}

// WrapSegment is Wrap restricted to segments.
func WrapSegment(obj *object.Object) (Segment, error) {
	c, err := Wrap(obj)
	if err != nil {
		return nil, err
	}
	seg, ok := c.(Segment)
	if !ok {
		return nil, faults.Wrap(faults.ErrTypeMismatch, "timeline", "wrap",
			fmt.Sprintf("%s is not a segment", obj.ClassName()), nil)
	}
	return seg, nil
}
