package timeline

import (
	"fmt"

	"splice/internal/codec"
	"splice/internal/dictionary"
	"splice/internal/faults"
	"splice/internal/object"
)

// FileDescriptor describes essence stored in a file, with the locators
// that find it.
type FileDescriptor struct {
	obj *object.Object
}

// NewFileDescriptor creates a descriptor for essence of length samples at
// sampleRate.
func NewFileDescriptor(f *object.Factory, sampleRate codec.Rational, length int64) (*FileDescriptor, error) {
	obj, err := f.Create(dictionary.ClassFileDescriptor)
	if err != nil {
		return nil, err
	}
	if err := obj.Set(dictionary.PropSampleRate, sampleRate); err != nil {
		return nil, err
	}
	if err := obj.Set(dictionary.PropLength, codec.Int64(length)); err != nil {
		return nil, err
	}
	return &FileDescriptor{obj: obj}, nil
}

// AsFileDescriptor wraps a graph object that is a FileDescriptor.
func AsFileDescriptor(obj *object.Object) (*FileDescriptor, error) {
	if obj == nil || !obj.IsA(dictionary.ClassFileDescriptor) {
		return nil, faults.Wrap(faults.ErrTypeMismatch, "timeline", "descriptor", "object is not a file descriptor", nil)
	}
	return &FileDescriptor{obj: obj}, nil
}

// Object returns the underlying graph object.
func (d *FileDescriptor) Object() *object.Object { return d.obj }

// SampleRate returns the essence sample rate.
func (d *FileDescriptor) SampleRate() (codec.Rational, error) {
	return getRational(d.obj, dictionary.PropSampleRate)
}

// Length returns the essence length in samples.
func (d *FileDescriptor) Length() (int64, error) {
	return getInt(d.obj, dictionary.PropLength)
}

// AddLocator appends a locator object.
func (d *FileDescriptor) AddLocator(loc Locator) error {
	return d.obj.AppendChild(dictionary.PropLocator, loc.Object())
}

// Locators returns the locators in order.
func (d *FileDescriptor) Locators() ([]Locator, error) {
	if !d.obj.Has(dictionary.PropLocator) {
		return nil, nil
	}
	objs, err := d.obj.Children(dictionary.PropLocator)
	if err != nil {
		return nil, err
	}
	out := make([]Locator, 0, len(objs))
	for _, o := range objs {
		loc, err := AsLocator(o)
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, nil
}

// Locator points at essence outside the file.
type Locator interface {
	Object() *object.Object
	// Location returns the URL or the free-text name.
	Location() (string, error)
}

// NetworkLocator locates essence by URL.
type NetworkLocator struct{ obj *object.Object }

// TextLocator describes essence location in free text.
type TextLocator struct{ obj *object.Object }

// NewNetworkLocator creates a locator for url.
func NewNetworkLocator(f *object.Factory, url string) (*NetworkLocator, error) {
	obj, err := f.Create(dictionary.ClassNetworkLocator)
	if err != nil {
		return nil, err
	}
	if err := obj.Set(dictionary.PropURLString, codec.String(url)); err != nil {
		return nil, err
	}
	return &NetworkLocator{obj: obj}, nil
}

// NewTextLocator creates a free-text locator.
func NewTextLocator(f *object.Factory, name string) (*TextLocator, error) {
	obj, err := f.Create(dictionary.ClassTextLocator)
	if err != nil {
		return nil, err
	}
	if err := obj.Set(dictionary.PropName, codec.String(name)); err != nil {
		return nil, err
	}
	return &TextLocator{obj: obj}, nil
}

func (l *NetworkLocator) Object() *object.Object { return l.obj }

func (l *NetworkLocator) Location() (string, error) {
	return getString(l.obj, dictionary.PropURLString)
}

func (l *TextLocator) Object() *object.Object { return l.obj }

func (l *TextLocator) Location() (string, error) {
	return getString(l.obj, dictionary.PropName)
}

// AsLocator wraps a locator object.
func AsLocator(obj *object.Object) (Locator, error) {
	switch {
	case obj == nil:
		return nil, faults.Wrap(faults.ErrTypeMismatch, "timeline", "locator", "nil object", nil)
	case obj.IsA(dictionary.ClassNetworkLocator):
		return &NetworkLocator{obj: obj}, nil
	case obj.IsA(dictionary.ClassTextLocator):
		return &TextLocator{obj: obj}, nil
	default:
		return nil, faults.Wrap(faults.ErrTypeMismatch, "timeline", "locator",
			fmt.Sprintf("%s is not a known locator", obj.ClassName()), nil)
	}
}
