package object

import (
	"fmt"

	"splice/internal/codec"
	"splice/internal/dictionary"
	"splice/internal/faults"
)

// Factory creates objects bound to one dictionary.
type Factory struct {
	dict *dictionary.Dictionary
}

// NewFactory returns a factory for dict.
func NewFactory(dict *dictionary.Dictionary) *Factory {
	return &Factory{dict: dict}
}

// Dictionary returns the dictionary the factory validates against.
func (f *Factory) Dictionary() *dictionary.Dictionary { return f.dict }

// Create instantiates the named concrete class.
func (f *Factory) Create(className string) (*Object, error) {
	class, err := f.dict.ResolveName(className)
	if err != nil {
		return nil, err
	}
	return f.instantiate(class)
}

// CreateByID instantiates the concrete class registered under id.
func (f *Factory) CreateByID(id codec.AUID) (*Object, error) {
	class, err := f.dict.Resolve(id)
	if err != nil {
		return nil, err
	}
	return f.instantiate(class)
}

func (f *Factory) instantiate(class *dictionary.ClassDef) (*Object, error) {
	if !class.Concrete {
		return nil, faults.Wrap(faults.ErrAbstractClass, "object", "create",
			fmt.Sprintf("%s is abstract", class.Name), nil)
	}
	return newObject(f.dict, class, class.ID), nil
}
