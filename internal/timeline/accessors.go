package timeline

import (
	"fmt"

	"splice/internal/codec"
	"splice/internal/faults"
	"splice/internal/object"
)

func getInt(obj *object.Object, name string) (int64, error) {
	v, err := obj.Get(name)
	if err != nil {
		return 0, err
	}
	n, ok := codec.AsInt64(v)
	if !ok {
		return 0, mismatch(obj, name, v)
	}
	return n, nil
}

func getString(obj *object.Object, name string) (string, error) {
	v, err := obj.Get(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(codec.String)
	if !ok {
		return "", mismatch(obj, name, v)
	}
	return string(s), nil
}

func getRational(obj *object.Object, name string) (codec.Rational, error) {
	v, err := obj.Get(name)
	if err != nil {
		return codec.Rational{}, err
	}
	r, ok := v.(codec.Rational)
	if !ok {
		return codec.Rational{}, mismatch(obj, name, v)
	}
	return r, nil
}

func getAUID(obj *object.Object, name string) (codec.AUID, error) {
	v, err := obj.Get(name)
	if err != nil {
		return codec.NilAUID, err
	}
	switch x := v.(type) {
	case codec.AUID:
		return x, nil
	case codec.WeakRef:
		return codec.AUID(x), nil
	default:
		return codec.NilAUID, mismatch(obj, name, v)
	}
}

// getEnum returns the symbolic name of an enumerated property, falling back
// to the decimal value for values the dictionary does not name.
func getEnum(obj *object.Object, name string) (string, error) {
	n, err := getInt(obj, name)
	if err != nil {
		return "", err
	}
	if obj.Class() != nil {
		if p, err := obj.Dictionary().LookupProperty(obj.Class(), name); err == nil {
			if label, ok := p.Type.EnumName(n); ok {
				return label, nil
			}
		}
	}
	return fmt.Sprintf("%d", n), nil
}

func mismatch(obj *object.Object, name string, v codec.Value) error {
	return faults.Wrap(faults.ErrTypeMismatch, "timeline", "get",
		fmt.Sprintf("%s.%s holds %s", obj.ClassName(), name, v.Tag()), nil)
}
