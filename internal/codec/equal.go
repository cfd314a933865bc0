package codec

import "bytes"

// Equal reports whether a and b hold the same tag and value.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Tag() != b.Tag() {
		return false
	}
	switch x := a.(type) {
	case Timestamp:
		y, ok := b.(Timestamp)
		return ok && x.Equal(y.Time)
	case Bytes:
		y, ok := b.(Bytes)
		return ok && bytes.Equal(x, y)
	case Opaque:
		y, ok := b.(Opaque)
		return ok && bytes.Equal(x.Data, y.Data)
	case StrongRefVector:
		y, ok := b.(StrongRefVector)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i] != y[i] {
				return false
			}
		}
		return true
	case Array:
		y, ok := b.(Array)
		if !ok || x.Elem != y.Elem || len(x.Items) != len(y.Items) {
			return false
		}
		for i := range x.Items {
			if !Equal(x.Items[i], y.Items[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
