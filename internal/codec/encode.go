package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"splice/internal/faults"
)

// utf16For returns the string encoding used for the given byte order.
func utf16For(order binary.ByteOrder) encoding.Encoding {
	if order == binary.BigEndian {
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	}
	return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
}

// Encode returns the payload for v, without its tag.
func Encode(v Value, order binary.ByteOrder) ([]byte, error) {
	if v == nil {
		return nil, faults.Wrap(faults.ErrTypeMismatch, "codec", "encode", "nil value", nil)
	}
	return appendValue(nil, v, orderOf(order))
}

// EncodeAs encodes v after checking it carries the tag want.
func EncodeAs(v Value, want Tag, order binary.ByteOrder) ([]byte, error) {
	if v == nil || v.Tag() != want {
		return nil, faults.Wrap(faults.ErrTypeMismatch, "codec", "encode",
			fmt.Sprintf("want %s, got %s", want, tagOf(v)), nil)
	}
	return appendValue(nil, v, orderOf(order))
}

func tagOf(v Value) string {
	if v == nil {
		return "nil"
	}
	return v.Tag().String()
}

func appendValue(dst []byte, v Value, order byteOrder) ([]byte, error) {
	switch x := v.(type) {
	case Int8:
		return append(dst, byte(x)), nil
	case UInt8:
		return append(dst, byte(x)), nil
	case Boolean:
		if x {
			return append(dst, 1), nil
		}
		return append(dst, 0), nil
	case Int16:
		return order.AppendUint16(dst, uint16(x)), nil
	case UInt16:
		return order.AppendUint16(dst, uint16(x)), nil
	case Int32:
		return order.AppendUint32(dst, uint32(x)), nil
	case UInt32:
		return order.AppendUint32(dst, uint32(x)), nil
	case Int64:
		return order.AppendUint64(dst, uint64(x)), nil
	case UInt64:
		return order.AppendUint64(dst, uint64(x)), nil
	case Rational:
		dst = order.AppendUint32(dst, uint32(x.Num))
		return order.AppendUint32(dst, uint32(x.Den)), nil
	case Timestamp:
		ns := x.UnixNano()
		if !time.Unix(0, ns).Equal(x.Time) {
			return nil, faults.Wrap(faults.ErrMalformedValue, "codec", "encode",
				fmt.Sprintf("timestamp %s outside the representable range", x.Format(time.RFC3339)), nil)
		}
		return order.AppendUint64(dst, uint64(ns)), nil
	case StrongRef:
		return order.AppendUint64(dst, uint64(x)), nil
	case AUID:
		return append(dst, x[:]...), nil
	case WeakRef:
		return append(dst, x[:]...), nil
	case MobID:
		return append(dst, x[:]...), nil
	case BlobRef:
		dst = order.AppendUint32(dst, x.Stream)
		return order.AppendUint64(dst, uint64(x.Size)), nil
	case String:
		encoded, err := utf16For(order).NewEncoder().Bytes([]byte(x))
		if err != nil {
			return nil, faults.Wrap(faults.ErrMalformedValue, "codec", "encode", "string is not valid text", err)
		}
		if uint64(len(encoded)) > math.MaxUint32 {
			return nil, faults.Wrap(faults.ErrMalformedValue, "codec", "encode", "string too long", nil)
		}
		dst = order.AppendUint32(dst, uint32(len(encoded)))
		return append(dst, encoded...), nil
	case Bytes:
		if uint64(len(x)) > math.MaxUint32 {
			return nil, faults.Wrap(faults.ErrMalformedValue, "codec", "encode", "byte string too long", nil)
		}
		dst = order.AppendUint32(dst, uint32(len(x)))
		return append(dst, x...), nil
	case StrongRefVector:
		dst = order.AppendUint32(dst, uint32(len(x)))
		for _, id := range x {
			dst = order.AppendUint64(dst, uint64(id))
		}
		return dst, nil
	case Array:
		if !x.Elem.Known() {
			return nil, faults.Wrap(faults.ErrTypeMismatch, "codec", "encode",
				fmt.Sprintf("array element tag %s", x.Elem), nil)
		}
		dst = append(dst, byte(x.Elem))
		dst = order.AppendUint32(dst, uint32(len(x.Items)))
		for i, item := range x.Items {
			if item == nil || item.Tag() != x.Elem {
				return nil, faults.Wrap(faults.ErrTypeMismatch, "codec", "encode",
					fmt.Sprintf("array item %d: want %s, got %s", i, x.Elem, tagOf(item)), nil)
			}
			var err error
			if dst, err = appendValue(dst, item, order); err != nil {
				return nil, err
			}
		}
		return dst, nil
	case Opaque:
		return append(dst, x.Data...), nil
	default:
		return nil, faults.Wrap(faults.ErrTypeMismatch, "codec", "encode", fmt.Sprintf("unsupported value %T", v), nil)
	}
}
