package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"splice/internal/faults"
)

// errUnknownElement marks an array whose element tag this build does not
// know. The array's extent cannot be parsed, so Decode keeps it as Opaque.
var errUnknownElement = errors.New("array of unknown element tag")

// maxNesting bounds array recursion so hostile input cannot exhaust the stack.
const maxNesting = 16

// reader consumes a bounded byte range. Every accessor fails with
// ErrMalformedValue instead of reading past the end.
type reader struct {
	buf   []byte
	off   int
	order binary.ByteOrder
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, faults.Wrap(faults.ErrMalformedValue, "codec", "decode",
			fmt.Sprintf("need %d bytes at offset %d, have %d", n, r.off, r.remaining()), nil)
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *reader) u8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(b), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(b), nil
}

// Decode parses data as a value of the given tag. The whole buffer must be
// consumed. Unknown tags produce an Opaque value.
func Decode(tag Tag, data []byte, order binary.ByteOrder) (Value, error) {
	if !tag.Known() {
		raw := make([]byte, len(data))
		copy(raw, data)
		return Opaque{Raw: tag, Data: raw}, nil
	}
	r := &reader{buf: data, order: orderOf(order)}
	v, err := r.value(tag, 0)
	if errors.Is(err, errUnknownElement) {
		raw := make([]byte, len(data))
		copy(raw, data)
		return Opaque{Raw: tag, Data: raw}, nil
	}
	if err != nil {
		return nil, err
	}
	if r.remaining() != 0 {
		return nil, faults.Wrap(faults.ErrMalformedValue, "codec", "decode",
			fmt.Sprintf("%d trailing bytes after %s", r.remaining(), tag), nil)
	}
	return v, nil
}

func (r *reader) value(tag Tag, depth int) (Value, error) {
	switch tag {
	case TagInt8:
		b, err := r.u8()
		return Int8(int8(b)), err
	case TagUInt8:
		b, err := r.u8()
		return UInt8(b), err
	case TagBoolean:
		b, err := r.u8()
		if err != nil {
			return nil, err
		}
		if b > 1 {
			return nil, faults.Wrap(faults.ErrMalformedValue, "codec", "decode", fmt.Sprintf("boolean byte %d", b), nil)
		}
		return Boolean(b == 1), nil
	case TagInt16:
		n, err := r.u16()
		return Int16(int16(n)), err
	case TagUInt16:
		n, err := r.u16()
		return UInt16(n), err
	case TagInt32:
		n, err := r.u32()
		return Int32(int32(n)), err
	case TagUInt32:
		n, err := r.u32()
		return UInt32(n), err
	case TagInt64:
		n, err := r.u64()
		return Int64(int64(n)), err
	case TagUInt64:
		n, err := r.u64()
		return UInt64(n), err
	case TagRational:
		num, err := r.u32()
		if err != nil {
			return nil, err
		}
		den, err := r.u32()
		if err != nil {
			return nil, err
		}
		return Rational{Num: int32(num), Den: int32(den)}, nil
	case TagTimestamp:
		n, err := r.u64()
		if err != nil {
			return nil, err
		}
		return Timestamp{Time: time.Unix(0, int64(n)).UTC()}, nil
	case TagStrongRef:
		n, err := r.u64()
		return StrongRef(n), err
	case TagAUID:
		b, err := r.take(16)
		if err != nil {
			return nil, err
		}
		var id AUID
		copy(id[:], b)
		return id, nil
	case TagWeakRef:
		b, err := r.take(16)
		if err != nil {
			return nil, err
		}
		var id WeakRef
		copy(id[:], b)
		return id, nil
	case TagMobID:
		b, err := r.take(32)
		if err != nil {
			return nil, err
		}
		var id MobID
		copy(id[:], b)
		return id, nil
	case TagBlobRef:
		stream, err := r.u32()
		if err != nil {
			return nil, err
		}
		size, err := r.u64()
		if err != nil {
			return nil, err
		}
		return BlobRef{Stream: stream, Size: int64(size)}, nil
	case TagString:
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		if n%2 != 0 {
			return nil, faults.Wrap(faults.ErrMalformedValue, "codec", "decode", fmt.Sprintf("odd utf-16 byte count %d", n), nil)
		}
		raw, err := r.take(int(n))
		if err != nil {
			return nil, err
		}
		text, err := utf16For(r.order).NewDecoder().Bytes(raw)
		if err != nil {
			return nil, faults.Wrap(faults.ErrMalformedValue, "codec", "decode", "invalid utf-16", err)
		}
		return String(text), nil
	case TagBytes:
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		raw, err := r.take(int(n))
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(raw))
		copy(out, raw)
		return Bytes(out), nil
	case TagStrongRefVector:
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		if int(n) > r.remaining()/8 {
			return nil, faults.Wrap(faults.ErrMalformedValue, "codec", "decode",
				fmt.Sprintf("reference vector count %d exceeds payload", n), nil)
		}
		ids := make(StrongRefVector, n)
		for i := range ids {
			v, err := r.u64()
			if err != nil {
				return nil, err
			}
			ids[i] = ObjectID(v)
		}
		return ids, nil
	case TagArray:
		return r.array(depth)
	default:
		return nil, faults.Wrap(faults.ErrMalformedValue, "codec", "decode", fmt.Sprintf("unexpected tag %s", tag), nil)
	}
}

func (r *reader) array(depth int) (Value, error) {
	if depth >= maxNesting {
		return nil, faults.Wrap(faults.ErrMalformedValue, "codec", "decode", "array nesting too deep", nil)
	}
	elemByte, err := r.u8()
	if err != nil {
		return nil, err
	}
	elem := Tag(elemByte)
	if !elem.Known() {
		return nil, errUnknownElement
	}
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	// Every element occupies at least one byte, except empty nested arrays
	// which still carry their own 5-byte header.
	minWidth := fixedSize(elem)
	if minWidth == 0 {
		minWidth = 1
	}
	if int(count) > r.remaining()/minWidth {
		return nil, faults.Wrap(faults.ErrMalformedValue, "codec", "decode",
			fmt.Sprintf("array count %d exceeds payload", count), nil)
	}
	items := make([]Value, 0, count)
	for i := uint32(0); i < count; i++ {
		v, err := r.value(elem, depth+1)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return Array{Elem: elem, Items: items}, nil
}
