package codec

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"splice/internal/faults"
)

// Coerce converts a native Go value into a Value carrying tag want.
// Integers are range checked; strings, byte slices, booleans, time.Time and
// uuid.UUID map to their obvious tags. A Value already carrying want is
// returned unchanged. Anything else fails with ErrTypeMismatch.
func Coerce(v any, want Tag) (Value, error) {
	if val, ok := v.(Value); ok {
		if val.Tag() == want {
			return val, nil
		}
		if n, ok := AsInt64(val); ok && IsInteger(want) {
			return intAs(n, want)
		}
		return nil, mismatch(v, want)
	}
	switch x := v.(type) {
	case int:
		return intAs(int64(x), want)
	case int8:
		return intAs(int64(x), want)
	case int16:
		return intAs(int64(x), want)
	case int32:
		return intAs(int64(x), want)
	case int64:
		return intAs(x, want)
	case uint:
		if uint64(x) > math.MaxInt64 {
			if want == TagUInt64 {
				return UInt64(x), nil
			}
			return nil, mismatch(v, want)
		}
		return intAs(int64(x), want)
	case uint8:
		return intAs(int64(x), want)
	case uint16:
		return intAs(int64(x), want)
	case uint32:
		return intAs(int64(x), want)
	case uint64:
		if want == TagUInt64 {
			return UInt64(x), nil
		}
		if x > math.MaxInt64 {
			return nil, mismatch(v, want)
		}
		return intAs(int64(x), want)
	case bool:
		if want == TagBoolean {
			return Boolean(x), nil
		}
	case string:
		switch want {
		case TagString:
			return String(x), nil
		case TagBytes:
			return Bytes(x), nil
		case TagAUID:
			return ParseAUID(x)
		case TagWeakRef:
			id, err := ParseAUID(x)
			return WeakRef(id), err
		case TagMobID:
			return ParseMobID(x)
		case TagRational:
			return ParseRational(x)
		}
	case []byte:
		if want == TagBytes {
			out := make(Bytes, len(x))
			copy(out, x)
			return out, nil
		}
	case time.Time:
		if want == TagTimestamp {
			return NewTimestamp(x), nil
		}
	case uuid.UUID:
		switch want {
		case TagAUID:
			return AUID(x), nil
		case TagWeakRef:
			return WeakRef(x), nil
		}
	}
	return nil, mismatch(v, want)
}

func mismatch(v any, want Tag) error {
	return faults.Wrap(faults.ErrTypeMismatch, "codec", "coerce", fmt.Sprintf("cannot use %T as %s", v, want), nil)
}

func intAs(n int64, want Tag) (Value, error) {
	inRange := func(lo, hi int64) bool { return n >= lo && n <= hi }
	switch want {
	case TagInt8:
		if inRange(math.MinInt8, math.MaxInt8) {
			return Int8(n), nil
		}
	case TagUInt8:
		if inRange(0, math.MaxUint8) {
			return UInt8(n), nil
		}
	case TagInt16:
		if inRange(math.MinInt16, math.MaxInt16) {
			return Int16(n), nil
		}
	case TagUInt16:
		if inRange(0, math.MaxUint16) {
			return UInt16(n), nil
		}
	case TagInt32:
		if inRange(math.MinInt32, math.MaxInt32) {
			return Int32(n), nil
		}
	case TagUInt32:
		if inRange(0, math.MaxUint32) {
			return UInt32(n), nil
		}
	case TagInt64:
		return Int64(n), nil
	case TagUInt64:
		if n >= 0 {
			return UInt64(n), nil
		}
	default:
		return nil, faults.Wrap(faults.ErrTypeMismatch, "codec", "coerce", fmt.Sprintf("integer is not a %s", want), nil)
	}
	return nil, faults.Wrap(faults.ErrTypeMismatch, "codec", "coerce", fmt.Sprintf("%d out of range for %s", n, want), nil)
}
