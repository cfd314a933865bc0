package codec

import (
	"fmt"
	"time"
)

// Value is a decoded property value. The concrete type determines its Tag.
type Value interface {
	Tag() Tag
}

type (
	Int8    int8
	UInt8   uint8
	Int16   int16
	UInt16  uint16
	Int32   int32
	UInt32  uint32
	Int64   int64
	UInt64  uint64
	Boolean bool
	String  string
	Bytes   []byte
)

// Rational is a numerator/denominator pair, used for edit rates and
// sample rates.
type Rational struct {
	Num int32
	Den int32
}

// Timestamp is a UTC instant stored with nanosecond precision.
type Timestamp struct {
	time.Time
}

// StrongRef is an owning reference to another object, stored by ObjectID.
type StrongRef ObjectID

// StrongRefVector is an ordered list of owning references.
type StrongRefVector []ObjectID

// WeakRef is a non-owning reference to an object identified by AUID, such
// as a data or operation definition.
type WeakRef AUID

// Array is a homogeneous, count-prefixed list of values with tag Elem.
type Array struct {
	Elem  Tag
	Items []Value
}

// BlobRef points at a value stored out of line in its own stream.
type BlobRef struct {
	Stream uint32
	Size   int64
}

// Opaque preserves a value whose tag this build does not understand.
type Opaque struct {
	Raw  Tag
	Data []byte
}

func (Int8) Tag() Tag            { return TagInt8 }
func (UInt8) Tag() Tag           { return TagUInt8 }
func (Int16) Tag() Tag           { return TagInt16 }
func (UInt16) Tag() Tag          { return TagUInt16 }
func (Int32) Tag() Tag           { return TagInt32 }
func (UInt32) Tag() Tag          { return TagUInt32 }
func (Int64) Tag() Tag           { return TagInt64 }
func (UInt64) Tag() Tag          { return TagUInt64 }
func (Boolean) Tag() Tag         { return TagBoolean }
func (String) Tag() Tag          { return TagString }
func (Bytes) Tag() Tag           { return TagBytes }
func (Rational) Tag() Tag        { return TagRational }
func (Timestamp) Tag() Tag       { return TagTimestamp }
func (AUID) Tag() Tag            { return TagAUID }
func (MobID) Tag() Tag           { return TagMobID }
func (StrongRef) Tag() Tag       { return TagStrongRef }
func (StrongRefVector) Tag() Tag { return TagStrongRefVector }
func (WeakRef) Tag() Tag         { return TagWeakRef }
func (Array) Tag() Tag           { return TagArray }
func (BlobRef) Tag() Tag         { return TagBlobRef }
func (o Opaque) Tag() Tag        { return o.Raw }

// NewTimestamp truncates t to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// Float returns the rational as a float64; a zero denominator yields 0.
func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// AsInt64 widens any integer value to int64. ok is false for non-integers
// and for UInt64 values that overflow int64.
func AsInt64(v Value) (int64, bool) {
	switch n := v.(type) {
	case Int8:
		return int64(n), true
	case UInt8:
		return int64(n), true
	case Int16:
		return int64(n), true
	case UInt16:
		return int64(n), true
	case Int32:
		return int64(n), true
	case UInt32:
		return int64(n), true
	case Int64:
		return int64(n), true
	case UInt64:
		if uint64(n) > 1<<63-1 {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

// IsInteger reports whether t is one of the integer tags.
func IsInteger(t Tag) bool {
	return t >= TagInt8 && t <= TagUInt64
}
