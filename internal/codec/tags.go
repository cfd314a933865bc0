package codec

import "fmt"

// Tag identifies the persisted kind of a value.
type Tag uint8

const (
	TagInvalid Tag = iota
	TagInt8
	TagUInt8
	TagInt16
	TagUInt16
	TagInt32
	TagUInt32
	TagInt64
	TagUInt64
	TagBoolean
	TagRational
	TagString
	TagAUID
	TagMobID
	TagTimestamp
	TagBytes
	TagStrongRef
	TagStrongRefVector
	TagWeakRef
	TagArray
	TagBlobRef

	// tagLimit is one past the highest tag this build understands.
	tagLimit
)

var tagNames = map[Tag]string{
	TagInt8:            "Int8",
	TagUInt8:           "UInt8",
	TagInt16:           "Int16",
	TagUInt16:          "UInt16",
	TagInt32:           "Int32",
	TagUInt32:          "UInt32",
	TagInt64:           "Int64",
	TagUInt64:          "UInt64",
	TagBoolean:         "Boolean",
	TagRational:        "Rational",
	TagString:          "String",
	TagAUID:            "AUID",
	TagMobID:           "MobID",
	TagTimestamp:       "Timestamp",
	TagBytes:           "Bytes",
	TagStrongRef:       "StrongRef",
	TagStrongRefVector: "StrongRefVector",
	TagWeakRef:         "WeakRef",
	TagArray:           "Array",
	TagBlobRef:         "BlobRef",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tag(%d)", uint8(t))
}

// Known reports whether this build can decode values carrying t.
func (t Tag) Known() bool {
	return t > TagInvalid && t < tagLimit
}

// ParseTag resolves a tag by its name as used in schema files.
func ParseTag(name string) (Tag, bool) {
	for tag, n := range tagNames {
		if n == name {
			return tag, true
		}
	}
	return TagInvalid, false
}

// fixedSize returns the encoded width of fixed-size tags, or 0 for
// variable-length ones.
func fixedSize(t Tag) int {
	switch t {
	case TagInt8, TagUInt8, TagBoolean:
		return 1
	case TagInt16, TagUInt16:
		return 2
	case TagInt32, TagUInt32:
		return 4
	case TagInt64, TagUInt64, TagTimestamp, TagStrongRef, TagRational:
		return 8
	case TagAUID, TagWeakRef:
		return 16
	case TagMobID:
		return 32
	case TagBlobRef:
		return 12
	default:
		return 0
	}
}

// IsReference reports whether values of this tag point at other objects.
func (t Tag) IsReference() bool {
	return t == TagStrongRef || t == TagStrongRefVector
}
