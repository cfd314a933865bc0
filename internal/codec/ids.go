package codec

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ObjectID is the persistent identity of a stored object within one
// container. Zero means "not yet persisted".
type ObjectID uint64

// AUID is a 16-byte identifier used for classes, properties and definitions.
type AUID [16]byte

// NilAUID is the all-zero identifier.
var NilAUID AUID

// NewAUID returns a random (version 4) identifier.
func NewAUID() AUID {
	return AUID(uuid.New())
}

// MustParseAUID parses s and panics on failure. Intended for compiled-in
// schema tables.
func MustParseAUID(s string) AUID {
	id, err := ParseAUID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// ParseAUID parses the canonical UUID text form, with or without braces or
// a "urn:uuid:" prefix.
func ParseAUID(s string) (AUID, error) {
	u, err := uuid.Parse(strings.Trim(strings.TrimSpace(s), "{}"))
	if err != nil {
		return NilAUID, fmt.Errorf("parse auid %q: %w", s, err)
	}
	return AUID(u), nil
}

func (a AUID) String() string {
	return uuid.UUID(a).String()
}

// IsNil reports whether a is the zero identifier.
func (a AUID) IsNil() bool {
	return a == NilAUID
}

// MobID is a 32-byte SMPTE UMID identifying a Mob across files.
type MobID [32]byte

// NilMobID is the all-zero mob identifier.
var NilMobID MobID

// umidLabel is the SMPTE 330M universal label with UUID material generation.
var umidLabel = [12]byte{0x06, 0x0a, 0x2b, 0x34, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x0f, 0x20}

const umidLength = 0x13

// NewMobID builds a basic UMID whose material number is a random UUID and
// whose instance number is random.
func NewMobID() MobID {
	var id MobID
	copy(id[:12], umidLabel[:])
	id[12] = umidLength
	_, _ = rand.Read(id[13:16])
	material := uuid.New()
	copy(id[16:], material[:])
	return id
}

// MobIDFromMaterial builds a UMID with a zero instance number around the
// supplied material identifier. Equal materials yield equal MobIDs.
func MobIDFromMaterial(material AUID) MobID {
	var id MobID
	copy(id[:12], umidLabel[:])
	id[12] = umidLength
	copy(id[16:], material[:])
	return id
}

// Material returns the material number portion of the UMID.
func (m MobID) Material() AUID {
	var a AUID
	copy(a[:], m[16:])
	return a
}

// IsNil reports whether m is the zero identifier.
func (m MobID) IsNil() bool {
	return m == NilMobID
}

// String renders the UMID as "urn:smpte:umid:" followed by eight dotted
// groups of hex, the form used by AAF tooling.
func (m MobID) String() string {
	raw := hex.EncodeToString(m[:])
	var b strings.Builder
	b.WriteString("urn:smpte:umid:")
	for i := 0; i < len(raw); i += 8 {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(raw[i : i+8])
	}
	return b.String()
}

// ParseMobID accepts the String form or 64 bare hex digits.
func ParseMobID(s string) (MobID, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "urn:smpte:umid:")
	trimmed = strings.ReplaceAll(trimmed, ".", "")
	trimmed = strings.ReplaceAll(trimmed, "-", "")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return NilMobID, fmt.Errorf("parse mob id %q: %w", s, err)
	}
	if len(raw) != len(MobID{}) {
		return NilMobID, fmt.Errorf("parse mob id %q: want 32 bytes, got %d", s, len(raw))
	}
	var id MobID
	copy(id[:], raw)
	return id, nil
}
