package dictionary

import (
	"fmt"

	"github.com/google/uuid"

	"splice/internal/codec"
)

// Baseline class names.
const (
	ClassInterchangeObject = RootClassName
	ClassComponent         = "Component"
	ClassSegment           = "Segment"
	ClassEdgeCode          = "EdgeCode"
	ClassFiller            = "Filler"
	ClassOperationGroup    = "OperationGroup"
	ClassSequence          = "Sequence"
	ClassSourceReference   = "SourceReference"
	ClassSourceClip        = "SourceClip"
	ClassTimecode          = "Timecode"
	ClassTransition        = "Transition"
	ClassDefinitionObject  = "DefinitionObject"
	ClassDataDef           = "DataDefinition"
	ClassOperationDef      = "OperationDefinition"
	ClassEssenceDescriptor = "EssenceDescriptor"
	ClassFileDescriptor    = "FileDescriptor"
	ClassLocator           = "Locator"
	ClassNetworkLocator    = "NetworkLocator"
	ClassTextLocator       = "TextLocator"
	ClassMob               = "Mob"
	ClassCompositionMob    = "CompositionMob"
	ClassMasterMob         = "MasterMob"
	ClassSourceMob         = "SourceMob"
	ClassMobSlot           = "MobSlot"
	ClassTimelineMobSlot   = "TimelineMobSlot"
)

// Baseline property names shared across packages.
const (
	PropGeneration          = "Generation"
	PropDataDefinition      = "DataDefinition"
	PropLength              = "Length"
	PropComponents          = "Components"
	PropSourceID            = "SourceID"
	PropSourceMobSlotID     = "SourceMobSlotID"
	PropStartTime           = "StartTime"
	PropFadeInLength        = "FadeInLength"
	PropFadeOutLength       = "FadeOutLength"
	PropStart               = "Start"
	PropFilmKind            = "FilmKind"
	PropCodeFormat          = "CodeFormat"
	PropHeader              = "Header"
	PropOperationGroup      = "OperationGroup"
	PropCutPoint            = "CutPoint"
	PropOperation           = "Operation"
	PropInputSegments       = "InputSegments"
	PropBypassOverride      = "BypassOverride"
	PropRendering           = "Rendering"
	PropFPS                 = "FPS"
	PropDrop                = "Drop"
	PropIdentification      = "Identification"
	PropName                = "Name"
	PropDescription         = "Description"
	PropNumberInputs        = "NumberInputs"
	PropIsTimeWarp          = "IsTimeWarp"
	PropLocator             = "Locator"
	PropSampleRate          = "SampleRate"
	PropURLString           = "URLString"
	PropMobID               = "MobID"
	PropSlots               = "Slots"
	PropLastModified        = "LastModified"
	PropCreationTime        = "CreationTime"
	PropDefaultFadeLength   = "DefaultFadeLength"
	PropEssenceDescription  = "EssenceDescription"
	PropSlotID              = "SlotID"
	PropSlotName            = "SlotName"
	PropSegment             = "Segment"
	PropPhysicalTrackNumber = "PhysicalTrackNumber"
	PropEditRate            = "EditRate"
	PropOrigin              = "Origin"
)

// FilmKind values for EdgeCode.
var FilmKinds = map[string]int64{
	"FtNull": 0,
	"Ft35MM": 1,
	"Ft16MM": 2,
	"Ft8MM":  3,
	"Ft65MM": 4,
}

// CodeFormat values for EdgeCode.
var CodeFormats = map[string]int64{
	"EtNull":     0,
	"EtKeycode":  1,
	"EtEdgenum4": 2,
	"EtEdgenum5": 3,
	"EtHeader":   8,
}

// Well-known data definition identifiers.
var (
	DataDefPicture  = codec.MustParseAUID("01030202-0100-0000-060e-2b3404010101")
	DataDefSound    = codec.MustParseAUID("01030202-0200-0000-060e-2b3404010101")
	DataDefTimecode = codec.MustParseAUID("01030201-0100-0000-060e-2b3404010101")
	DataDefEdgecode = codec.MustParseAUID("01030201-0200-0000-060e-2b3404010101")
)

// DataDefNames maps well-known data definitions to their display names.
var DataDefNames = map[codec.AUID]string{
	DataDefPicture:  "Picture",
	DataDefSound:    "Sound",
	DataDefTimecode: "Timecode",
	DataDefEdgecode: "Edgecode",
}

// LookupDataDef resolves a data definition by display name.
func LookupDataDef(name string) (codec.AUID, bool) {
	for id, n := range DataDefNames {
		if n == name {
			return id, true
		}
	}
	return codec.NilAUID, false
}

// propertyNamespace seeds the deterministic identifiers of baseline
// properties.
var propertyNamespace = uuid.MustParse("0d010101-0000-0000-060e-2b3401010102")

// classAUID builds the identifier of baseline class number n.
func classAUID(n byte) codec.AUID {
	return codec.MustParseAUID(fmt.Sprintf("0d010101-0101-%02x00-060e-2b3402060101", n))
}

// PropertyAUID derives a stable identifier for a property from its owning
// class and name.
func PropertyAUID(class, name string) codec.AUID {
	return codec.AUID(uuid.NewSHA1(propertyNamespace, []byte(class+"::"+name)))
}

type propSpec struct {
	name     string
	pid      uint16
	typ      TypeDef
	optional bool
	unique   bool
}

func scalar(kind codec.Tag) TypeDef { return TypeDef{Kind: kind} }

func ref(kind codec.Tag, target string) TypeDef { return TypeDef{Kind: kind, Target: target} }

func enum(kind codec.Tag, values map[string]int64) TypeDef { return TypeDef{Kind: kind, Enum: values} }

func class(n byte, name, parent string, concrete bool, props ...propSpec) *ClassDef {
	c := &ClassDef{Name: name, ID: classAUID(n), ParentName: parent, Concrete: concrete}
	for _, p := range props {
		c.Properties = append(c.Properties, &PropertyDef{
			Name:     p.name,
			ID:       PropertyAUID(name, p.name),
			PID:      p.pid,
			Type:     p.typ,
			Optional: p.optional,
			UniqueID: p.unique,
		})
	}
	return c
}

// baselineClasses returns fresh definitions of the compiled-in schema with
// parents ahead of children.
func baselineClasses() []*ClassDef {
	return []*ClassDef{
		class(0x01, ClassInterchangeObject, "", false,
			propSpec{name: PropGeneration, pid: 0x0102, typ: scalar(codec.TagAUID), optional: true},
		),
		class(0x02, ClassComponent, ClassInterchangeObject, false,
			propSpec{name: PropDataDefinition, pid: 0x0201, typ: ref(codec.TagWeakRef, ClassDataDef)},
			propSpec{name: PropLength, pid: 0x0202, typ: scalar(codec.TagInt64), optional: true},
		),
		class(0x03, ClassSegment, ClassComponent, false),
		class(0x04, ClassEdgeCode, ClassSegment, true,
			propSpec{name: PropStart, pid: 0x0401, typ: scalar(codec.TagInt64)},
			propSpec{name: PropFilmKind, pid: 0x0402, typ: enum(codec.TagUInt8, FilmKinds)},
			propSpec{name: PropCodeFormat, pid: 0x0403, typ: enum(codec.TagUInt8, CodeFormats)},
			propSpec{name: PropHeader, pid: 0x0404, typ: scalar(codec.TagString), optional: true},
		),
		class(0x09, ClassFiller, ClassSegment, true),
		class(0x0a, ClassOperationGroup, ClassSegment, true,
			propSpec{name: PropOperation, pid: 0x0b01, typ: ref(codec.TagWeakRef, ClassOperationDef)},
			propSpec{name: PropInputSegments, pid: 0x0b02, typ: ref(codec.TagStrongRefVector, ClassSegment), optional: true},
			propSpec{name: PropBypassOverride, pid: 0x0b04, typ: scalar(codec.TagUInt32), optional: true},
			propSpec{name: PropRendering, pid: 0x0b05, typ: ref(codec.TagStrongRef, ClassSourceReference), optional: true},
		),
		class(0x0f, ClassSequence, ClassSegment, true,
			propSpec{name: PropComponents, pid: 0x1001, typ: ref(codec.TagStrongRefVector, ClassComponent)},
		),
		class(0x10, ClassSourceReference, ClassSegment, false,
			propSpec{name: PropSourceID, pid: 0x1101, typ: scalar(codec.TagMobID), optional: true},
			propSpec{name: PropSourceMobSlotID, pid: 0x1102, typ: scalar(codec.TagUInt32)},
		),
		class(0x11, ClassSourceClip, ClassSourceReference, true,
			propSpec{name: PropStartTime, pid: 0x1201, typ: scalar(codec.TagInt64), optional: true},
			propSpec{name: PropFadeInLength, pid: 0x1202, typ: scalar(codec.TagInt64), optional: true},
			propSpec{name: PropFadeOutLength, pid: 0x1204, typ: scalar(codec.TagInt64), optional: true},
		),
		class(0x14, ClassTimecode, ClassSegment, true,
			propSpec{name: PropStart, pid: 0x1501, typ: scalar(codec.TagInt64)},
			propSpec{name: PropFPS, pid: 0x1502, typ: scalar(codec.TagUInt16)},
			propSpec{name: PropDrop, pid: 0x1503, typ: scalar(codec.TagBoolean)},
		),
		class(0x17, ClassTransition, ClassComponent, true,
			propSpec{name: PropOperationGroup, pid: 0x1801, typ: ref(codec.TagStrongRef, ClassOperationGroup)},
			propSpec{name: PropCutPoint, pid: 0x1802, typ: scalar(codec.TagInt64)},
		),
		class(0x1a, ClassDefinitionObject, ClassInterchangeObject, false,
			propSpec{name: PropIdentification, pid: 0x1b01, typ: scalar(codec.TagAUID), unique: true},
			propSpec{name: PropName, pid: 0x1b02, typ: scalar(codec.TagString)},
			propSpec{name: PropDescription, pid: 0x1b03, typ: scalar(codec.TagString), optional: true},
		),
		class(0x1b, ClassDataDef, ClassDefinitionObject, true),
		class(0x1c, ClassOperationDef, ClassDefinitionObject, true,
			propSpec{name: PropDataDefinition, pid: 0x1e01, typ: ref(codec.TagWeakRef, ClassDataDef), optional: true},
			propSpec{name: PropIsTimeWarp, pid: 0x1e02, typ: scalar(codec.TagBoolean), optional: true},
			propSpec{name: PropNumberInputs, pid: 0x1e07, typ: scalar(codec.TagInt32)},
		),
		class(0x24, ClassEssenceDescriptor, ClassInterchangeObject, false,
			propSpec{name: PropLocator, pid: 0x2f01, typ: ref(codec.TagStrongRefVector, ClassLocator), optional: true},
		),
		class(0x25, ClassFileDescriptor, ClassEssenceDescriptor, true,
			propSpec{name: PropSampleRate, pid: 0x3001, typ: scalar(codec.TagRational)},
			propSpec{name: PropLength, pid: 0x3002, typ: scalar(codec.TagInt64)},
		),
		class(0x31, ClassLocator, ClassInterchangeObject, false),
		class(0x32, ClassNetworkLocator, ClassLocator, true,
			propSpec{name: PropURLString, pid: 0x4001, typ: scalar(codec.TagString)},
		),
		class(0x33, ClassTextLocator, ClassLocator, true,
			propSpec{name: PropName, pid: 0x4101, typ: scalar(codec.TagString)},
		),
		class(0x34, ClassMob, ClassInterchangeObject, false,
			propSpec{name: PropMobID, pid: 0x4401, typ: scalar(codec.TagMobID), unique: true},
			propSpec{name: PropName, pid: 0x4402, typ: scalar(codec.TagString), optional: true},
			propSpec{name: PropSlots, pid: 0x4403, typ: ref(codec.TagStrongRefVector, ClassMobSlot)},
			propSpec{name: PropLastModified, pid: 0x4409, typ: scalar(codec.TagTimestamp)},
			propSpec{name: PropCreationTime, pid: 0x440a, typ: scalar(codec.TagTimestamp)},
		),
		class(0x35, ClassCompositionMob, ClassMob, true,
			propSpec{name: PropDefaultFadeLength, pid: 0x4501, typ: scalar(codec.TagInt64), optional: true},
		),
		class(0x36, ClassMasterMob, ClassMob, true),
		class(0x37, ClassSourceMob, ClassMob, true,
			propSpec{name: PropEssenceDescription, pid: 0x4701, typ: ref(codec.TagStrongRef, ClassEssenceDescriptor)},
		),
		class(0x38, ClassMobSlot, ClassInterchangeObject, false,
			propSpec{name: PropSlotID, pid: 0x4801, typ: scalar(codec.TagUInt32)},
			propSpec{name: PropSlotName, pid: 0x4802, typ: scalar(codec.TagString), optional: true},
			propSpec{name: PropSegment, pid: 0x4803, typ: ref(codec.TagStrongRef, ClassSegment)},
			propSpec{name: PropPhysicalTrackNumber, pid: 0x4804, typ: scalar(codec.TagUInt32), optional: true},
		),
		class(0x3b, ClassTimelineMobSlot, ClassMobSlot, true,
			propSpec{name: PropEditRate, pid: 0x4b01, typ: scalar(codec.TagRational)},
			propSpec{name: PropOrigin, pid: 0x4b02, typ: scalar(codec.TagInt64)},
		),
	}
}
