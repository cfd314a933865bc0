package aaf

import (
	"splice/internal/codec"
	"splice/internal/object"
	"splice/internal/timeline"
)

// Creator makes new, unattached objects for a file. Objects become part of
// the file when reached from a mob registered with Storage.AddMob.
type Creator struct {
	f *object.Factory
}

// Object instantiates any concrete class by name, extension classes
// included.
func (c *Creator) Object(className string) (*object.Object, error) {
	return c.f.Create(className)
}

func (c *Creator) CompositionMob(name string) (*timeline.Mob, error) {
	return timeline.NewCompositionMob(c.f, name)
}

func (c *Creator) MasterMob(name string) (*timeline.Mob, error) {
	return timeline.NewMasterMob(c.f, name)
}

// SourceMob creates a source mob that owns desc.
func (c *Creator) SourceMob(name string, desc *timeline.FileDescriptor) (*timeline.Mob, error) {
	return timeline.NewSourceMob(c.f, name, desc)
}

func (c *Creator) FileDescriptor(sampleRate codec.Rational, length int64) (*timeline.FileDescriptor, error) {
	return timeline.NewFileDescriptor(c.f, sampleRate, length)
}

func (c *Creator) NetworkLocator(url string) (*timeline.NetworkLocator, error) {
	return timeline.NewNetworkLocator(c.f, url)
}

func (c *Creator) TextLocator(name string) (*timeline.TextLocator, error) {
	return timeline.NewTextLocator(c.f, name)
}

// EdgeCode creates an edgecode segment stamped with header.
func (c *Creator) EdgeCode(header string) (*timeline.EdgeCode, error) {
	return timeline.NewEdgeCode(c.f, header)
}

func (c *Creator) Sequence(dataDef codec.AUID) (*timeline.Sequence, error) {
	return timeline.NewSequence(c.f, dataDef)
}

func (c *Creator) SourceClip(dataDef codec.AUID, length int64, ref timeline.SourceRef) (*timeline.SourceClip, error) {
	return timeline.NewSourceClip(c.f, dataDef, length, ref)
}

// Filler creates a gap of length edit units.
func (c *Creator) Filler(dataDef codec.AUID, length int64) (*timeline.Filler, error) {
	fill, err := timeline.NewFiller(c.f, dataDef)
	if err != nil {
		return nil, err
	}
	if err := fill.SetLength(length); err != nil {
		return nil, err
	}
	return fill, nil
}

func (c *Creator) Transition(dataDef codec.AUID, length int64, op *timeline.OperationGroup, cutPoint int64) (*timeline.Transition, error) {
	return timeline.NewTransition(c.f, dataDef, length, op, cutPoint)
}

func (c *Creator) OperationGroup(dataDef codec.AUID, length int64, operation codec.AUID) (*timeline.OperationGroup, error) {
	return timeline.NewOperationGroup(c.f, dataDef, length, operation)
}

func (c *Creator) Timecode(start int64, fps uint16, drop bool, length int64) (*timeline.Timecode, error) {
	return timeline.NewTimecode(c.f, start, fps, drop, length)
}
