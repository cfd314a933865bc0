// Package timeline provides typed views over the generic object graph for
// editable timelines: Mobs own ordered Slots, each Slot owns one root
// Segment, and Segments compose recursively.
//
// Components form a closed set of variants dispatched by class. Each
// variant is a thin handle around an *object.Object, so the object graph
// stays the single source of truth and every mutation goes through the
// dictionary-validated accessors. Classes the timeline does not model,
// including classes unknown to the dictionary, surface as OpaqueSegment.
package timeline
