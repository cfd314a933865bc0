// Package faults defines the error taxonomy shared by every engine layer.
//
// Errors fall into four classes: schema errors raised by the class dictionary
// and property accessors, value errors raised while decoding or looking up
// property values, container errors raised by the structured store, and
// reference errors raised when a weak reference is dereferenced and its
// target is missing. Each specific sentinel unwraps to its class marker, so
// callers can test either level with errors.Is.
//
// Build contextual errors with Wrap so messages carry the component and
// operation that failed while keeping the sentinel chain intact.
package faults
