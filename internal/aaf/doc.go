// Package aaf is the file-level entry point: it opens or creates a
// structured container, binds a class dictionary and persistence session to
// it, and exposes creators for timeline objects and a view over the file's
// mobs.
//
// A File is owned by one goroutine at a time. Save commits atomically; a
// failed or cancelled save leaves the last commit in place.
package aaf
