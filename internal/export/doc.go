// Package export renders an object graph as a document tree of maps,
// slices and scalars, and encodes that tree as JSON or BSON.
//
// Mobs and slots get a summary shape (ids, names, lengths); everything
// below a slot's segment is rendered generically from the dictionary, so
// extension classes export without special cases. Objects of classes the
// dictionary does not know are exported by class id with their raw records.
package export
