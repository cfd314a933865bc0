// Package object implements the generic, dictionary-validated object model.
//
// An Object is an instance of one concrete class. Scalar properties are
// stored as codec values keyed by local property id; strong references are
// stored as Edges that either hold the child object or, for objects loaded
// from a container, only the child's ObjectID until first access.
//
// Objects whose class is not in the dictionary load as opaque objects, and
// records for properties a known class does not declare are kept verbatim.
// Both are written back unchanged so files from newer producers survive a
// load and save cycle.
package object
