// Command splice inspects and maintains structured container files: it
// lists mobs and slots, dumps graphs as JSON or BSON, compacts files,
// prints the class dictionary, and keeps a catalog of mobs across files.
package main
