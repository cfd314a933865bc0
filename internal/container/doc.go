// Package container implements the structured container store: a single
// seekable file holding a tree of named storages and byte streams.
//
// The file starts with two fixed-size header slots. Each commit appends the
// staged directory after the data it describes, syncs, and then overwrites
// the older header slot with a higher generation number. The newest slot
// with a valid checksum is authoritative on open, so a crash or an aborted
// save before the header write leaves the previous commit intact.
//
// Stream content is append-allocated: rewriting a stream writes a fresh
// extent and leaves the old bytes as garbage until Compact copies the live
// extents into a new file. Stream identifiers survive commits, reopening and
// compaction.
//
// A process holds an exclusive advisory lock while a container is open for
// writing and a shared lock while reading. A Container value is not meant
// for concurrent use; its internal mutex only keeps misuse from corrupting
// the stream table.
package container
