// Package storage maps an object graph onto a structured container.
//
// A Session owns one open container, the dictionary objects are decoded
// against, a per-session object cache and the in-container index. Each
// persisted object lives in its own stream under /objects; large values are
// moved out of line under /blobs. Save walks the graph from the registered
// mobs, writes only what changed, drops streams that are no longer
// reachable and commits in one step. Load reads the index and leaves every
// object on disk until it is first dereferenced.
package storage
