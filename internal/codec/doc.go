// Package codec encodes and decodes property values to their persisted
// binary form.
//
// Every value carries a one-byte type tag so persisted records are
// self-describing: fixed-width integers, booleans, rationals, timestamps,
// identifiers (AUID and MobID), UTF-16 strings, raw bytes, strong and weak
// references, homogeneous arrays, and out-of-line blob references. Byte order
// is chosen by the container and passed to every call.
//
// Decoding never reads past the supplied buffer: truncated or overlong input
// fails with faults.ErrMalformedValue. An unrecognized tag is not an error; it
// yields an Opaque value holding the raw bytes so that data written by a newer
// schema survives a load/save round trip untouched.
//
// Record helpers frame (property id, tag, payload) triples and whole object
// streams (class identifier, property count, records).
package codec
