// Package logging assembles the slog loggers used by splice.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// standard attribute keys (stream, object_id, mob_id, event_type) that the
// container and storage layers attach to their log lines. A no-op logger is
// provided for library callers that do not configure logging.
package logging
