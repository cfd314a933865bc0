package aaf

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"splice/internal/container"
	"splice/internal/dictionary"
	"splice/internal/faults"
	"splice/internal/logging"
	"splice/internal/storage"
)

// SaveStats reports what a save wrote.
type SaveStats = storage.SaveStats

// File is an open interchange file.
type File struct {
	// Create makes new objects bound to this file's dictionary.
	Create *Creator

	c       *container.Container
	session *storage.Session
	storage *Storage
	copts   container.Options
	logger  *slog.Logger
	closed  bool
}

// Create makes a new, empty file at path, replacing any unlocked file
// already there. The file is open for update.
func Create(path string, opts ...Option) (*File, error) {
	s := newSettings(opts)
	dict, err := buildDictionary(s)
	if err != nil {
		return nil, err
	}
	c, err := container.Create(path, s.container)
	if err != nil {
		return nil, err
	}
	f := newFile(c, dict, s)
	f.logger.Debug("file created", logging.String(logging.FieldPath, path))
	return f, nil
}

// Open opens an existing file. Only the root and index are read; objects
// load on first access.
func Open(path string, mode Mode, opts ...Option) (*File, error) {
	return OpenContext(context.Background(), path, mode, opts...)
}

// OpenContext is Open with a context bounding the initial load.
func OpenContext(ctx context.Context, path string, mode Mode, opts ...Option) (*File, error) {
	s := newSettings(opts)
	dict, err := buildDictionary(s)
	if err != nil {
		return nil, err
	}
	c, err := container.Open(path, mode, s.container)
	if err != nil {
		return nil, err
	}
	f := newFile(c, dict, s)
	if err := f.session.Load(ctx); err != nil {
		if cerr := c.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return nil, err
	}
	f.logger.Debug("file opened",
		logging.String(logging.FieldPath, path),
		logging.String("mode", mode.String()),
		logging.Int("mobs", f.session.MobCount()),
	)
	return f, nil
}

func buildDictionary(s settings) (*dictionary.Dictionary, error) {
	dict := dictionary.NewBaseline(s.logger)
	if len(s.extensions) > 0 {
		if err := dict.Merge(s.extensions); err != nil {
			return nil, err
		}
	}
	return dict, nil
}

func newFile(c *container.Container, dict *dictionary.Dictionary, s settings) *File {
	session := storage.NewSession(c, dict, storage.Options{
		BlobThreshold: s.blobThreshold,
		Logger:        s.logger,
	})
	return &File{
		Create:  &Creator{f: session.Factory()},
		c:       c,
		session: session,
		storage: &Storage{s: session},
		copts:   s.container,
		logger:  logging.NewComponentLogger(s.logger, "aaf"),
	}
}

// Path returns the file's current location.
func (f *File) Path() string { return f.c.Path() }

// Mode returns how the file is open.
func (f *File) Mode() Mode { return f.c.Mode() }

// FileID returns the identifier stamped into the file at creation. It
// survives compaction.
func (f *File) FileID() uuid.UUID { return f.c.FileID() }

// ByteOrder returns the byte order of the file's values.
func (f *File) ByteOrder() binary.ByteOrder { return f.c.ByteOrder() }

// Generation returns the generation of the last commit.
func (f *File) Generation() uint64 { return f.c.Generation() }

// Dictionary returns the file's class dictionary: the baseline, merged
// extensions, and any schema stored in the file.
func (f *File) Dictionary() *dictionary.Dictionary { return f.session.Dictionary() }

// Storage returns the file's mob set.
func (f *File) Storage() *Storage { return f.storage }

// Save validates and writes every modified object reachable from the
// registered mobs, then commits. A save with nothing modified does not
// commit.
func (f *File) Save(ctx context.Context) (SaveStats, error) {
	if f.closed {
		return SaveStats{}, faults.Wrap(faults.ErrClosed, "aaf", "save", f.Path(), nil)
	}
	return f.session.Save(ctx)
}

// SaveAs writes the graph, pending changes included, to a compacted copy at
// path and continues with that copy open for update. The original file is
// left at its last commit and released. If the final save fails the copy
// holds the original's committed graph and stays open.
func (f *File) SaveAs(ctx context.Context, path string) (SaveStats, error) {
	if f.closed {
		return SaveStats{}, faults.Wrap(faults.ErrClosed, "aaf", "save as", f.Path(), nil)
	}
	if err := ctx.Err(); err != nil {
		return SaveStats{}, err
	}
	if err := f.c.Compact(path); err != nil {
		return SaveStats{}, fmt.Errorf("compact to %s: %w", path, err)
	}
	nc, err := container.Open(path, container.ModeUpdate, f.copts)
	if err != nil {
		return SaveStats{}, fmt.Errorf("open compacted copy: %w", err)
	}
	old := f.c
	f.session.Rebind(nc)
	f.c = nc
	if err := old.Close(); err != nil {
		logging.WarnWithContext(f.logger, "original file close failed", "save_as_close_failed",
			logging.String(logging.FieldPath, old.Path()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "original file may stay locked until exit"),
		)
	}
	return f.session.Save(ctx)
}

// Close releases the file. Unsaved changes are discarded. Closing twice is
// a no-op.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.c.Close()
}
