package aaf

import (
	"encoding/binary"
	"log/slog"
	"time"

	"splice/internal/config"
	"splice/internal/container"
	"splice/internal/dictionary"
)

// Mode selects how an existing file is opened.
type Mode = container.Mode

const (
	ModeRead   = container.ModeRead
	ModeUpdate = container.ModeUpdate
)

type settings struct {
	container     container.Options
	blobThreshold int
	extensions    []*dictionary.ClassDef
	logger        *slog.Logger
}

// Option adjusts how a File is created or opened.
type Option func(*settings)

// WithByteOrder sets the byte order of newly created files.
func WithByteOrder(order binary.ByteOrder) Option {
	return func(s *settings) { s.container.ByteOrder = order }
}

// WithSyncOnCommit fsyncs around every header write.
func WithSyncOnCommit(sync bool) Option {
	return func(s *settings) { s.container.SyncOnCommit = sync }
}

// WithLockTimeout bounds how long opening waits for the file lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *settings) { s.container.LockTimeout = d }
}

// WithBlobThreshold stores values larger than n bytes in their own streams.
func WithBlobThreshold(n int) Option {
	return func(s *settings) { s.blobThreshold = n }
}

// WithExtensions merges extension classes into the file's dictionary.
func WithExtensions(classes ...*dictionary.ClassDef) Option {
	return func(s *settings) { s.extensions = append(s.extensions, classes...) }
}

// WithLogger routes engine logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// OptionsFromConfig translates the container and schema sections of cfg.
// Extension files are parsed here so a bad file fails before any container
// is touched.
func OptionsFromConfig(cfg *config.Config) ([]Option, error) {
	if cfg == nil {
		return nil, nil
	}
	opts := []Option{
		WithByteOrder(cfg.ByteOrder()),
		WithSyncOnCommit(cfg.Container.SyncOnCommit),
		WithLockTimeout(cfg.LockTimeout()),
		WithBlobThreshold(cfg.Container.BlobThreshold),
	}
	for _, path := range cfg.Schema.ExtensionFiles {
		classes, err := dictionary.LoadExtensionFile(path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithExtensions(classes...))
	}
	return opts, nil
}

func newSettings(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	s.container.Logger = s.logger
	return s
}
