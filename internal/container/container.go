package container

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"splice/internal/faults"
	"splice/internal/logging"
)

// Mode selects how an existing container is opened.
type Mode int

const (
	ModeRead Mode = iota
	ModeUpdate
)

func (m Mode) String() string {
	if m == ModeUpdate {
		return "update"
	}
	return "read"
}

// Options tunes container behaviour. The zero value is usable.
type Options struct {
	// ByteOrder applies to newly created files; opened files keep theirs.
	ByteOrder binary.ByteOrder
	// SyncOnCommit fsyncs data before and after the header write.
	SyncOnCommit bool
	// LockTimeout bounds how long Open and Create wait for the file lock.
	// Zero fails immediately with faults.ErrLocked.
	LockTimeout time.Duration
	Logger      *slog.Logger
}

const lockRetryDelay = 25 * time.Millisecond

// Container is an open structured container file.
type Container struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	lock   *flock.Flock
	mode   Mode
	opts   Options
	logger *slog.Logger

	active     header // last committed header
	activeSlot int

	dir       directory // staged
	committed directory
	nextID    StreamID
	end       int64
	dirty     bool
	closed    bool

	statfs func(string) (uint64, error)
}

// Create makes a new, empty container at path, replacing any existing file
// that is not locked by another process. The result is open for update and
// already holds a valid first commit.
func Create(path string, opts Options) (*Container, error) {
	if opts.ByteOrder == nil {
		opts.ByteOrder = binary.LittleEndian
	}
	lock, err := acquire(path, ModeUpdate, opts.LockTimeout)
	if err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		_ = lock.Unlock()
		return nil, faults.Wrap(faults.ErrIO, "container", "create", path, err)
	}
	if err := file.Truncate(0); err != nil {
		_ = file.Close()
		_ = lock.Unlock()
		return nil, faults.Wrap(faults.ErrIO, "container", "create", path, err)
	}
	c := newContainer(path, file, lock, ModeUpdate, opts)
	c.active = header{
		order:  opts.ByteOrder,
		major:  versionMajor,
		minor:  versionMinor,
		fileID: uuid.New(),
	}
	// Slot 1 is committed first so the initial generation lands in slot 0.
	c.activeSlot = 1
	c.dir = newDirectory()
	c.committed = c.dir.clone()
	c.nextID = RootID + 1
	c.end = headerArea
	if err := c.file.Truncate(headerArea); err != nil {
		c.release()
		return nil, faults.Wrap(faults.ErrIO, "container", "create", path, err)
	}
	c.dirty = true
	if err := c.Commit(); err != nil {
		c.release()
		return nil, err
	}
	c.logger.Debug("container created",
		logging.String(logging.FieldStream, path),
		logging.String("file_id", c.active.fileID.String()),
	)
	return c, nil
}

// Open opens an existing container. The file signature is checked before
// anything else is read, so non-container files fail fast with
// faults.ErrNotAContainer.
func Open(path string, mode Mode, opts Options) (*Container, error) {
	// The lock file is the container itself; taking it on a missing path
	// would create an empty file.
	if _, err := os.Stat(path); err != nil {
		return nil, faults.Wrap(faults.ErrIO, "container", "open", path, err)
	}
	lock, err := acquire(path, mode, opts.LockTimeout)
	if err != nil {
		return nil, err
	}
	flag := os.O_RDONLY
	if mode == ModeUpdate {
		flag = os.O_RDWR
	}
	file, err := os.OpenFile(path, flag, 0)
	if err != nil {
		_ = lock.Unlock()
		return nil, faults.Wrap(faults.ErrIO, "container", "open", path, err)
	}
	c := newContainer(path, file, lock, mode, opts)
	if err := c.load(); err != nil {
		c.release()
		return nil, err
	}
	c.logger.Debug("container opened",
		logging.String(logging.FieldStream, path),
		logging.String("mode", mode.String()),
		logging.Uint64("generation", c.active.generation),
	)
	return c, nil
}

func newContainer(path string, file *os.File, lock *flock.Flock, mode Mode, opts Options) *Container {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Container{
		path:   path,
		file:   file,
		lock:   lock,
		mode:   mode,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "container"),
		statfs: freeSpace,
	}
}

// acquire takes a shared lock for reading and an exclusive one for writing.
func acquire(path string, mode Mode, timeout time.Duration) (*flock.Flock, error) {
	lock := flock.New(path)
	var (
		ok  bool
		err error
	)
	if timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if mode == ModeRead {
			ok, err = lock.TryRLockContext(ctx, lockRetryDelay)
		} else {
			ok, err = lock.TryLockContext(ctx, lockRetryDelay)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = nil
		}
	} else if mode == ModeRead {
		ok, err = lock.TryRLock()
	} else {
		ok, err = lock.TryLock()
	}
	if err != nil {
		return nil, faults.Wrap(faults.ErrIO, "container", "lock", path, err)
	}
	if !ok {
		return nil, faults.Wrap(faults.ErrLocked, "container", "lock", path, nil)
	}
	return lock, nil
}

func (c *Container) load() error {
	area := make([]byte, headerArea)
	n, err := c.file.ReadAt(area, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return faults.Wrap(faults.ErrIO, "container", "open", "read header", err)
	}
	h, slot, err := pickHeader(area[:n])
	if err != nil {
		return err
	}
	info, err := c.file.Stat()
	if err != nil {
		return faults.Wrap(faults.ErrIO, "container", "open", "stat", err)
	}
	if h.end < headerArea || h.end > info.Size() {
		return faults.Wrap(faults.ErrCorruptContainer, "container", "open",
			fmt.Sprintf("allocated end %d outside file of %d bytes", h.end, info.Size()), nil)
	}
	if h.dirOffset < headerArea || h.dirLength <= 0 || h.dirOffset > h.end-h.dirLength {
		return faults.Wrap(faults.ErrCorruptContainer, "container", "open",
			fmt.Sprintf("directory [%d,+%d) outside allocated end %d", h.dirOffset, h.dirLength, h.end), nil)
	}
	blob := make([]byte, h.dirLength)
	if _, err := c.file.ReadAt(blob, h.dirOffset); err != nil {
		return faults.Wrap(faults.ErrIO, "container", "open", "read directory", err)
	}
	dir, err := decodeDirectory(blob, h.order, h.end)
	if err != nil {
		return err
	}
	for id := range dir {
		if id >= h.nextID {
			return faults.Wrap(faults.ErrCorruptContainer, "container", "open",
				fmt.Sprintf("entry %d beyond next id %d", id, h.nextID), nil)
		}
	}
	c.active = h
	c.activeSlot = slot
	c.dir = dir
	c.committed = dir.clone()
	c.nextID = h.nextID
	c.end = h.end
	return nil
}

// Close releases the file and its lock. Uncommitted changes are discarded
// from the file. Close is safe to call more than once.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	var errs []error
	if c.mode == ModeUpdate && c.dirty {
		if err := c.file.Truncate(c.active.end); err != nil {
			errs = append(errs, faults.Wrap(faults.ErrIO, "container", "close", "discard staged data", err))
		}
	}
	errs = append(errs, c.release())
	return errors.Join(errs...)
}

func (c *Container) release() error {
	c.closed = true
	var errs []error
	if c.file != nil {
		if err := c.file.Close(); err != nil {
			errs = append(errs, faults.Wrap(faults.ErrIO, "container", "close", c.path, err))
		}
	}
	if c.lock != nil {
		if err := c.lock.Unlock(); err != nil {
			errs = append(errs, faults.Wrap(faults.ErrIO, "container", "unlock", c.path, err))
		}
	}
	return errors.Join(errs...)
}

// Path returns the file path the container was opened from.
func (c *Container) Path() string { return c.path }

// Mode reports how the container was opened.
func (c *Container) Mode() Mode { return c.mode }

// ByteOrder returns the byte order of the file.
func (c *Container) ByteOrder() binary.ByteOrder { return c.active.order }

// FileID returns the identifier assigned when the file was created.
func (c *Container) FileID() uuid.UUID { return c.active.fileID }

// Generation returns the generation of the last commit.
func (c *Container) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active.generation
}

// Dirty reports whether there are staged changes since the last commit.
func (c *Container) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Stats summarizes space usage of the committed state.
type Stats struct {
	Generation uint64
	FileSize   int64
	LiveBytes  int64
	Entries    int
}

// Stats reports space usage of the committed state.
func (c *Container) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Generation: c.active.generation,
		FileSize:   c.active.end,
		LiveBytes:  c.committed.liveBytes(),
		Entries:    len(c.committed),
	}
}

func (c *Container) checkOpen() error {
	if c.closed {
		return faults.Wrap(faults.ErrClosed, "container", "", c.path, nil)
	}
	return nil
}

func (c *Container) checkWritable() error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if c.mode != ModeUpdate {
		return faults.Wrap(faults.ErrReadOnly, "container", "", c.path, nil)
	}
	return nil
}
