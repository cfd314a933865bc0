package container

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"splice/internal/faults"
	"splice/internal/logging"
)

// Compact writes the last committed state to a new container at dstPath,
// copying only live extents. Stream identifiers, the file identifier and
// the byte order are preserved, so paths and ids resolved against this
// container stay valid against the copy. The new file is written under a
// temporary name and renamed into place once committed.
func (c *Container) Compact(dstPath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return err
	}
	if abs, err := filepath.Abs(dstPath); err == nil {
		if src, err := filepath.Abs(c.path); err == nil && abs == src {
			return faults.Wrap(faults.ErrIO, "container", "compact", "destination is the source file", nil)
		}
	}

	dir := c.committed
	live := dir.liveBytes()
	need := uint64(headerArea + live + int64(len(dir.encode(c.active.order))))
	if free, err := c.statfs(filepath.Dir(dstPath)); err == nil && free < need {
		return faults.Wrap(faults.ErrInsufficientSpace, "container", "compact",
			fmt.Sprintf("need %d bytes, %d free", need, free), nil)
	} else if err != nil {
		c.logger.Debug("free space check skipped", logging.Error(err))
	}

	tmp := dstPath + ".partial"
	dst, err := Create(tmp, Options{
		ByteOrder:    c.active.order,
		SyncOnCommit: true,
		Logger:       c.opts.Logger,
	})
	if err != nil {
		return err
	}
	cleanup := func() {
		_ = dst.Close()
		_ = os.Remove(tmp)
	}

	dst.mu.Lock()
	dst.active.fileID = c.active.fileID
	dst.dir = make(directory, len(dir))
	dst.nextID = c.active.nextID
	ids := make([]StreamID, 0, len(dir))
	for id := range dir {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	reader := &StreamReader{file: c.file}
	for _, id := range ids {
		src := dir[id]
		e := &entry{Entry: src.Entry}
		if src.Kind == KindStream && src.Size > 0 {
			reader.extents, reader.size = src.extents, src.Size
			buf := make([]byte, src.Size)
			if _, err := reader.ReadAt(buf, 0); err != nil {
				dst.mu.Unlock()
				cleanup()
				return fmt.Errorf("compact stream %d: %w", id, err)
			}
			x, err := dst.allocateLocked(buf)
			if err != nil {
				dst.mu.Unlock()
				cleanup()
				return err
			}
			e.extents = []Extent{x}
		}
		dst.dir[id] = e
	}
	dst.dirty = true
	dst.mu.Unlock()

	if err := dst.Commit(); err != nil {
		cleanup()
		return err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dstPath); err != nil {
		_ = os.Remove(tmp)
		return faults.Wrap(faults.ErrIO, "container", "compact", "rename", err)
	}
	c.logger.Info("container compacted",
		logging.String(logging.FieldStream, dstPath),
		logging.Int64("live_bytes", live),
		logging.Int64("source_bytes", c.active.end),
	)
	return nil
}
