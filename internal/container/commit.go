package container

import (
	"splice/internal/faults"
	"splice/internal/logging"
)

// Commit makes all staged changes durable. The directory is appended after
// the staged data and the inactive header slot is rewritten last; until that
// write lands, reopening the file yields the previous commit.
func (c *Container) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkWritable(); err != nil {
		return err
	}
	if !c.dirty {
		return nil
	}

	order := c.active.order
	blob := c.dir.encode(order)
	dirOffset := c.end
	if _, err := c.file.WriteAt(blob, dirOffset); err != nil {
		return faults.Wrap(faults.ErrIO, "container", "commit", "write directory", err)
	}
	end := dirOffset + int64(len(blob))
	if c.opts.SyncOnCommit {
		if err := c.file.Sync(); err != nil {
			return faults.Wrap(faults.ErrIO, "container", "commit", "sync data", err)
		}
	}

	next := c.active
	next.generation++
	next.dirOffset = dirOffset
	next.dirLength = int64(len(blob))
	next.end = end
	next.nextID = c.nextID
	slot := 1 - c.activeSlot
	if _, err := c.file.WriteAt(next.encode(), int64(slot*headerSlotSize)); err != nil {
		return faults.Wrap(faults.ErrIO, "container", "commit", "write header", err)
	}
	if c.opts.SyncOnCommit {
		if err := c.file.Sync(); err != nil {
			return faults.Wrap(faults.ErrIO, "container", "commit", "sync header", err)
		}
	}

	c.active = next
	c.activeSlot = slot
	c.end = end
	c.committed = c.dir.clone()
	c.dirty = false
	c.logger.Debug("container committed",
		logging.Uint64("generation", next.generation),
		logging.Int("entries", len(c.dir)),
		logging.Int64("allocated_end", end),
	)
	return nil
}

// Abort discards staged changes and truncates any bytes written since the
// last commit.
func (c *Container) Abort() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkWritable(); err != nil {
		return err
	}
	c.dir = c.committed.clone()
	c.nextID = c.active.nextID
	c.end = c.active.end
	c.dirty = false
	if err := c.file.Truncate(c.active.end); err != nil {
		return faults.Wrap(faults.ErrIO, "container", "abort", "truncate", err)
	}
	return nil
}
