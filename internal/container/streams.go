package container

import (
	"fmt"
	"io"
	"math"
	"strings"

	"splice/internal/faults"
)

// splitPath turns "/a/b" into ["a", "b"]. The root is "/" or "".
func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func (c *Container) lookupLocked(path string) (*entry, error) {
	cur := c.dir[RootID]
	for _, name := range splitPath(path) {
		if cur.Kind != KindStorage {
			return nil, faults.Wrap(faults.ErrStreamNotFound, "container", "lookup",
				fmt.Sprintf("%s: %s is a stream", path, cur.Name), nil)
		}
		next, ok := c.dir.child(cur.ID, name)
		if !ok {
			return nil, faults.Wrap(faults.ErrStreamNotFound, "container", "lookup", path, nil)
		}
		cur = next
	}
	return cur, nil
}

func (c *Container) streamLocked(id StreamID) (*entry, error) {
	e, ok := c.dir[id]
	if !ok || e.Kind != KindStream {
		return nil, faults.Wrap(faults.ErrStreamNotFound, "container", "stream", fmt.Sprintf("id %d", id), nil)
	}
	return e, nil
}

func (c *Container) addLocked(parentPath, name string, kind Kind) (StreamID, error) {
	if err := c.checkWritable(); err != nil {
		return 0, err
	}
	if name == "" || strings.Contains(name, "/") || len(name) > math.MaxUint16 {
		return 0, faults.Wrap(faults.ErrEntryExists, "container", "create entry",
			fmt.Sprintf("invalid name %q", name), nil)
	}
	parent, err := c.lookupLocked(parentPath)
	if err != nil {
		return 0, err
	}
	if parent.Kind != KindStorage {
		return 0, faults.Wrap(faults.ErrStreamNotFound, "container", "create entry",
			fmt.Sprintf("%s is not a storage", parentPath), nil)
	}
	if _, exists := c.dir.child(parent.ID, name); exists {
		return 0, faults.Wrap(faults.ErrEntryExists, "container", "create entry",
			strings.TrimSuffix(parentPath, "/")+"/"+name, nil)
	}
	id := c.nextID
	c.nextID++
	c.dir[id] = &entry{Entry: Entry{ID: id, Parent: parent.ID, Kind: kind, Name: name}}
	c.dirty = true
	return id, nil
}

// CreateStorage adds a storage named name under parentPath.
func (c *Container) CreateStorage(parentPath, name string) (StreamID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addLocked(parentPath, name, KindStorage)
}

// CreateStream adds an empty stream named name under parentPath.
func (c *Container) CreateStream(parentPath, name string) (StreamID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addLocked(parentPath, name, KindStream)
}

// EnsureStorage returns the storage at path, creating missing levels.
func (c *Container) EnsureStorage(path string) (StreamID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	cur := c.dir[RootID]
	walked := ""
	for _, name := range splitPath(path) {
		next, ok := c.dir.child(cur.ID, name)
		if !ok {
			id, err := c.addLocked(walked, name, KindStorage)
			if err != nil {
				return 0, err
			}
			next = c.dir[id]
		}
		if next.Kind != KindStorage {
			return 0, faults.Wrap(faults.ErrEntryExists, "container", "ensure storage",
				fmt.Sprintf("%s/%s is a stream", walked, name), nil)
		}
		walked += "/" + name
		cur = next
	}
	return cur.ID, nil
}

// StreamByPath resolves a path to an entry.
func (c *Container) StreamByPath(path string) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return Entry{}, err
	}
	e, err := c.lookupLocked(path)
	if err != nil {
		return Entry{}, err
	}
	return e.Entry, nil
}

// Entry returns the directory entry for id.
func (c *Container) Entry(id StreamID) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return Entry{}, err
	}
	e, ok := c.dir[id]
	if !ok {
		return Entry{}, faults.Wrap(faults.ErrStreamNotFound, "container", "entry", fmt.Sprintf("id %d", id), nil)
	}
	return e.Entry, nil
}

// ListChildren returns the entries directly under the storage at path,
// ordered by name.
func (c *Container) ListChildren(path string) ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	parent, err := c.lookupLocked(path)
	if err != nil {
		return nil, err
	}
	if parent.Kind != KindStorage {
		return nil, faults.Wrap(faults.ErrStreamNotFound, "container", "list",
			fmt.Sprintf("%s is not a storage", path), nil)
	}
	kids := c.dir.children(parent.ID)
	out := make([]Entry, len(kids))
	for i, k := range kids {
		out[i] = k.Entry
	}
	return out, nil
}

// Remove deletes the entry at path and, for storages, everything beneath.
func (c *Container) Remove(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkWritable(); err != nil {
		return err
	}
	e, err := c.lookupLocked(path)
	if err != nil {
		return err
	}
	if e.ID == RootID {
		return faults.Wrap(faults.ErrEntryExists, "container", "remove", "cannot remove root storage", nil)
	}
	c.removeLocked(e.ID)
	c.dirty = true
	return nil
}

// RemoveID deletes the entry id and, for storages, everything beneath.
func (c *Container) RemoveID(id StreamID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkWritable(); err != nil {
		return err
	}
	if _, ok := c.dir[id]; !ok || id == RootID {
		return faults.Wrap(faults.ErrStreamNotFound, "container", "remove", fmt.Sprintf("id %d", id), nil)
	}
	c.removeLocked(id)
	c.dirty = true
	return nil
}

func (c *Container) removeLocked(id StreamID) {
	for _, kid := range c.dir.children(id) {
		c.removeLocked(kid.ID)
	}
	delete(c.dir, id)
}

// WriteStream replaces the content of stream id with data. The identifier
// is unchanged.
func (c *Container) WriteStream(id StreamID, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkWritable(); err != nil {
		return err
	}
	e, err := c.streamLocked(id)
	if err != nil {
		return err
	}
	x, err := c.allocateLocked(data)
	if err != nil {
		return err
	}
	e.extents = e.extents[:0]
	e.Size = 0
	if x.Length > 0 {
		e.extents = append(e.extents, x)
		e.Size = x.Length
	}
	c.dirty = true
	return nil
}

// AppendStream adds data to the end of stream id.
func (c *Container) AppendStream(id StreamID, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkWritable(); err != nil {
		return err
	}
	e, err := c.streamLocked(id)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	x, err := c.allocateLocked(data)
	if err != nil {
		return err
	}
	if n := len(e.extents); n > 0 && e.extents[n-1].Offset+e.extents[n-1].Length == x.Offset {
		e.extents[n-1].Length += x.Length
	} else {
		e.extents = append(e.extents, x)
	}
	e.Size += x.Length
	c.dirty = true
	return nil
}

// allocateLocked writes data at the allocation end.
func (c *Container) allocateLocked(data []byte) (Extent, error) {
	x := Extent{Offset: c.end, Length: int64(len(data))}
	if len(data) == 0 {
		return x, nil
	}
	if _, err := c.file.WriteAt(data, c.end); err != nil {
		return Extent{}, faults.Wrap(faults.ErrIO, "container", "write", c.path, err)
	}
	c.end += x.Length
	return x, nil
}

// StreamSize returns the staged size of stream id.
func (c *Container) StreamSize(id StreamID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	e, err := c.streamLocked(id)
	if err != nil {
		return 0, err
	}
	return e.Size, nil
}

// ReadStream reads up to n bytes of stream id starting at off. A read that
// starts at the end returns no bytes; one that starts past it fails.
func (c *Container) ReadStream(id StreamID, off, n int64) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	e, err := c.streamLocked(id)
	if err != nil {
		return nil, err
	}
	if off < 0 || n < 0 || off > e.Size {
		return nil, faults.Wrap(faults.ErrIO, "container", "read",
			fmt.Sprintf("range [%d,+%d) outside stream of %d bytes", off, n, e.Size), nil)
	}
	n = min(n, e.Size-off)
	buf := make([]byte, n)
	r := &StreamReader{file: c.file, extents: e.extents, size: e.Size}
	if _, err := r.ReadAt(buf, off); err != nil && err != io.EOF {
		return nil, err
	}
	return buf, nil
}

// ReadAll returns the full content of stream id.
func (c *Container) ReadAll(id StreamID) ([]byte, error) {
	size, err := c.StreamSize(id)
	if err != nil {
		return nil, err
	}
	return c.ReadStream(id, 0, size)
}

// OpenStreamReader returns a reader over the current content of stream id.
// Later writes to the stream are not visible through it.
func (c *Container) OpenStreamReader(id StreamID) (*StreamReader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	e, err := c.streamLocked(id)
	if err != nil {
		return nil, err
	}
	return &StreamReader{file: c.file, extents: append([]Extent(nil), e.extents...), size: e.Size}, nil
}

// StreamReader reads a stream's extents in place.
type StreamReader struct {
	file    io.ReaderAt
	extents []Extent
	size    int64
}

// Size returns the stream length.
func (r *StreamReader) Size() int64 { return r.size }

// ReadAt implements io.ReaderAt over the stream's logical bytes.
func (r *StreamReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, faults.Wrap(faults.ErrIO, "container", "read", "negative offset", nil)
	}
	if off >= r.size {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	read := 0
	base := int64(0)
	for _, x := range r.extents {
		if read == len(p) {
			break
		}
		if off >= base+x.Length {
			base += x.Length
			continue
		}
		inner := off - base
		chunk := min(int64(len(p)-read), x.Length-inner)
		n, err := r.file.ReadAt(p[read:read+int(chunk)], x.Offset+inner)
		read += n
		off += int64(n)
		if err != nil && !(err == io.EOF && int64(n) == chunk) {
			return read, faults.Wrap(faults.ErrIO, "container", "read", "extent", err)
		}
		base += x.Length
	}
	if read < len(p) {
		return read, io.EOF
	}
	return read, nil
}
