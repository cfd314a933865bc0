package container

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"slices"

	"splice/internal/faults"
)

// StreamID identifies an entry in the directory. Identifiers are never
// reused within a file.
type StreamID uint32

// RootID is the identifier of the root storage.
const RootID StreamID = 1

// Kind distinguishes storages from streams.
type Kind uint8

const (
	KindStorage Kind = 1
	KindStream  Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindStorage:
		return "storage"
	case KindStream:
		return "stream"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Extent is a contiguous run of bytes in the file.
type Extent struct {
	Offset int64
	Length int64
}

// Entry describes one node of the directory tree.
type Entry struct {
	ID     StreamID
	Parent StreamID
	Kind   Kind
	Name   string
	Size   int64
}

type entry struct {
	Entry
	extents []Extent
}

func (e *entry) clone() *entry {
	cp := *e
	cp.extents = slices.Clone(e.extents)
	return &cp
}

type directory map[StreamID]*entry

func (d directory) clone() directory {
	out := make(directory, len(d))
	for id, e := range d {
		out[id] = e.clone()
	}
	return out
}

func (d directory) child(parent StreamID, name string) (*entry, bool) {
	for _, e := range d {
		if e.Parent == parent && e.Name == name && e.ID != RootID {
			return e, true
		}
	}
	return nil, false
}

func (d directory) children(parent StreamID) []*entry {
	var out []*entry
	for _, e := range d {
		if e.Parent == parent && e.ID != RootID {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b *entry) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

// liveBytes sums the extent lengths of every stream.
func (d directory) liveBytes() int64 {
	var total int64
	for _, e := range d {
		for _, x := range e.extents {
			total += x.Length
		}
	}
	return total
}

func newDirectory() directory {
	return directory{RootID: {Entry: Entry{ID: RootID, Kind: KindStorage}}}
}

// encode lays out entries in id order followed by a CRC-32 of the body.
func (d directory) encode(bo binary.ByteOrder) []byte {
	order := appendOrder(bo)
	ids := make([]StreamID, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	buf := order.AppendUint32(nil, uint32(len(ids)))
	for _, id := range ids {
		e := d[id]
		buf = order.AppendUint32(buf, uint32(e.ID))
		buf = order.AppendUint32(buf, uint32(e.Parent))
		buf = append(buf, byte(e.Kind))
		buf = order.AppendUint16(buf, uint16(len(e.Name)))
		buf = append(buf, e.Name...)
		buf = order.AppendUint64(buf, uint64(e.Size))
		buf = order.AppendUint32(buf, uint32(len(e.extents)))
		for _, x := range e.extents {
			buf = order.AppendUint64(buf, uint64(x.Offset))
			buf = order.AppendUint64(buf, uint64(x.Length))
		}
	}
	return order.AppendUint32(buf, crc32.ChecksumIEEE(buf))
}

type dirReader struct {
	buf   []byte
	off   int
	order binary.ByteOrder
}

func (r *dirReader) take(n int) ([]byte, error) {
	if n < 0 || len(r.buf)-r.off < n {
		return nil, corrupt("directory truncated at offset %d", r.off)
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *dirReader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(b), nil
}

func (r *dirReader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

func (r *dirReader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(b), nil
}

// decodeDirectory parses and validates a directory blob against the
// committed allocation end.
func decodeDirectory(blob []byte, order binary.ByteOrder, end int64) (directory, error) {
	if len(blob) < 8 {
		return nil, corrupt("directory too short")
	}
	body := blob[:len(blob)-4]
	if order.Uint32(blob[len(blob)-4:]) != crc32.ChecksumIEEE(body) {
		return nil, corrupt("directory checksum mismatch")
	}
	r := &dirReader{buf: body, order: order}
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	// Every entry needs at least 23 bytes.
	if uint64(count)*23 > uint64(len(body)) {
		return nil, corrupt("directory claims %d entries", count)
	}
	dir := make(directory, count)
	for i := uint32(0); i < count; i++ {
		e, err := decodeEntry(r, end)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if _, dup := dir[e.ID]; dup {
			return nil, corrupt("duplicate entry id %d", e.ID)
		}
		dir[e.ID] = e
	}
	if r.off != len(body) {
		return nil, corrupt("%d trailing directory bytes", len(body)-r.off)
	}
	root, ok := dir[RootID]
	if !ok || root.Kind != KindStorage {
		return nil, corrupt("root storage missing")
	}
	for _, e := range dir {
		if e.ID == RootID {
			continue
		}
		parent, ok := dir[e.Parent]
		if !ok || parent.Kind != KindStorage {
			return nil, corrupt("entry %d has no parent storage", e.ID)
		}
	}
	return dir, nil
}

func decodeEntry(r *dirReader, end int64) (*entry, error) {
	id, err := r.u32()
	if err != nil {
		return nil, err
	}
	parent, err := r.u32()
	if err != nil {
		return nil, err
	}
	kindByte, err := r.take(1)
	if err != nil {
		return nil, err
	}
	kind := Kind(kindByte[0])
	if kind != KindStorage && kind != KindStream {
		return nil, corrupt("entry %d has kind %d", id, kind)
	}
	nameLen, err := r.u16()
	if err != nil {
		return nil, err
	}
	name, err := r.take(int(nameLen))
	if err != nil {
		return nil, err
	}
	size, err := r.u64()
	if err != nil {
		return nil, err
	}
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if uint64(n)*16 > uint64(len(r.buf)-r.off) {
		return nil, corrupt("entry %d claims %d extents", id, n)
	}
	e := &entry{Entry: Entry{ID: StreamID(id), Parent: StreamID(parent), Kind: kind, Name: string(name)}}
	var total int64
	for j := uint32(0); j < n; j++ {
		off, err := r.u64()
		if err != nil {
			return nil, err
		}
		length, err := r.u64()
		if err != nil {
			return nil, err
		}
		if off < headerArea || off > math.MaxInt64 || length > math.MaxInt64-off || int64(off+length) > end {
			return nil, corrupt("entry %d extent [%d,+%d) outside allocated end %d", id, off, length, end)
		}
		e.extents = append(e.extents, Extent{Offset: int64(off), Length: int64(length)})
		total += int64(length)
	}
	if size > math.MaxInt64 || int64(size) != total {
		return nil, corrupt("entry %d size %d does not match extents (%d)", id, size, total)
	}
	e.Size = total
	if kind == KindStorage && n > 0 {
		return nil, corrupt("storage %d has data", id)
	}
	return e, nil
}

func corrupt(format string, args ...any) error {
	return faults.Wrap(faults.ErrCorruptContainer, "container", "directory", fmt.Sprintf(format, args...), nil)
}

// appendOrder returns the appending form of one of the two standard orders.
func appendOrder(order binary.ByteOrder) binary.AppendByteOrder {
	if order == binary.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
