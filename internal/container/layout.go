package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/google/uuid"

	"splice/internal/faults"
)

const (
	magic = "SPLCCS\r\n"

	headerSlotSize = 128
	headerArea     = 2 * headerSlotSize

	versionMajor = 1
	versionMinor = 0

	byteOrderMark = 0xfffe

	// crcOffset is where each slot stores the checksum of the bytes before it.
	crcOffset = headerSlotSize - 4
)

// header is the decoded content of one header slot.
type header struct {
	order      binary.ByteOrder
	major      uint16
	minor      uint16
	generation uint64
	fileID     uuid.UUID
	dirOffset  int64
	dirLength  int64
	end        int64
	nextID     StreamID
}

func (h header) encode() []byte {
	buf := make([]byte, headerSlotSize)
	copy(buf, magic)
	h.order.PutUint16(buf[8:], byteOrderMark)
	h.order.PutUint16(buf[10:], h.major)
	h.order.PutUint16(buf[12:], h.minor)
	h.order.PutUint64(buf[16:], h.generation)
	copy(buf[24:40], h.fileID[:])
	h.order.PutUint64(buf[40:], uint64(h.dirOffset))
	h.order.PutUint64(buf[48:], uint64(h.dirLength))
	h.order.PutUint64(buf[56:], uint64(h.end))
	h.order.PutUint32(buf[64:], uint32(h.nextID))
	h.order.PutUint32(buf[crcOffset:], crc32.ChecksumIEEE(buf[:crcOffset]))
	return buf
}

// slotState classifies a header slot read from disk.
type slotState int

const (
	slotForeign slotState = iota // no signature
	slotDamaged                  // signature present, content unusable
	slotValid
)

func decodeHeader(buf []byte) (header, slotState) {
	if len(buf) < len(magic) || !bytes.Equal(buf[:len(magic)], []byte(magic)) {
		return header{}, slotForeign
	}
	if len(buf) < headerSlotSize {
		return header{}, slotDamaged
	}
	var order binary.ByteOrder
	switch {
	case buf[8] == 0xfe && buf[9] == 0xff:
		order = binary.LittleEndian
	case buf[8] == 0xff && buf[9] == 0xfe:
		order = binary.BigEndian
	default:
		return header{}, slotDamaged
	}
	if order.Uint32(buf[crcOffset:]) != crc32.ChecksumIEEE(buf[:crcOffset]) {
		return header{}, slotDamaged
	}
	h := header{
		order:      order,
		major:      order.Uint16(buf[10:]),
		minor:      order.Uint16(buf[12:]),
		generation: order.Uint64(buf[16:]),
		dirOffset:  int64(order.Uint64(buf[40:])),
		dirLength:  int64(order.Uint64(buf[48:])),
		end:        int64(order.Uint64(buf[56:])),
		nextID:     StreamID(order.Uint32(buf[64:])),
	}
	copy(h.fileID[:], buf[24:40])
	return h, slotValid
}

// pickHeader chooses the authoritative slot from the raw header area.
// It returns the header and the slot index it came from.
func pickHeader(area []byte) (header, int, error) {
	var (
		best      header
		bestSlot  = -1
		signature bool
	)
	for slot := 0; slot < 2; slot++ {
		lo := slot * headerSlotSize
		if lo >= len(area) {
			break
		}
		hi := min(lo+headerSlotSize, len(area))
		h, state := decodeHeader(area[lo:hi])
		switch state {
		case slotForeign:
			continue
		case slotDamaged:
			signature = true
			continue
		}
		signature = true
		if bestSlot < 0 || h.generation > best.generation {
			best, bestSlot = h, slot
		}
	}
	if !signature {
		return header{}, -1, faults.Wrap(faults.ErrNotAContainer, "container", "open", "signature not found", nil)
	}
	if bestSlot < 0 {
		return header{}, -1, faults.Wrap(faults.ErrCorruptContainer, "container", "open", "no valid header slot", nil)
	}
	if best.major != versionMajor {
		return header{}, -1, faults.Wrap(faults.ErrCorruptContainer, "container", "open",
			fmt.Sprintf("unsupported format version %d.%d", best.major, best.minor), nil)
	}
	return best, bestSlot, nil
}
