package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"splice/internal/faults"
)

// Record is one persisted property: local property id, value tag and the
// encoded payload.
type Record struct {
	PID  uint16
	Tag  Tag
	Data []byte
}

// recordHeaderSize is pid(2) + tag(1) + length(4).
const recordHeaderSize = 7

// NewRecord encodes v into a record for pid.
func NewRecord(pid uint16, v Value, order binary.ByteOrder) (Record, error) {
	data, err := Encode(v, order)
	if err != nil {
		return Record{}, fmt.Errorf("property 0x%04x: %w", pid, err)
	}
	return Record{PID: pid, Tag: v.Tag(), Data: data}, nil
}

// Value decodes the record payload.
func (r Record) Value(order binary.ByteOrder) (Value, error) {
	v, err := Decode(r.Tag, r.Data, order)
	if err != nil {
		return nil, fmt.Errorf("property 0x%04x: %w", r.PID, err)
	}
	return v, nil
}

// AppendRecord frames rec onto dst.
func AppendRecord(dst []byte, rec Record, order binary.ByteOrder) []byte {
	return appendRecord(dst, rec, orderOf(order))
}

func appendRecord(dst []byte, rec Record, order byteOrder) []byte {
	dst = order.AppendUint16(dst, rec.PID)
	dst = append(dst, byte(rec.Tag))
	dst = order.AppendUint32(dst, uint32(len(rec.Data)))
	return append(dst, rec.Data...)
}

// EncodeObject builds an object stream: class identifier, property count,
// then the framed records.
func EncodeObject(class AUID, records []Record, order binary.ByteOrder) ([]byte, error) {
	if len(records) > math.MaxUint16 {
		return nil, faults.Wrap(faults.ErrMalformedValue, "codec", "encode object",
			fmt.Sprintf("%d properties exceed record limit", len(records)), nil)
	}
	size := 18
	for _, rec := range records {
		size += recordHeaderSize + len(rec.Data)
	}
	out := make([]byte, 0, size)
	out = append(out, class[:]...)
	o := orderOf(order)
	out = o.AppendUint16(out, uint16(len(records)))
	for _, rec := range records {
		out = appendRecord(out, rec, o)
	}
	return out, nil
}

// DecodeObject splits an object stream into its class identifier and
// records. Payloads are copied so the caller may reuse data.
func DecodeObject(data []byte, order binary.ByteOrder) (AUID, []Record, error) {
	r := &reader{buf: data, order: orderOf(order)}
	head, err := r.take(16)
	if err != nil {
		return NilAUID, nil, fmt.Errorf("object header: %w", err)
	}
	var class AUID
	copy(class[:], head)
	count, err := r.u16()
	if err != nil {
		return NilAUID, nil, fmt.Errorf("object header: %w", err)
	}
	records := make([]Record, 0, count)
	for i := 0; i < int(count); i++ {
		pid, err := r.u16()
		if err != nil {
			return NilAUID, nil, fmt.Errorf("record %d: %w", i, err)
		}
		tag, err := r.u8()
		if err != nil {
			return NilAUID, nil, fmt.Errorf("record %d: %w", i, err)
		}
		n, err := r.u32()
		if err != nil {
			return NilAUID, nil, fmt.Errorf("record %d: %w", i, err)
		}
		payload, err := r.take(int(n))
		if err != nil {
			return NilAUID, nil, fmt.Errorf("record %d: %w", i, err)
		}
		buf := make([]byte, len(payload))
		copy(buf, payload)
		records = append(records, Record{PID: pid, Tag: Tag(tag), Data: buf})
	}
	if r.remaining() != 0 {
		return NilAUID, nil, faults.Wrap(faults.ErrMalformedValue, "codec", "decode object",
			fmt.Sprintf("%d trailing bytes", r.remaining()), nil)
	}
	return class, records, nil
}
