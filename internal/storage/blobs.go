package storage

import (
	"fmt"

	"splice/internal/codec"
	"splice/internal/container"
	"splice/internal/faults"
)

// outlineBlobs moves oversized payloads of obj's records into their own
// streams and replaces them with BlobRef records.
func (s *Session) outlineBlobs(id codec.ObjectID, recs []codec.Record) ([]codec.Record, []container.StreamID, error) {
	if s.opts.BlobThreshold <= 0 {
		return recs, nil, nil
	}
	var blobs []container.StreamID
	out := make([]codec.Record, len(recs))
	for i, rec := range recs {
		out[i] = rec
		if len(rec.Data) <= s.opts.BlobThreshold || !outlinable(rec.Tag) {
			continue
		}
		sid, err := s.c.CreateStream(blobsStorage, fmt.Sprintf("%d.%04x", id, rec.PID))
		if err != nil {
			return nil, nil, err
		}
		payload := make([]byte, 0, len(rec.Data)+1)
		payload = append(payload, byte(rec.Tag))
		payload = append(payload, rec.Data...)
		if err := s.c.WriteStream(sid, payload); err != nil {
			return nil, nil, err
		}
		ref, err := codec.NewRecord(rec.PID, codec.BlobRef{Stream: uint32(sid), Size: int64(len(rec.Data))}, s.order)
		if err != nil {
			return nil, nil, err
		}
		out[i] = ref
		blobs = append(blobs, sid)
	}
	return out, blobs, nil
}

// outlinable excludes reference records, which must stay inline so the
// object's edges are visible without reading blobs.
func outlinable(tag codec.Tag) bool {
	switch tag {
	case codec.TagStrongRef, codec.TagStrongRefVector, codec.TagBlobRef:
		return false
	default:
		return true
	}
}

// inlineBlobs replaces BlobRef records with the records they stand for.
func (s *Session) inlineBlobs(recs []codec.Record) ([]codec.Record, error) {
	for i, rec := range recs {
		if rec.Tag != codec.TagBlobRef {
			continue
		}
		v, err := rec.Value(s.order)
		if err != nil {
			return nil, err
		}
		ref := v.(codec.BlobRef)
		data, err := s.c.ReadAll(container.StreamID(ref.Stream))
		if err != nil {
			return nil, fmt.Errorf("blob for property 0x%04x: %w", rec.PID, err)
		}
		if len(data) < 1 || int64(len(data)-1) != ref.Size {
			return nil, faults.Wrap(faults.ErrCorruptContainer, "storage", "blob",
				fmt.Sprintf("property 0x%04x: blob holds %d bytes, want %d", rec.PID, len(data)-1, ref.Size), nil)
		}
		recs[i] = codec.Record{PID: rec.PID, Tag: codec.Tag(data[0]), Data: data[1:]}
	}
	return recs, nil
}

func (s *Session) removeStreams(ids []container.StreamID) error {
	for _, id := range ids {
		if err := s.c.RemoveID(id); err != nil {
			return err
		}
	}
	return nil
}
