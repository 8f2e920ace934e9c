package core

import (
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Hand-written mus serializers for the persisted record types. Field order
// is part of the storage format; append new fields at the end only.

var (
	// IDMUS serializes an ID as an unsigned varint.
	IDMUS = idMUS{}
	// DocumentMUS serializes a Document.
	DocumentMUS = documentMUS{}
	// ChunkMUS serializes a Chunk.
	ChunkMUS = chunkMUS{}
	// EmbeddingRecordMUS serializes an EmbeddingRecord.
	EmbeddingRecordMUS = embeddingRecordMUS{}
	// CheckpointMUS serializes a Checkpoint.
	CheckpointMUS = checkpointMUS{}

	idSliceMUS  = ord.NewSliceSer[ID](IDMUS)
	intSliceMUS = ord.NewSliceSer[int](varint.Int)
	vectorMUS   = ord.NewSliceSer[float32](raw.Float32)
)

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

func (idMUS) Skip(bs []byte) (int, error) {
	return varint.Uint64.Skip(bs)
}

// Timestamps are stored as Unix microseconds. The zero time is stored as
// math.MinInt64 so it survives a round trip.
const zeroTimeMark = math.MinInt64

func marshalTime(t time.Time, bs []byte) int {
	if t.IsZero() {
		return varint.Int64.Marshal(zeroTimeMark, bs)
	}
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || v == zeroTimeMark {
		return time.Time{}, n, err
	}
	return time.UnixMicro(v).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	if t.IsZero() {
		return varint.Int64.Size(zeroTimeMark)
	}
	return varint.Int64.Size(t.UnixMicro())
}

type documentMUS struct{}

func (documentMUS) Marshal(d Document, bs []byte) (n int) {
	n = IDMUS.Marshal(d.Id, bs)
	n += IDMUS.Marshal(d.OwnerId, bs[n:])
	n += ord.String.Marshal(d.Filename, bs[n:])
	n += ord.String.Marshal(d.Path, bs[n:])
	n += ord.String.Marshal(d.ContentType, bs[n:])
	n += ord.String.Marshal(d.Content, bs[n:])
	n += ord.String.Marshal(string(d.Status), bs[n:])
	n += ord.String.Marshal(d.Method, bs[n:])
	n += marshalTime(d.CreatedAt, bs[n:])
	n += marshalTime(d.ProcessedAt, bs[n:])
	return n
}

func (documentMUS) Unmarshal(bs []byte) (d Document, n int, err error) {
	var n1 int
	if d.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if d.OwnerId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	if d.Filename, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	if d.Path, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	if d.ContentType, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	if d.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	var status string
	if status, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	d.Status = Status(status)
	n += n1
	if d.Method, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	if d.CreatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	if d.ProcessedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	return d, n, nil
}

func (documentMUS) Size(d Document) (size int) {
	size = IDMUS.Size(d.Id)
	size += IDMUS.Size(d.OwnerId)
	size += ord.String.Size(d.Filename)
	size += ord.String.Size(d.Path)
	size += ord.String.Size(d.ContentType)
	size += ord.String.Size(d.Content)
	size += ord.String.Size(string(d.Status))
	size += ord.String.Size(d.Method)
	size += sizeTime(d.CreatedAt)
	size += sizeTime(d.ProcessedAt)
	return size
}

func (s documentMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

type chunkMUS struct{}

func (chunkMUS) Marshal(c Chunk, bs []byte) (n int) {
	n = IDMUS.Marshal(c.Id, bs)
	n += IDMUS.Marshal(c.DocumentId, bs[n:])
	n += varint.Int.Marshal(c.Index, bs[n:])
	n += ord.String.Marshal(c.Text, bs[n:])
	n += intSliceMUS.Marshal(c.PageNumbers, bs[n:])
	n += ord.String.Marshal(c.SectionTitle, bs[n:])
	n += varint.Int.Marshal(c.TokenCount, bs[n:])
	n += marshalTime(c.CreatedAt, bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (c Chunk, n int, err error) {
	var n1 int
	if c.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if c.DocumentId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Index, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.PageNumbers, n1, err = intSliceMUS.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.SectionTitle, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.TokenCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.CreatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	return c, n, nil
}

func (chunkMUS) Size(c Chunk) (size int) {
	size = IDMUS.Size(c.Id)
	size += IDMUS.Size(c.DocumentId)
	size += varint.Int.Size(c.Index)
	size += ord.String.Size(c.Text)
	size += intSliceMUS.Size(c.PageNumbers)
	size += ord.String.Size(c.SectionTitle)
	size += varint.Int.Size(c.TokenCount)
	size += sizeTime(c.CreatedAt)
	return size
}

func (s chunkMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

type embeddingRecordMUS struct{}

func (embeddingRecordMUS) Marshal(e EmbeddingRecord, bs []byte) (n int) {
	n = IDMUS.Marshal(e.ChunkId, bs)
	n += vectorMUS.Marshal(e.Vector, bs[n:])
	n += ord.String.Marshal(e.Provider, bs[n:])
	n += ord.String.Marshal(e.Model, bs[n:])
	n += marshalTime(e.CreatedAt, bs[n:])
	return n
}

func (embeddingRecordMUS) Unmarshal(bs []byte) (e EmbeddingRecord, n int, err error) {
	var n1 int
	if e.ChunkId, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if e.Vector, n1, err = vectorMUS.Unmarshal(bs[n:]); err != nil {
		return e, n + n1, err
	}
	n += n1
	if e.Provider, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return e, n + n1, err
	}
	n += n1
	if e.Model, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return e, n + n1, err
	}
	n += n1
	if e.CreatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return e, n + n1, err
	}
	n += n1
	return e, n, nil
}

func (embeddingRecordMUS) Size(e EmbeddingRecord) (size int) {
	size = IDMUS.Size(e.ChunkId)
	size += vectorMUS.Size(e.Vector)
	size += ord.String.Size(e.Provider)
	size += ord.String.Size(e.Model)
	size += sizeTime(e.CreatedAt)
	return size
}

func (s embeddingRecordMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

type checkpointMUS struct{}

func (checkpointMUS) Marshal(c Checkpoint, bs []byte) (n int) {
	n = ord.String.Marshal(c.RunIdentity, bs)
	n += idSliceMUS.Marshal(c.ProcessedIds, bs[n:])
	n += idSliceMUS.Marshal(c.FailedIds, bs[n:])
	n += varint.Int.Marshal(c.Cursor, bs[n:])
	n += varint.Int.Marshal(c.Total, bs[n:])
	n += marshalTime(c.UpdatedAt, bs[n:])
	return n
}

func (checkpointMUS) Unmarshal(bs []byte) (c Checkpoint, n int, err error) {
	var n1 int
	if c.RunIdentity, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if c.ProcessedIds, n1, err = idSliceMUS.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.FailedIds, n1, err = idSliceMUS.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Cursor, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Total, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.UpdatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	return c, n, nil
}

func (checkpointMUS) Size(c Checkpoint) (size int) {
	size = ord.String.Size(c.RunIdentity)
	size += idSliceMUS.Size(c.ProcessedIds)
	size += idSliceMUS.Size(c.FailedIds)
	size += varint.Int.Size(c.Cursor)
	size += varint.Int.Size(c.Total)
	size += sizeTime(c.UpdatedAt)
	return size
}

func (s checkpointMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}
