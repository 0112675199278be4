package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/coffersTech/probdash/internal/problem"
)

var ErrInvalidHeader = errors.New("invalid snapshot file header")

// Meta describes a snapshot without its rows.
type Meta struct {
	RowCount uint32
	SavedAt  time.Time
}

type SnapshotReader struct {
	decoder *zstd.Decoder
}

func NewSnapshotReader() (*SnapshotReader, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, "zstd reader")
	}
	return &SnapshotReader{decoder: dec}, nil
}

// ReadSnapshot loads the list stored at path. A missing file yields an
// empty list and no error.
func (sr *SnapshotReader) ReadSnapshot(path string) ([]problem.Problem, Meta, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, Meta{}, nil
	}
	if err != nil {
		return nil, Meta{}, errors.Wrap(err, "read snapshot")
	}

	r := bytes.NewReader(data)
	header := make([]byte, len(MagicHeader))
	if _, err := io.ReadFull(r, header); err != nil || !bytes.Equal(header, MagicHeader) {
		return nil, Meta{}, ErrInvalidHeader
	}

	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, Meta{}, errors.Wrap(err, "read block size")
	}
	if int64(size) > int64(r.Len()) {
		return nil, Meta{}, errors.Errorf("snapshot truncated: block of %d bytes, %d left", size, r.Len())
	}
	compressed := make([]byte, size)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, Meta{}, errors.Wrap(err, "read block")
	}

	var rowCount uint32
	var savedAt int64
	if err := binary.Read(r, binary.LittleEndian, &rowCount); err != nil {
		return nil, Meta{}, errors.Wrap(err, "read footer")
	}
	if err := binary.Read(r, binary.LittleEndian, &savedAt); err != nil {
		return nil, Meta{}, errors.Wrap(err, "read footer")
	}

	raw, err := sr.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, Meta{}, errors.Wrap(err, "decompress snapshot")
	}
	var list []problem.Problem
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, Meta{}, errors.Wrap(err, "decode snapshot")
	}
	if uint32(len(list)) != rowCount {
		return nil, Meta{}, errors.Errorf("snapshot row count mismatch: footer %d, rows %d", rowCount, len(list))
	}

	return list, Meta{RowCount: rowCount, SavedAt: time.Unix(savedAt, 0)}, nil
}
