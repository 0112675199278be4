package storage

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/coffersTech/probdash/internal/problem"
)

// MagicHeader starts every snapshot file.
var MagicHeader = []byte("PROBDSH1")

// SnapshotWriter writes problem lists to .snap files.
type SnapshotWriter struct {
	mu      sync.Mutex
	encoder *zstd.Encoder
}

func NewSnapshotWriter() (*SnapshotWriter, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, errors.Wrap(err, "zstd writer")
	}
	return &SnapshotWriter{encoder: enc}, nil
}

// WriteSnapshot writes list to path. The file is written next to path and
// renamed into place, so readers never see a partial snapshot.
//
// Layout: Magic(8) | Size(4) | zstd(JSON rows) | RowCount(4) | SavedAt(8)
func (sw *SnapshotWriter) WriteSnapshot(path string, list []problem.Problem) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}
	compressed := sw.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2))

	sw.mu.Lock()
	defer sw.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create snapshot dir")
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return errors.Wrap(err, "create snapshot")
	}

	w := bufio.NewWriter(f)
	err = writeAll(w,
		MagicHeader,
		uint32(len(compressed)),
		compressed,
		uint32(len(list)),
		time.Now().Unix(),
	)
	if err == nil {
		err = w.Flush()
	}
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "write snapshot")
	}

	return errors.Wrap(os.Rename(tmpPath, path), "rename snapshot")
}

func writeAll(w *bufio.Writer, parts ...any) error {
	for _, p := range parts {
		if b, ok := p.([]byte); ok {
			if _, err := w.Write(b); err != nil {
				return err
			}
			continue
		}
		if err := binary.Write(w, binary.LittleEndian, p); err != nil {
			return err
		}
	}
	return nil
}
