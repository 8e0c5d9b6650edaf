package kvdoc

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/natefinch/atomic"
)

// FileStore is a MemStore that rewrites a JSON snapshot file after every
// mutation. The snapshot is replaced atomically, so a crash leaves either the
// old or the new contents on disk. If writing the snapshot fails, the
// mutation stays applied in memory and the error is returned.
type FileStore struct {
	*MemStore
	path string
}

type fileSnapshot struct {
	Version int         `json:"version"`
	Items   []fileEntry `json:"items"`
}

type fileEntry struct {
	Key   string `json:"k"`
	Value []byte `json:"v"`
}

const fileSnapshotVersion = 1

var _ Store = (*FileStore)(nil)

// NewFileStore opens (or starts) the snapshot at path.
func NewFileStore(path string) (*FileStore, error) {
	mem := NewMemStore()
	raw, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("kvdoc: %w", err)
	}
	if len(raw) > 0 {
		var snap fileSnapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return nil, dataErrf(path, nil, err, "failed to decode store snapshot")
		}
		if snap.Version != fileSnapshotVersion {
			return nil, fmt.Errorf("kvdoc: %s: unsupported snapshot version %d", path, snap.Version)
		}
		for _, e := range snap.Items {
			if e.Value == nil {
				e.Value = []byte{}
			}
			mem.items = append(mem.items, memKV{key: e.Key, value: e.Value})
		}
		slices.SortFunc(mem.items, func(a, b memKV) int {
			return strings.Compare(a.key, b.key)
		})
	}

	fst := &FileStore{MemStore: mem, path: path}
	mem.onChange = fst.writeSnapshot
	return fst, nil
}

func (fst *FileStore) Path() string {
	return fst.path
}

func (fst *FileStore) writeSnapshot(items []memKV) error {
	snap := fileSnapshot{
		Version: fileSnapshotVersion,
		Items:   make([]fileEntry, len(items)),
	}
	for i, kv := range items {
		snap.Items[i] = fileEntry{kv.key, kv.value}
	}
	raw, err := json.Marshal(&snap)
	if err != nil {
		return dataErrf(fst.path, nil, err, "failed to encode store snapshot")
	}
	if err := os.MkdirAll(filepath.Dir(fst.path), 0o755); err != nil {
		return err
	}
	return atomic.WriteFile(fst.path, bytes.NewReader(raw))
}
