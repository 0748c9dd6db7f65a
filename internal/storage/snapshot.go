package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"storebot/internal/conversation"
)

// SnapshotFile persists the full conversation store as one JSON document:
// user key → ordered array of {role, text, time}. The on-disk shape is the
// load format, so a file written by any previous run stays loadable.
type SnapshotFile struct {
	path string
	mu   sync.Mutex
}

func NewSnapshotFile(path string) (*SnapshotFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure snapshot dir: %w", err)
	}
	return &SnapshotFile{path: path}, nil
}

// Load reads the last checkpoint. A missing file means a fresh start and is
// not an error. A corrupt file is reported so the caller can log it, but the
// returned map is always usable.
func (f *SnapshotFile) Load() (map[string][]conversation.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string][]conversation.Entry{}, nil
		}
		return map[string][]conversation.Entry{}, fmt.Errorf("read snapshot: %w", err)
	}
	if len(data) == 0 {
		return map[string][]conversation.Entry{}, nil
	}

	var snap map[string][]conversation.Entry
	if err := json.Unmarshal(data, &snap); err != nil {
		return map[string][]conversation.Entry{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap == nil {
		snap = map[string][]conversation.Entry{}
	}
	return snap, nil
}

// Save writes the snapshot to a temp file and renames it over the target, so
// a crash mid-write leaves the previous checkpoint intact.
func (f *SnapshotFile) Save(snap map[string][]conversation.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot temp: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
