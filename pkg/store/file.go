package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// fileBackend keeps each document as an independent JSON file under dir:
// messages.json and group.json. Writes are full-file replacements; a crash
// mid-write can leave a truncated document, which the loaders treat as
// corrupt and replace with defaults on the next start. That risk is a known
// limitation of the whole-document layout and is not mitigated here.
type fileBackend struct {
	dir string
}

func openFile(dir string) (Backend, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create data dir %s: %w", dir, err)
	}
	return &fileBackend{dir: dir}, nil
}

func (f *fileBackend) path(kind Kind) string {
	return filepath.Join(f.dir, string(kind)+".json")
}

func (f *fileBackend) Load(kind Kind) ([]byte, error) {
	b, err := os.ReadFile(f.path(kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

func (f *fileBackend) Save(kind Kind, doc []byte) error {
	return os.WriteFile(f.path(kind), doc, 0o644)
}

func (f *fileBackend) Close() error { return nil }
