package store

import (
	"errors"

	"github.com/cockroachdb/pebble"
)

// pebbleBackend stores the two documents under reserved keys in a Pebble DB.
// The document contract is unchanged: whole-document values, synced writes.
// This backend exists for deployments that prefer a single DB directory over
// loose JSON files; compaction makes the repeated full rewrites cheap.
type pebbleBackend struct {
	db *pebble.DB
}

func openPebble(path string) (Backend, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &pebbleBackend{db: db}, nil
}

func docKey(kind Kind) []byte {
	return []byte("doc:" + string(kind))
}

func (p *pebbleBackend) Load(kind Kind) ([]byte, error) {
	v, closer, err := p.db.Get(docKey(kind))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := append([]byte(nil), v...)
	if closer != nil {
		_ = closer.Close()
	}
	return out, nil
}

func (p *pebbleBackend) Save(kind Kind, doc []byte) error {
	return p.db.Set(docKey(kind), doc, pebble.Sync)
}

func (p *pebbleBackend) Close() error {
	return p.db.Close()
}
