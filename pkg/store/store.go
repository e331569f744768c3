package store

import (
	"encoding/json"
	"fmt"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/metrics"
	"chatrelay/pkg/models"
)

// Kind names one of the two persisted conversation documents.
type Kind string

const (
	KindMessages Kind = "messages"
	KindGroup    Kind = "group"
)

// Backend persists each document as a whole unit. Load returns (nil, nil)
// when the document has never been written. Every Save replaces the full
// document synchronously on the calling path so an acknowledged mutation
// survives a crash immediately afterwards.
type Backend interface {
	Load(kind Kind) ([]byte, error)
	Save(kind Kind, doc []byte) error
	Close() error
}

// StorageError wraps a failed load or save of a persisted document.
type StorageError struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

var backend Backend

// Open selects and opens the configured backend and keeps a package-level
// handle for simple usage, mirroring the single-store nature of the relay.
// Supported backends: "file" (two JSON documents under path) and "pebble".
func Open(name, path string) error {
	if backend != nil {
		return fmt.Errorf("store already opened")
	}
	var (
		b   Backend
		err error
	)
	switch name {
	case "", "file":
		b, err = openFile(path)
	case "pebble":
		b, err = openPebble(path)
	default:
		return fmt.Errorf("unknown storage backend: %q", name)
	}
	if err != nil {
		logger.Error("store_open_failed", "backend", name, "path", path, "error", err)
		return err
	}
	backend = b
	logger.Info("store_opened", "backend", name, "path", path)
	return nil
}

// Close closes the opened backend if present.
func Close() error {
	if backend == nil {
		return nil
	}
	err := backend.Close()
	backend = nil
	return err
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return backend != nil
}

// Export returns the raw bytes of a persisted document, or (nil, nil) when
// the document is absent. Used by the backup scheduler.
func Export(kind Kind) ([]byte, error) {
	if backend == nil {
		return nil, fmt.Errorf("store not opened; call store.Open first")
	}
	b, err := backend.Load(kind)
	if err != nil {
		return nil, &StorageError{Op: "load", Kind: kind, Err: err}
	}
	return b, nil
}

// LoadMessages reads the persisted message log. An absent or corrupt
// document yields an empty log rather than a startup failure.
func LoadMessages() ([]models.Message, error) {
	if backend == nil {
		return nil, fmt.Errorf("store not opened; call store.Open first")
	}
	b, err := backend.Load(KindMessages)
	if err != nil {
		logger.Warn("messages_load_failed", "error", err)
		return nil, nil
	}
	if b == nil {
		return nil, nil
	}
	var msgs []models.Message
	if err := json.Unmarshal(b, &msgs); err != nil {
		logger.Warn("messages_document_corrupt", "error", err)
		return nil, nil
	}
	return msgs, nil
}

// SaveMessages replaces the persisted message log with the given sequence.
func SaveMessages(msgs []models.Message) error {
	if backend == nil {
		return fmt.Errorf("store not opened; call store.Open first")
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	b, err := json.Marshal(msgs)
	if err != nil {
		return &StorageError{Op: "marshal", Kind: KindMessages, Err: err}
	}
	if err := backend.Save(KindMessages, b); err != nil {
		metrics.StoreWriteFailures.Inc()
		logger.Error("messages_save_failed", "count", len(msgs), "error", err)
		return &StorageError{Op: "save", Kind: KindMessages, Err: err}
	}
	return nil
}

// LoadGroup reads the persisted group record, falling back to def when the
// document is absent or corrupt.
func LoadGroup(def models.GroupInfo) (models.GroupInfo, error) {
	if backend == nil {
		return def, fmt.Errorf("store not opened; call store.Open first")
	}
	b, err := backend.Load(KindGroup)
	if err != nil {
		logger.Warn("group_load_failed", "error", err)
		return def, nil
	}
	if b == nil {
		return def, nil
	}
	var g models.GroupInfo
	if err := json.Unmarshal(b, &g); err != nil {
		logger.Warn("group_document_corrupt", "error", err)
		return def, nil
	}
	// Partial historical documents keep defaults for missing fields so the
	// record is always fully populated.
	if g.Name == "" {
		g.Name = def.Name
	}
	if g.Image == "" {
		g.Image = def.Image
	}
	return g, nil
}

// SaveGroup replaces the persisted group record.
func SaveGroup(g models.GroupInfo) error {
	if backend == nil {
		return fmt.Errorf("store not opened; call store.Open first")
	}
	b, err := json.Marshal(g)
	if err != nil {
		return &StorageError{Op: "marshal", Kind: KindGroup, Err: err}
	}
	if err := backend.Save(KindGroup, b); err != nil {
		metrics.StoreWriteFailures.Inc()
		logger.Error("group_save_failed", "error", err)
		return &StorageError{Op: "save", Kind: KindGroup, Err: err}
	}
	return nil
}
