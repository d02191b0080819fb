package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// BindingStore is the durable docId -> external index mapping. PutBinding is
// a compare-and-set: the first binding for a docId wins and is what every
// caller gets back, so concurrent creators converge on one identifier.
type BindingStore interface {
	GetBinding(ctx context.Context, docID string) (string, bool, error)
	PutBinding(ctx context.Context, docID, indexID string) (string, error)
}

// FileBindings persists the mapping as one JSON object in a single file,
// mirroring the document store's structured-text layout.
type FileBindings struct {
	mu   sync.Mutex
	path string
}

func NewFileBindings(path string) (*FileBindings, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create binding directory: %w", err)
	}
	return &FileBindings{path: path}, nil
}

func (b *FileBindings) GetBinding(ctx context.Context, docID string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, err := b.read()
	if err != nil {
		return "", false, err
	}
	id, ok := m[docID]
	return id, ok, nil
}

func (b *FileBindings) PutBinding(ctx context.Context, docID, indexID string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, err := b.read()
	if err != nil {
		return "", err
	}
	if existing, ok := m[docID]; ok {
		return existing, nil
	}

	m[docID] = indexID
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	if err := writeAtomic(b.path, data); err != nil {
		return "", fmt.Errorf("persist binding %s: %w", docID, err)
	}
	return indexID, nil
}

func (b *FileBindings) read() (map[string]string, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read binding map: %w", err)
	}

	m := map[string]string{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse binding map: %w", err)
	}
	return m, nil
}

// writeAtomic keeps the mapping file whole under crashes: temp file, then
// rename.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
