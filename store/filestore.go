package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docchat/types"
)

// FileStore keeps one JSON page record and one raw PDF per document in a
// single directory. Records are plain structured text so an operator can
// inspect them with any editor.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// envelope is the on-disk shape of a page record.
type envelope struct {
	Meta struct {
		DocID    string `json:"docId"`
		Filename string `json:"filename"`
		Pages    int    `json:"pages"`
	} `json:"meta"`
	Pages []json.RawMessage `json:"pages"`
}

func (s *FileStore) Save(ctx context.Context, doc types.Document, pdf []byte) error {
	if err := writeAtomic(s.pdfPath(doc.DocID), pdf); err != nil {
		return fmt.Errorf("persist pdf %s: %w", doc.DocID, err)
	}

	var env envelope
	env.Meta.DocID = doc.DocID
	env.Meta.Filename = doc.Filename
	env.Meta.Pages = doc.PageCount
	env.Pages = make([]json.RawMessage, len(doc.Pages))
	for i, p := range doc.Pages {
		raw, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode page %d: %w", p.Page, err)
		}
		env.Pages[i] = raw
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc.DocID, err)
	}
	if err := writeAtomic(s.recordPath(doc.DocID), data); err != nil {
		return fmt.Errorf("persist record %s: %w", doc.DocID, err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, docID string) (types.Document, error) {
	path := s.recordPath(docID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.Document{}, fmt.Errorf("%w: %s", ErrNotFound, docID)
		}
		return types.Document{}, fmt.Errorf("read record %s: %w", docID, err)
	}

	doc, err := decodeRecord(data)
	if err != nil {
		return types.Document{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, docID, err)
	}
	doc.DocID = docID
	return doc, nil
}

func (s *FileStore) PDF(ctx context.Context, docID string) ([]byte, error) {
	data, err := os.ReadFile(s.pdfPath(docID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, docID)
		}
		return nil, fmt.Errorf("read pdf %s: %w", docID, err)
	}
	return data, nil
}

func (s *FileStore) Stat(ctx context.Context, docID string) (bool, string) {
	path := s.recordPath(docID)
	_, err := os.Stat(path)
	return err == nil, path
}

// Dir returns the storage directory, used to serve raw PDFs statically.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) recordPath(docID string) string {
	return filepath.Join(s.dir, docID+".json")
}

func (s *FileStore) pdfPath(docID string) string {
	return filepath.Join(s.dir, docID+".pdf")
}

// decodeRecord tolerates the historical record shapes: a wrapped
// {meta, pages} object or a bare array, with pages as strings or
// {page, text} records. Everything is normalized to canonical PageRecords
// right here so ambiguity never leaks past the store.
func decodeRecord(data []byte) (types.Document, error) {
	var doc types.Document
	var rawPages []json.RawMessage

	trimmed := strings.TrimLeftFunc(string(data), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &rawPages); err != nil {
			return doc, err
		}
	} else {
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return doc, err
		}
		doc.Filename = env.Meta.Filename
		rawPages = env.Pages
	}

	doc.Pages = make([]types.PageRecord, 0, len(rawPages))
	for i, raw := range rawPages {
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			doc.Pages = append(doc.Pages, types.PageRecord{Page: i + 1, Text: text})
			continue
		}

		var rec types.PageRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return doc, fmt.Errorf("page %d: %w", i+1, err)
		}
		if rec.Page <= 0 {
			rec.Page = i + 1
		}
		doc.Pages = append(doc.Pages, rec)
	}

	doc.PageCount = len(doc.Pages)
	return doc, nil
}

// writeAtomic lands the bytes through a temp file and a rename so a crashed
// write never leaves a partial record behind.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
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
