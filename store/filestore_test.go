package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/types"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func sampleDoc(id string) types.Document {
	return types.Document{
		DocID:    id,
		Filename: "report.pdf",
		Pages: []types.PageRecord{
			{Page: 1, Text: "Alpha budget 2024"},
			{Page: 2, Text: ""},
			{Page: 3, Text: "Alpha beta conclusion"},
		},
		PageCount: 3,
		CreatedAt: time.Now(),
	}
}

func Test_FileStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := sampleDoc("doc-1")
	require.NoError(t, s.Save(ctx, doc, []byte("%PDF-raw-bytes")))

	loaded, err := s.Load(ctx, "doc-1")
	require.NoError(t, err)

	assert.Equal(t, doc.Pages, loaded.Pages)
	assert.Equal(t, doc.PageCount, loaded.PageCount)
	assert.Equal(t, doc.Filename, loaded.Filename)
	assert.Equal(t, "doc-1", loaded.DocID)

	pdf, err := s.PDF(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-raw-bytes"), pdf)
}

func Test_FileStore_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.PDF(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_FileStore_Corrupt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "bad.json"), []byte("{not json"), 0o644))
	_, err := s.Load(ctx, "bad")
	assert.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "nums.json"), []byte("[1, 2]"), 0o644))
	_, err = s.Load(ctx, "nums")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func Test_FileStore_ToleratesLegacyShapes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Bare array of page strings.
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "bare.json"),
		[]byte(`["first page", "second page"]`), 0o644))

	doc, err := s.Load(ctx, "bare")
	require.NoError(t, err)
	require.Len(t, doc.Pages, 2)
	assert.Equal(t, types.PageRecord{Page: 1, Text: "first page"}, doc.Pages[0])
	assert.Equal(t, types.PageRecord{Page: 2, Text: "second page"}, doc.Pages[1])
	assert.Equal(t, 2, doc.PageCount)

	// Wrapped object whose records are missing page numbers.
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "wrapped.json"),
		[]byte(`{"meta":{"filename":"x.pdf","pages":2},"pages":[{"text":"a"},{"page":2,"text":"b"}]}`), 0o644))

	doc, err = s.Load(ctx, "wrapped")
	require.NoError(t, err)
	require.Len(t, doc.Pages, 2)
	assert.Equal(t, 1, doc.Pages[0].Page)
	assert.Equal(t, 2, doc.Pages[1].Page)
	assert.Equal(t, "x.pdf", doc.Filename)
}

func Test_FileStore_Stat(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	exists, path := s.Stat(ctx, "doc-1")
	assert.False(t, exists)
	assert.Equal(t, filepath.Join(s.Dir(), "doc-1.json"), path)

	require.NoError(t, s.Save(ctx, sampleDoc("doc-1"), []byte("pdf")))

	exists, path = s.Stat(ctx, "doc-1")
	assert.True(t, exists)
	assert.Equal(t, filepath.Join(s.Dir(), "doc-1.json"), path)
}

func Test_FileStore_NoTempLeftovers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleDoc("doc-1"), []byte("pdf")))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasPrefix(entry.Name(), ".tmp-"), "stray temp file: %s", entry.Name())
	}
}

func Test_FileStore_RecordIsInspectable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleDoc("doc-1"), []byte("pdf")))

	data, err := os.ReadFile(filepath.Join(s.Dir(), "doc-1.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"filename": "report.pdf"`)
	assert.Contains(t, string(data), `"Alpha budget 2024"`)
}
