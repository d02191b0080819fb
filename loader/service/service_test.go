package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/store"
	"docchat/types"
)

func newTestService(t *testing.T) (*Service, types.Config, *store.FileStore) {
	t.Helper()

	root := t.TempDir()
	cfg := types.Config{
		DataDir:          filepath.Join(root, "uploads"),
		LoaderSourceDir:  filepath.Join(root, "inbox"),
		LoaderArchiveDir: filepath.Join(root, "archive"),
		LoaderBadDir:     filepath.Join(root, "bad"),
	}
	for _, dir := range []string{cfg.LoaderSourceDir, cfg.LoaderArchiveDir, cfg.LoaderBadDir} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}

	docs, err := store.NewFileStore(cfg.DataDir)
	require.NoError(t, err)

	return New(docs, cfg), cfg, docs
}

func writeSource(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func Test_copyAndRemove(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "report.pdf", []byte("pdf bytes"))
	dest := filepath.Join(dir, "moved", "report.pdf")
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))

	require.NoError(t, copyAndRemove(src, dest))

	moved, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf bytes"), moved)
	assert.NoFileExists(t, src)
}

func Test_copyAndRemove_KeepsSourceOnFailure(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "report.pdf", []byte("pdf bytes"))

	// Destination directory does not exist, so the copy cannot start.
	err := copyAndRemove(src, filepath.Join(dir, "missing", "report.pdf"))
	require.Error(t, err)
	assert.FileExists(t, src)
}

func Test_moveTo(t *testing.T) {
	svc, cfg, _ := newTestService(t)
	src := writeSource(t, cfg.LoaderSourceDir, "report.pdf", []byte("pdf bytes"))

	require.NoError(t, svc.moveTo(src, cfg.LoaderArchiveDir))

	moved, err := os.ReadFile(filepath.Join(cfg.LoaderArchiveDir, "report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf bytes"), moved)
	assert.NoFileExists(t, src)
}

func Test_ingest_NonPDFGoesToBadDir(t *testing.T) {
	svc, cfg, _ := newTestService(t)
	src := writeSource(t, cfg.LoaderSourceDir, "notes.txt", []byte("plain text"))

	require.NoError(t, svc.ingest(context.Background(), src))

	assert.FileExists(t, filepath.Join(cfg.LoaderBadDir, "notes.txt"))
	assert.NoFileExists(t, src)
}

func Test_ingest_UnparseablePDFGoesToBadDir(t *testing.T) {
	svc, cfg, docs := newTestService(t)
	src := writeSource(t, cfg.LoaderSourceDir, "broken.pdf", []byte("not a pdf"))

	require.NoError(t, svc.ingest(context.Background(), src))

	assert.FileExists(t, filepath.Join(cfg.LoaderBadDir, "broken.pdf"))
	assert.NoFileExists(t, src)

	// Nothing may be persisted for a rejected file.
	entries, err := os.ReadDir(docs.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
