// Package service runs the ingest daemon: PDFs dropped into the inbox
// directory are extracted and persisted through the same document store the
// HTTP service reads from, then moved to the archive (or the bad directory
// when they cannot be parsed).
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"docchat/extract"
	"docchat/store"
	"docchat/types"
)

// settleDelay merges the burst of write events a file copy produces; the file
// is picked up once it has been quiet for this long.
const settleDelay = 500 * time.Millisecond

type Service struct {
	logger *slog.Logger
	store  store.DocStorer
	cfg    types.Config

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func New(docStore store.DocStorer, cfg types.Config) *Service {
	return &Service{
		logger:  slog.Default(),
		store:   docStore,
		cfg:     cfg,
		pending: make(map[string]*time.Timer),
	}
}

func (s *Service) Stop() {
	s.logger.Info("Loader Service stopped")
}

func (s *Service) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, dir := range []string{s.cfg.LoaderSourceDir, s.cfg.LoaderArchiveDir, s.cfg.LoaderBadDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create loader directory %s: %w", dir, err)
		}
	}

	fileChan := make(chan string, 10)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(fileChan)
		if err := s.watch(ctx, fileChan); err != nil {
			s.logger.Error("watcher stopped", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.process(ctx, fileChan)
	}()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)

	<-sigch
	log.Println("Received shutdown signal, shutting down gracefully...")

	cancel()
	signal.Stop(sigch)
	close(sigch)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("All goroutines stopped successfully")
	case <-shutdownCtx.Done():
		log.Println("Timeout waiting for goroutines to stop, forcing shutdown...")
	}

	s.Stop()
	return nil
}

// watch forwards inbox PDFs to fileChan once their write events settle.
func (s *Service) watch(ctx context.Context, fileChan chan<- string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.cfg.LoaderSourceDir); err != nil {
		return fmt.Errorf("watch %s: %w", s.cfg.LoaderSourceDir, err)
	}
	s.logger.Info("watching inbox", "dir", s.cfg.LoaderSourceDir)

	// Files already sitting in the inbox at startup.
	entries, err := os.ReadDir(s.cfg.LoaderSourceDir)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				s.schedule(ctx, filepath.Join(s.cfg.LoaderSourceDir, entry.Name()), fileChan)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				s.schedule(ctx, event.Name, fileChan)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", "error", err)
		}
	}
}

func (s *Service) schedule(ctx context.Context, path string, fileChan chan<- string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.pending[path]; ok {
		timer.Reset(settleDelay)
		return
	}

	s.pending[path] = time.AfterFunc(settleDelay, func() {
		s.mu.Lock()
		delete(s.pending, path)
		s.mu.Unlock()

		select {
		case fileChan <- path:
		case <-ctx.Done():
		}
	})
}

func (s *Service) process(ctx context.Context, fileChan <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-fileChan:
			if !ok {
				return
			}
			if err := s.ingest(ctx, path); err != nil {
				s.logger.Error("ingest failed", "file", path, "error", err)
			}
		}
	}
}

func (s *Service) ingest(ctx context.Context, path string) error {
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		s.logger.Warn("skipping non-pdf file", "file", path)
		return s.moveTo(path, s.cfg.LoaderBadDir)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	pages, err := extract.Pages(data)
	if err != nil {
		if errors.Is(err, extract.ErrInvalidPDF) {
			s.logger.Warn("unparseable pdf, moving to bad dir", "file", path, "error", err)
			return s.moveTo(path, s.cfg.LoaderBadDir)
		}
		return err
	}

	doc := types.Document{
		DocID:     uuid.NewString(),
		Filename:  filepath.Base(path),
		PageCount: len(pages),
		Pages:     pages,
		CreatedAt: time.Now(),
	}

	if err := s.store.Save(ctx, doc, data); err != nil {
		return fmt.Errorf("persist %s: %w", path, err)
	}

	s.logger.Info("document ingested", "docId", doc.DocID, "file", path, "pages", doc.PageCount)
	return s.moveTo(path, s.cfg.LoaderArchiveDir)
}

// moveTo relocates a processed file, falling back to copy+remove across
// filesystems.
func (s *Service) moveTo(path, dir string) error {
	dest := filepath.Join(dir, filepath.Base(path))
	if err := os.Rename(path, dest); err == nil {
		return nil
	}
	return copyAndRemove(path, dest)
}

// copyAndRemove only deletes the source after the destination is closed and
// flushed, so a failed copy never loses the file.
func copyAndRemove(path, dest string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}
