// Package index maintains the durable mapping from a document to its
// externally-hosted semantic index and creates missing indexes lazily.
package index

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// Registry guarantees at most one external index per document. The binding
// store is injected, never a package-level map, so the lifecycle is explicit
// construction at startup.
type Registry struct {
	bindings BindingStore
	indexer  Indexer
	group    singleflight.Group
	logger   *slog.Logger
}

func NewRegistry(bindings BindingStore, indexer Indexer) *Registry {
	return &Registry{
		bindings: bindings,
		indexer:  indexer,
		logger:   slog.Default(),
	}
}

// EnsureIndex returns the external index bound to docID, creating and
// populating one on first use. Repeated and concurrent calls for the same
// docID trigger at most one create: the fast path hits the persisted binding,
// singleflight collapses in-flight duplicates, and the binding store's
// compare-and-set settles whatever slips past both.
func (r *Registry) EnsureIndex(ctx context.Context, docID, filename string, content []byte) (string, error) {
	if id, ok, err := r.bindings.GetBinding(ctx, docID); err != nil {
		return "", fmt.Errorf("lookup binding: %w", err)
	} else if ok {
		return id, nil
	}

	v, err, _ := r.group.Do(docID, func() (any, error) {
		// The leader serves every waiter in the flight, so it must not die
		// with the first caller's deadline. The indexer bounds its own polling.
		ctx := context.WithoutCancel(ctx)

		// A concurrent flight may have landed between the lookup above and
		// joining the group.
		if id, ok, err := r.bindings.GetBinding(ctx, docID); err != nil {
			return "", fmt.Errorf("lookup binding: %w", err)
		} else if ok {
			return id, nil
		}

		id, err := r.indexer.CreateIndex(ctx, "doc_"+docID)
		if err != nil {
			return "", err
		}
		r.logger.Info("created external index", "docId", docID, "indexId", id)

		if err := r.indexer.IndexFile(ctx, id, filename, content); err != nil {
			return "", err
		}

		winner, err := r.bindings.PutBinding(ctx, docID, id)
		if err != nil {
			return "", fmt.Errorf("persist binding: %w", err)
		}
		if winner != id {
			// Lost a cross-process race. The orphaned index is a documented
			// cost of the narrow window; the stored binding stays consistent.
			r.logger.Warn("discarding duplicate external index", "docId", docID, "orphan", id, "winner", winner)
		}
		return winner, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Ask queries the semantic index bound to docID.
func (r *Registry) Ask(ctx context.Context, indexID, question string) (string, error) {
	return r.indexer.Ask(ctx, indexID, question)
}
