package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"docchat/types"
)

// PostgresStore is the shared-database backend. Page records live in a JSONB
// column so they stay inspectable with plain SQL. It also carries the
// docId -> external index binding table, where the insert doubles as the
// atomic compare-and-set for concurrent index creation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool: pool,
	}, nil
}

func (p *PostgresStore) Init(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		page_count INT NOT NULL,
		pages JSONB NOT NULL,
		pdf BYTEA,
		created_at TIMESTAMP WITH TIME ZONE
	);

	CREATE TABLE IF NOT EXISTS index_bindings (
		doc_id TEXT PRIMARY KEY,
		index_id TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);
    `
	_, err := p.pool.Exec(ctx, query)
	return err
}

func (p *PostgresStore) Save(ctx context.Context, doc types.Document, pdf []byte) error {
	pages, err := json.Marshal(doc.Pages)
	if err != nil {
		return fmt.Errorf("encode pages for %s: %w", doc.DocID, err)
	}

	query := `INSERT INTO documents (id, filename, page_count, pages, pdf, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = p.pool.Exec(
		ctx,
		query,
		doc.DocID,
		doc.Filename,
		doc.PageCount,
		pages,
		pdf,
		doc.CreatedAt,
	)
	return err
}

func (p *PostgresStore) Load(ctx context.Context, docID string) (types.Document, error) {
	doc := types.Document{DocID: docID}

	var pages []byte
	row := p.pool.QueryRow(ctx,
		"SELECT filename, page_count, pages, created_at FROM documents WHERE id = $1", docID)
	if err := row.Scan(&doc.Filename, &doc.PageCount, &pages, &doc.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Document{}, fmt.Errorf("%w: %s", ErrNotFound, docID)
		}
		return types.Document{}, err
	}

	if err := json.Unmarshal(pages, &doc.Pages); err != nil {
		return types.Document{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, docID, err)
	}
	return doc, nil
}

func (p *PostgresStore) PDF(ctx context.Context, docID string) ([]byte, error) {
	var pdf []byte
	row := p.pool.QueryRow(ctx, "SELECT pdf FROM documents WHERE id = $1", docID)
	if err := row.Scan(&pdf); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, docID)
		}
		return nil, err
	}
	return pdf, nil
}

func (p *PostgresStore) Stat(ctx context.Context, docID string) (bool, string) {
	var exists bool
	row := p.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)", docID)
	if err := row.Scan(&exists); err != nil {
		return false, ""
	}
	return exists, "documents/" + docID
}

// GetBinding looks up the external index bound to a document.
func (p *PostgresStore) GetBinding(ctx context.Context, docID string) (string, bool, error) {
	var indexID string
	row := p.pool.QueryRow(ctx, "SELECT index_id FROM index_bindings WHERE doc_id = $1", docID)
	if err := row.Scan(&indexID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return indexID, true, nil
}

// PutBinding records docId -> indexID at most once. ON CONFLICT DO NOTHING
// makes the first writer win; the stored binding is returned either way.
func (p *PostgresStore) PutBinding(ctx context.Context, docID, indexID string) (string, error) {
	_, err := p.pool.Exec(ctx,
		"INSERT INTO index_bindings (doc_id, index_id) VALUES ($1, $2) ON CONFLICT (doc_id) DO NOTHING",
		docID, indexID)
	if err != nil {
		return "", err
	}

	var winner string
	row := p.pool.QueryRow(ctx, "SELECT index_id FROM index_bindings WHERE doc_id = $1", docID)
	if err := row.Scan(&winner); err != nil {
		return "", err
	}
	return winner, nil
}

func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
		log.Println("Postgres connection pool is closed")
	}
	return nil
}
