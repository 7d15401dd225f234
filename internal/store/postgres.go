package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"doc-qa/internal/embeddings"
)

// migrationLockID serializes schema setup across workers starting together.
const migrationLockID = 727274001

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return newPostgres(db)
}

// newPostgres migrates db and closes it if that fails.
func newPostgres(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Advisory locks belong to a session, so lock, migrate and unlock on one connection.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationLockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			source TEXT NOT NULL,
			skip_lines INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id UUID PRIMARY KEY,
			document_id UUID REFERENCES documents(id) ON DELETE CASCADE,
			ord INT,
			text TEXT,
			token_count INT
		);`,
		`CREATE TABLE IF NOT EXISTS embeddings (
			chunk_id UUID PRIMARY KEY REFERENCES chunks(id) ON DELETE CASCADE,
			vector DOUBLE PRECISION[],
			model TEXT
		);`,
	}
	for _, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveEmbeddedDocument(ctx context.Context, source string, skipLines int, chunks []Chunk, vectors []embeddings.Vector, model string) (Document, error) {
	if len(vectors) != len(chunks) {
		return Document{}, fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Document{}, err
	}
	defer tx.Rollback()

	doc := Document{ID: uuid.New(), Source: source, SkipLines: skipLines, CreatedAt: time.Now()}
	if _, err := tx.ExecContext(ctx, `INSERT INTO documents(id, source, skip_lines) VALUES($1,$2,$3)`,
		doc.ID, source, skipLines); err != nil {
		return Document{}, fmt.Errorf("insert document: %w", err)
	}
	for i, c := range chunks {
		cid := uuid.New()
		if _, err := tx.ExecContext(ctx, `INSERT INTO chunks(id, document_id, ord, text, token_count) VALUES($1,$2,$3,$4,$5)`,
			cid, doc.ID, c.Index, c.Text, c.TokenCount); err != nil {
			return Document{}, fmt.Errorf("insert chunk %d: %w", c.Index, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO embeddings(chunk_id, vector, model) VALUES($1,$2,$3)`,
			cid, pq.Array(toFloat64(vectors[i])), model); err != nil {
			return Document{}, fmt.Errorf("insert embedding for chunk %d: %w", c.Index, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (s *PostgresStore) ListChunks(ctx context.Context, docID uuid.UUID) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, ord, text, token_count FROM chunks WHERE document_id=$1 ORDER BY ord`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.Index, &c.Text, &c.TokenCount); err != nil {
			return nil, err
		}
		c.DocumentID = docID
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrDocumentNotFound
	}
	return out, nil
}

// toFloat64 widens a vector for the DOUBLE PRECISION[] column.
func toFloat64(v embeddings.Vector) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
