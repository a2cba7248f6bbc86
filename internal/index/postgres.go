package index

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"studyrag/internal/models"
)

var tableNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Postgres is a vector index backed by PostgreSQL with the pgvector
// extension.
type Postgres struct {
	Pool      *pgxpool.Pool
	table     string
	dimension int
	metric    Metric
}

var _ Index = (*Postgres)(nil)

// NewPostgres connects to the database and ensures the index table and
// its ANN index exist.
func NewPostgres(ctx context.Context, connStr, table string, dimension int, metric Metric) (*Postgres, error) {
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("invalid index table name %q", table)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid index dimension %d", dimension)
	}

	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &Postgres{Pool: pool, table: table, dimension: dimension, metric: metric}
	if err := p.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	_, err := p.Pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`)
	if err != nil {
		return fmt.Errorf("failed to enable vector extension: %w", err)
	}

	_, err = p.Pool.Exec(ctx, fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            id TEXT PRIMARY KEY,
            content TEXT NOT NULL,
            embedding vector(%d) NOT NULL
        )
    `, p.table, p.dimension))
	if err != nil {
		return fmt.Errorf("failed to create %s table: %w", p.table, err)
	}

	_, err = p.Pool.Exec(ctx, fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s
		USING ivfflat (embedding %s) WITH (lists = 100)
	`, p.table, p.table, p.metric.opclass()))
	if err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	return nil
}

// Upsert stores the entry, overwriting any entry with the same id.
func (p *Postgres) Upsert(ctx context.Context, entry models.IndexEntry) error {
	if len(entry.Vector) != p.dimension {
		return fmt.Errorf("vector dimension %d does not match index dimension %d", len(entry.Vector), p.dimension)
	}

	_, err := p.Pool.Exec(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, content, embedding)
        VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE
        SET content = EXCLUDED.content, embedding = EXCLUDED.embedding
    `, p.table), entry.ID, entry.Text, pgvector.NewVector(entry.Vector))
	if err != nil {
		return fmt.Errorf("failed to upsert entry %s: %w", entry.ID, err)
	}
	return nil
}

// Query returns the topK nearest entries to the vector.
func (p *Postgres) Query(ctx context.Context, vector []float32, topK int) ([]models.Match, error) {
	if len(vector) != p.dimension {
		return nil, fmt.Errorf("query vector dimension %d does not match index dimension %d", len(vector), p.dimension)
	}
	if topK <= 0 {
		topK = 5
	}

	op := p.metric.operator()
	rows, err := p.Pool.Query(ctx, fmt.Sprintf(`
		SELECT id, content, embedding, embedding %s $1 AS distance
		FROM %s
		ORDER BY embedding %s $1
		LIMIT $2
	`, op, p.table, op), pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar entries: %w", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var (
			match     models.Match
			embedding pgvector.Vector
		)
		if err := rows.Scan(&match.Entry.ID, &match.Entry.Text, &embedding, &match.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		match.Entry.Vector = embedding.Slice()
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return matches, nil
}

// Reset drops the index table and recreates it empty. Calling it on an
// already-empty index succeeds.
func (p *Postgres) Reset(ctx context.Context) error {
	_, err := p.Pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, p.table))
	if err != nil {
		return fmt.Errorf("failed to drop %s table: %w", p.table, err)
	}
	return p.ensureSchema(ctx)
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.Pool.Close()
}
