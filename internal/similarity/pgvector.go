package similarity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PgVector stores word vectors in PostgreSQL with the pgvector extension and
// lets the database compute cosine distance (<=>) and nearest neighbours.
type PgVector struct {
	db    *sql.DB
	table string
}

// OpenPgVector connects to dsn using lib/pq.
func OpenPgVector(ctx context.Context, dsn string) (*PgVector, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open pgvector: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping pgvector: %w", err)
	}
	return NewPgVector(db), nil
}

// NewPgVector wraps an open database handle.
func NewPgVector(db *sql.DB) *PgVector {
	return &PgVector{db: db, table: "word_vectors"}
}

// Close closes the underlying database.
func (p *PgVector) Close() error { return p.db.Close() }

// Name implements Provider.
func (p *PgVector) Name() string { return "pgvector" }

// EnsureSchema creates the extension and the vectors table for dim-dimensional vectors.
func (p *PgVector) EnsureSchema(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("pgvector: invalid dimension %d", dim)
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (word TEXT PRIMARY KEY, embedding vector(%d) NOT NULL)`, p.table, dim),
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("pgvector schema: %w", err)
		}
	}
	return nil
}

// Upsert stores or replaces one word vector.
func (p *PgVector) Upsert(ctx context.Context, word string, vec []float32) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO `+p.table+` (word, embedding) VALUES ($1, $2)
		 ON CONFLICT (word) DO UPDATE SET embedding = EXCLUDED.embedding`,
		word, pgvector.NewVector(vec))
	return err
}

// Import copies every vector of a static model into the table inside one transaction.
func (p *PgVector) Import(ctx context.Context, v *Vectors) (int, error) {
	if err := p.EnsureSchema(ctx, v.Dim()); err != nil {
		return 0, err
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO `+p.table+` (word, embedding) VALUES ($1, $2)
		 ON CONFLICT (word) DO UPDATE SET embedding = EXCLUDED.embedding`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	err = v.Each(func(word string, vec []float32) error {
		if _, err := stmt.ExecContext(ctx, word, pgvector.NewVector(vec)); err != nil {
			return fmt.Errorf("import %q: %w", word, err)
		}
		n++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// resolve finds the stored spelling of word, trying the same case variants
// as the in-memory vectors.
func (p *PgVector) resolve(ctx context.Context, word string) (string, bool, error) {
	var stored string
	err := p.db.QueryRowContext(ctx,
		`SELECT word FROM `+p.table+` WHERE word = ANY($1)
		 ORDER BY array_position($1, word) LIMIT 1`, pq.Array(spellings(word))).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: pgvector: %v", ErrProviderUnavailable, err)
	}
	return stored, true, nil
}

func (p *PgVector) mustResolve(ctx context.Context, word string) (string, error) {
	stored, ok, err := p.resolve(ctx, word)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &UnknownWordError{Word: word, Provider: p.Name()}
	}
	return stored, nil
}

// Embedding returns the stored vector for word.
func (p *PgVector) Embedding(ctx context.Context, word string) ([]float32, error) {
	stored, err := p.mustResolve(ctx, word)
	if err != nil {
		return nil, err
	}
	var vec pgvector.Vector
	err = p.db.QueryRowContext(ctx, `SELECT embedding FROM `+p.table+` WHERE word = $1`, stored).Scan(&vec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &UnknownWordError{Word: word, Provider: p.Name()}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: pgvector: %v", ErrProviderUnavailable, err)
	}
	return vec.Slice(), nil
}

// Known implements Vocabulary.
func (p *PgVector) Known(ctx context.Context, word string) (bool, error) {
	_, ok, err := p.resolve(ctx, word)
	return ok, err
}

// Similarity implements Provider.
func (p *PgVector) Similarity(ctx context.Context, a, b string) (float64, error) {
	sa, err := p.mustResolve(ctx, a)
	if err != nil {
		return 0, err
	}
	sb, err := p.mustResolve(ctx, b)
	if err != nil {
		return 0, err
	}
	var sim float64
	err = p.db.QueryRowContext(ctx,
		`SELECT 1 - (x.embedding <=> y.embedding)
		 FROM `+p.table+` x, `+p.table+` y
		 WHERE x.word = $1 AND y.word = $2`, sa, sb).Scan(&sim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &UnknownWordError{Word: a, Provider: p.Name()}
	}
	if err != nil {
		return 0, fmt.Errorf("%w: pgvector: %v", ErrProviderUnavailable, err)
	}
	return clampUnit(sim), nil
}

// Neighbors implements Neighborer using the database's cosine distance ordering.
func (p *PgVector) Neighbors(ctx context.Context, word string, n int) ([]Neighbor, error) {
	stored, err := p.mustResolve(ctx, word)
	if err != nil {
		return nil, err
	}
	target, err := p.Embedding(ctx, stored)
	if err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT word, 1 - (embedding <=> $1) AS sim
		 FROM `+p.table+`
		 WHERE word <> $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`, pgvector.NewVector(target), stored, n)
	if err != nil {
		return nil, fmt.Errorf("%w: pgvector: %v", ErrProviderUnavailable, err)
	}
	defer rows.Close()

	out := make([]Neighbor, 0, n)
	for rows.Next() {
		var nb Neighbor
		if err := rows.Scan(&nb.Word, &nb.Similarity); err != nil {
			return nil, err
		}
		out = append(out, nb)
	}
	return out, rows.Err()
}

var (
	_ Provider   = (*PgVector)(nil)
	_ Vocabulary = (*PgVector)(nil)
	_ Neighborer = (*PgVector)(nil)
)
