package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.BuildLedger = (*Store)(nil)

const buildColumns = `id, generation, corpus_dir, model, dimension, document_count,
	chunk_count, skipped_count, status, error, started_at, finished_at`

// Record inserts or replaces a build record.
func (s *Store) Record(ctx context.Context, r domain.BuildRecord) error {
	if r.ID == "" {
		return fmt.Errorf("%w: build record id is required", domain.ErrInvalidInput)
	}

	var finished sql.NullTime
	if !r.FinishedAt.IsZero() {
		finished = sql.NullTime{Time: r.FinishedAt.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO builds (`+buildColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Generation, r.CorpusDir, r.Model, r.Dimension, r.DocumentCount,
		r.ChunkCount, r.SkippedCount, string(r.Status), r.Error, r.StartedAt.UTC(), finished,
	)
	if err != nil {
		return fmt.Errorf("recording build: %w", err)
	}
	return nil
}

// Latest returns the most recently started build.
func (s *Store) Latest(ctx context.Context) (*domain.BuildRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+buildColumns+` FROM builds ORDER BY started_at DESC, rowid DESC LIMIT 1`)

	r, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest build: %w", err)
	}
	return r, nil
}

// List returns up to limit builds, newest first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]domain.BuildRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+buildColumns+` FROM builds ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing builds: %w", err)
	}
	defer rows.Close()

	var records []domain.BuildRecord
	for rows.Next() {
		r, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning build: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(sc scanner) (*domain.BuildRecord, error) {
	var (
		r        domain.BuildRecord
		status   string
		started  sql.NullTime
		finished sql.NullTime
	)
	err := sc.Scan(&r.ID, &r.Generation, &r.CorpusDir, &r.Model, &r.Dimension, &r.DocumentCount,
		&r.ChunkCount, &r.SkippedCount, &status, &r.Error, &started, &finished)
	if err != nil {
		return nil, err
	}
	r.Status = domain.BuildStatus(status)
	r.StartedAt = started.Time
	if finished.Valid {
		r.FinishedAt = finished.Time
	}
	return &r, nil
}
