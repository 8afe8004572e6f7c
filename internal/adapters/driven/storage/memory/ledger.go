package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
)

// Ensure BuildLedger implements the interface.
var _ driven.BuildLedger = (*BuildLedger)(nil)

// BuildLedger is an in-memory implementation of driven.BuildLedger.
// It is used when the SQLite ledger is disabled and in tests.
type BuildLedger struct {
	mu      sync.RWMutex
	records map[string]domain.BuildRecord
	order   []string
}

// NewBuildLedger creates a new in-memory build ledger.
func NewBuildLedger() *BuildLedger {
	return &BuildLedger{records: make(map[string]domain.BuildRecord)}
}

// Record stores or replaces a build record.
func (l *BuildLedger) Record(_ context.Context, r domain.BuildRecord) error {
	if r.ID == "" {
		return fmt.Errorf("%w: build record id is required", domain.ErrInvalidInput)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.records[r.ID]; !exists {
		l.order = append(l.order, r.ID)
	}
	l.records[r.ID] = r
	return nil
}

// Latest returns the most recently started record.
func (l *BuildLedger) Latest(ctx context.Context) (*domain.BuildRecord, error) {
	records, _ := l.List(ctx, 1)
	if len(records) == 0 {
		return nil, domain.ErrNotFound
	}
	return &records[0], nil
}

// List returns up to limit records, newest first. A non-positive limit returns all.
func (l *BuildLedger) List(_ context.Context, limit int) ([]domain.BuildRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.BuildRecord, 0, len(l.order))
	// Walk insertion order backwards so equal start times list newest insert first.
	for i := len(l.order) - 1; i >= 0; i-- {
		out = append(out, l.records[l.order[i]])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op.
func (l *BuildLedger) Close() error {
	return nil
}
