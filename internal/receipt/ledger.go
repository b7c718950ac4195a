package receipt

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrEntryNotFound = errors.New("reconciliation entry not found")

// CleanupFailure records a receipt that was exported while its table order
// could not be removed. Operators resolve it after clearing the order by hand.
type CleanupFailure struct {
	ID           int64      `json:"id"`
	Table        string     `json:"table"`
	DocumentPath string     `json:"documentPath"`
	Reason       string     `json:"reason"`
	OccurredAt   time.Time  `json:"occurredAt"`
	ResolvedAt   *time.Time `json:"resolvedAt,omitempty"`
}

// Ledger stores cleanup failures for reconciliation.
type Ledger interface {
	Record(ctx context.Context, f CleanupFailure) (CleanupFailure, error)
	// Open lists unresolved entries, optionally limited to tables.
	Open(ctx context.Context, tables []string) ([]CleanupFailure, error)
	Resolve(ctx context.Context, id int64) error
}

// InMemoryLedger is used for tests and when no database is configured.
type InMemoryLedger struct {
	mu      sync.RWMutex
	entries []CleanupFailure
	nextID  int64
}

func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{nextID: 1}
}

func (l *InMemoryLedger) Record(ctx context.Context, f CleanupFailure) (CleanupFailure, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f.ID = l.nextID
	l.nextID++
	l.entries = append(l.entries, f)
	return f, nil
}

func (l *InMemoryLedger) Open(ctx context.Context, tables []string) ([]CleanupFailure, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	want := make(map[string]bool, len(tables))
	for _, t := range tables {
		want[t] = true
	}
	out := make([]CleanupFailure, 0)
	for _, e := range l.entries {
		if e.ResolvedAt != nil {
			continue
		}
		if len(want) > 0 && !want[e.Table] {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

func (l *InMemoryLedger) Resolve(ctx context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.ID == id && e.ResolvedAt == nil {
			now := time.Now().UTC()
			l.entries[i].ResolvedAt = &now
			return nil
		}
	}
	return ErrEntryNotFound
}
