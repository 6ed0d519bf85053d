package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// DeliveryLedger remembers which dedup keys were delivered successfully
type DeliveryLedger interface {
	// Delivered reports whether key was recorded after since
	Delivered(ctx context.Context, key string, since time.Time) (bool, error)
	Record(ctx context.Context, key string, at time.Time) error
}

// MemoryLedger is a process-local ledger
type MemoryLedger struct {
	delivered map[string]time.Time
	mutex     sync.RWMutex
}

// NewMemoryLedger creates an empty in-memory ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{delivered: make(map[string]time.Time)}
}

func (l *MemoryLedger) Delivered(ctx context.Context, key string, since time.Time) (bool, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	at, ok := l.delivered[key]
	return ok && !at.Before(since), nil
}

func (l *MemoryLedger) Record(ctx context.Context, key string, at time.Time) error {
	l.mutex.Lock()
	l.delivered[key] = at
	l.mutex.Unlock()
	return nil
}

// PostgresLedger stores deliveries in the confirmation_deliveries table
type PostgresLedger struct {
	db *sql.DB
}

// NewPostgresLedger creates a ledger on an open database
func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Delivered(ctx context.Context, key string, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM confirmation_deliveries
			WHERE dedup_key = $1 AND delivered_at >= $2
		)`

	var exists bool
	if err := l.db.QueryRowContext(ctx, query, key, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to query delivery ledger: %w", err)
	}
	return exists, nil
}

func (l *PostgresLedger) Record(ctx context.Context, key string, at time.Time) error {
	query := `
		INSERT INTO confirmation_deliveries (dedup_key, delivered_at)
		VALUES ($1, $2)
		ON CONFLICT (dedup_key) DO UPDATE SET delivered_at = EXCLUDED.delivered_at`

	if _, err := l.db.ExecContext(ctx, query, key, at); err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}
