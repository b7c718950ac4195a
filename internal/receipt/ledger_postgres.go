package receipt

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
)

const (
	createLedgerTable = `CREATE TABLE IF NOT EXISTS receipt_cleanup_failures (
        id BIGSERIAL PRIMARY KEY,
        table_name TEXT NOT NULL,
        document_path TEXT NOT NULL,
        reason TEXT NOT NULL,
        occurred_at TIMESTAMPTZ NOT NULL,
        resolved_at TIMESTAMPTZ
    )`

	selectOpenFailures = `SELECT id, table_name, document_path, reason, occurred_at, resolved_at
        FROM receipt_cleanup_failures
        WHERE resolved_at IS NULL`
)

// PostgresLedger keeps cleanup failures in Postgres so they survive restarts.
type PostgresLedger struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db, now: time.Now}
}

// Migrate makes sure the ledger table exists.
func (l *PostgresLedger) Migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, createLedgerTable)
	return err
}

func (l *PostgresLedger) Record(ctx context.Context, f CleanupFailure) (CleanupFailure, error) {
	err := l.db.QueryRowContext(ctx, `INSERT INTO receipt_cleanup_failures (table_name, document_path, reason, occurred_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id`,
		f.Table, f.DocumentPath, f.Reason, f.OccurredAt).Scan(&f.ID)
	if err != nil {
		return CleanupFailure{}, err
	}
	return f, nil
}

// Open returns unresolved failures, oldest first. An empty tables slice
// returns every table without filtering.
func (l *PostgresLedger) Open(ctx context.Context, tables []string) ([]CleanupFailure, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if len(tables) == 0 {
		rows, err = l.db.QueryContext(ctx, selectOpenFailures+` ORDER BY occurred_at`)
	} else {
		rows, err = l.db.QueryContext(ctx, selectOpenFailures+` AND table_name = ANY($1::text[]) ORDER BY occurred_at`, pq.Array(tables))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CleanupFailure, 0)
	for rows.Next() {
		var (
			f        CleanupFailure
			resolved sql.NullTime
		)
		if err := rows.Scan(&f.ID, &f.Table, &f.DocumentPath, &f.Reason, &f.OccurredAt, &resolved); err != nil {
			return nil, err
		}
		if resolved.Valid {
			t := resolved.Time
			f.ResolvedAt = &t
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (l *PostgresLedger) Resolve(ctx context.Context, id int64) error {
	res, err := l.db.ExecContext(ctx, `UPDATE receipt_cleanup_failures SET resolved_at = $1 WHERE id = $2 AND resolved_at IS NULL`, l.now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEntryNotFound
	}
	return nil
}
