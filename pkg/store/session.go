package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stridelake/stridelake/agent/pkg/tag"
)

// Acquire checks a connection out of the pool for the duration of one TAG attempt.
func (db *DB) Acquire(ctx context.Context) (tag.Session, error) {
	conn, err := db.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &session{conn: conn, timeout: db.cfg.StatementTimeout}, nil
}

type session struct {
	conn    *pgxpool.Conn
	timeout time.Duration
	once    sync.Once
}

// Query runs sql in a read-only transaction that is always rolled back.
func (s *session) Query(ctx context.Context, sql string) (*tag.Rows, error) {
	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", s.timeout.Milliseconds())); err != nil {
		return nil, fmt.Errorf("failed to set statement timeout: %w", err)
	}

	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	out := &tag.Rows{Columns: columns}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		out.Values = append(out.Values, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *session) Release() {
	s.once.Do(s.conn.Release)
}

// normalizeValue converts driver-specific values into plain Go values.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case [16]byte:
		return uuid.UUID(val).String()
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case pgtype.Time:
		if !val.Valid {
			return nil
		}
		secs := val.Microseconds / 1_000_000
		return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
	case pgtype.Interval:
		if !val.Valid {
			return nil
		}
		return formatInterval(val)
	default:
		return v
	}
}

func formatInterval(iv pgtype.Interval) string {
	secs := iv.Microseconds / 1_000_000
	clock := fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
	if iv.Months == 0 && iv.Days == 0 {
		return clock
	}
	return fmt.Sprintf("%d mons %d days %s", iv.Months, iv.Days, clock)
}
