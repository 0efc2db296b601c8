package sequence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// PostgresStore keeps counters in the counters table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Increment runs as two autocommit statements: an idempotent insert of the
// zero row, then a single UPDATE ... RETURNING that is the atomic increment.
func (s *PostgresStore) Increment(ctx context.Context, key string, by int64) (int64, error) {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO counters (key, value) VALUES ($1, 0)
		ON CONFLICT (key) DO NOTHING`, key); err != nil {
		return 0, classify(err)
	}

	var value int64
	err := s.pool.QueryRow(ctx, `
		UPDATE counters SET value = value + $2, updated_at = now()
		WHERE key = $1
		RETURNING value`, key, by).Scan(&value)
	if err != nil {
		return 0, classify(err)
	}
	return value, nil
}

func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected:
			return errors.Join(ErrWriteConflict, err)
		}
	}
	return err
}
