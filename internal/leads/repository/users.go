package repository

import (
	"context"
	"errors"
	"time"

	"ipkwealth_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, name, email, role, status, archived, created_at, last_assigned_at`

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	var role, status string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &status, &u.Archived, &u.CreatedAt, &u.LastAssignedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	u.Role = domain.UserRole(role)
	u.Status = domain.UserStatus(status)
	return u, err
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// ListEligibleRMs returns active, non-archived RMs in creation order, the
// order the round-robin rotation walks.
func (r *Repository) ListEligibleRMs(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE role = 'RM' AND status = 'ACTIVE' AND archived = false
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return users, nil
}

func (r *Repository) TouchLastAssigned(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_assigned_at = $2 WHERE id = ANY($1)`, ids, at)
	return err
}

// SetUserStatus only touches non-archived RMs.
func (r *Repository) SetUserStatus(ctx context.Context, id uuid.UUID, status domain.UserStatus) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users SET status = $2
		WHERE id = $1 AND role = 'RM' AND archived = false
		RETURNING `+userColumns, id, string(status)))
}
