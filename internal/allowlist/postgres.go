package allowlist

import (
	"context"
	"database/sql"
	"errors"

	"invoicedrop/pkg/faults"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres persists the authorized-user set in a single table. The stdlib
// database/sql surface is used with the pgx driver registered by the caller.
type Postgres struct {
	db *sql.DB
}

var _ Allowlist = (*Postgres)(nil)

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the backing table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS allowed_users (
			user_id  TEXT PRIMARY KEY,
			added_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return err
}

func (p *Postgres) IsAllowed(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM allowed_users WHERE user_id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (p *Postgres) Add(ctx context.Context, userID string) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO allowed_users (user_id) VALUES ($1)`, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return faults.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (p *Postgres) Remove(ctx context.Context, userID string) error {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM allowed_users WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return faults.ErrNotFound
	}
	return nil
}

func (p *Postgres) List(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT user_id FROM allowed_users ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
