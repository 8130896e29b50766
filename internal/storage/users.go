package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/core"
)

// ErrNotFound is returned by point lookups when no row matches.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a uniqueness constraint would be violated.
var ErrDuplicate = errors.New("already exists")

// mapConstraint turns SQLite unique violations into ErrDuplicate so callers
// never match on driver error strings.
func mapConstraint(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicate
	}
	return err
}

const userColumns = "id, name, email, password_hash, role, is_active, created_at"

func scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

type CreateUserParams struct {
	Name         string
	Email        string
	PasswordHash string
	Role         string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (core.User, error) {
	if arg.Role == "" {
		arg.Role = core.RoleUser
	}
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email, password_hash, role)
		VALUES (?, ?, ?, ?)
		RETURNING `+userColumns,
		arg.Name, arg.Email, arg.PasswordHash, arg.Role)
	u, err := scanUser(row)
	if err != nil {
		return core.User{}, mapConstraint(err)
	}
	return u, nil
}

func (q *Queries) GetUser(ctx context.Context, id int64) (core.User, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ?", email)
	return scanUser(row)
}
