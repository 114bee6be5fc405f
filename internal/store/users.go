package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/assetnexus/internal/model"
)

const userColumns = `id, username, password_hash, role, created_at, deleted_at FROM users`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.DeletedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser creates a new user. Usernames are unique among live users.
func CreateUser(ctx context.Context, q Querier, username, passwordHash, role string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username required", ErrInvalidInput)
	}
	if !model.ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)`,
		username, passwordHash, role, now(),
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: username %q taken", ErrDuplicateKey, username)
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, q, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, q Querier, id int64) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns the live user with the given username.
func GetUserByUsername(ctx context.Context, q Querier, username string) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` WHERE username = ? AND deleted_at IS NULL`, username,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, q Querier) ([]model.User, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+userColumns+` WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUserRole changes a live user's role.
func UpdateUserRole(ctx context.Context, q Querier, id int64, role string) error {
	if !model.ValidRole(role) {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	return updateLiveUser(ctx, q, id, `role = ?`, role)
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, q Querier, id int64, passwordHash string) error {
	return updateLiveUser(ctx, q, id, `password_hash = ?`, passwordHash)
}

// DeleteUser soft-deletes a user. Records keep pointing at the user.
func DeleteUser(ctx context.Context, q Querier, id int64) error {
	return updateLiveUser(ctx, q, id, `deleted_at = ?`, now())
}

func updateLiveUser(ctx context.Context, q Querier, id int64, set string, value any) error {
	result, err := q.ExecContext(ctx,
		`UPDATE users SET `+set+` WHERE id = ? AND deleted_at IS NULL`, value, id,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	return nil
}

// CountAdmins returns the number of live admins.
func CountAdmins(ctx context.Context, q Querier) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = ? AND deleted_at IS NULL`, model.RoleAdmin,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting admins: %w", err)
	}
	return count, nil
}
