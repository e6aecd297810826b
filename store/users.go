// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/danielhkuo/chantier/auth"
	"github.com/danielhkuo/chantier/models"
)

const userColumns = `id, email, password_hash, role, created_at, updated_at, last_login`

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	var hash sql.NullString
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.Email, &hash, &u.Role, &u.CreatedAt, &u.UpdatedAt, &lastLogin); err != nil {
		return models.User{}, err
	}
	u.PasswordHash = hash.String
	u.HasPassword = hash.Valid && hash.String != ""
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return u, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, req models.CreateUserRequest) (models.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return models.User{}, err
	}
	role, ok := models.ParseUserRole(req.Role)
	if !ok {
		return models.User{}, invalidf("invalid role %q, must be one of %s", req.Role, strings.Join(models.UserRoles, ", "))
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return models.User{}, invalidf("%v", err)
	}

	u, err := scanUser(s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		auth.NewUserID(), email, hash, role))
	if err != nil {
		return models.User{}, classify(err, "create user "+email)
	}
	return u, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, id string, req models.UpdateUserRequest) (models.User, error) {
	var updated models.User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		u, err := scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user %q: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}

		if req.Email != nil {
			if u.Email, err = normalizeEmail(*req.Email); err != nil {
				return err
			}
		}
		if req.Password != nil {
			hash, err := auth.HashPassword(*req.Password)
			if err != nil {
				return invalidf("%v", err)
			}
			u.PasswordHash = hash
		}
		if req.Role != nil {
			role, ok := models.ParseUserRole(*req.Role)
			if !ok {
				return invalidf("invalid role %q, must be one of %s", *req.Role, strings.Join(models.UserRoles, ", "))
			}
			if u.Role == models.UserAdmin && role != models.UserAdmin {
				if err := ensureAnotherAdmin(ctx, tx); err != nil {
					return err
				}
			}
			u.Role = role
		}

		updated, err = scanUser(tx.QueryRowContext(ctx, `
			UPDATE users SET email = $2, password_hash = NULLIF($3, ''), role = $4, updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns,
			u.ID, u.Email, u.PasswordHash, u.Role))
		return classify(err, "update user")
	})
	return updated, err
}

// DeleteUser removes a user, refusing to remove the last admin
func (s *PostgresStore) DeleteUser(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var role string
		err := tx.QueryRowContext(ctx, `SELECT role FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&role)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user %q: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if role == models.UserAdmin {
			if err := ensureAnotherAdmin(ctx, tx); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}

func ensureAnotherAdmin(ctx context.Context, tx *sql.Tx) error {
	var admins int
	// row locks keep two concurrent demotions from both passing
	rows, err := tx.QueryContext(ctx, `SELECT id FROM users WHERE role = 'admin' FOR UPDATE`)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	for rows.Next() {
		admins++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if admins <= 1 {
		return fmt.Errorf("cannot remove the last admin user: %w", ErrConflict)
	}
	return nil
}

// Authenticate checks credentials and records the login time
func (s *PostgresStore) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email))))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, auth.ErrInvalidPassword
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	if err := auth.VerifyPassword(u.PasswordHash, password); err != nil {
		return models.User{}, err
	}

	u, err = scanUser(s.db.QueryRowContext(ctx, `
		UPDATE users SET last_login = NOW() WHERE id = $1 RETURNING `+userColumns, u.ID))
	if err != nil {
		return models.User{}, fmt.Errorf("update last login: %w", err)
	}
	return u, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", invalidf("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalidf("invalid email %q", email)
	}
	return email, nil
}
