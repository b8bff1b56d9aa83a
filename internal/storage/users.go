package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"financeflow/internal/auth"
)

var (
	_ auth.UserStore       = (*SQLiteRepository)(nil)
	_ auth.RevocationStore = (*SQLiteRepository)(nil)
)

func (r *SQLiteRepository) CreateUser(ctx context.Context, u auth.User) error {
	err := r.queries.CreateUser(ctx, User{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    formatTime(u.CreatedAt),
	})
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return auth.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (auth.User, error) {
	row, err := r.queries.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrUserNotFound
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("get user: %w", err)
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return auth.User{}, err
	}
	return auth.User{ID: row.ID, Email: row.Email, PasswordHash: row.PasswordHash, CreatedAt: created}, nil
}

func (r *SQLiteRepository) RevokeSession(ctx context.Context, id string, expiresAt time.Time) error {
	if err := r.queries.RevokeSession(ctx, id, formatTime(expiresAt)); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ActiveRevocations(ctx context.Context, now time.Time) (map[string]time.Time, error) {
	if _, err := r.queries.DeleteExpiredRevocations(ctx, formatTime(now)); err != nil {
		return nil, fmt.Errorf("delete expired revocations: %w", err)
	}
	rows, err := r.queries.ListRevocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list revocations: %w", err)
	}
	out := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		exp, err := parseTime(row.ExpiresAt)
		if err != nil {
			return nil, err
		}
		out[row.ID] = exp
	}
	return out, nil
}
