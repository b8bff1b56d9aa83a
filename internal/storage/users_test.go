package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"financeflow/internal/auth"
)

func TestSQLiteUsers(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := auth.User{ID: "u1", Email: "ana@example.com", PasswordHash: "hash", CreatedAt: time.Now().UTC()}
	if err := repo.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateUser(ctx, auth.User{ID: "u2", Email: u.Email, PasswordHash: "x"}); !errors.Is(err, auth.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	got, err := repo.GetUserByEmail(ctx, u.Email)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "u1" || got.PasswordHash != "hash" || !got.CreatedAt.Equal(u.CreatedAt) {
		t.Fatalf("unexpected user: %+v", got)
	}

	if _, err := repo.GetUserByEmail(ctx, "missing@example.com"); !errors.Is(err, auth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSQLiteRevocations(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	if err := repo.RevokeSession(ctx, "live", now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := repo.RevokeSession(ctx, "stale", now.Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := repo.RevokeSession(ctx, "live", now.Add(time.Minute)); err != nil {
		t.Fatalf("revoking twice: %v", err)
	}

	got, err := repo.ActiveRevocations(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !got["live"].Equal(now.Add(time.Hour)) {
		t.Fatalf("active revocations = %v", got)
	}

	got, err = repo.ActiveRevocations(ctx, now.Add(2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expired revocations kept: %v", got)
	}
}
