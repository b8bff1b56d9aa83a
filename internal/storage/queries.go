package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const getProfile = `-- name: GetProfile :one
SELECT owner, display_name, monthly_goal_cents, monthly_budget_cents, category_budgets, updated_at
FROM profiles WHERE owner = ?`

func (q *Queries) GetProfile(ctx context.Context, owner string) (Profile, error) {
	row := q.db.QueryRowContext(ctx, getProfile, owner)
	var p Profile
	err := row.Scan(&p.Owner, &p.DisplayName, &p.MonthlyGoalCents, &p.MonthlyBudgetCents, &p.CategoryBudgets, &p.UpdatedAt)
	return p, err
}

const upsertProfile = `-- name: UpsertProfile :exec
INSERT INTO profiles (owner, display_name, monthly_goal_cents, monthly_budget_cents, category_budgets, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(owner) DO UPDATE SET
    display_name = excluded.display_name,
    monthly_goal_cents = excluded.monthly_goal_cents,
    monthly_budget_cents = excluded.monthly_budget_cents,
    category_budgets = excluded.category_budgets,
    updated_at = excluded.updated_at`

func (q *Queries) UpsertProfile(ctx context.Context, p Profile) error {
	_, err := q.db.ExecContext(ctx, upsertProfile,
		p.Owner, p.DisplayName, p.MonthlyGoalCents, p.MonthlyBudgetCents, p.CategoryBudgets, p.UpdatedAt)
	return err
}

const createCard = `-- name: CreateCard :exec
INSERT INTO cards (id, owner, name, kind, balance_cents, opening_balance_cents, last_four, color, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateCard(ctx context.Context, c Card) error {
	_, err := q.db.ExecContext(ctx, createCard,
		c.ID, c.Owner, c.Name, c.Kind, c.BalanceCents, c.OpeningBalanceCents, c.LastFour, c.Color, c.CreatedAt)
	return err
}

const updateCard = `-- name: UpdateCard :execrows
UPDATE cards
SET name = ?, kind = ?, balance_cents = ?, opening_balance_cents = ?, last_four = ?, color = ?
WHERE id = ? AND owner = ?`

func (q *Queries) UpdateCard(ctx context.Context, c Card) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateCard,
		c.Name, c.Kind, c.BalanceCents, c.OpeningBalanceCents, c.LastFour, c.Color, c.ID, c.Owner)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updateCardDetails = `-- name: UpdateCardDetails :execrows
UPDATE cards
SET name = ?, kind = ?, last_four = ?, color = ?,
    balance_cents = balance_cents + ?, opening_balance_cents = opening_balance_cents + ?
WHERE id = ? AND owner = ?`

func (q *Queries) UpdateCardDetails(ctx context.Context, c Card, shiftCents int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateCardDetails,
		c.Name, c.Kind, c.LastFour, c.Color, shiftCents, shiftCents, c.ID, c.Owner)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const adjustCardBalance = `-- name: AdjustCardBalance :execrows
UPDATE cards SET balance_cents = balance_cents + ? WHERE id = ? AND owner = ?`

func (q *Queries) AdjustCardBalance(ctx context.Context, id, owner string, deltaCents int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, adjustCardBalance, deltaCents, id, owner)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getCard = `-- name: GetCard :one
SELECT id, owner, name, kind, balance_cents, opening_balance_cents, last_four, color, created_at
FROM cards WHERE id = ? AND owner = ?`

func (q *Queries) GetCard(ctx context.Context, id, owner string) (Card, error) {
	row := q.db.QueryRowContext(ctx, getCard, id, owner)
	var c Card
	err := row.Scan(&c.ID, &c.Owner, &c.Name, &c.Kind, &c.BalanceCents, &c.OpeningBalanceCents, &c.LastFour, &c.Color, &c.CreatedAt)
	return c, err
}

const deleteCard = `-- name: DeleteCard :execrows
DELETE FROM cards WHERE id = ? AND owner = ?`

func (q *Queries) DeleteCard(ctx context.Context, id, owner string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteCard, id, owner)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listCards = `-- name: ListCards :many
SELECT id, owner, name, kind, balance_cents, opening_balance_cents, last_four, color, created_at
FROM cards WHERE owner = ?
ORDER BY created_at ASC, rowid ASC`

func (q *Queries) ListCards(ctx context.Context, owner string) ([]Card, error) {
	rows, err := q.db.QueryContext(ctx, listCards, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Card
	for rows.Next() {
		var c Card
		if err := rows.Scan(&c.ID, &c.Owner, &c.Name, &c.Kind, &c.BalanceCents, &c.OpeningBalanceCents, &c.LastFour, &c.Color, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const deleteCardsByOwner = `-- name: DeleteCardsByOwner :exec
DELETE FROM cards WHERE owner = ?`

func (q *Queries) DeleteCardsByOwner(ctx context.Context, owner string) error {
	_, err := q.db.ExecContext(ctx, deleteCardsByOwner, owner)
	return err
}

const createTransaction = `-- name: CreateTransaction :exec
INSERT INTO transactions (id, owner, card_id, kind, amount_cents, description, category, occurred_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, t Transaction) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		t.ID, t.Owner, t.CardID, t.Kind, t.AmountCents, t.Description, t.Category, t.OccurredAt, t.CreatedAt)
	return err
}

const updateTransaction = `-- name: UpdateTransaction :execrows
UPDATE transactions
SET card_id = ?, kind = ?, amount_cents = ?, description = ?, category = ?, occurred_at = ?
WHERE id = ? AND owner = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, t Transaction) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		t.CardID, t.Kind, t.AmountCents, t.Description, t.Category, t.OccurredAt, t.ID, t.Owner)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getTransactionCreatedAt = `-- name: GetTransactionCreatedAt :one
SELECT created_at FROM transactions WHERE id = ? AND owner = ?`

func (q *Queries) GetTransactionCreatedAt(ctx context.Context, id, owner string) (string, error) {
	var createdAt string
	err := q.db.QueryRowContext(ctx, getTransactionCreatedAt, id, owner).Scan(&createdAt)
	return createdAt, err
}

const deleteTransaction = `-- name: DeleteTransaction :execrows
DELETE FROM transactions WHERE id = ? AND owner = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id, owner string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id, owner)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listTransactions = `-- name: ListTransactions :many
SELECT id, owner, card_id, kind, amount_cents, description, category, occurred_at, created_at
FROM transactions WHERE owner = ?
ORDER BY occurred_at DESC, created_at DESC`

func (q *Queries) ListTransactions(ctx context.Context, owner string) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.Owner, &t.CardID, &t.Kind, &t.AmountCents, &t.Description, &t.Category, &t.OccurredAt, &t.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const detachCard = `-- name: DetachCard :exec
UPDATE transactions SET card_id = NULL WHERE owner = ? AND card_id = ?`

func (q *Queries) DetachCard(ctx context.Context, owner, cardID string) error {
	_, err := q.db.ExecContext(ctx, detachCard, owner, cardID)
	return err
}

const deleteTransactionsByOwner = `-- name: DeleteTransactionsByOwner :exec
DELETE FROM transactions WHERE owner = ?`

func (q *Queries) DeleteTransactionsByOwner(ctx context.Context, owner string) error {
	_, err := q.db.ExecContext(ctx, deleteTransactionsByOwner, owner)
	return err
}

const createUser = `-- name: CreateUser :exec
INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateUser(ctx context.Context, u User) error {
	_, err := q.db.ExecContext(ctx, createUser, u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	return err
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT id, email, password_hash, created_at FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

const revokeSession = `-- name: RevokeSession :exec
INSERT INTO revoked_sessions (id, expires_at) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET expires_at = MAX(expires_at, excluded.expires_at)`

func (q *Queries) RevokeSession(ctx context.Context, id, expiresAt string) error {
	_, err := q.db.ExecContext(ctx, revokeSession, id, expiresAt)
	return err
}

const deleteExpiredRevocations = `-- name: DeleteExpiredRevocations :execrows
DELETE FROM revoked_sessions WHERE expires_at <= ?`

func (q *Queries) DeleteExpiredRevocations(ctx context.Context, now string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpiredRevocations, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listRevocations = `-- name: ListRevocations :many
SELECT id, expires_at FROM revoked_sessions`

func (q *Queries) ListRevocations(ctx context.Context) ([]RevokedSession, error) {
	rows, err := q.db.QueryContext(ctx, listRevocations)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RevokedSession
	for rows.Next() {
		var r RevokedSession
		if err := rows.Scan(&r.ID, &r.ExpiresAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const listOwners = `-- name: ListOwners :many
SELECT DISTINCT owner FROM cards ORDER BY owner`

func (q *Queries) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listOwners)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}
