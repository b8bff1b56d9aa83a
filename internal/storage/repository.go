package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"financeflow/internal/core"
	"financeflow/internal/store"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so lexical order matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var (
	_ store.Store       = (*SQLiteRepository)(nil)
	_ store.OwnerLister = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) GetProfile(ctx context.Context, owner string) (core.Profile, error) {
	row, err := r.queries.GetProfile(ctx, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, store.ErrNotFound
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}

	budgets := map[string]int64{}
	if err := json.Unmarshal([]byte(row.CategoryBudgets), &budgets); err != nil {
		return core.Profile{}, fmt.Errorf("decode category budgets: %w", err)
	}
	p := core.Profile{
		Owner:           row.Owner,
		DisplayName:     row.DisplayName,
		MonthlyGoal:     core.Money{Cents: row.MonthlyGoalCents},
		MonthlyBudget:   core.Money{Cents: row.MonthlyBudgetCents},
		CategoryBudgets: make(map[string]core.Money, len(budgets)),
	}
	for k, v := range budgets {
		p.CategoryBudgets[k] = core.Money{Cents: v}
	}
	return p, nil
}

func (r *SQLiteRepository) SaveProfile(ctx context.Context, p core.Profile) (core.Profile, error) {
	budgets := make(map[string]int64, len(p.CategoryBudgets))
	for k, v := range p.CategoryBudgets {
		budgets[k] = v.Cents
	}
	encoded, err := json.Marshal(budgets)
	if err != nil {
		return core.Profile{}, fmt.Errorf("encode category budgets: %w", err)
	}

	err = r.queries.UpsertProfile(ctx, Profile{
		Owner:              p.Owner,
		DisplayName:        p.DisplayName,
		MonthlyGoalCents:   p.MonthlyGoal.Cents,
		MonthlyBudgetCents: p.MonthlyBudget.Cents,
		CategoryBudgets:    string(encoded),
		UpdatedAt:          formatTime(r.now()),
	})
	if err != nil {
		return core.Profile{}, fmt.Errorf("save profile: %w", err)
	}
	return p.Clone(), nil
}

func (r *SQLiteRepository) InsertCard(ctx context.Context, c core.Card) (core.Card, error) {
	c.ID = uuid.NewString()
	c.CreatedAt = r.now().UTC()
	if err := r.queries.CreateCard(ctx, cardRow(c)); err != nil {
		return core.Card{}, fmt.Errorf("create card: %w", err)
	}

	slog.DebugContext(ctx, "Card saved to SQLite", "id", c.ID, "owner", c.Owner, "balance_cents", c.Balance.Cents)
	return c, nil
}

func (r *SQLiteRepository) UpdateCard(ctx context.Context, c core.Card) (core.Card, error) {
	n, err := r.queries.UpdateCard(ctx, cardRow(c))
	if err != nil {
		return core.Card{}, fmt.Errorf("update card: %w", err)
	}
	if n == 0 {
		return core.Card{}, store.ErrNotFound
	}
	return r.reloadCard(ctx, c.Owner, c.ID)
}

func (r *SQLiteRepository) UpdateCardDetails(ctx context.Context, c core.Card, shift core.Money) (core.Card, error) {
	n, err := r.queries.UpdateCardDetails(ctx, cardRow(c), shift.Cents)
	if err != nil {
		return core.Card{}, fmt.Errorf("update card details: %w", err)
	}
	if n == 0 {
		return core.Card{}, store.ErrNotFound
	}
	return r.reloadCard(ctx, c.Owner, c.ID)
}

// AdjustCardBalance applies delta inside a single UPDATE, so concurrent
// writers from other processes never overwrite each other's adjustments.
func (r *SQLiteRepository) AdjustCardBalance(ctx context.Context, owner, id string, delta core.Money) (core.Card, error) {
	n, err := r.queries.AdjustCardBalance(ctx, id, owner, delta.Cents)
	if err != nil {
		return core.Card{}, fmt.Errorf("adjust card balance: %w", err)
	}
	if n == 0 {
		return core.Card{}, store.ErrNotFound
	}
	return r.reloadCard(ctx, owner, id)
}

func (r *SQLiteRepository) reloadCard(ctx context.Context, owner, id string) (core.Card, error) {
	row, err := r.queries.GetCard(ctx, id, owner)
	if err != nil {
		return core.Card{}, fmt.Errorf("reload card: %w", err)
	}
	return cardFromRow(row)
}

func (r *SQLiteRepository) DeleteCard(ctx context.Context, owner, id string) error {
	n, err := r.queries.DeleteCard(ctx, id, owner)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListCards(ctx context.Context, owner string) ([]core.Card, error) {
	rows, err := r.queries.ListCards(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	cards := make([]core.Card, 0, len(rows))
	for _, row := range rows {
		c, err := cardFromRow(row)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

func (r *SQLiteRepository) DeleteAllCards(ctx context.Context, owner string) error {
	if err := r.queries.DeleteCardsByOwner(ctx, owner); err != nil {
		return fmt.Errorf("delete cards: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = uuid.NewString()
	t.CreatedAt = r.now().UTC()
	if err := r.queries.CreateTransaction(ctx, transactionRow(t)); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"owner", t.Owner,
		"type", t.Kind,
		"amount_cents", t.Amount.Cents,
		"card_id", t.CardID)

	return t, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	n, err := r.queries.UpdateTransaction(ctx, transactionRow(t))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if n == 0 {
		return core.Transaction{}, store.ErrNotFound
	}
	createdAt, err := r.queries.GetTransactionCreatedAt(ctx, t.ID, t.Owner)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("reload transaction: %w", err)
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, owner, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, id, owner)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, owner string) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	txs := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := transactionFromRow(row)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, nil
}

func (r *SQLiteRepository) DetachCard(ctx context.Context, owner, cardID string) error {
	if err := r.queries.DetachCard(ctx, owner, cardID); err != nil {
		return fmt.Errorf("detach card: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAllTransactions(ctx context.Context, owner string) error {
	if err := r.queries.DeleteTransactionsByOwner(ctx, owner); err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListOwners(ctx context.Context) ([]string, error) {
	owners, err := r.queries.ListOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	return owners, nil
}

// ResetOwner removes every card and transaction of owner in one database
// transaction.
func (r *SQLiteRepository) ResetOwner(ctx context.Context, owner string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteTransactionsByOwner(ctx, owner); err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	if err := q.DeleteCardsByOwner(ctx, owner); err != nil {
		return fmt.Errorf("delete cards: %w", err)
	}
	return tx.Commit()
}

func cardRow(c core.Card) Card {
	return Card{
		ID:                  c.ID,
		Owner:               c.Owner,
		Name:                c.Name,
		Kind:                string(c.Kind),
		BalanceCents:        c.Balance.Cents,
		OpeningBalanceCents: c.OpeningBalance.Cents,
		LastFour:            c.LastFour,
		Color:               c.Color,
		CreatedAt:           formatTime(c.CreatedAt),
	}
}

func cardFromRow(row Card) (core.Card, error) {
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.Card{}, err
	}
	return core.Card{
		ID:             row.ID,
		Owner:          row.Owner,
		Name:           row.Name,
		Kind:           core.CardKind(row.Kind),
		Balance:        core.Money{Cents: row.BalanceCents},
		OpeningBalance: core.Money{Cents: row.OpeningBalanceCents},
		LastFour:       row.LastFour,
		Color:          row.Color,
		CreatedAt:      created,
	}, nil
}

func transactionRow(t core.Transaction) Transaction {
	return Transaction{
		ID:          t.ID,
		Owner:       t.Owner,
		CardID:      sql.NullString{String: t.CardID, Valid: t.CardID != ""},
		Kind:        string(t.Kind),
		AmountCents: t.Amount.Cents,
		Description: t.Description,
		Category:    t.Category,
		OccurredAt:  formatTime(t.OccurredAt.Time),
		CreatedAt:   formatTime(t.CreatedAt),
	}
}

func transactionFromRow(row Transaction) (core.Transaction, error) {
	occurred, err := parseTime(row.OccurredAt)
	if err != nil {
		return core.Transaction{}, err
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:          row.ID,
		Owner:       row.Owner,
		CardID:      row.CardID.String,
		Kind:        core.TxKind(row.Kind),
		Amount:      core.Money{Cents: row.AmountCents},
		Description: row.Description,
		Category:    row.Category,
		OccurredAt:  core.Date{Time: occurred},
		CreatedAt:   created,
	}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}
