package storage

import "database/sql"

// Row models, one per table.

type Profile struct {
	Owner              string
	DisplayName        string
	MonthlyGoalCents   int64
	MonthlyBudgetCents int64
	CategoryBudgets    string
	UpdatedAt          string
}

type Card struct {
	ID                  string
	Owner               string
	Name                string
	Kind                string
	BalanceCents        int64
	OpeningBalanceCents int64
	LastFour            string
	Color               string
	CreatedAt           string
}

type Transaction struct {
	ID          string
	Owner       string
	CardID      sql.NullString
	Kind        string
	AmountCents int64
	Description string
	Category    string
	OccurredAt  string
	CreatedAt   string
}

type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    string
}

type RevokedSession struct {
	ID        string
	ExpiresAt string
}
