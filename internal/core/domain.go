package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	Income  TxKind = "income"
	Expense TxKind = "expense"
)

const (
	Debit   CardKind = "debit"
	Credit  CardKind = "credit"
	Cash    CardKind = "cash"
	Savings CardKind = "savings"
)

type (
	TxKind   string
	CardKind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Card is a named funding source with an independently tracked balance.
	Card struct {
		ID             string    `json:"id"`
		Owner          string    `json:"user_id"`
		Name           string    `json:"name"`
		Kind           CardKind  `json:"type"`
		Balance        Money     `json:"balance"`
		OpeningBalance Money     `json:"opening_balance"`
		LastFour       string    `json:"last4,omitempty"`
		Color          string    `json:"color"`
		CreatedAt      time.Time `json:"created_at"`
	}

	// Transaction is a single income or expense event. Amount is never
	// negative; the sign is carried by Kind.
	Transaction struct {
		ID          string    `json:"id"`
		Owner       string    `json:"user_id"`
		CardID      string    `json:"card_id,omitempty"` // empty: affects no card
		Kind        TxKind    `json:"type"`
		Amount      Money     `json:"amount"`
		Description string    `json:"description"`
		Category    string    `json:"category"`
		OccurredAt  Date      `json:"date"`
		CreatedAt   time.Time `json:"created_at"`
	}

	// Profile holds the per-owner settings.
	Profile struct {
		Owner           string           `json:"user_id"`
		DisplayName     string           `json:"userName"`
		MonthlyGoal     Money            `json:"monthlyGoal"`
		MonthlyBudget   Money            `json:"monthlyBudget"`
		CategoryBudgets map[string]Money `json:"categoryBudgets"`
	}

	TransactionDraft struct {
		Kind        TxKind `json:"type"`
		Amount      Money  `json:"amount"`
		Description string `json:"description"`
		Category    string `json:"category"`
		OccurredAt  Date   `json:"date"`
	}

	CardDraft struct {
		Name     string   `json:"name"`
		Kind     CardKind `json:"type"`
		Balance  Money    `json:"balance"`
		LastFour string   `json:"last4,omitempty"`
		Color    string   `json:"color"`
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidKind      = errors.New("invalid transaction type")
	ErrInvalidCardKind  = errors.New("invalid card type")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyName        = errors.New("empty card name")
	ErrDescriptionLong  = errors.New("description too long (max 200 characters)")
	ErrNameLong         = errors.New("card name too long (max 64 characters)")
	ErrMissingDate      = errors.New("date cannot be zero")
	ErrNullValue        = errors.New("null is not allowed; omit the field to keep its value")
	ErrNotFound         = errors.New("record not found")
)

var validationErrors = []error{
	ErrInvalidDay, ErrInvalidMonth, ErrInvalidAmount, ErrInvalidKind,
	ErrInvalidCardKind, ErrEmptyDescription, ErrEmptyCategory, ErrEmptyName,
	ErrDescriptionLong, ErrNameLong, ErrMissingDate, ErrNullValue,
}

// IsValidation reports whether err stems from rejected input.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

const (
	DefaultDisplayName = "Usuario"
	maxDescriptionLen  = 200
	maxCardNameLen     = 64
)

func (k TxKind) Valid() bool {
	return k == Income || k == Expense
}

func (k CardKind) Valid() bool {
	switch k {
	case Debit, Credit, Cash, Savings:
		return true
	}
	return false
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrMissingDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts either a calendar date (2006-01-02) or an RFC3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t.UTC()}, nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.UTC().Format(time.RFC3339))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Signed returns the amount with the sign implied by the transaction kind.
func (t Transaction) Signed() Money {
	return SignedAmount(t.Kind, t.Amount)
}

func SignedAmount(kind TxKind, amount Money) Money {
	if kind == Income {
		return amount
	}
	return amount.Neg()
}

func (t TransactionDraft) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.OccurredAt.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > maxDescriptionLen {
		return ErrDescriptionLong
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (c CardDraft) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > maxCardNameLen {
		return ErrNameLong
	}
	if !c.Kind.Valid() {
		return ErrInvalidCardKind
	}
	return c.Balance.Validate()
}

// DefaultProfile returns the settings a new owner starts with.
func DefaultProfile(owner string) Profile {
	budgets := make(map[string]Money, len(defaultCategoryBudgets))
	for k, v := range defaultCategoryBudgets {
		budgets[k] = Money{Cents: v * 100}
	}
	return Profile{
		Owner:           owner,
		DisplayName:     DefaultDisplayName,
		MonthlyGoal:     Money{Cents: 500_00},
		MonthlyBudget:   Money{Cents: 2000_00},
		CategoryBudgets: budgets,
	}
}

var defaultCategoryBudgets = map[string]int64{
	"vivienda":           500,
	"alimentacion":       300,
	"transporte":         200,
	"ocio":               150,
	"suscripciones":      100,
	"salud":              100,
	"suministros":        150,
	"telecomunicaciones": 50,
	"compras":            200,
	"entretenimiento":    100,
	"viajes":             100,
	"seguros":            50,
}

// Clone returns a deep copy, so callers can mutate budgets freely.
func (p Profile) Clone() Profile {
	out := p
	out.CategoryBudgets = make(map[string]Money, len(p.CategoryBudgets))
	for k, v := range p.CategoryBudgets {
		out.CategoryBudgets[k] = v
	}
	return out
}
