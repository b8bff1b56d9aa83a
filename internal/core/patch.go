package core

import "strings"

// TransactionPatch carries a partial transaction edit. CardID set to ""
// detaches the transaction from its card.
type TransactionPatch struct {
	Kind        Optional[TxKind] `json:"type"`
	Amount      Optional[Money]  `json:"amount"`
	Description Optional[string] `json:"description"`
	Category    Optional[string] `json:"category"`
	OccurredAt  Optional[Date]   `json:"date"`
	CardID      Optional[string] `json:"card_id"`
}

type CardPatch struct {
	Name     Optional[string]   `json:"name"`
	Kind     Optional[CardKind] `json:"type"`
	Balance  Optional[Money]    `json:"balance"`
	LastFour Optional[string]   `json:"last4"`
	Color    Optional[string]   `json:"color"`
}

// SettingsPatch replaces CategoryBudgets wholesale when present.
type SettingsPatch struct {
	DisplayName     Optional[string]           `json:"userName"`
	MonthlyGoal     Optional[Money]            `json:"monthlyGoal"`
	MonthlyBudget   Optional[Money]            `json:"monthlyBudget"`
	CategoryBudgets Optional[map[string]Money] `json:"categoryBudgets"`
}

// Apply returns t with the present fields of p merged in.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	t.Kind = p.Kind.OrElse(t.Kind)
	t.Amount = p.Amount.OrElse(t.Amount)
	t.Description = p.Description.OrElse(t.Description)
	t.Category = p.Category.OrElse(t.Category)
	t.OccurredAt = p.OccurredAt.OrElse(t.OccurredAt)
	t.CardID = p.CardID.OrElse(t.CardID)
	return t
}

func (p TransactionPatch) Validate() error {
	if k, ok := p.Kind.Get(); ok && !k.Valid() {
		return ErrInvalidKind
	}
	if a, ok := p.Amount.Get(); ok {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	if d, ok := p.Description.Get(); ok {
		if strings.TrimSpace(d) == "" {
			return ErrEmptyDescription
		}
		if len(d) > maxDescriptionLen {
			return ErrDescriptionLong
		}
	}
	if c, ok := p.Category.Get(); ok && strings.TrimSpace(c) == "" {
		return ErrEmptyCategory
	}
	if d, ok := p.OccurredAt.Get(); ok {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p CardPatch) Apply(c Card) Card {
	c.Name = p.Name.OrElse(c.Name)
	c.Kind = p.Kind.OrElse(c.Kind)
	c.Balance = p.Balance.OrElse(c.Balance)
	c.LastFour = p.LastFour.OrElse(c.LastFour)
	c.Color = p.Color.OrElse(c.Color)
	return c
}

func (p CardPatch) Validate() error {
	if n, ok := p.Name.Get(); ok {
		if strings.TrimSpace(n) == "" {
			return ErrEmptyName
		}
		if len(n) > maxCardNameLen {
			return ErrNameLong
		}
	}
	if k, ok := p.Kind.Get(); ok && !k.Valid() {
		return ErrInvalidCardKind
	}
	return nil
}

func (p SettingsPatch) Apply(pr Profile) Profile {
	pr = pr.Clone()
	pr.DisplayName = p.DisplayName.OrElse(pr.DisplayName)
	pr.MonthlyGoal = p.MonthlyGoal.OrElse(pr.MonthlyGoal)
	pr.MonthlyBudget = p.MonthlyBudget.OrElse(pr.MonthlyBudget)
	if budgets, ok := p.CategoryBudgets.Get(); ok {
		pr.CategoryBudgets = make(map[string]Money, len(budgets))
		for k, v := range budgets {
			pr.CategoryBudgets[k] = v
		}
	}
	return pr
}

func (p SettingsPatch) Validate() error {
	if g, ok := p.MonthlyGoal.Get(); ok {
		if err := g.Validate(); err != nil {
			return err
		}
	}
	if b, ok := p.MonthlyBudget.Get(); ok {
		if err := b.Validate(); err != nil {
			return err
		}
	}
	if budgets, ok := p.CategoryBudgets.Get(); ok {
		for k, v := range budgets {
			if strings.TrimSpace(k) == "" {
				return ErrEmptyCategory
			}
			if err := v.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsEmpty reports whether no field is present.
func (p SettingsPatch) IsEmpty() bool {
	return !p.DisplayName.IsSet() && !p.MonthlyGoal.IsSet() &&
		!p.MonthlyBudget.IsSet() && !p.CategoryBudgets.IsSet()
}
