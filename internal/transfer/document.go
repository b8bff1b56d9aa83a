// Package transfer moves a ledger in and out of the process as files: a
// JSON document shaped like the dashboard's own export, an XLSX workbook
// and a CSV of transactions.
package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"financeflow/internal/core"
)

// ErrMalformed is returned for any import document that cannot be applied
// as a whole.
var ErrMalformed = errors.New("malformed import document")

// maxImportSize bounds how much of an upload is read.
const maxImportSize = 4 << 20

// Document is the export shape. CurrentAccountBalance is the aggregate
// card balance at export time.
type Document struct {
	UserName              string                `json:"userName"`
	CurrentAccountBalance core.Money            `json:"currentAccountBalance"`
	MonthlyGoal           core.Money            `json:"monthlyGoal"`
	MonthlyBudget         core.Money            `json:"monthlyBudget"`
	Transactions          []core.Transaction    `json:"transactions"`
	CategoryBudgets       map[string]core.Money `json:"categoryBudgets"`
	Cards                 []core.Card           `json:"cards"`
}

func NewDocument(s core.Snapshot) Document {
	txs := s.Transactions
	if txs == nil {
		txs = []core.Transaction{}
	}
	cards := s.Cards
	if cards == nil {
		cards = []core.Card{}
	}
	return Document{
		UserName:              s.Profile.DisplayName,
		CurrentAccountBalance: s.AggregateBalance(),
		MonthlyGoal:           s.Profile.MonthlyGoal,
		MonthlyBudget:         s.Profile.MonthlyBudget,
		Transactions:          txs,
		CategoryBudgets:       s.Profile.Clone().CategoryBudgets,
		Cards:                 cards,
	}
}

// ExportJSON writes the snapshot as an indented JSON document.
func ExportJSON(w io.Writer, s core.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(s)); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// importDocument lists every key an import may carry. The derived and
// record-level keys of an export are accepted so a file can round-trip,
// but only the settings keys are applied.
type importDocument struct {
	UserName        core.Optional[string]                `json:"userName"`
	MonthlyGoal     core.Optional[core.Money]            `json:"monthlyGoal"`
	MonthlyBudget   core.Optional[core.Money]            `json:"monthlyBudget"`
	CategoryBudgets core.Optional[map[string]core.Money] `json:"categoryBudgets"`

	CurrentAccountBalance json.RawMessage `json:"currentAccountBalance"`
	Transactions          json.RawMessage `json:"transactions"`
	Cards                 json.RawMessage `json:"cards"`
}

// ParseImport decodes an import document into a settings patch. Unknown
// keys, wrong types, trailing data and invalid values all yield
// ErrMalformed; a document is never partially accepted.
func ParseImport(r io.Reader) (core.SettingsPatch, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImportSize+1))
	if err != nil {
		return core.SettingsPatch{}, fmt.Errorf("read import: %w", err)
	}
	if len(data) > maxImportSize {
		return core.SettingsPatch{}, fmt.Errorf("%w: document larger than %d bytes", ErrMalformed, maxImportSize)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var doc importDocument
	if err := dec.Decode(&doc); err != nil {
		return core.SettingsPatch{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return core.SettingsPatch{}, fmt.Errorf("%w: trailing data after document", ErrMalformed)
	}

	patch := core.SettingsPatch{
		DisplayName:     doc.UserName,
		MonthlyGoal:     doc.MonthlyGoal,
		MonthlyBudget:   doc.MonthlyBudget,
		CategoryBudgets: doc.CategoryBudgets,
	}
	if err := patch.Validate(); err != nil {
		return core.SettingsPatch{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return patch, nil
}
