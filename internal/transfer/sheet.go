package transfer

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"financeflow/internal/core"
)

const (
	transactionsSheet = "Transacciones"
	cardsSheet        = "Tarjetas"
	dateLayout        = "2006-01-02"
)

var transactionHeaders = []string{"Fecha", "Tipo", "Categoría", "Descripción", "Importe", "Tarjeta"}

// transactionRow renders t for tabular exports. Amounts are signed so a
// column sum equals the net flow.
func transactionRow(t core.Transaction, cardNames map[string]string) []string {
	return []string{
		t.OccurredAt.Format(dateLayout),
		kindLabel(t.Kind),
		core.CategoryLabel(t.Category),
		t.Description,
		t.Signed().String(),
		cardNames[t.CardID],
	}
}

func kindLabel(k core.TxKind) string {
	if k == core.Income {
		return "Ingreso"
	}
	return "Gasto"
}

func cardNames(cards []core.Card) map[string]string {
	names := make(map[string]string, len(cards))
	for _, c := range cards {
		names[c.ID] = c.Name
	}
	return names
}

// ExportCSV writes the snapshot's transactions, newest first, with a UTF-8
// byte order mark so spreadsheet tools detect the encoding.
func ExportCSV(w io.Writer, s core.Snapshot) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(transactionHeaders); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	names := cardNames(s.Cards)
	for _, t := range s.Transactions {
		if err := cw.Write(transactionRow(t, names)); err != nil {
			return fmt.Errorf("write row %s: %w", t.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportXLSX writes a workbook with a transactions sheet and a cards sheet.
func ExportXLSX(w io.Writer, s core.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(transactionsSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	if err := writeTransactions(f, s); err != nil {
		return err
	}
	if err := writeCards(f, s); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeTransactions(f *excelize.File, s core.Snapshot) error {
	if err := f.SetSheetRow(transactionsSheet, "A1", &transactionHeaders); err != nil {
		return fmt.Errorf("set header: %w", err)
	}

	names := cardNames(s.Cards)
	for i, t := range s.Transactions {
		row := i + 2
		cells := []interface{}{
			t.OccurredAt.Format(dateLayout),
			kindLabel(t.Kind),
			core.CategoryLabel(t.Category),
			t.Description,
			t.Signed().Euros(),
			names[t.CardID],
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(transactionsSheet, cell, &cells); err != nil {
			return fmt.Errorf("set row %d: %w", row, err)
		}
	}

	widths := map[string]float64{"A": 12, "B": 10, "C": 20, "D": 32, "E": 12, "F": 16}
	for col, width := range widths {
		if err := f.SetColWidth(transactionsSheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

func writeCards(f *excelize.File, s core.Snapshot) error {
	if _, err := f.NewSheet(cardsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	header := []interface{}{"Nombre", "Tipo", "Últimos 4", "Saldo"}
	if err := f.SetSheetRow(cardsSheet, "A1", &header); err != nil {
		return err
	}
	for i, c := range s.Cards {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{c.Name, string(c.Kind), c.LastFour, c.Balance.Euros()}
		if err := f.SetSheetRow(cardsSheet, cell, &row); err != nil {
			return err
		}
	}

	total, err := excelize.CoordinatesToCellName(1, len(s.Cards)+3)
	if err != nil {
		return err
	}
	footer := []interface{}{"Total", "", "", s.AggregateBalance().Euros()}
	return f.SetSheetRow(cardsSheet, total, &footer)
}
