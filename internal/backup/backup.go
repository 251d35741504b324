// Package backup serializes the full dataset for export, validates
// and restores imported backups, and renders the CSV expense export.
// The file pickers and share sheets that move these bytes around are
// external collaborators.
package backup

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"duit/internal/core"
	"duit/internal/store"
)

// Version is the backup format version stamped on every export.
const Version = "1.0.0"

var ErrInvalidBackup = errors.New("invalid backup")

// Backup is the export envelope. Data mirrors the persisted state
// blob, so a backup is a portable snapshot of everything.
type Backup struct {
	Version    string    `json:"version"`
	ExportDate time.Time `json:"exportDate"`
	Data       Data      `json:"data"`
}

type Data struct {
	Expenses          []core.Expense          `json:"expenses"`
	Categories        []core.Category         `json:"categories"`
	RecurringExpenses []core.RecurringExpense `json:"recurringExpenses"`
	DisplayCurrency   string                  `json:"displayCurrency"`
}

// Export wraps a state snapshot into a backup stamped with now.
func Export(st store.State, now time.Time) Backup {
	return Backup{
		Version:    Version,
		ExportDate: now,
		Data: Data{
			Expenses:          st.Expenses,
			Categories:        st.Categories,
			RecurringExpenses: st.RecurringExpenses,
			DisplayCurrency:   st.DisplayCurrency,
		},
	}
}

// Marshal renders a backup as indented JSON, the format written to
// exported files.
func Marshal(b Backup) ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}

// Parse validates raw backup bytes structurally and decodes them. The
// check is shape-only: version and exportDate present, the three
// collection arrays present. An invalid backup is rejected whole; the
// caller never applies it partially.
func Parse(raw []byte) (Backup, error) {
	var shape struct {
		Version    string          `json:"version"`
		ExportDate json.RawMessage `json:"exportDate"`
		Data       *struct {
			Expenses          json.RawMessage `json:"expenses"`
			Categories        json.RawMessage `json:"categories"`
			RecurringExpenses json.RawMessage `json:"recurringExpenses"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return Backup{}, fmt.Errorf("%w: not valid JSON: %v", ErrInvalidBackup, err)
	}
	if shape.Version == "" {
		return Backup{}, fmt.Errorf("%w: missing version", ErrInvalidBackup)
	}
	if len(shape.ExportDate) == 0 {
		return Backup{}, fmt.Errorf("%w: missing export date", ErrInvalidBackup)
	}
	if shape.Data == nil {
		return Backup{}, fmt.Errorf("%w: missing data", ErrInvalidBackup)
	}
	for name, raw := range map[string]json.RawMessage{
		"expenses":          shape.Data.Expenses,
		"categories":        shape.Data.Categories,
		"recurringExpenses": shape.Data.RecurringExpenses,
	} {
		if !isJSONArray(raw) {
			return Backup{}, fmt.Errorf("%w: %s is not an array", ErrInvalidBackup, name)
		}
	}

	var b Backup
	if err := json.Unmarshal(raw, &b); err != nil {
		return Backup{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	return b, nil
}

func isJSONArray(raw json.RawMessage) bool {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}

// State converts backup data back into a store state.
func (b Backup) State() store.State {
	return store.State{
		Expenses:          b.Data.Expenses,
		Categories:        b.Data.Categories,
		RecurringExpenses: b.Data.RecurringExpenses,
		DisplayCurrency:   b.Data.DisplayCurrency,
	}
}

// csvHeader is the fixed column layout of the expense export.
var csvHeader = []string{"Date", "Title", "Amount", "Category", "Note", "Original Amount", "Original Currency"}

// WriteCSV renders expenses as CSV. The Category column carries the
// resolved category name, falling back to the raw id for dangling
// references. encoding/csv quotes fields and doubles embedded quotes.
func WriteCSV(w io.Writer, expenses []core.Expense, categories []core.Category) error {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range expenses {
		category := e.CategoryID
		if name, ok := names[e.CategoryID]; ok {
			category = name
		}
		originalAmount := ""
		if e.OriginalAmount != nil {
			originalAmount = formatUnits(*e.OriginalAmount)
		}
		record := []string{
			e.Date.Format("2006-01-02"),
			e.Title,
			formatUnits(e.Amount),
			category,
			e.Note,
			originalAmount,
			e.OriginalCurrency,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatUnits(m core.Money) string {
	return strconv.FormatFloat(m.Units(), 'f', 2, 64)
}
