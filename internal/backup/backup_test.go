package backup

import (
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"duit/internal/core"
	"duit/internal/store"
)

func sampleState() store.State {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return store.State{
		Expenses: []core.Expense{
			{
				ID:         "exp-1",
				Title:      "Lunch",
				Amount:     core.Money{Cents: 1250},
				CategoryID: "cat_food",
				Date:       core.NewDate(2024, 3, 1),
				Note:       "nasi lemak",
				CreatedAt:  created,
			},
			{
				ID:               "exp-2",
				Title:            "Hotel",
				Amount:           core.Money{Cents: 45455},
				OriginalAmount:   &core.Money{Cents: 10000},
				OriginalCurrency: "USD",
				CategoryID:       "cat_travel",
				Date:             core.NewDate(2024, 2, 10),
				CreatedAt:        created,
			},
		},
		Categories: []core.Category{
			{ID: "cat_food", Name: "Food", Icon: "utensils", Color: "#e74c3c", IsDefault: true, CreatedAt: created},
		},
		RecurringExpenses: []core.RecurringExpense{
			{
				ID:         "rec-1",
				Title:      "Rent",
				Amount:     core.Money{Cents: 120000},
				CategoryID: "cat_bills",
				Recurrence: core.Monthly,
				StartDate:  core.NewDate(2024, 1, 1),
				IsActive:   true,
				CreatedAt:  created,
			},
		},
		DisplayCurrency: "MYR",
	}
}

func TestExportRoundTrip(t *testing.T) {
	st := sampleState()
	now := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)

	raw, err := Marshal(Export(st, now))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	b, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if b.Version != Version {
		t.Errorf("version = %q, want %q", b.Version, Version)
	}
	if !b.ExportDate.Equal(now) {
		t.Errorf("export date = %v, want %v", b.ExportDate, now)
	}

	restored := b.State()
	if len(restored.Expenses) != 2 || len(restored.Categories) != 1 || len(restored.RecurringExpenses) != 1 {
		t.Fatalf("restored counts = %d/%d/%d, want 2/1/1",
			len(restored.Expenses), len(restored.Categories), len(restored.RecurringExpenses))
	}
	if restored.DisplayCurrency != "MYR" {
		t.Errorf("display currency = %q, want MYR", restored.DisplayCurrency)
	}
	got := restored.Expenses[1]
	if got.OriginalAmount == nil || got.OriginalAmount.Cents != 10000 || got.OriginalCurrency != "USD" {
		t.Errorf("original amount not preserved: %+v", got)
	}
	if !restored.RecurringExpenses[0].EndDate.IsZero() {
		t.Errorf("absent end date should stay zero, got %v", restored.RecurringExpenses[0].EndDate)
	}
}

func TestParseRejectsInvalidBackups(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not JSON", "{nope"},
		{"missing version", `{"exportDate":"2024-03-15T12:30:00Z","data":{"expenses":[],"categories":[],"recurringExpenses":[]}}`},
		{"missing export date", `{"version":"1.0.0","data":{"expenses":[],"categories":[],"recurringExpenses":[]}}`},
		{"missing data", `{"version":"1.0.0","exportDate":"2024-03-15T12:30:00Z"}`},
		{"expenses not array", `{"version":"1.0.0","exportDate":"2024-03-15T12:30:00Z","data":{"expenses":{},"categories":[],"recurringExpenses":[]}}`},
		{"missing categories", `{"version":"1.0.0","exportDate":"2024-03-15T12:30:00Z","data":{"expenses":[],"recurringExpenses":[]}}`},
		{"recurring not array", `{"version":"1.0.0","exportDate":"2024-03-15T12:30:00Z","data":{"expenses":[],"categories":[],"recurringExpenses":"x"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			if !errors.Is(err, ErrInvalidBackup) {
				t.Fatalf("error = %v, want ErrInvalidBackup", err)
			}
		})
	}
}

func TestParseAcceptsMinimalBackup(t *testing.T) {
	raw := `{"version":"1.0.0","exportDate":"2024-03-15T12:30:00Z","data":{"expenses":[],"categories":[],"recurringExpenses":[]}}`
	b, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if b.Data.DisplayCurrency != "" {
		t.Errorf("display currency = %q, want empty", b.Data.DisplayCurrency)
	}
}

func TestWriteCSV(t *testing.T) {
	st := sampleState()

	var sb strings.Builder
	if err := WriteCSV(&sb, st.Expenses, st.Categories); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(sb.String())).ReadAll()
	if err != nil {
		t.Fatalf("read back csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("csv has %d rows, want header + 2", len(records))
	}

	wantHeader := []string{"Date", "Title", "Amount", "Category", "Note", "Original Amount", "Original Currency"}
	for i, col := range wantHeader {
		if records[0][i] != col {
			t.Fatalf("header[%d] = %q, want %q", i, records[0][i], col)
		}
	}

	first := records[1]
	if first[0] != "2024-03-01" || first[1] != "Lunch" || first[2] != "12.50" {
		t.Errorf("first row = %v", first)
	}
	if first[3] != "Food" {
		t.Errorf("category column = %q, want resolved name Food", first[3])
	}
	if first[5] != "" || first[6] != "" {
		t.Errorf("base-currency row should have empty original columns, got %q/%q", first[5], first[6])
	}

	second := records[2]
	if second[3] != "cat_travel" {
		t.Errorf("dangling category should fall back to raw id, got %q", second[3])
	}
	if second[2] != "454.55" || second[5] != "100.00" || second[6] != "USD" {
		t.Errorf("second row = %v", second)
	}
}

func TestWriteCSVQuotesSpecialCharacters(t *testing.T) {
	expenses := []core.Expense{{
		ID:         "exp-q",
		Title:      `Dinner, "fancy"`,
		Amount:     core.Money{Cents: 9900},
		CategoryID: "cat_food",
		Date:       core.NewDate(2024, 3, 2),
		Note:       "line1\nline2",
	}}

	var sb strings.Builder
	if err := WriteCSV(&sb, expenses, nil); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(sb.String())).ReadAll()
	if err != nil {
		t.Fatalf("read back csv: %v", err)
	}
	if records[1][1] != `Dinner, "fancy"` {
		t.Errorf("title = %q", records[1][1])
	}
	if records[1][4] != "line1\nline2" {
		t.Errorf("note = %q", records[1][4])
	}
}
