package store

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"duit/internal/core"
	"duit/internal/currency"
)

func testClock() func() time.Time {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func loadedStore(t *testing.T, kv KV) *Store {
	t.Helper()
	s := New(kv, nil, testClock())
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func TestLoadSeedsDefaultCategories(t *testing.T) {
	s := loadedStore(t, NewMemoryKV())

	cats := s.Categories()
	if len(cats) != 8 {
		t.Fatalf("seeded %d categories, want 8", len(cats))
	}
	for _, c := range cats {
		if !c.IsDefault {
			t.Errorf("seeded category %s not marked default", c.ID)
		}
	}
	if _, ok := s.Category(OtherCategoryID); !ok {
		t.Errorf("missing %s in defaults", OtherCategoryID)
	}
	if got := s.DisplayCurrency(); got != currency.BaseCode {
		t.Errorf("display currency = %q, want %q", got, currency.BaseCode)
	}
}

func TestAddExpenseBaseCurrency(t *testing.T) {
	s := loadedStore(t, NewMemoryKV())

	e, err := s.AddExpense(context.Background(), ExpenseInput{
		Title:      "  Lunch  ",
		Amount:     core.Money{Cents: 1250},
		Currency:   "MYR",
		CategoryID: "cat_food",
		Date:       time.Date(2024, 3, 1, 13, 45, 0, 0, time.UTC),
		Note:       "nasi lemak",
	})
	if err != nil {
		t.Fatalf("add expense: %v", err)
	}
	if e.Title != "Lunch" {
		t.Errorf("title = %q, want trimmed", e.Title)
	}
	if e.Amount.Cents != 1250 {
		t.Errorf("amount = %d, want 1250", e.Amount.Cents)
	}
	if e.OriginalAmount != nil || e.OriginalCurrency != "" {
		t.Errorf("base-currency entry should not record an original amount: %+v", e)
	}
	if !e.Date.Equal(core.NewDate(2024, 3, 1)) {
		t.Errorf("date = %v, want normalized to midnight", e.Date)
	}
}

func TestAddExpenseForeignCurrency(t *testing.T) {
	s := loadedStore(t, NewMemoryKV())

	e, err := s.AddExpense(context.Background(), ExpenseInput{
		Title:      "Hotel",
		Amount:     core.Money{Cents: 10000}, // USD 100.00
		Currency:   "usd",
		CategoryID: "cat_other",
		Date:       core.NewDate(2024, 2, 10),
	})
	if err != nil {
		t.Fatalf("add expense: %v", err)
	}
	if e.Amount.Cents != 45455 {
		t.Errorf("converted amount = %d cents, want 45455", e.Amount.Cents)
	}
	if e.OriginalAmount == nil || e.OriginalAmount.Cents != 10000 {
		t.Fatalf("original amount not captured: %+v", e.OriginalAmount)
	}
	if e.OriginalCurrency != "USD" {
		t.Errorf("original currency = %q, want USD", e.OriginalCurrency)
	}
}

func TestUpdateExpensePreservesProvenance(t *testing.T) {
	s := loadedStore(t, NewMemoryKV())
	ctx := context.Background()

	e, err := s.AddExpense(ctx, ExpenseInput{
		Title:      "Coffee",
		Amount:     core.Money{Cents: 800},
		CategoryID: "cat_food",
		Date:       core.NewDate(2024, 3, 1),
	})
	if err != nil {
		t.Fatalf("add expense: %v", err)
	}

	rule, err := s.AddRecurring(ctx, RecurringInput{
		Title:      "Coffee",
		Amount:     core.Money{Cents: 800},
		CategoryID: "cat_food",
		Recurrence: core.Daily,
		StartDate:  core.NewDate(2024, 3, 1),
		IsActive:   true,
	})
	if err != nil {
		t.Fatalf("add recurring: %v", err)
	}

	// Feed a generated expense through the commit path.
	gen := e
	gen.ID = "gen-1"
	gen.RecurringID = rule.ID
	if _, err := s.CommitGenerated(ctx, []core.Expense{gen}, nil); err != nil {
		t.Fatalf("commit: %v", err)
	}

	updated, err := s.UpdateExpense(ctx, "gen-1", ExpenseInput{
		Title:      "Coffee beans",
		Amount:     core.Money{Cents: 900},
		CategoryID: "cat_food",
		Date:       core.NewDate(2024, 3, 2),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.RecurringID != rule.ID {
		t.Errorf("rule back-reference lost on update: %+v", updated)
	}
	if !updated.CreatedAt.Equal(e.CreatedAt) {
		t.Errorf("created at changed on update")
	}
	if updated.Title != "Coffee beans" || updated.Amount.Cents != 900 {
		t.Errorf("fields not replaced: %+v", updated)
	}
}

func TestExpenseValidationRejected(t *testing.T) {
	s := loadedStore(t, NewMemoryKV())

	_, err := s.AddExpense(context.Background(), ExpenseInput{
		Title:      "",
		Amount:     core.Money{Cents: 100},
		CategoryID: "cat_food",
		Date:       core.NewDate(2024, 3, 1),
	})
	if !errors.Is(err, core.ErrEmptyTitle) {
		t.Fatalf("error = %v, want ErrEmptyTitle", err)
	}
	if got := len(s.Snapshot().Expenses); got != 0 {
		t.Fatalf("rejected expense was stored, count = %d", got)
	}
}

func TestDeleteCategoryReassignsToOther(t *testing.T) {
	s := loadedStore(t, NewMemoryKV())
	ctx := context.Background()

	cat, err := s.AddCategory(ctx, CategoryInput{Name: "Travel", Icon: "plane", Color: "#3498db"})
	if err != nil {
		t.Fatalf("add category: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := s.AddExpense(ctx, ExpenseInput{
			Title:      "Trip",
			Amount:     core.Money{Cents: 5000},
			CategoryID: cat.ID,
			Date:       core.NewDate(2024, 3, 1),
		}); err != nil {
			t.Fatalf("add expense: %v", err)
		}
	}

	if err := s.DeleteCategory(ctx, cat.ID, false); err != nil {
		t.Fatalf("delete category: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Expenses) != 3 {
		t.Fatalf("expense count changed: %d, want 3", len(snap.Expenses))
	}
	for _, e := range snap.Expenses {
		if e.CategoryID != OtherCategoryID {
			t.Errorf("expense %s category = %q, want %q", e.ID, e.CategoryID, OtherCategoryID)
		}
	}
	if _, ok := s.Category(cat.ID); ok {
		t.Errorf("deleted category still present")
	}
}

func TestDeleteCategoryCascades(t *testing.T) {
	s := loadedStore(t, NewMemoryKV())
	ctx := context.Background()

	cat, err := s.AddCategory(ctx, CategoryInput{Name: "Travel"})
	if err != nil {
		t.Fatalf("add category: %v", err)
	}
	if _, err := s.AddExpense(ctx, ExpenseInput{
		Title: "Trip", Amount: core.Money{Cents: 5000}, CategoryID: cat.ID, Date: core.NewDate(2024, 3, 1),
	}); err != nil {
		t.Fatalf("add expense: %v", err)
	}
	if _, err := s.AddExpense(ctx, ExpenseInput{
		Title: "Lunch", Amount: core.Money{Cents: 1200}, CategoryID: "cat_food", Date: core.NewDate(2024, 3, 1),
	}); err != nil {
		t.Fatalf("add expense: %v", err)
	}

	if err := s.DeleteCategory(ctx, cat.ID, true); err != nil {
		t.Fatalf("delete category: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Expenses) != 1 {
		t.Fatalf("expense count = %d, want 1", len(snap.Expenses))
	}
	if snap.Expenses[0].CategoryID != "cat_food" {
		t.Errorf("surviving expense = %+v", snap.Expenses[0])
	}
}

func TestDefaultCategoryProtected(t *testing.T) {
	s := loadedStore(t, NewMemoryKV())
	ctx := context.Background()

	if err := s.DeleteCategory(ctx, "cat_food", false); !errors.Is(err, ErrDefaultCategory) {
		t.Errorf("delete default: error = %v, want ErrDefaultCategory", err)
	}
	if _, err := s.UpdateCategory(ctx, "cat_food", CategoryInput{Name: "Makan"}); !errors.Is(err, ErrDefaultCategory) {
		t.Errorf("update default: error = %v, want ErrDefaultCategory", err)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	first := loadedStore(t, kv)
	e, err := first.AddExpense(ctx, ExpenseInput{
		Title:      "Dinner",
		Amount:     core.Money{Cents: 2000},
		Currency:   "USD",
		CategoryID: "cat_food",
		Date:       core.NewDate(2024, 3, 1),
	})
	if err != nil {
		t.Fatalf("add expense: %v", err)
	}
	if err := first.SetDisplayCurrency(ctx, "sgd"); err != nil {
		t.Fatalf("set display currency: %v", err)
	}

	second := loadedStore(t, kv)
	got, ok := second.Expense(e.ID)
	if !ok {
		t.Fatalf("expense missing after reload")
	}
	if got.Amount != e.Amount || got.OriginalCurrency != "USD" {
		t.Errorf("reloaded expense = %+v, want %+v", got, e)
	}
	if second.DisplayCurrency() != "SGD" {
		t.Errorf("display currency = %q, want SGD", second.DisplayCurrency())
	}
	// Categories were seeded by the first store, not re-seeded.
	if got := len(second.Categories()); got != 8 {
		t.Errorf("category count after reload = %d, want 8", got)
	}
}

func TestSetDisplayCurrencyNormalizesUnknown(t *testing.T) {
	s := loadedStore(t, NewMemoryKV())
	if err := s.SetDisplayCurrency(context.Background(), "XXX"); err != nil {
		t.Fatalf("set display currency: %v", err)
	}
	if got := s.DisplayCurrency(); got != currency.BaseCode {
		t.Errorf("display currency = %q, want base fallback", got)
	}
}

func TestCommitGeneratedWatermarkMonotonic(t *testing.T) {
	s := loadedStore(t, NewMemoryKV())
	ctx := context.Background()

	re, err := s.AddRecurring(ctx, RecurringInput{
		Title:      "Rent",
		Amount:     core.Money{Cents: 120000},
		CategoryID: "cat_bills",
		Recurrence: core.Monthly,
		StartDate:  core.NewDate(2024, 1, 1),
		IsActive:   true,
	})
	if err != nil {
		t.Fatalf("add recurring: %v", err)
	}

	forward := map[string]time.Time{re.ID: core.NewDate(2024, 3, 1)}
	if _, err := s.CommitGenerated(ctx, nil, forward); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// A stale run must not rewind the watermark.
	backward := map[string]time.Time{re.ID: core.NewDate(2024, 2, 1)}
	if _, err := s.CommitGenerated(ctx, nil, backward); err != nil {
		t.Fatalf("commit: %v", err)
	}

	rules := s.RecurringExpenses()
	if !rules[0].LastGenerated.Equal(core.NewDate(2024, 3, 1)) {
		t.Errorf("watermark = %v, want 2024-03-01", rules[0].LastGenerated)
	}
}

func TestCommitGeneratedDropsOvertakenOccurrences(t *testing.T) {
	s := loadedStore(t, NewMemoryKV())
	ctx := context.Background()

	re, err := s.AddRecurring(ctx, RecurringInput{
		Title:      "Gym membership",
		Amount:     core.Money{Cents: 15000},
		CategoryID: "cat_sports",
		Recurrence: core.Monthly,
		StartDate:  core.NewDate(2024, 1, 15),
		IsActive:   true,
	})
	if err != nil {
		t.Fatalf("add recurring: %v", err)
	}

	// Two generator passes compute the same batch from the same
	// watermark before either commits.
	batch := func(suffix string) []core.Expense {
		var out []core.Expense
		for m := 1; m <= 4; m++ {
			out = append(out, core.Expense{
				ID:          "gen-" + suffix + "-" + strconv.Itoa(m),
				Title:       re.Title,
				Amount:      re.Amount,
				CategoryID:  re.CategoryID,
				Date:        core.NewDate(2024, m, 15),
				CreatedAt:   time.Date(2024, 4, 20, 9, 0, 0, 0, time.UTC),
				RecurringID: re.ID,
			})
		}
		return out
	}
	marks := map[string]time.Time{re.ID: core.NewDate(2024, 4, 15)}

	count, err := s.CommitGenerated(ctx, batch("a"), marks)
	if err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if count != 4 {
		t.Fatalf("first commit appended %d, want 4", count)
	}

	count, err = s.CommitGenerated(ctx, batch("b"), marks)
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}
	if count != 0 {
		t.Fatalf("overtaken commit appended %d, want 0", count)
	}

	perDate := make(map[string]int)
	for _, e := range s.Snapshot().Expenses {
		perDate[e.Date.Format("2006-01-02")]++
	}
	for date, n := range perDate {
		if n != 1 {
			t.Errorf("occurrence %s materialized %d times, want 1", date, n)
		}
	}
	if len(perDate) != 4 {
		t.Errorf("distinct occurrence dates = %d, want 4", len(perDate))
	}
}

func TestCommitGeneratedDropsDeletedRuleOccurrences(t *testing.T) {
	s := loadedStore(t, NewMemoryKV())
	ctx := context.Background()

	count, err := s.CommitGenerated(ctx, []core.Expense{{
		ID:          "gen-orphan",
		Title:       "Gone",
		Amount:      core.Money{Cents: 100},
		CategoryID:  "cat_other",
		Date:        core.NewDate(2024, 1, 15),
		RecurringID: "rec-deleted",
	}}, nil)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if count != 0 {
		t.Errorf("orphan commit appended %d, want 0", count)
	}
	if got := len(s.Snapshot().Expenses); got != 0 {
		t.Errorf("expenses = %d, want 0", got)
	}
}

func TestUpdateRecurringPreservesWatermark(t *testing.T) {
	s := loadedStore(t, NewMemoryKV())
	ctx := context.Background()

	re, err := s.AddRecurring(ctx, RecurringInput{
		Title:      "Rent",
		Amount:     core.Money{Cents: 120000},
		CategoryID: "cat_bills",
		Recurrence: core.Monthly,
		StartDate:  core.NewDate(2024, 1, 1),
		IsActive:   true,
	})
	if err != nil {
		t.Fatalf("add recurring: %v", err)
	}
	mark := map[string]time.Time{re.ID: core.NewDate(2024, 2, 1)}
	if _, err := s.CommitGenerated(ctx, nil, mark); err != nil {
		t.Fatalf("commit: %v", err)
	}

	updated, err := s.UpdateRecurring(ctx, re.ID, RecurringInput{
		Title:      "Rent increase",
		Amount:     core.Money{Cents: 130000},
		CategoryID: "cat_bills",
		Recurrence: core.Monthly,
		StartDate:  core.NewDate(2024, 1, 1),
		IsActive:   true,
	})
	if err != nil {
		t.Fatalf("update recurring: %v", err)
	}
	if !updated.LastGenerated.Equal(core.NewDate(2024, 2, 1)) {
		t.Errorf("watermark lost on update: %v", updated.LastGenerated)
	}
}

func TestToggleRecurring(t *testing.T) {
	s := loadedStore(t, NewMemoryKV())
	ctx := context.Background()

	re, err := s.AddRecurring(ctx, RecurringInput{
		Title:      "Gym",
		Amount:     core.Money{Cents: 15000},
		CategoryID: "cat_sports",
		Recurrence: core.Monthly,
		StartDate:  core.NewDate(2024, 1, 15),
		IsActive:   true,
	})
	if err != nil {
		t.Fatalf("add recurring: %v", err)
	}

	toggled, err := s.ToggleRecurring(ctx, re.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if toggled.IsActive {
		t.Errorf("rule still active after toggle")
	}
	if _, err := s.ToggleRecurring(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("toggle missing: error = %v, want ErrNotFound", err)
	}
}

func TestReplaceSwapsWholeState(t *testing.T) {
	s := loadedStore(t, NewMemoryKV())
	ctx := context.Background()

	if _, err := s.AddExpense(ctx, ExpenseInput{
		Title: "Old", Amount: core.Money{Cents: 100}, CategoryID: "cat_food", Date: core.NewDate(2024, 1, 1),
	}); err != nil {
		t.Fatalf("add expense: %v", err)
	}

	imported := State{
		Expenses: []core.Expense{{
			ID:         "imp-1",
			Title:      "Imported",
			Amount:     core.Money{Cents: 4200},
			CategoryID: "cat_bills",
			Date:       core.NewDate(2023, 12, 25),
			CreatedAt:  time.Date(2023, 12, 25, 8, 0, 0, 0, time.UTC),
		}},
		Categories: []core.Category{
			{ID: "cat_bills", Name: "Bills", IsDefault: true},
		},
		DisplayCurrency: "EUR",
	}
	if err := s.Replace(ctx, imported); err != nil {
		t.Fatalf("replace: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Expenses) != 1 || snap.Expenses[0].ID != "imp-1" {
		t.Fatalf("state not replaced: %+v", snap.Expenses)
	}
	if len(snap.Categories) != 1 {
		t.Errorf("imported categories not kept as-is, got %d", len(snap.Categories))
	}
	if snap.DisplayCurrency != "EUR" {
		t.Errorf("display currency = %q, want EUR", snap.DisplayCurrency)
	}
}

func TestReplaceEmptyStateReseedsDefaults(t *testing.T) {
	s := loadedStore(t, NewMemoryKV())

	if err := s.Replace(context.Background(), State{}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Categories) != 8 {
		t.Errorf("categories after empty replace = %d, want 8 defaults", len(snap.Categories))
	}
	if snap.DisplayCurrency != currency.BaseCode {
		t.Errorf("display currency = %q, want base", snap.DisplayCurrency)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := loadedStore(t, NewMemoryKV())
	ctx := context.Background()

	if _, err := s.AddExpense(ctx, ExpenseInput{
		Title: "Lunch", Amount: core.Money{Cents: 1000}, CategoryID: "cat_food", Date: core.NewDate(2024, 3, 1),
	}); err != nil {
		t.Fatalf("add expense: %v", err)
	}

	snap := s.Snapshot()
	snap.Expenses[0].Title = "mutated"

	if got, _ := s.Expense(snap.Expenses[0].ID); got.Title != "Lunch" {
		t.Errorf("snapshot mutation leaked into store: %q", got.Title)
	}
}
