package store

import (
	"time"

	"duit/internal/core"
)

// State is the full persisted dataset, serialized as one JSON blob
// under StorageKey. In-memory state is the source of truth for reads;
// the KV write is a side effect of each mutation.
type State struct {
	Expenses          []core.Expense          `json:"expenses"`
	Categories        []core.Category         `json:"categories"`
	RecurringExpenses []core.RecurringExpense `json:"recurringExpenses"`
	DisplayCurrency   string                  `json:"displayCurrency"`
}

// Clone deep-copies the state so snapshots handed to callers cannot
// alias the store's slices.
func (s State) Clone() State {
	out := State{DisplayCurrency: s.DisplayCurrency}
	if s.Expenses != nil {
		out.Expenses = make([]core.Expense, len(s.Expenses))
		copy(out.Expenses, s.Expenses)
	}
	if s.Categories != nil {
		out.Categories = make([]core.Category, len(s.Categories))
		copy(out.Categories, s.Categories)
	}
	if s.RecurringExpenses != nil {
		out.RecurringExpenses = make([]core.RecurringExpense, len(s.RecurringExpenses))
		copy(out.RecurringExpenses, s.RecurringExpenses)
	}
	return out
}

// OtherCategoryID is the fixed id of the fallback category expenses
// are reassigned to when their own category is deleted.
const OtherCategoryID = "cat_other"

// DefaultCategories returns the seed set installed on first run. The
// ids are fixed so backups from older installs keep resolving.
func DefaultCategories(now time.Time) []core.Category {
	return []core.Category{
		{ID: "cat_food", Name: "Food", Icon: "restaurant", Color: "#F59E0B", IsDefault: true, CreatedAt: now},
		{ID: "cat_transport", Name: "Transport", Icon: "car", Color: "#3B82F6", IsDefault: true, CreatedAt: now},
		{ID: "cat_shopping", Name: "Shopping", Icon: "cart", Color: "#EC4899", IsDefault: true, CreatedAt: now},
		{ID: "cat_bills", Name: "Bills", Icon: "receipt", Color: "#EF4444", IsDefault: true, CreatedAt: now},
		{ID: "cat_sports", Name: "Sports", Icon: "fitness", Color: "#D9FF00", IsDefault: true, CreatedAt: now},
		{ID: "cat_entertainment", Name: "Entertainment", Icon: "game-controller", Color: "#8B5CF6", IsDefault: true, CreatedAt: now},
		{ID: "cat_health", Name: "Health", Icon: "fitness", Color: "#10B981", IsDefault: true, CreatedAt: now},
		{ID: OtherCategoryID, Name: "Other", Icon: "ellipsis-horizontal", Color: "#6B7280", IsDefault: true, CreatedAt: now},
	}
}
