// Package store is the single-owner state container of the tracker.
// All reads are served from memory; every mutation rewrites the
// persisted JSON blob through the KV backend before returning, so a
// completed mutation is durable ahead of the next generator run.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"duit/internal/core"
	"duit/internal/currency"
	"duit/internal/events"
	applog "duit/internal/log"
)

// StorageKey is the single namespaced key the whole dataset lives
// under.
const StorageKey = "duit:expense-storage"

var (
	ErrNotFound        = errors.New("not found")
	ErrDefaultCategory = errors.New("default categories cannot be modified")
)

// Store owns the in-memory state and its persistence. Mutations are
// serialized by the internal mutex; the UI drives them one at a time,
// the lock guards the HTTP layer's concurrent access.
type Store struct {
	mu     sync.Mutex
	kv     KV
	events *events.Client
	clock  func() time.Time
	state  State
}

// New creates a store over the given KV backend. The events client may
// be nil; clock defaults to time.Now when nil.
func New(kv KV, ev *events.Client, clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{kv: kv, events: ev, clock: clock}
}

// Load reads persisted state and seeds the default categories when the
// category list is empty (first run, or an old blob without them).
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, ok, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if ok {
		if err := json.Unmarshal(blob, &s.state); err != nil {
			return fmt.Errorf("decode state: %w", err)
		}
	}

	if s.state.DisplayCurrency == "" {
		s.state.DisplayCurrency = currency.BaseCode
	}
	if len(s.state.Categories) == 0 {
		s.state.Categories = DefaultCategories(s.clock())
		slog.InfoContext(ctx, "Seeded default categories",
			"count", len(s.state.Categories))
		return s.flushLocked(ctx)
	}
	return nil
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// flushLocked serializes state and writes it through the KV backend.
// Callers hold the mutex.
func (s *Store) flushLocked(ctx context.Context) error {
	blob, err := json.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := s.kv.Set(ctx, StorageKey, blob); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

func (s *Store) notifyStateChanged(ctx context.Context) {
	if err := s.events.PublishStateChanged(ctx); err != nil {
		slog.ErrorContext(ctx, "Failed to publish state change event", "error", err)
	}
}

// ExpenseInput carries the user-entered fields of an expense. Amount
// is denominated in Currency; the store converts it to base before
// persisting and keeps the original entry when it was foreign.
type ExpenseInput struct {
	Title      string
	Amount     core.Money
	Currency   string
	CategoryID string
	Date       time.Time
	Note       string
}

func (in ExpenseInput) build(id string, createdAt time.Time) core.Expense {
	e := core.Expense{
		ID:         id,
		Title:      strings.TrimSpace(in.Title),
		Amount:     currency.ToBase(in.Amount, in.Currency),
		CategoryID: in.CategoryID,
		Date:       core.DateOnly(in.Date),
		Note:       strings.TrimSpace(in.Note),
		CreatedAt:  createdAt,
	}
	if c := currency.Lookup(in.Currency); c.Code != currency.BaseCode {
		original := in.Amount
		e.OriginalAmount = &original
		e.OriginalCurrency = c.Code
	}
	return e
}

// AddExpense converts, validates and appends a manually entered
// expense.
func (s *Store) AddExpense(ctx context.Context, in ExpenseInput) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := in.build(uuid.NewString(), s.clock())
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	s.state.Expenses = append([]core.Expense{e}, s.state.Expenses...)
	if err := s.flushLocked(ctx); err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense added",
		applog.FieldExpenseID, e.ID,
		applog.FieldAmountCents, e.Amount.Cents,
		applog.FieldCategoryID, e.CategoryID)
	if err := s.events.PublishExpenseCreated(ctx, e.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event", "error", err, applog.FieldExpenseID, e.ID)
	}
	return e, nil
}

// UpdateExpense replaces the user-entered fields of an existing
// expense, re-running currency conversion. CreatedAt and the
// generator back-reference are preserved.
func (s *Store) UpdateExpense(ctx context.Context, id string, in ExpenseInput) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.state.Expenses {
		if existing.ID != id {
			continue
		}
		e := in.build(id, existing.CreatedAt)
		e.RecurringID = existing.RecurringID
		if err := e.Validate(); err != nil {
			return core.Expense{}, err
		}
		s.state.Expenses[i] = e
		if err := s.flushLocked(ctx); err != nil {
			return core.Expense{}, err
		}
		s.notifyStateChanged(ctx)
		return e, nil
	}
	return core.Expense{}, ErrNotFound
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.state.Expenses {
		if e.ID == id {
			s.state.Expenses = append(s.state.Expenses[:i], s.state.Expenses[i+1:]...)
			if err := s.flushLocked(ctx); err != nil {
				return err
			}
			s.notifyStateChanged(ctx)
			return nil
		}
	}
	return ErrNotFound
}

func (s *Store) Expense(id string) (core.Expense, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.state.Expenses {
		if e.ID == id {
			return e, true
		}
	}
	return core.Expense{}, false
}

func (s *Store) ExpensesByCategory(categoryID string) []core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.state.Expenses {
		if e.CategoryID == categoryID {
			out = append(out, e)
		}
	}
	return out
}

// CategoryInput carries the editable fields of a category.
type CategoryInput struct {
	Name  string
	Icon  string
	Color string
}

func (s *Store) AddCategory(ctx context.Context, in CategoryInput) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return core.Category{}, errors.New("empty category name")
	}

	c := core.Category{
		ID:        "cat_" + uuid.NewString(),
		Name:      name,
		Icon:      in.Icon,
		Color:     in.Color,
		IsDefault: false,
		CreatedAt: s.clock(),
	}
	s.state.Categories = append(s.state.Categories, c)
	if err := s.flushLocked(ctx); err != nil {
		return core.Category{}, err
	}
	s.notifyStateChanged(ctx)
	return c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id string, in CategoryInput) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.state.Categories {
		if c.ID != id {
			continue
		}
		if c.IsDefault {
			return core.Category{}, ErrDefaultCategory
		}
		if name := strings.TrimSpace(in.Name); name != "" {
			c.Name = name
		}
		if in.Icon != "" {
			c.Icon = in.Icon
		}
		if in.Color != "" {
			c.Color = in.Color
		}
		s.state.Categories[i] = c
		if err := s.flushLocked(ctx); err != nil {
			return core.Category{}, err
		}
		s.notifyStateChanged(ctx)
		return c, nil
	}
	return core.Category{}, ErrNotFound
}

// DeleteCategory removes a non-default category. Its expenses are
// either deleted along with it or reassigned to the Other category.
func (s *Store) DeleteCategory(ctx context.Context, id string, deleteExpenses bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, c := range s.state.Categories {
		if c.ID == id {
			if c.IsDefault {
				return ErrDefaultCategory
			}
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}

	if deleteExpenses {
		kept := s.state.Expenses[:0]
		for _, e := range s.state.Expenses {
			if e.CategoryID != id {
				kept = append(kept, e)
			}
		}
		s.state.Expenses = kept
	} else {
		for i, e := range s.state.Expenses {
			if e.CategoryID == id {
				s.state.Expenses[i].CategoryID = OtherCategoryID
			}
		}
	}
	s.state.Categories = append(s.state.Categories[:idx], s.state.Categories[idx+1:]...)

	if err := s.flushLocked(ctx); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Category deleted",
		applog.FieldCategoryID, id,
		"expenses_deleted", deleteExpenses)
	s.notifyStateChanged(ctx)
	return nil
}

func (s *Store) Categories() []core.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, len(s.state.Categories))
	copy(out, s.state.Categories)
	return out
}

func (s *Store) Category(id string) (core.Category, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.state.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return core.Category{}, false
}

// RecurringInput carries the editable fields of a recurrence rule.
// Amount is denominated in Currency and converted to base, like
// expense entry.
type RecurringInput struct {
	Title      string
	Amount     core.Money
	Currency   string
	CategoryID string
	Note       string
	Recurrence core.RecurrenceType
	StartDate  time.Time
	EndDate    time.Time
	IsActive   bool
}

func (in RecurringInput) build(id string, createdAt time.Time) core.RecurringExpense {
	re := core.RecurringExpense{
		ID:         id,
		Title:      strings.TrimSpace(in.Title),
		Amount:     currency.ToBase(in.Amount, in.Currency),
		CategoryID: in.CategoryID,
		Note:       strings.TrimSpace(in.Note),
		Recurrence: in.Recurrence,
		StartDate:  core.DateOnly(in.StartDate),
		IsActive:   in.IsActive,
		CreatedAt:  createdAt,
	}
	if !in.EndDate.IsZero() {
		re.EndDate = core.DateOnly(in.EndDate)
	}
	return re
}

func (s *Store) AddRecurring(ctx context.Context, in RecurringInput) (core.RecurringExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	re := in.build("rec_"+uuid.NewString(), s.clock())
	if err := re.Validate(); err != nil {
		return core.RecurringExpense{}, err
	}
	s.state.RecurringExpenses = append(s.state.RecurringExpenses, re)
	if err := s.flushLocked(ctx); err != nil {
		return core.RecurringExpense{}, err
	}
	s.notifyStateChanged(ctx)
	return re, nil
}

// UpdateRecurring replaces a rule's editable fields. The watermark is
// owned by the generator and survives edits, except that lowering it
// below a moved start date is left to the clamp in the evaluator.
func (s *Store) UpdateRecurring(ctx context.Context, id string, in RecurringInput) (core.RecurringExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.state.RecurringExpenses {
		if existing.ID != id {
			continue
		}
		re := in.build(id, existing.CreatedAt)
		re.LastGenerated = existing.LastGenerated
		if err := re.Validate(); err != nil {
			return core.RecurringExpense{}, err
		}
		s.state.RecurringExpenses[i] = re
		if err := s.flushLocked(ctx); err != nil {
			return core.RecurringExpense{}, err
		}
		s.notifyStateChanged(ctx)
		return re, nil
	}
	return core.RecurringExpense{}, ErrNotFound
}

func (s *Store) DeleteRecurring(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, re := range s.state.RecurringExpenses {
		if re.ID == id {
			s.state.RecurringExpenses = append(s.state.RecurringExpenses[:i], s.state.RecurringExpenses[i+1:]...)
			if err := s.flushLocked(ctx); err != nil {
				return err
			}
			s.notifyStateChanged(ctx)
			return nil
		}
	}
	return ErrNotFound
}

// ToggleRecurring flips a rule's active flag.
func (s *Store) ToggleRecurring(ctx context.Context, id string) (core.RecurringExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, re := range s.state.RecurringExpenses {
		if re.ID == id {
			re.IsActive = !re.IsActive
			s.state.RecurringExpenses[i] = re
			if err := s.flushLocked(ctx); err != nil {
				return core.RecurringExpense{}, err
			}
			s.notifyStateChanged(ctx)
			return re, nil
		}
	}
	return core.RecurringExpense{}, ErrNotFound
}

func (s *Store) RecurringExpenses() []core.RecurringExpense {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.RecurringExpense, len(s.state.RecurringExpenses))
	copy(out, s.state.RecurringExpenses)
	return out
}

func (s *Store) DisplayCurrency() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DisplayCurrency
}

// SetDisplayCurrency stores the preferred display currency. Unknown
// codes normalize to the base currency through the table fallback.
func (s *Store) SetDisplayCurrency(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.DisplayCurrency = currency.Lookup(code).Code
	if err := s.flushLocked(ctx); err != nil {
		return err
	}
	s.notifyStateChanged(ctx)
	return nil
}

// CommitGenerated applies a generator run in one mutation: appends the
// materialized expenses, advances rule watermarks, and flushes once.
// Watermarks only move forward, and an occurrence whose date is not
// past its rule's current watermark is dropped — a run that computed
// against a watermark another run has since advanced commits nothing
// instead of appending duplicates. Returns how many expenses were
// actually appended.
func (s *Store) CommitGenerated(ctx context.Context, generated []core.Expense, watermarks map[string]time.Time) (int, error) {
	if len(generated) == 0 && len(watermarks) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	marks := make(map[string]time.Time, len(s.state.RecurringExpenses))
	for _, re := range s.state.RecurringExpenses {
		marks[re.ID] = re.LastGenerated
	}

	var fresh []core.Expense
	for _, e := range generated {
		mark, ok := marks[e.RecurringID]
		if !ok {
			// Rule deleted between the read and this commit.
			continue
		}
		if !e.Date.After(mark) {
			slog.DebugContext(ctx, "Dropping already-materialized occurrence",
				applog.FieldRecurringID, e.RecurringID,
				applog.FieldOccurrence, e.Date.Format("2006-01-02"))
			continue
		}
		fresh = append(fresh, e)
	}

	changed := false
	if len(fresh) > 0 {
		s.state.Expenses = append(fresh, s.state.Expenses...)
		changed = true
	}
	for i, re := range s.state.RecurringExpenses {
		if mark, ok := watermarks[re.ID]; ok && mark.After(re.LastGenerated) {
			s.state.RecurringExpenses[i].LastGenerated = mark
			changed = true
		}
	}
	if !changed {
		return 0, nil
	}
	if err := s.flushLocked(ctx); err != nil {
		return 0, err
	}

	for _, e := range fresh {
		if err := s.events.PublishExpenseCreated(ctx, e.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish expense event", "error", err, applog.FieldExpenseID, e.ID)
		}
	}
	return len(fresh), nil
}

// Replace swaps in a whole new state, used by backup import. The
// caller validates the backup beforehand; replacement is all or
// nothing.
func (s *Store) Replace(ctx context.Context, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.DisplayCurrency == "" {
		st.DisplayCurrency = currency.BaseCode
	}
	if len(st.Categories) == 0 {
		st.Categories = DefaultCategories(s.clock())
	}
	s.state = st.Clone()
	if err := s.flushLocked(ctx); err != nil {
		return err
	}
	s.notifyStateChanged(ctx)
	return nil
}
