// Package services orchestrates the recurring-expense generator over
// the store.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"duit/internal/core"
	applog "duit/internal/log"
	"duit/internal/store"
)

// Generator materializes due occurrences of active recurrence rules
// into concrete expenses, exactly once each. It runs at startup, on a
// ticker, and before expense-list reads.
type Generator struct {
	store *store.Store
}

func NewGenerator(st *store.Store) *Generator {
	if st == nil {
		panic("services: nil store")
	}
	return &Generator{store: st}
}

// Run walks every active rule, catches up all occurrences due at now,
// and commits the new expenses together with the advanced watermarks
// in a single store mutation. Returns the number of expenses created.
//
// Running twice with the same now is a no-op the second time: the
// committed watermarks make every candidate fall after now. Two
// overlapping runs are also safe — the commit drops occurrences whose
// date the rule's watermark already covers, so whichever run commits
// second appends nothing it would duplicate.
func (g *Generator) Run(ctx context.Context, now time.Time) (int, error) {
	rules := g.store.RecurringExpenses()

	var generated []core.Expense
	watermarks := make(map[string]time.Time)

	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		if !rule.Recurrence.Generates() {
			// A "none" rule left active is malformed persisted data;
			// it produces nothing rather than failing the run.
			slog.DebugContext(ctx, "Skipping non-generating rule",
				applog.FieldRecurringID, rule.ID,
				applog.FieldRecurrence, string(rule.Recurrence))
			continue
		}

		occurrences := dueOccurrences(rule, now)
		for _, date := range occurrences {
			generated = append(generated, materialize(rule, date, now))
		}
		if n := len(occurrences); n > 0 {
			watermarks[rule.ID] = occurrences[n-1]
			slog.InfoContext(ctx, "Materialized recurring occurrences",
				applog.FieldRecurringID, rule.ID,
				applog.FieldGenerated, n,
				applog.FieldOccurrence, occurrences[n-1].Format("2006-01-02"))
		}
	}

	count, err := g.store.CommitGenerated(ctx, generated, watermarks)
	if err != nil {
		return 0, fmt.Errorf("commit generated expenses: %w", err)
	}
	return count, nil
}

// dueOccurrences collects every occurrence of rule due at now, in
// order. The end date bound is inclusive: an occurrence falling
// exactly on EndDate still fires, later ones never do. Catch-up across
// an elapsed end date still yields the occurrences inside the rule's
// window.
func dueOccurrences(rule core.RecurringExpense, now time.Time) []time.Time {
	var due []time.Time
	last := rule.LastGenerated
	for {
		candidate, ok := core.NextOccurrence(rule.Recurrence, rule.StartDate, last)
		if !ok || candidate.After(now) {
			return due
		}
		if !rule.EndDate.IsZero() && candidate.After(rule.EndDate) {
			return due
		}
		due = append(due, candidate)
		last = candidate
	}
}

func materialize(rule core.RecurringExpense, date, now time.Time) core.Expense {
	return core.Expense{
		ID:          uuid.NewString(),
		Title:       rule.Title,
		Amount:      rule.Amount,
		CategoryID:  rule.CategoryID,
		Date:        date,
		Note:        rule.Note,
		CreatedAt:   now,
		RecurringID: rule.ID,
	}
}
