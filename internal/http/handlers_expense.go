package http

import (
	"log/slog"
	"net/http"

	"duit/internal/core"
	"duit/internal/store"
)

// expenseRequest is the JSON body of expense create/update. Amount is
// a decimal string in the entry currency ("12.50", comma separator
// accepted).
type expenseRequest struct {
	Title      string `json:"title"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	CategoryID string `json:"categoryId"`
	Date       string `json:"date"`
	Note       string `json:"note"`
}

func (req expenseRequest) toInput(w http.ResponseWriter) (store.ExpenseInput, bool) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount: "+err.Error())
		return store.ExpenseInput{}, false
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date, want YYYY-MM-DD")
		return store.ExpenseInput{}, false
	}
	return store.ExpenseInput{
		Title:      sanitizeInput(req.Title),
		Amount:     core.Money{Cents: cents},
		Currency:   req.Currency,
		CategoryID: sanitizeInput(req.CategoryID),
		Date:       date,
		Note:       sanitizeInput(req.Note),
	}, true
}

// handleListExpenses returns all expenses, newest first. A catch-up
// generator pass runs first so due recurring occurrences are always
// part of the listing.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	if s.generator != nil {
		if n, err := s.generator.Run(r.Context(), s.clock()); err != nil {
			slog.ErrorContext(r.Context(), "Generator run before listing failed", "error", err)
		} else if n > 0 {
			s.invalidateSummaries()
		}
	}

	expenses := s.Snapshot().Expenses
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, ok := req.toInput(w)
	if !ok {
		return
	}

	e, err := s.store.AddExpense(r.Context(), in)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidateSummaries()
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, ok := req.toInput(w)
	if !ok {
		return
	}

	e, err := s.store.UpdateExpense(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidateSummaries()
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidateSummaries()
	w.WriteHeader(http.StatusNoContent)
}

// Snapshot is a small indirection for handlers and tests.
func (s *Server) Snapshot() store.State {
	return s.store.Snapshot()
}
