package http

import (
	"net/http"

	"duit/internal/core"
	"duit/internal/store"
)

// recurringRequest is the JSON body of rule create/update. Dates are
// YYYY-MM-DD; endDate may be empty for an open-ended rule.
type recurringRequest struct {
	Title      string `json:"title"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	CategoryID string `json:"categoryId"`
	Note       string `json:"note"`
	Recurrence string `json:"recurrence"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	IsActive   bool   `json:"isActive"`
}

func (req recurringRequest) toInput(w http.ResponseWriter) (store.RecurringInput, bool) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount: "+err.Error())
		return store.RecurringInput{}, false
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid start date, want YYYY-MM-DD")
		return store.RecurringInput{}, false
	}
	in := store.RecurringInput{
		Title:      sanitizeInput(req.Title),
		Amount:     core.Money{Cents: cents},
		Currency:   req.Currency,
		CategoryID: sanitizeInput(req.CategoryID),
		Note:       sanitizeInput(req.Note),
		Recurrence: core.RecurrenceType(req.Recurrence),
		StartDate:  start,
		IsActive:   req.IsActive,
	}
	if req.EndDate != "" {
		end, err := parseDate(req.EndDate)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid end date, want YYYY-MM-DD")
			return store.RecurringInput{}, false
		}
		in.EndDate = end
	}
	return in, true
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	rules := s.store.RecurringExpenses()
	if rules == nil {
		rules = []core.RecurringExpense{}
	}
	writeJSON(w, http.StatusOK, rules)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, ok := req.toInput(w)
	if !ok {
		return
	}
	re, err := s.store.AddRecurring(r.Context(), in)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, re)
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, ok := req.toInput(w)
	if !ok {
		return
	}
	re, err := s.store.UpdateRecurring(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, re)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRecurring(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleRecurring(w http.ResponseWriter, r *http.Request) {
	re, err := s.store.ToggleRecurring(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, re)
}
