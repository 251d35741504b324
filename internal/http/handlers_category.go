package http

import (
	"net/http"
	"strings"

	"duit/internal/store"
)

type categoryRequest struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

func (req categoryRequest) toInput() store.CategoryInput {
	return store.CategoryInput{
		Name:  sanitizeInput(req.Name),
		Icon:  sanitizeInput(req.Icon),
		Color: sanitizeInput(req.Color),
	}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Categories())
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := s.store.AddCategory(r.Context(), req.toInput())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := s.store.UpdateCategory(r.Context(), r.PathValue("id"), req.toInput())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	// Cached summary rows carry the category name, so a rename must
	// evict them.
	s.invalidateSummaries()
	writeJSON(w, http.StatusOK, c)
}

// handleDeleteCategory deletes a non-default category. The
// deleteExpenses query flag decides whether its expenses are deleted
// too or reassigned to the Other category (the default).
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	deleteExpenses := strings.EqualFold(r.URL.Query().Get("deleteExpenses"), "true")
	if err := s.store.DeleteCategory(r.Context(), r.PathValue("id"), deleteExpenses); err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidateSummaries()
	w.WriteHeader(http.StatusNoContent)
}
