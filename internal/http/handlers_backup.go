package http

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"duit/internal/backup"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	b := backup.Export(s.Snapshot(), s.clock())
	raw, err := backup.Marshal(b)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	filename := fmt.Sprintf("duit-backup-%s.json", s.clock().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	snap := s.Snapshot()

	filename := fmt.Sprintf("duit-expenses-%s.csv", s.clock().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if err := backup.WriteCSV(w, snap.Expenses, snap.Categories); err != nil {
		slog.ErrorContext(r.Context(), "CSV export failed", "error", err)
	}
}

// handleImport validates an uploaded backup and replaces the whole
// dataset with it. Validation failure leaves current data untouched.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 16<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	b, err := backup.Parse(raw)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.Replace(r.Context(), b.State()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.invalidateSummaries()

	slog.InfoContext(r.Context(), "Backup imported",
		"expenses", len(b.Data.Expenses),
		"categories", len(b.Data.Categories),
		"recurring", len(b.Data.RecurringExpenses))
	writeJSON(w, http.StatusOK, map[string]any{
		"imported": true,
		"expenses": len(b.Data.Expenses),
	})
}
