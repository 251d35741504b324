package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"duit/internal/core"
	"duit/internal/currency"
)

type summaryRow struct {
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
	Cents      int64  `json:"cents"`
	Formatted  string `json:"formatted"`
}

type summaryComparison struct {
	CurrentCents  int64   `json:"currentCents"`
	PreviousCents int64   `json:"previousCents"`
	ChangePercent float64 `json:"changePercent"`
}

// summaryResponse is the month overview the dashboard renders: totals
// and per-category breakdown in base cents, formatted in the display
// currency, plus the change against the previous month.
type summaryResponse struct {
	Year            int               `json:"year"`
	Month           int               `json:"month"`
	DisplayCurrency string            `json:"displayCurrency"`
	TotalCents      int64             `json:"totalCents"`
	TotalFormatted  string            `json:"totalFormatted"`
	ByCategory      []summaryRow      `json:"byCategory"`
	PreviousMonth   summaryComparison `json:"previousMonth"`
}

func summaryCacheKey(year, month int) string {
	return strconv.Itoa(year) + "-" + strconv.Itoa(month)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	year, month := s.parseYearMonth(r)
	key := summaryCacheKey(year, month)

	if resp, found := s.summaryCache.Get(key); found {
		slog.DebugContext(r.Context(), "Summary cache hit", "year", year, "month", month)
		writeJSON(w, http.StatusOK, resp)
		return
	}

	snap := s.Snapshot()
	display := snap.DisplayCurrency

	ov := core.MonthOverview(snap.Expenses, year, month)

	prevYear, prevMonth := year, month-1
	if prevMonth == 0 {
		prevYear, prevMonth = year-1, 12
	}
	prev := core.MonthOverview(snap.Expenses, prevYear, prevMonth)
	cmp := core.ComparePeriods(ov.Total, prev.Total)

	names := make(map[string]string, len(snap.Categories))
	for _, c := range snap.Categories {
		names[c.ID] = c.Name
	}

	resp := summaryResponse{
		Year:            year,
		Month:           month,
		DisplayCurrency: display,
		TotalCents:      ov.Total.Cents,
		TotalFormatted:  currency.FormatInDisplayCurrency(ov.Total, display),
		ByCategory:      make([]summaryRow, 0, len(ov.ByCategory)),
		PreviousMonth: summaryComparison{
			CurrentCents:  cmp.Current.Cents,
			PreviousCents: cmp.Previous.Cents,
			ChangePercent: cmp.ChangePercent,
		},
	}
	for _, row := range ov.ByCategory {
		name := row.CategoryID
		if n, ok := names[row.CategoryID]; ok {
			name = n
		}
		resp.ByCategory = append(resp.ByCategory, summaryRow{
			CategoryID: row.CategoryID,
			Name:       name,
			Cents:      row.Amount.Cents,
			Formatted:  currency.FormatInDisplayCurrency(row.Amount, display),
		})
	}

	s.summaryCache.Set(key, resp)
	slog.DebugContext(r.Context(), "Summary cached",
		"year", year, "month", month,
		"total_cents", resp.TotalCents,
		"categories", len(resp.ByCategory))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListCurrencies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currency.Currencies)
}

func (s *Server) handleGetDisplayCurrency(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"displayCurrency": s.store.DisplayCurrency()})
}

func (s *Server) handleSetDisplayCurrency(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayCurrency string `json:"displayCurrency"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.store.SetDisplayCurrency(r.Context(), req.DisplayCurrency); err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidateSummaries()
	writeJSON(w, http.StatusOK, map[string]string{"displayCurrency": s.store.DisplayCurrency()})
}
