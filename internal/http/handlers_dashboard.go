package http

import (
	"net/http"

	"fintrack/internal/core"
)

// dashboardMonth resolves the month a dashboard view targets: the month
// query parameter when given, the active month otherwise. With neither the
// request fails with ErrNoActiveMonth.
func (s *Server) dashboardMonth(r *http.Request) (core.Month, error) {
	if raw := r.URL.Query().Get("month"); raw != "" {
		month := core.Month(raw)
		if err := month.Validate(); err != nil {
			return "", err
		}
		return month, nil
	}
	return s.budgets.ActiveMonth(r.Context(), userIDFrom(r))
}

func (s *Server) handleDashboardCategories(w http.ResponseWriter, r *http.Request) {
	month, err := s.dashboardMonth(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	rows, err := s.dashboards.CategoryRows(r.Context(), userIDFrom(r), month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if rows == nil {
		rows = []core.CategoryDashboardRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleDashboardTotal(w http.ResponseWriter, r *http.Request) {
	month, err := s.dashboardMonth(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	row, err := s.dashboards.TotalSpent(r.Context(), userIDFrom(r), month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	month, err := s.dashboardMonth(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	summary, err := s.dashboards.MonthlySummary(r.Context(), userIDFrom(r), month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
