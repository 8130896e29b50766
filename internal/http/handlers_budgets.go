package http

import (
	"net/http"
	"strconv"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

// pathMonth parses the {month} path segment. The services validate the month
// again; this only rejects the obviously empty case early.
func pathMonth(r *http.Request) core.Month {
	return core.Month(r.PathValue("month"))
}

type activeMonthResponse struct {
	Month core.Month `json:"month"`
}

func (s *Server) handleActiveMonth(w http.ResponseWriter, r *http.Request) {
	month, err := s.budgets.ActiveMonth(r.Context(), userIDFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activeMonthResponse{Month: month})
}

func (s *Server) handleOpenMonth(w http.ResponseWriter, r *http.Request) {
	summary, err := s.budgets.OpenMonth(r.Context(), userIDFrom(r), pathMonth(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

func (s *Server) handleReopenMonth(w http.ResponseWriter, r *http.Request) {
	summary, err := s.budgets.ReopenMonth(r.Context(), userIDFrom(r), pathMonth(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCloseMonth(w http.ResponseWriter, r *http.Request) {
	closed, err := s.budgets.CloseActiveMonth(r.Context(), userIDFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activeMonthResponse{Month: closed})
}

type allocateRequest struct {
	Allocations []services.Allocation `json:"allocations"`
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	summary, err := s.budgets.Allocate(r.Context(), userIDFrom(r), pathMonth(r), req.Allocations)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.budgets.MonthSummary(r.Context(), userIDFrom(r), pathMonth(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var in services.BudgetInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	budget, err := s.budgets.CreateBudget(r.Context(), userIDFrom(r), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, budget)
}

type deleteMonthResponse struct {
	Deleted int64 `json:"deleted"`
}

func (s *Server) handleDeleteMonth(w http.ResponseWriter, r *http.Request) {
	n, err := s.budgets.DeleteMonth(r.Context(), userIDFrom(r), pathMonth(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteMonthResponse{Deleted: n})
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	budget, err := s.budgets.GetBudget(r.Context(), userIDFrom(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budget)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch core.BudgetPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	budget, err := s.budgets.UpdateBudget(r.Context(), userIDFrom(r), id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budget)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.budgets.DeleteBudget(r.Context(), userIDFrom(r), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBudgetHistory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 120 {
			writeError(w, http.StatusBadRequest, "invalid query parameter: limit")
			return
		}
		limit = n
	}

	history, err := s.budgets.BudgetHistory(r.Context(), userIDFrom(r), categoryID, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if history == nil {
		history = []core.CategoryBudget{}
	}
	writeJSON(w, http.StatusOK, history)
}
