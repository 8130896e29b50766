package http

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type createTransactionRequest struct {
	ExpenseID   int64       `json:"expense_id"`
	Amount      core.Amount `json:"amount"`
	Description string      `json:"description"`
	Date        string      `json:"transaction_date"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := s.transactions.Create(r.Context(), userIDFrom(r), core.Transaction{
		ExpenseID:   req.ExpenseID,
		Amount:      req.Amount,
		Description: req.Description,
		Date:        req.Date,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := transactionFilterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := s.transactions.List(r.Context(), userIDFrom(r), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tx, err := s.transactions.Get(r.Context(), userIDFrom(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch core.TransactionPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := s.transactions.Update(r.Context(), userIDFrom(r), id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.transactions.Delete(r.Context(), userIDFrom(r), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func transactionFilterFromQuery(r *http.Request) (storage.TransactionFilter, error) {
	var filter storage.TransactionFilter
	q := r.URL.Query()

	var err error
	if filter.ExpenseID, err = queryInt64(q.Get("expense_id")); err != nil {
		return filter, errBadQueryParam("expense_id")
	}
	if filter.CategoryID, err = queryInt64(q.Get("category_id")); err != nil {
		return filter, errBadQueryParam("category_id")
	}

	if from := q.Get("from"); from != "" {
		if err := core.ValidateDate(from); err != nil {
			return filter, errBadQueryParam("from")
		}
		filter.StartDate = from
	}
	if to := q.Get("to"); to != "" {
		if err := core.ValidateDate(to); err != nil {
			return filter, errBadQueryParam("to")
		}
		filter.EndDate = to
	}

	if raw := q.Get("min_amount"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, errBadQueryParam("min_amount")
		}
		filter.MinAmountCents = core.AmountToCents(amount)
	}
	if raw := q.Get("max_amount"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, errBadQueryParam("max_amount")
		}
		filter.MaxAmountCents = core.AmountToCents(amount)
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 500 {
			return filter, errBadQueryParam("limit")
		}
		filter.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return filter, errBadQueryParam("offset")
		}
		filter.Offset = offset
	}

	return filter, nil
}

func queryInt64(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

type badQueryParamError struct {
	name string
}

func (e badQueryParamError) Error() string {
	return "invalid query parameter: " + e.name
}

func errBadQueryParam(name string) error {
	return badQueryParamError{name: name}
}
