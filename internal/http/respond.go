package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
	// ActiveMonth names the month blocking a lifecycle operation.
	ActiveMonth string `json:"active_month,omitempty"`
	// UnknownCategories lists the ids an allocation batch referenced but the
	// user does not own.
	UnknownCategories []int64 `json:"unknown_categories,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps domain errors onto HTTP statuses. Anything
// unrecognized is a 500 with a generic body; the real error goes to the log.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		activeErr  *services.ActiveMonthError
		existsErr  *services.MonthExistsError
		unknownErr *services.UnknownCategoriesError
		dupErr     *services.DuplicateCategoryError
	)

	switch {
	case errors.As(err, &activeErr):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:       activeErr.Error(),
			ActiveMonth: string(activeErr.Active),
		})
	case errors.As(err, &existsErr):
		writeError(w, http.StatusConflict, existsErr.Error())
	case errors.Is(err, storage.ErrDuplicate):
		writeError(w, http.StatusConflict, "already exists")
	case errors.As(err, &unknownErr):
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error:             unknownErr.Error(),
			UnknownCategories: unknownErr.IDs,
		})
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, services.ErrMonthNotFound),
		errors.Is(err, services.ErrNoActiveMonth):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &dupErr),
		errors.Is(err, core.ErrMalformedMonth),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrAmountTooPrecise),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrNameTooLong),
		errors.Is(err, core.ErrInvalidEmail),
		errors.Is(err, services.ErrNoAllocations),
		errors.Is(err, services.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "request failed",
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
