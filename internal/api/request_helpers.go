package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/api/shared"
	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/store"
)

// accountFromRequest returns the account placed in the context by the
// authentication middleware, writing a 401 when it is absent.
func accountFromRequest(w http.ResponseWriter, r *http.Request) (*domain.Account, bool) {
	account, ok := shared.AccountFromContext(r.Context())
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthenticated, "")
		return nil, false
	}
	return account, true
}

// getPathUUID extracts a UUID from the URL path parameters.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}
	return id, nil
}

// parsePage reads offset and limit query parameters. Missing values fall
// back to the store defaults; out of range values are rejected.
func parsePage(r *http.Request) (store.Page, error) {
	q := r.URL.Query()
	page := store.Page{Limit: store.DefaultLimit}

	if raw := strings.TrimSpace(q.Get("offset")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return store.Page{}, domain.NewValidationError("offset", "must be a non-negative integer", nil)
		}
		page.Offset = n
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > store.MaxLimit {
			return store.Page{}, domain.NewValidationError("limit", "must be between 1 and 1000", nil)
		}
		page.Limit = n
	}
	return page, nil
}

// parseMoneyParam reads an optional decimal amount from the query string.
func parseMoneyParam(r *http.Request, name string) (*domain.Money, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	m, err := domain.ParseMoney(raw)
	if err != nil || m < 0 {
		return nil, domain.NewValidationError(name, "must be a non-negative amount", nil)
	}
	return &m, nil
}

// parseTaskFilter builds a store.TaskFilter from the query string.
func parseTaskFilter(r *http.Request) (store.TaskFilter, error) {
	var filter store.TaskFilter
	q := r.URL.Query()

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := domain.ParseTaskStatus(raw)
		if err != nil {
			return filter, err
		}
		filter.Status = status
	}
	filter.Category = strings.TrimSpace(q.Get("category"))

	var err error
	if filter.MinPrice, err = parseMoneyParam(r, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = parseMoneyParam(r, "max_price"); err != nil {
		return filter, err
	}
	if filter.Page, err = parsePage(r); err != nil {
		return filter, err
	}
	return filter, nil
}

// decodeAndValidate decodes the body into v and validates it.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := shared.DecodeJSON(w, r, v); err != nil {
		if err == shared.ErrEmptyBody {
			HandleAPIError(w, r, err, "")
			return false
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, CodeValidation, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		HandleAPIError(w, r, err, "")
		return false
	}
	return true
}
