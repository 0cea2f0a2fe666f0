package shared

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	traced := SetTraceID(ctx)
	id := GetTraceID(traced)
	assert.Len(t, id, 32)
	_, err := hex.DecodeString(id)
	assert.NoError(t, err)

	assert.Empty(t, GetTraceID(context.WithValue(ctx, TraceIDKey, 123)))
	assert.Len(t, generateFallbackTraceID(), 32)
}

func TestAccountContext(t *testing.T) {
	_, ok := AccountFromContext(context.Background())
	assert.False(t, ok)

	account := &domain.Account{ID: uuid.New(), Handle: "alice"}
	got, ok := AccountFromContext(WithAccount(context.Background(), account))
	require.True(t, ok)
	assert.Same(t, account, got)
}

func TestRespondWithError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req = req.WithContext(SetTraceID(req.Context()))
	rec := httptest.NewRecorder()

	RespondWithError(rec, req, http.StatusConflict, "InvalidState", "Task is not open")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Task is not open", body["error"])
	assert.Equal(t, "InvalidState", body["code"])
	assert.Equal(t, GetTraceID(req.Context()), body["trace_id"])
	assert.NotContains(t, body, "status")
}

func TestRespondWithErrorAndLogHidesDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", nil)
	rec := httptest.NewRecorder()

	RespondWithErrorAndLog(rec, req, http.StatusInternalServerError, "Internal",
		"An unexpected error occurred",
		errors.New("dial tcp postgres://admin:hunter22@db:5432 failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hunter22")
	assert.Contains(t, rec.Body.String(), "An unexpected error occurred")
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"title":"Fix roof"}`, false},
		{"empty", ``, true},
		{"unknown field", `{"title":"x","extra":1}`, true},
		{"trailing data", `{"title":"x"}{"title":"y"}`, true},
		{"malformed", `{"title":`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(httptest.NewRecorder(), req, &p)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Fix roof", p.Title)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	type req struct {
		Handle string `validate:"required,min=3"`
	}
	assert.NoError(t, ValidateRequest(req{Handle: "alice"}))
	assert.Error(t, ValidateRequest(req{Handle: "al"}))
}
