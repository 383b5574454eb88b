package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cloo-solutions/supporthub/internal/domain"
	"github.com/cloo-solutions/supporthub/internal/logger"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var result map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "value", result["key"])
}

func TestJSON_NilData(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	Success(w, http.StatusCreated, map[string]string{"id": "ticket-1"})

	assert.Equal(t, http.StatusCreated, w.Code)

	var result SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ticket-1", data["id"])
}

func TestDomainErrorToHTTP(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, http.StatusOK},
		{"validation", domain.NewValidationError("title is required"), http.StatusBadRequest},
		{"not found", domain.ErrTicketNotFound, http.StatusNotFound},
		{"conflict", domain.ErrTicketAlreadyConverted, http.StatusConflict},
		{"unauthorized", domain.NewDomainError(domain.ErrCodeUnauthorized, "no"), http.StatusUnauthorized},
		{"upstream", domain.ErrStorageOperationFail, http.StatusBadGateway},
		{"wrapped", fmt.Errorf("convert: %w", domain.ErrArticleArchived), http.StatusConflict},
		{"internal", domain.NewDomainError(domain.ErrCodeInternalError, "boom"), http.StatusInternalServerError},
		{"unknown code", domain.NewDomainError("UNKNOWN", "unknown"), http.StatusInternalServerError},
		{"plain error", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DomainErrorToHTTP(tt.err))
		})
	}
}

// errorRequest returns a request whose context carries an observed logger and
// a Sentry hub that records events instead of sending them.
func errorRequest(t *testing.T) (*http.Request, *observer.ObservedLogs, *[]*sentry.Event) {
	t.Helper()

	core, logs := observer.New(zapcore.InfoLevel)
	events := &[]*sentry.Event{}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn: "https://public@example.com/1",
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			*events = append(*events, event)
			return nil
		},
	})
	require.NoError(t, err)

	ctx := logger.NewContext(context.Background(), logger.FromZap(zap.New(core)))
	ctx = sentry.SetHubOnContext(ctx, sentry.NewHub(client, sentry.NewScope()))
	return httptest.NewRequest(http.MethodGet, "/api/tickets/t-1", nil).WithContext(ctx), logs, events
}

func TestHandleError(t *testing.T) {
	t.Run("domain message is returned", func(t *testing.T) {
		r, logs, events := errorRequest(t)
		w := httptest.NewRecorder()
		HandleError(w, r, domain.ErrTicketNotFound)

		assert.Equal(t, http.StatusNotFound, w.Code)
		var result ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Contains(t, result.Error, "ticket not found")
		assert.Zero(t, logs.Len())
		assert.Empty(t, *events)
	})

	t.Run("internal details are hidden but recorded", func(t *testing.T) {
		r, logs, events := errorRequest(t)
		w := httptest.NewRecorder()
		HandleError(w, r, fmt.Errorf("pq: password authentication failed"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "password")

		entries := logs.FilterMessage("request failed").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Equal(t, "pq: password authentication failed", entries[0].ContextMap()["error"])
		assert.Equal(t, "/api/tickets/t-1", entries[0].ContextMap()["path"])

		require.Len(t, *events, 1)
		require.NotEmpty(t, (*events)[0].Exception)
		assert.Equal(t, "pq: password authentication failed", (*events)[0].Exception[0].Value)
	})

	t.Run("upstream failures are recorded", func(t *testing.T) {
		r, logs, events := errorRequest(t)
		w := httptest.NewRecorder()
		HandleError(w, r, domain.NewDomainError(domain.ErrCodeUpstreamFailure, "storage unavailable"))

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "storage unavailable")
		assert.Equal(t, 1, logs.Len())
		assert.Len(t, *events, 1)
	})

	t.Run("without a request logger", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("boom"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Title string `json:"title"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"Feeder jam"}`))
	require.NoError(t, DecodeJSON(req, &v))
	assert.Equal(t, "Feeder jam", v.Title)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"titel":"typo"}`))
	assert.True(t, domain.IsValidation(DecodeJSON(req, &v)))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not json`))
	assert.True(t, domain.IsValidation(DecodeJSON(req, &v)))
}

func TestDecodeOptionalJSON(t *testing.T) {
	var v struct {
		Note string `json:"note"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	require.NoError(t, DecodeOptionalJSON(req, &v))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	require.NoError(t, DecodeOptionalJSON(req, &v))
	assert.Empty(t, v.Note)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"note":"on site"}`))
	require.NoError(t, DecodeOptionalJSON(req, &v))
	assert.Equal(t, "on site", v.Note)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	assert.True(t, domain.IsValidation(DecodeOptionalJSON(req, &v)))
}
