package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/supporthub/internal/api/handlers"
	"github.com/cloo-solutions/supporthub/internal/api/middleware"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestRouter(db Pinger) http.Handler {
	return NewRouter(RouterConfig{
		Database:       db,
		ArticleHandler: handlers.NewArticleHandler(nil),
		AssetHandler:   handlers.NewAssetHandler(nil),
		TicketHandler:  handlers.NewTicketHandler(nil, nil),
	})
}

func TestNewRouter_Routes(t *testing.T) {
	router, ok := newTestRouter(nil).(chi.Routes)
	require.True(t, ok)

	var got []string
	err := chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		got = append(got, method+" "+route)
		return nil
	})
	require.NoError(t, err)
	sort.Strings(got)

	want := []string{
		"DELETE /api/assets/{id}",
		"DELETE /api/knowledge/{id}",
		"GET /api/knowledge/search",
		"GET /api/knowledge/{id}",
		"GET /api/knowledge/{id}/assets",
		"GET /api/knowledge/{id}/chunks",
		"GET /api/tickets/",
		"GET /api/tickets/{id}",
		"GET /api/tickets/{id}/logs",
		"GET /health",
		"POST /api/knowledge/",
		"POST /api/knowledge/{id}/archive",
		"POST /api/knowledge/{id}/assets",
		"POST /api/knowledge/{id}/publish",
		"POST /api/knowledge/{id}/restore",
		"POST /api/tickets/",
		"POST /api/tickets/{id}/close",
		"POST /api/tickets/{id}/convert-to-kb",
		"POST /api/tickets/{id}/logs",
		"POST /api/tickets/{id}/reassign",
		"POST /api/tickets/{id}/resolve",
		"POST /api/tickets/{id}/start",
		"PUT /api/knowledge/{id}",
		"PUT /api/tickets/{id}",
	}
	assert.Equal(t, want, got)
}

func TestNewRouter_Health(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		w := httptest.NewRecorder()
		newTestRouter(stubPinger{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))

		var body struct {
			Data map[string]string `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "ok", body.Data["status"])
	})

	t.Run("database down", func(t *testing.T) {
		w := httptest.NewRecorder()
		newTestRouter(stubPinger{err: errors.New("connection refused")}).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "degraded")
	})
}

func TestNewRouter_Fallbacks(t *testing.T) {
	router := newTestRouter(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"route not found"}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/api/tickets/ticket-1", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
