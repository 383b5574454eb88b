package middleware

import (
	"io"
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

func TestWithIdentity(t *testing.T) {
	t.Run("reads gateway headers", func(t *testing.T) {
		var got Identity
		handler := WithIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = GetIdentity(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderTenantID, "acme")
		req.Header.Set(HeaderUserID, "eng-1")
		req.Header.Set(HeaderUserName, "Dana")
		req.Header.Set(HeaderUserRole, "Engineer")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "acme", got.TenantID)
		assert.Equal(t, domain.Actor{UserID: "eng-1", UserName: "Dana", Role: domain.RoleEngineer}, got.Actor)
		assert.True(t, got.Actor.IsStaff())
	})

	t.Run("defaults", func(t *testing.T) {
		var got Identity
		handler := WithIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = GetIdentity(r.Context())
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, DefaultTenantID, got.TenantID)
		assert.Equal(t, AnonymousUserID, got.Actor.UserID)
		assert.False(t, got.Actor.IsStaff())
	})

	t.Run("outside the middleware", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		assert.Equal(t, DefaultTenantID, GetIdentity(req.Context()).TenantID)
		assert.Empty(t, GetTenantID(req.Context()))
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	handler.ServeHTTP(w, req)
	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.NotEqual(t, "req-42", seen)
	assert.Equal(t, seen, w.Header().Get(HeaderRequestID))
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := logger.FromZap(zap.New(core))

	handler := RequestID(WithIdentity(AccessLog(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderTenantID, "acme")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "/health", first["path"])
	assert.Equal(t, int64(200), first["status"])
	assert.Equal(t, int64(2), first["bytes"])
	assert.Equal(t, "acme", first["tenant_id"])
	assert.NotEmpty(t, first["request_id"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, int64(404), entries[1].ContextMap()["status"])
}

func TestAccessLogRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	handler := RequestID(AccessLog(logger.FromZap(zap.New(core)))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("loading ticket")
		w.WriteHeader(http.StatusNoContent)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/tickets/t-1", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("loading ticket").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-42", entries[0].ContextMap()["request_id"])
	assert.Equal(t, "http", entries[0].ContextMap()["component"])
}

func TestMaxBodyBytes(t *testing.T) {
	handler := MaxBodyBytes(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("far too large")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "request body too large")
}

func TestHTTPStatusToSpanStatus(t *testing.T) {
	assert.Equal(t, sentry.SpanStatusOK, httpStatusToSpanStatus(http.StatusCreated))
	assert.Equal(t, sentry.SpanStatusNotFound, httpStatusToSpanStatus(http.StatusNotFound))
	assert.Equal(t, sentry.SpanStatusUnavailable, httpStatusToSpanStatus(http.StatusBadGateway))
	assert.Equal(t, sentry.SpanStatusInternalError, httpStatusToSpanStatus(http.StatusInternalServerError))
}
