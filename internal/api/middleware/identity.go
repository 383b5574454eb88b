package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloo-solutions/supporthub/internal/domain"
)

type contextKey string

const (
	identityKey contextKey = "identity"

	HeaderTenantID = "X-Tenant-Id"
	HeaderUserID   = "X-User-Id"
	HeaderUserName = "X-User-Name"
	HeaderUserRole = "X-User-Role"

	DefaultTenantID = "default"
	AnonymousUserID = "anonymous"
)

// Identity is the caller as asserted by the gateway in front of the API.
type Identity struct {
	TenantID string
	Actor    domain.Actor
}

// WithIdentity reads the gateway identity headers. Missing values fall back
// to the default tenant and an anonymous user.
func WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{
			TenantID: headerOr(r, HeaderTenantID, DefaultTenantID),
			Actor: domain.Actor{
				UserID:   headerOr(r, HeaderUserID, AnonymousUserID),
				UserName: strings.TrimSpace(r.Header.Get(HeaderUserName)),
				Role:     strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole))),
			},
		}
		ctx := context.WithValue(r.Context(), identityKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetIdentity returns the caller identity, or the anonymous default tenant
// identity when the middleware did not run.
func GetIdentity(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey).(Identity); ok {
		return id
	}
	return Identity{TenantID: DefaultTenantID, Actor: domain.Actor{UserID: AnonymousUserID}}
}

// GetTenantID returns the tenant of the request, or "" if unset.
func GetTenantID(ctx context.Context) string {
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok {
		return ""
	}
	return id.TenantID
}

func headerOr(r *http.Request, name, fallback string) string {
	if v := strings.TrimSpace(r.Header.Get(name)); v != "" {
		return v
	}
	return fallback
}
