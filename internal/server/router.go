package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/supporthub/internal/api"
	"github.com/cloo-solutions/supporthub/internal/api/handlers"
	"github.com/cloo-solutions/supporthub/internal/api/middleware"
	"github.com/cloo-solutions/supporthub/internal/logger"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Logger         *logger.Logger
	Database       Pinger
	ArticleHandler *handlers.ArticleHandler
	AssetHandler   *handlers.AssetHandler
	TicketHandler  *handlers.TicketHandler
	MaxBodyBytes   int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBody := cfg.MaxBodyBytes
	if maxBody == 0 {
		maxBody = middleware.DefaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.WithIdentity)
	r.Use(middleware.Sentry)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(middleware.MaxBodyBytes(maxBody))

	r.Get("/health", healthHandler(cfg.Database))

	r.Route("/api", func(r chi.Router) {
		r.Route("/knowledge", func(r chi.Router) {
			r.Post("/", cfg.ArticleHandler.Create)
			r.Get("/search", cfg.ArticleHandler.Search)
			r.Get("/{id}", cfg.ArticleHandler.Get)
			r.Put("/{id}", cfg.ArticleHandler.Update)
			r.Delete("/{id}", cfg.ArticleHandler.Delete)
			r.Post("/{id}/restore", cfg.ArticleHandler.Restore)
			r.Post("/{id}/publish", cfg.ArticleHandler.Publish)
			r.Post("/{id}/archive", cfg.ArticleHandler.Archive)
			r.Get("/{id}/chunks", cfg.ArticleHandler.ListChunks)
			r.Post("/{id}/assets", cfg.AssetHandler.InitUpload)
			r.Get("/{id}/assets", cfg.AssetHandler.List)
		})

		r.Delete("/assets/{id}", cfg.AssetHandler.Delete)

		r.Route("/tickets", func(r chi.Router) {
			r.Post("/", cfg.TicketHandler.Create)
			r.Get("/", cfg.TicketHandler.List)
			r.Get("/{id}", cfg.TicketHandler.Get)
			r.Put("/{id}", cfg.TicketHandler.Update)
			r.Post("/{id}/start", cfg.TicketHandler.Start)
			r.Post("/{id}/resolve", cfg.TicketHandler.Resolve)
			r.Post("/{id}/close", cfg.TicketHandler.Close)
			r.Post("/{id}/reassign", cfg.TicketHandler.Reassign)
			r.Post("/{id}/convert-to-kb", cfg.TicketHandler.ConvertToKb)
			r.Post("/{id}/logs", cfg.TicketHandler.Comment)
			r.Get("/{id}/logs", cfg.TicketHandler.Logs)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.Error(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				api.Success(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
				return
			}
		}
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
