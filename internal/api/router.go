package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	apiMiddleware "github.com/phrazzld/questboard-api/internal/api/middleware"
	"github.com/phrazzld/questboard-api/internal/service"
)

// RouterDeps collects what NewRouter needs to build the HTTP surface.
type RouterDeps struct {
	Accounts service.AccountService
	Tasks    service.TaskService
	Messages service.MessageService
	Guard    apiMiddleware.Authenticator
	Chat     ConversationServer
	Stats    ConnectionStats

	// Requests and MetricsHandler are optional.
	Requests       apiMiddleware.RequestObserver
	MetricsHandler http.Handler

	Logger *slog.Logger
}

// NewRouter creates the application router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(deps.Logger))
	if deps.Requests != nil {
		r.Use(apiMiddleware.Metrics(deps.Requests))
	}

	authHandler := NewAuthHandler(deps.Accounts, deps.Logger)
	taskHandler := NewTaskHandler(deps.Tasks)
	chatHandler := NewChatHandler(deps.Messages, deps.Accounts, deps.Chat)
	authMiddleware := apiMiddleware.NewAuthMiddleware(deps.Guard)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		r.Get("/accounts/{id}", authHandler.Profile)
		r.Get("/tasks", taskHandler.List)
		r.Get("/tasks/{id}", taskHandler.Get)
		r.Get("/users/{id}/tasks", taskHandler.ListByAccount)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/auth/me", authHandler.Me)
			r.Get("/auth/me/ledger", authHandler.Ledger)

			r.Post("/tasks", taskHandler.Create)
			r.Post("/tasks/{id}/claim", taskHandler.Claim)
			r.Post("/tasks/{id}/complete", taskHandler.Complete)
			r.Post("/tasks/{id}/cancel", taskHandler.Cancel)

			r.Get("/tasks/{id}/messages", chatHandler.History)
			r.Post("/tasks/{id}/messages", chatHandler.Send)
		})
	})

	// The token travels in the query string; the engine authenticates after upgrade.
	r.Get("/ws/tasks/{id}", chatHandler.Connect)

	r.Get("/health", HealthHandler(deps.Stats))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	return r
}
