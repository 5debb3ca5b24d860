package routes

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/templui/filesmanager/internal/app"
	"github.com/templui/filesmanager/internal/handler"
	"github.com/templui/filesmanager/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	status := handler.NewStatusHandler(app.StatusService)
	users := handler.NewUserHandler(app.UserService)
	auth := handler.NewAuthHandler(app.AuthService)
	files := handler.NewFileHandler(app.FileService, app.Cfg.MaxUploadBytes)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	// Health
	mux.HandleFunc("GET /status", status.Status)
	mux.HandleFunc("GET /stats", status.Stats)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Accounts
	mux.HandleFunc("POST /users", users.Register)

	// Auth (rate limited)
	rateLimiter := middleware.RateLimitAuth(10, 15*time.Minute, app.Cfg.TrustProxy)
	mux.HandleFunc("GET /connect", rateLimiter(auth.Connect))

	// Content is readable anonymously when the record is public
	mux.HandleFunc("GET /files/{id}/data", files.Data)

	// ============================================================================
	// PROTECTED ROUTES
	// ============================================================================

	mux.HandleFunc("GET /disconnect", middleware.RequireAuth(auth.Disconnect))
	mux.HandleFunc("GET /users/me", middleware.RequireAuth(users.Me))

	// Files
	mux.HandleFunc("POST /files", middleware.RequireAuth(files.Upload))
	mux.HandleFunc("GET /files", middleware.RequireAuth(files.List))
	mux.HandleFunc("GET /files/{id}", middleware.RequireAuth(files.Show))
	mux.HandleFunc("PUT /files/{id}/publish", middleware.RequireAuth(files.Publish))
	mux.HandleFunc("PUT /files/{id}/unpublish", middleware.RequireAuth(files.Unpublish))

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.WithRequestID,
		middleware.RequestLogging,
		middleware.Session(app.AuthService),
		middleware.Metrics, // last, so r.Pattern is set by the mux when it reads it
	)

	return handler
}
