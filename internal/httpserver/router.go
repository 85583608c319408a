package httpserver

import (
	"io"
	"net/http"

	"log/slog"

	"ira/internal/apierr"
	"ira/internal/auth"
	"ira/internal/chat"
	"ira/internal/incidents"
)

type Deps struct {
	Logger      *slog.Logger
	Auth        *auth.Service
	Chat        *chat.Service
	Incidents   incidents.Store
	Metrics     *Metrics
	CORSOrigins []string
}

func NewRouter(d Deps) http.Handler {
	if d.Metrics == nil {
		d.Metrics = NewMetrics()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "IRA API running")
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		apierr.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", d.Metrics.Handler())

	// Auth
	mux.Handle("POST /api/auth/register", &auth.RegisterHandler{Service: d.Auth, Logger: d.Logger})
	mux.Handle("POST /api/auth/login", &auth.LoginHandler{Service: d.Auth, Logger: d.Logger})

	secured := auth.JWTMiddleware(d.Auth, d.Logger)

	// Chat
	mux.Handle("POST /api/chat", secured(&chat.SendHandler{Service: d.Chat, Logger: d.Logger}))
	mux.Handle("GET /api/chat/history/{session}", secured(&chat.HistoryHandler{Service: d.Chat, Logger: d.Logger}))

	// Incidents
	listHandler := secured(&incidents.ListHandler{Store: d.Incidents, Logger: d.Logger})
	detailHandler := secured(&incidents.DetailHandler{Store: d.Incidents, Logger: d.Logger})
	mux.Handle("GET /api/incidents", listHandler)
	mux.Handle("POST /api/incidents", listHandler)
	mux.Handle("GET /api/incidents/{id}", detailHandler)
	mux.Handle("PATCH /api/incidents/{id}", detailHandler)

	return withCORS(d.CORSOrigins, instrument(d.Logger, d.Metrics, recoverer(d.Logger, mux)))
}
