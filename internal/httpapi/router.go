package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/dispatch"
	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/eventlog"
	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/events"
	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/session"
	"github.com/getsentry/sentry-go"
)

type RouterConfig struct {
	PublicBaseURL string

	// EventKeepalive is the idle timeout on a subscriber stream before a
	// keepalive frame is sent. Defaults to 30s.
	EventKeepalive time.Duration
}

type Router struct {
	cfg        RouterConfig
	logger     *log.Logger
	store      *session.Store
	bus        *events.Bus
	dispatcher *dispatch.Dispatcher
	audit      *eventlog.Logger
	streams    *StreamRegistry
	mux        *http.ServeMux
}

func NewRouter(cfg RouterConfig, logger *log.Logger, store *session.Store, bus *events.Bus, dispatcher *dispatch.Dispatcher, audit *eventlog.Logger, streams *StreamRegistry) http.Handler {
	if cfg.EventKeepalive == 0 {
		cfg.EventKeepalive = 30 * time.Second
	}

	r := &Router{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		bus:        bus,
		dispatcher: dispatcher,
		audit:      audit,
		streams:    streams,
		mux:        http.NewServeMux(),
	}

	r.routes()
	return withSentryRecovery(withCORS(r.mux))
}

func (r *Router) routes() {
	// Health and readiness
	r.mux.HandleFunc("GET /healthz", r.handleHealthz)
	r.mux.HandleFunc("GET /readyz", r.handleReadyz)

	// Session lifecycle (UI)
	r.mux.HandleFunc("POST /session/start", r.handleStartSession)
	r.mux.HandleFunc("POST /session/{id}/section", r.handleSectionUpdate)
	r.mux.HandleFunc("POST /session/{id}/speech-ended", r.handleSpeechEnded)
	r.mux.HandleFunc("GET /session/{id}/state", r.handleSessionState)

	// Worker callback (no auth - workers run on the same host)
	r.mux.HandleFunc("POST /session/{id}/clip-ready", r.handleClipReady)

	// Event push stream (UI)
	r.mux.HandleFunc("GET /session/{id}/events", r.handleEventsWS)
}

func (r *Router) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":        "Coordinator API",
		"status":         "ready",
		"activeSessions": r.store.Count(),
	})
}

func (r *Router) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if r.streams.IsDraining() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("draining"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withSentryRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(req)
				hub.RecoverWithContext(req.Context(), err)
				hub.Flush(2 * time.Second)
				http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// captureError sends an error to Sentry with request context
func captureError(req *http.Request, err error, msg string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetExtra("message", msg)
		sentry.CaptureException(err)
	})
}
