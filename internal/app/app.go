package app

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/dispatch"
	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/eventlog"
	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/events"
	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/httpapi"
	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/jobs"
	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/notifications"
	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/session"
	"github.com/jackc/pgx/v5/pgxpool"
)

type App struct {
	cfg        Config
	logger     *log.Logger
	db         *pgxpool.Pool // nil when DATABASE_URL is unset
	store      *session.Store
	bus        *events.Bus
	audit      *eventlog.Logger
	discord    *notifications.Discord
	dispatcher *dispatch.Dispatcher
	streams    *httpapi.StreamRegistry
	janitor    *jobs.SessionJanitor
	httpClient *http.Client // Shared HTTP client with connection pooling for worker webhooks
}

func New(cfg Config, logger *log.Logger) (*App, error) {
	// Session state is memory-resident by design; the database only carries
	// the optional audit trail, so the coordinator runs fine without one.
	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		db = pool
		logger.Printf("app: audit trail enabled")
	}

	// Shared HTTP client with connection pooling for render job dispatch.
	// Both worker webhooks live on the workflow engine host, so kept-alive
	// connections save a handshake on every turn.
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	store := session.NewStore(cfg.DefaultLanguage)
	bus := events.NewBus(logger)
	audit := eventlog.New(db)
	discord := notifications.NewDiscord(cfg.DiscordWebhookURL, logger)

	dispatcher := dispatch.New(dispatch.Config{
		LeftWorkerURL:  cfg.WorkerLeftURL,
		RightWorkerURL: cfg.WorkerRightURL,
		Timeout:        cfg.DispatchTimeout,
	}, store, logger, httpClient, discord, audit)

	return &App{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		store:      store,
		bus:        bus,
		audit:      audit,
		discord:    discord,
		dispatcher: dispatcher,
		streams:    httpapi.NewStreamRegistry(),
		janitor:    jobs.NewSessionJanitor(store, bus, audit, discord, logger, cfg.SessionTTL, cfg.JanitorInterval),
		httpClient: httpClient,
	}, nil
}

func (a *App) Router() http.Handler {
	return httpapi.NewRouter(httpapi.RouterConfig{
		PublicBaseURL:  a.cfg.PublicBaseURL,
		EventKeepalive: a.cfg.EventKeepalive,
	}, a.logger, a.store, a.bus, a.dispatcher, a.audit, a.streams)
}

// StartJobs launches background workers (the session janitor).
func (a *App) StartJobs() {
	a.janitor.Start()
}

// Streams exposes the stream registry for draining during shutdown.
func (a *App) Streams() *httpapi.StreamRegistry {
	return a.streams
}

func (a *App) Close() error {
	a.janitor.Stop()
	if a.db != nil {
		a.db.Close()
	}
	return nil
}
