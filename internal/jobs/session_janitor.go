package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/eventlog"
	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/events"
	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/notifications"
	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/session"
)

// SessionJanitor expires sessions that have seen no API activity for longer
// than the TTL. The UI's "end session" is a client-local reset and never
// reaches the coordinator, so without the janitor abandoned sessions would
// accumulate for the life of the process.
type SessionJanitor struct {
	store    *session.Store
	bus      *events.Bus
	audit    *eventlog.Logger
	discord  *notifications.Discord
	logger   *log.Logger
	ttl      time.Duration
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewSessionJanitor creates the janitor. Zero ttl/interval fall back to
// 2h / 10m.
func NewSessionJanitor(store *session.Store, bus *events.Bus, audit *eventlog.Logger, discord *notifications.Discord, logger *log.Logger, ttl, interval time.Duration) *SessionJanitor {
	if ttl == 0 {
		ttl = 2 * time.Hour
	}
	if interval == 0 {
		interval = 10 * time.Minute
	}
	return &SessionJanitor{
		store:    store,
		bus:      bus,
		audit:    audit,
		discord:  discord,
		logger:   logger,
		ttl:      ttl,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (j *SessionJanitor) Start() {
	j.wg.Add(1)
	go j.run()
	j.logger.Printf("SessionJanitor: started (ttl=%v, interval=%v)", j.ttl, j.interval)
}

// Stop gracefully stops the background job.
func (j *SessionJanitor) Stop() {
	close(j.stopCh)
	j.wg.Wait()
	j.logger.Println("SessionJanitor: stopped")
}

func (j *SessionJanitor) run() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweep()
		case <-j.stopCh:
			return
		}
	}
}

func (j *SessionJanitor) sweep() {
	expired := j.store.ExpireIdle(j.ttl)
	if len(expired) == 0 {
		return
	}

	for _, id := range expired {
		j.bus.CloseSession(id)
		j.audit.LogAsync(id, eventlog.EventSessionExpired, map[string]any{"ttl": j.ttl.String()})
	}

	j.logger.Printf("SessionJanitor: expired %d idle session(s)", len(expired))
	j.discord.NotifySessionsExpired(context.Background(), len(expired))
}
