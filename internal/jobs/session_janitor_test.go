package jobs

import (
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/eventlog"
	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/events"
	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/notifications"
	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/session"
)

func newTestJanitor(store *session.Store, bus *events.Bus, ttl time.Duration) *SessionJanitor {
	logger := log.New(io.Discard, "", 0)
	return NewSessionJanitor(store, bus, eventlog.New(nil), notifications.NewDiscord("", logger), logger, ttl, time.Minute)
}

func TestSweepExpiresIdleSessions(t *testing.T) {
	store := session.NewStore("")
	bus := events.NewBus(log.New(io.Discard, "", 0))

	stale, _ := store.Create([]string{"A", "B"}, "")
	sub := bus.Subscribe(stale.SessionID)

	time.Sleep(20 * time.Millisecond)
	fresh, _ := store.Create([]string{"C", "D"}, "")

	j := newTestJanitor(store, bus, 10*time.Millisecond)
	j.sweep()

	if _, err := store.Get(stale.SessionID); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("stale session still present: err = %v", err)
	}
	if _, err := store.Get(fresh.SessionID); err != nil {
		t.Errorf("fresh session removed: %v", err)
	}

	// Subscribers of an expired session are told the stream is over.
	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("subscriber channel delivered an event instead of closing")
		}
	case <-time.After(time.Second):
		t.Error("subscriber channel not closed after expiry")
	}
}

func TestSweepNoopWhenNothingIdle(t *testing.T) {
	store := session.NewStore("")
	bus := events.NewBus(log.New(io.Discard, "", 0))

	sess, _ := store.Create([]string{"A", "B"}, "")
	sub := bus.Subscribe(sess.SessionID)

	j := newTestJanitor(store, bus, time.Hour)
	j.sweep()

	if _, err := store.Get(sess.SessionID); err != nil {
		t.Errorf("active session removed: %v", err)
	}

	select {
	case _, ok := <-sub.Events():
		if !ok {
			t.Error("subscriber channel closed for a live session")
		}
	default:
	}
}

func TestStartStop(t *testing.T) {
	store := session.NewStore("")
	bus := events.NewBus(log.New(io.Discard, "", 0))

	j := newTestJanitor(store, bus, time.Hour)
	j.Start()

	done := make(chan struct{})
	go func() {
		j.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return")
	}
}
