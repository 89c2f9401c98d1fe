package eventlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventType labels a row in the session_events audit trail.
type EventType string

const (
	EventSessionStarted   EventType = "session_started"
	EventSectionUpdated   EventType = "section_updated"
	EventClipReady        EventType = "clip_ready"
	EventClipIgnored      EventType = "clip_ignored"
	EventSpeakerChanged   EventType = "speaker_changed"
	EventRendererNotReady EventType = "renderer_not_ready"
	EventRenderDispatched EventType = "render_dispatched"
	EventDispatchFailed   EventType = "dispatch_failed"
	EventSessionExpired   EventType = "session_expired"
)

// Logger writes a best-effort audit trail of coordinator decisions to
// Postgres. Session state itself never touches the database; the trail exists
// for debugging turn-taking issues after the fact. With no pool configured
// every call is a no-op.
type Logger struct {
	db *pgxpool.Pool
}

// New creates an audit logger. db may be nil.
func New(db *pgxpool.Pool) *Logger {
	return &Logger{db: db}
}

// Log writes one event row synchronously.
func (l *Logger) Log(ctx context.Context, sessionID string, eventType EventType, data map[string]any) error {
	if l.db == nil || sessionID == "" {
		return nil
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		dataJSON = []byte("{}")
	}

	_, err = l.db.Exec(ctx, `
		INSERT INTO session_events (session_id, event_type, event_data)
		VALUES ($1, $2, $3)
	`, sessionID, string(eventType), dataJSON)

	return err
}

// LogAsync writes an event row without blocking the caller. Failures are
// dropped; the audit trail is best-effort.
func (l *Logger) LogAsync(sessionID string, eventType EventType, data map[string]any) {
	if l.db == nil || sessionID == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.Log(ctx, sessionID, eventType, data)
	}()
}
