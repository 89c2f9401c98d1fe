package events

import (
	"time"

	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/session"
)

// Event types delivered on the session stream. The first five are state
// changes; CONNECTED and KEEPALIVE are stream-control frames that only ever
// originate in the transport layer.
const (
	TypeSessionStarted = "SESSION_STARTED"
	TypeSectionUpdated = "SECTION_UPDATED"
	TypeClipReady      = "CLIP_READY"
	TypeSpeakerChanged = "SPEAKER_CHANGED"
	TypeError          = "ERROR"
	TypeConnected      = "CONNECTED"
	TypeKeepalive      = "KEEPALIVE"
)

// Event is a single notification, immutable once constructed. Type-specific
// fields are flattened into the envelope so the wire format stays
// {"type": ..., "sessionId": ..., "timestamp": ..., <fields>}.
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`

	// SESSION_STARTED / SPEAKER_CHANGED
	LeftTeacher  string `json:"leftTeacher,omitempty"`
	RightTeacher string `json:"rightTeacher,omitempty"`
	Speaker      string `json:"speaker,omitempty"`
	Renderer     string `json:"renderer,omitempty"`
	Turn         int    `json:"turn,omitempty"`

	// SECTION_UPDATED
	SectionID string `json:"sectionId,omitempty"`
	URL       string `json:"url,omitempty"`

	// CLIP_READY
	Teacher string       `json:"teacher,omitempty"`
	Clip    session.Clip `json:"clip,omitempty"`

	// ERROR
	Message string `json:"message,omitempty"`
}

func newEvent(eventType, sessionID string) Event {
	return Event{
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	}
}

// SessionStarted announces a freshly created session and its initial roles.
func SessionStarted(s session.Session) Event {
	ev := newEvent(TypeSessionStarted, s.SessionID)
	ev.LeftTeacher = s.LeftTeacher
	ev.RightTeacher = s.RightTeacher
	ev.Speaker = s.Speaker
	ev.Renderer = s.Renderer
	return ev
}

// SectionUpdated announces a replaced browsing snapshot.
func SectionUpdated(sessionID, sectionID, url string) Event {
	ev := newEvent(TypeSectionUpdated, sessionID)
	ev.SectionID = sectionID
	ev.URL = url
	return ev
}

// ClipReady announces a completed render for one teacher. The clip passes
// through verbatim so the UI can queue audio/video without another round trip.
func ClipReady(sessionID, teacher string, clip session.Clip) Event {
	ev := newEvent(TypeClipReady, sessionID)
	ev.Teacher = teacher
	ev.Clip = clip
	return ev
}

// SpeakerChanged announces a completed role swap.
func SpeakerChanged(s session.Session) Event {
	ev := newEvent(TypeSpeakerChanged, s.SessionID)
	ev.Speaker = s.Speaker
	ev.Renderer = s.Renderer
	ev.Turn = s.Turn
	return ev
}

// Error carries a non-fatal, session-scoped error to subscribers.
func Error(sessionID, message string) Event {
	ev := newEvent(TypeError, sessionID)
	ev.Message = message
	return ev
}

// Connected greets a subscriber when its stream opens.
func Connected(sessionID string) Event {
	return newEvent(TypeConnected, sessionID)
}

// Keepalive is sent on an idle stream so clients can tell a quiet session
// from a dead connection.
func Keepalive(sessionID string) Event {
	return newEvent(TypeKeepalive, sessionID)
}
