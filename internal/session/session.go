package session

import (
	"errors"
	"time"
)

// DefaultLanguage is used for new sessions until a section update carries
// an explicit language preference.
const DefaultLanguage = "English"

var (
	ErrNotFound         = errors.New("session not found")
	ErrInvalidTeachers  = errors.New("must select exactly 2 distinct teachers")
	ErrRendererNotReady = errors.New("renderer clip not ready")
	ErrTeacherNotActive = errors.New("teacher not active in session")
)

// QueueStatus is the render state of one teacher's clip pipeline.
type QueueStatus string

const (
	StatusIdle      QueueStatus = "idle"
	StatusRendering QueueStatus = "rendering"
	StatusReady     QueueStatus = "ready"
	StatusError     QueueStatus = "error"
)

// Clip is the payload a render worker posts back on completion. The
// coordinator treats it as opaque apart from the clipId used for queue
// bookkeeping; text/audioUrl/videoUrl pass through to subscribers untouched.
type Clip map[string]any

// ID returns the clip's identifier, or "" if the worker omitted it.
func (c Clip) ID() string {
	s, _ := c["clipId"].(string)
	return s
}

// QueueEntry tracks the outstanding or completed render job for one teacher.
type QueueEntry struct {
	Status     QueueStatus `json:"status"`
	NextClipID string      `json:"nextClipId,omitempty"`
	NextClip   Clip        `json:"nextClip,omitempty"`
}

// Snapshot is the browsing context captured by the UI. It is replaced
// wholesale on every section update, never merged field by field.
type Snapshot struct {
	URL          string `json:"url"`
	ScrollY      int    `json:"scrollY"`
	VisibleText  string `json:"visibleText"`
	SelectedText string `json:"selectedText"`
	UserQuestion string `json:"userQuestion,omitempty"`
	Language     string `json:"language,omitempty"`
	DOMDigest    string `json:"domDigest,omitempty"`
}

// Session is the turn-taking state for one live classroom: two fixed
// teachers, one speaking while the other renders its next clip.
type Session struct {
	SessionID        string                `json:"sessionId"`
	ActiveTeachers   []string              `json:"activeTeachers"`
	LeftTeacher      string                `json:"leftTeacher"`
	RightTeacher     string                `json:"rightTeacher"`
	Turn             int                   `json:"turn"`
	Speaker          string                `json:"speaker"`
	Renderer         string                `json:"renderer"`
	CurrentSectionID string                `json:"currentSectionId,omitempty"`
	CurrentSnapshot  *Snapshot             `json:"currentSnapshot,omitempty"`
	LessonURL        string                `json:"lessonUrl,omitempty"`
	Language         string                `json:"language"`
	Queues           map[string]QueueEntry `json:"queues"`
	CreatedAt        time.Time             `json:"createdAt"`
	Status           string                `json:"status"`

	// LastActivityAt drives TTL expiry; not part of the wire format.
	LastActivityAt time.Time `json:"-"`
}

// IsActiveTeacher reports whether t is one of the session's two teachers.
func (s *Session) IsActiveTeacher(t string) bool {
	return t == s.LeftTeacher || t == s.RightTeacher
}

// clone returns a deep copy safe to hand out after the session lock is
// released.
func (s *Session) clone() Session {
	out := *s

	out.ActiveTeachers = append([]string(nil), s.ActiveTeachers...)

	out.Queues = make(map[string]QueueEntry, len(s.Queues))
	for teacher, q := range s.Queues {
		if q.NextClip != nil {
			clip := make(Clip, len(q.NextClip))
			for k, v := range q.NextClip {
				clip[k] = v
			}
			q.NextClip = clip
		}
		out.Queues[teacher] = q
	}

	if s.CurrentSnapshot != nil {
		snap := *s.CurrentSnapshot
		out.CurrentSnapshot = &snap
	}

	return out
}
