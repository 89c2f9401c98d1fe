package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/eventlog"
	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/events"
	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/session"
)

type startSessionRequest struct {
	SelectedTeachers []string `json:"selectedTeachers"`
	LessonURL        string   `json:"lessonUrl"`
}

type sectionUpdateRequest struct {
	SessionID    string `json:"sessionId"`
	SectionID    string `json:"sectionId"`
	URL          string `json:"url"`
	ScrollY      int    `json:"scrollY"`
	VisibleText  string `json:"visibleText"`
	SelectedText string `json:"selectedText"`
	UserQuestion string `json:"userQuestion"`
	Language     string `json:"language"`
	DOMDigest    string `json:"domDigest"`
}

type speechEndedRequest struct {
	SessionID string `json:"sessionId"`
	ClipID    string `json:"clipId"`
}

type clipReadyRequest struct {
	SessionID string       `json:"sessionId"`
	Teacher   string       `json:"teacher"`
	Clip      session.Clip `json:"clip"`
}

func (r *Router) handleStartSession(w http.ResponseWriter, req *http.Request) {
	if r.streams.IsDraining() {
		http.Error(w, `{"error": "draining"}`, http.StatusServiceUnavailable)
		return
	}

	var body startSessionRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	sess, err := r.store.Create(body.SelectedTeachers, body.LessonURL)
	if err != nil {
		http.Error(w, `{"error": "must select exactly 2 teachers"}`, http.StatusBadRequest)
		return
	}

	r.logger.Printf("httpapi: created session %s with teachers %v", sess.SessionID, sess.ActiveTeachers)

	r.bus.Publish(events.SessionStarted(sess))
	r.audit.LogAsync(sess.SessionID, eventlog.EventSessionStarted, map[string]any{
		"teachers": sess.ActiveTeachers,
	})

	// First clip for the renderer; the speaker's opening clip is requested by
	// the UI via the first section update.
	r.dispatcher.Dispatch(sess.SessionID, sess.Renderer, sess.Speaker)

	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": sess.SessionID,
		"status":    "ok",
		"speaker":   sess.Speaker,
		"renderer":  sess.Renderer,
	})
}

func (r *Router) handleSectionUpdate(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")

	var body sectionUpdateRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	sess, err := r.store.Mutate(id, func(s *session.Session) error {
		s.CurrentSectionID = body.SectionID
		// Replaced wholesale; a partial update must never mix two snapshots.
		s.CurrentSnapshot = &session.Snapshot{
			URL:          body.URL,
			ScrollY:      body.ScrollY,
			VisibleText:  body.VisibleText,
			SelectedText: body.SelectedText,
			UserQuestion: body.UserQuestion,
			Language:     body.Language,
			DOMDigest:    body.DOMDigest,
		}
		if body.Language != "" {
			s.Language = body.Language
		}
		return nil
	})
	if err != nil {
		http.Error(w, `{"error": "session not found"}`, http.StatusNotFound)
		return
	}

	r.bus.Publish(events.SectionUpdated(id, body.SectionID, body.URL))
	r.audit.LogAsync(id, eventlog.EventSectionUpdated, map[string]any{
		"sectionId": body.SectionID,
		"url":       body.URL,
	})

	// Fresh context, fresh clip for whoever is rendering.
	r.dispatcher.Dispatch(id, sess.Renderer, sess.Speaker)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"sectionId": body.SectionID,
	})
}

func (r *Router) handleSpeechEnded(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")

	var body speechEndedRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	sess, err := r.store.Swap(id)
	switch {
	case errors.Is(err, session.ErrNotFound):
		http.Error(w, `{"error": "session not found"}`, http.StatusNotFound)
		return

	case errors.Is(err, session.ErrRendererNotReady):
		// Not a failure: the UI keeps the current speaker stalling until the
		// renderer catches up.
		r.logger.Printf("httpapi: session %s renderer not ready after clip %s", id, body.ClipID)
		r.audit.LogAsync(id, eventlog.EventRendererNotReady, map[string]any{"clipId": body.ClipID})
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "renderer_not_ready",
			"message": "Renderer clip not ready, use bridging clip",
		})
		return

	case err != nil:
		captureError(req, err, "speech-ended: swap failed")
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	r.logger.Printf("httpapi: session %s swapped, speaker %s, renderer %s, turn %d",
		id, sess.Speaker, sess.Renderer, sess.Turn)

	r.bus.Publish(events.SpeakerChanged(sess))
	r.audit.LogAsync(id, eventlog.EventSpeakerChanged, map[string]any{
		"speaker":  sess.Speaker,
		"renderer": sess.Renderer,
		"turn":     sess.Turn,
	})

	r.dispatcher.Dispatch(id, sess.Renderer, sess.Speaker)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"speaker":  sess.Speaker,
		"renderer": sess.Renderer,
		"turn":     sess.Turn,
	})
}

func (r *Router) handleClipReady(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")

	var body clipReadyRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	_, err := r.store.MarkReady(id, body.Teacher, body.Clip)
	switch {
	case errors.Is(err, session.ErrNotFound):
		// Late callback for a session that moved on - expected, not an error.
		r.logger.Printf("httpapi: clip ready for unknown session %s", id)
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ignored",
			"reason": "session_not_found",
		})
		return

	case errors.Is(err, session.ErrTeacherNotActive):
		r.logger.Printf("httpapi: clip ready for inactive teacher %s in session %s", body.Teacher, id)
		r.audit.LogAsync(id, eventlog.EventClipIgnored, map[string]any{"teacher": body.Teacher})
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ignored",
			"reason": "teacher_not_active",
		})
		return

	case err != nil:
		captureError(req, err, "clip-ready: mark ready failed")
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	r.bus.Publish(events.ClipReady(id, body.Teacher, body.Clip))
	r.audit.LogAsync(id, eventlog.EventClipReady, map[string]any{
		"teacher": body.Teacher,
		"clipId":  body.Clip.ID(),
	})

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (r *Router) handleSessionState(w http.ResponseWriter, req *http.Request) {
	sess, err := r.store.Get(req.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error": "session not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
