package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/eventlog"
	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/notifications"
	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/session"
)

// Config selects the two worker channels. Channels map to screen position
// (left/right), not to a particular teacher: whichever teacher occupies the
// left slot is always rendered by the left worker.
type Config struct {
	LeftWorkerURL  string
	RightWorkerURL string
	Timeout        time.Duration
}

// Job is the payload posted to a render worker webhook. Field names match
// what the workflow engine expects.
type Job struct {
	SessionID      string            `json:"sessionId"`
	Teacher        string            `json:"teacher"`
	CoTeacher      string            `json:"coTeacher"`
	Role           string            `json:"role"`
	SectionPayload *session.Snapshot `json:"sectionPayload"`
	Language       string            `json:"language"`
	Turn           int               `json:"turn"`
}

// Dispatcher hands render jobs to the external workers. The queue entry is
// marked rendering before the request leaves, so callers observe a consistent
// state as soon as Dispatch returns; the network call itself runs in the
// background and completion arrives later via the clip-ready callback.
//
// A failed hand-off marks the entry as error and is alerted, but is never
// retried automatically. The next section update or swap re-dispatches.
type Dispatcher struct {
	cfg     Config
	store   *session.Store
	logger  *log.Logger
	client  *http.Client
	discord *notifications.Discord
	audit   *eventlog.Logger
}

// New creates a dispatcher. client should be the app's shared pooled client.
func New(cfg Config, store *session.Store, logger *log.Logger, client *http.Client, discord *notifications.Discord, audit *eventlog.Logger) *Dispatcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Dispatcher{
		cfg:     cfg,
		store:   store,
		logger:  logger,
		client:  client,
		discord: discord,
		audit:   audit,
	}
}

// Dispatch builds a job for teacher from the session's current snapshot,
// marks the teacher's queue entry rendering, and delivers the job to the
// teacher's worker channel in the background. A session that has disappeared
// (expired between the triggering call and this dispatch) is a silent no-op.
func (d *Dispatcher) Dispatch(sessionID, teacher, coTeacher string) {
	sess, err := d.store.Get(sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return
		}
		d.logger.Printf("dispatch: get session %s: %v", sessionID, err)
		return
	}

	role := "speaker"
	if teacher == sess.Renderer {
		role = "renderer"
	}

	job := Job{
		SessionID:      sessionID,
		Teacher:        teacher,
		CoTeacher:      coTeacher,
		Role:           role,
		SectionPayload: sess.CurrentSnapshot,
		Language:       sess.Language,
		Turn:           sess.Turn,
	}

	if _, err := d.store.MarkRendering(sessionID, teacher); err != nil {
		d.logger.Printf("dispatch: mark rendering %s/%s: %v", sessionID, teacher, err)
		return
	}

	workerURL, side := d.workerFor(sess, teacher)
	go d.deliver(job, workerURL, side)
}

// workerFor picks the worker channel by the teacher's screen position.
func (d *Dispatcher) workerFor(sess session.Session, teacher string) (url, side string) {
	if teacher == sess.LeftTeacher {
		return d.cfg.LeftWorkerURL, "left"
	}
	return d.cfg.RightWorkerURL, "right"
}

func (d *Dispatcher) deliver(job Job, workerURL, side string) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
	defer cancel()

	if err := d.post(ctx, workerURL, job); err != nil {
		d.logger.Printf("dispatch: render job for %s (worker: %s) failed: %v", job.Teacher, side, err)
		if _, markErr := d.store.MarkDispatchError(job.SessionID, job.Teacher); markErr != nil {
			d.logger.Printf("dispatch: mark error %s/%s: %v", job.SessionID, job.Teacher, markErr)
		}
		d.discord.NotifyDispatchFailure(context.Background(), job.SessionID, job.Teacher, side, err)
		d.audit.LogAsync(job.SessionID, eventlog.EventDispatchFailed, map[string]any{
			"teacher": job.Teacher,
			"side":    side,
			"error":   err.Error(),
		})
		return
	}

	d.logger.Printf("dispatch: enqueued render job for %s (worker: %s, turn %d)", job.Teacher, side, job.Turn)
	d.audit.LogAsync(job.SessionID, eventlog.EventRenderDispatched, map[string]any{
		"teacher": job.Teacher,
		"side":    side,
		"turn":    job.Turn,
	})
}

func (d *Dispatcher) post(ctx context.Context, workerURL string, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, workerURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("worker returned %s: %s", resp.Status, string(respBody))
	}

	return nil
}
