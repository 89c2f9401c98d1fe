package session

import (
	"errors"
	"fmt"
	"testing"
)

func mustCreate(t *testing.T, st *Store) Session {
	t.Helper()
	sess, err := st.Create([]string{"A", "B"}, "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return sess
}

func assertRolesValid(t *testing.T, s Session) {
	t.Helper()
	if s.Speaker == s.Renderer {
		t.Errorf("speaker == renderer == %s", s.Speaker)
	}
	if !s.IsActiveTeacher(s.Speaker) || !s.IsActiveTeacher(s.Renderer) {
		t.Errorf("roles (%s, %s) not drawn from %v", s.Speaker, s.Renderer, s.ActiveTeachers)
	}
}

func TestSwapRequiresReadyRenderer(t *testing.T) {
	st := NewStore("")
	sess := mustCreate(t, st)

	_, err := st.Swap(sess.SessionID)
	if !errors.Is(err, ErrRendererNotReady) {
		t.Fatalf("Swap() error = %v, want ErrRendererNotReady", err)
	}

	got, _ := st.Get(sess.SessionID)
	if got.Turn != 0 {
		t.Errorf("Turn = %d after refused swap, want 0", got.Turn)
	}
	if got.Speaker != "A" || got.Renderer != "B" {
		t.Errorf("roles = (%s, %s) after refused swap, want (A, B)", got.Speaker, got.Renderer)
	}
}

func TestSwapAfterClipReady(t *testing.T) {
	st := NewStore("")
	sess := mustCreate(t, st)

	if _, err := st.MarkReady(sess.SessionID, "B", Clip{"clipId": "clip-1"}); err != nil {
		t.Fatalf("MarkReady() error = %v", err)
	}

	got, err := st.Swap(sess.SessionID)
	if err != nil {
		t.Fatalf("Swap() error = %v", err)
	}

	if got.Speaker != "B" || got.Renderer != "A" {
		t.Errorf("roles = (%s, %s), want (B, A)", got.Speaker, got.Renderer)
	}
	if got.Turn != 1 {
		t.Errorf("Turn = %d, want 1", got.Turn)
	}
	assertRolesValid(t, got)

	// The ready entry was consumed; B's clip is now playing.
	if got.Queues["B"].Status != StatusIdle {
		t.Errorf("queue(B).Status = %q after swap, want %q", got.Queues["B"].Status, StatusIdle)
	}
	if got.Queues["B"].NextClipID != "" {
		t.Errorf("queue(B).NextClipID = %q after swap, want empty", got.Queues["B"].NextClipID)
	}
}

func TestSwapConsumesReadyEntry(t *testing.T) {
	st := NewStore("")
	sess := mustCreate(t, st)

	_, _ = st.MarkReady(sess.SessionID, "B", Clip{"clipId": "clip-1"})
	if _, err := st.Swap(sess.SessionID); err != nil {
		t.Fatalf("first Swap() error = %v", err)
	}

	// No new clip for A yet, so an immediate second speech-ended must stall
	// rather than replay the consumed entry.
	_, err := st.Swap(sess.SessionID)
	if !errors.Is(err, ErrRendererNotReady) {
		t.Errorf("second Swap() error = %v, want ErrRendererNotReady", err)
	}
	got, _ := st.Get(sess.SessionID)
	if got.Turn != 1 {
		t.Errorf("Turn = %d, want 1", got.Turn)
	}
}

func TestSwapAlternation(t *testing.T) {
	st := NewStore("")
	sess := mustCreate(t, st)

	const swaps = 6
	for i := 0; i < swaps; i++ {
		cur, _ := st.Get(sess.SessionID)
		clip := Clip{"clipId": fmt.Sprintf("clip-%d", i)}
		if _, err := st.MarkReady(sess.SessionID, cur.Renderer, clip); err != nil {
			t.Fatalf("MarkReady(%d) error = %v", i, err)
		}
		got, err := st.Swap(sess.SessionID)
		if err != nil {
			t.Fatalf("Swap(%d) error = %v", i, err)
		}
		if got.Turn != i+1 {
			t.Errorf("Turn = %d after swap %d, want %d", got.Turn, i, i+1)
		}
		assertRolesValid(t, got)
	}

	// Even number of swaps returns to the starting assignment.
	got, _ := st.Get(sess.SessionID)
	if got.Speaker != "A" || got.Renderer != "B" {
		t.Errorf("roles = (%s, %s) after %d swaps, want (A, B)", got.Speaker, got.Renderer, swaps)
	}
}

func TestClipReadyForUpcomingRendererFeedsNextSwap(t *testing.T) {
	st := NewStore("")
	sess := mustCreate(t, st)

	_, _ = st.MarkReady(sess.SessionID, "B", Clip{"clipId": "b-1"})

	// A worker finishes a clip for the current speaker just before the swap.
	// It lands under A's own entry and must not affect the swap in progress.
	if _, err := st.MarkReady(sess.SessionID, "A", Clip{"clipId": "a-1"}); err != nil {
		t.Fatalf("MarkReady(A) error = %v", err)
	}

	got, err := st.Swap(sess.SessionID)
	if err != nil {
		t.Fatalf("Swap() error = %v", err)
	}
	if got.Speaker != "B" || got.Renderer != "A" {
		t.Fatalf("roles = (%s, %s), want (B, A)", got.Speaker, got.Renderer)
	}

	// A's queued clip carries straight into the next cycle.
	if got.Queues["A"].NextClipID != "a-1" {
		t.Errorf("queue(A).NextClipID = %q, want %q", got.Queues["A"].NextClipID, "a-1")
	}
	got, err = st.Swap(sess.SessionID)
	if err != nil {
		t.Fatalf("second Swap() error = %v", err)
	}
	if got.Turn != 2 || got.Speaker != "A" {
		t.Errorf("after second swap: turn=%d speaker=%s, want turn=2 speaker=A", got.Turn, got.Speaker)
	}
}

func TestMarkReadyForeignTeacher(t *testing.T) {
	st := NewStore("")
	sess := mustCreate(t, st)

	_, err := st.MarkReady(sess.SessionID, "C", Clip{"clipId": "x"})
	if !errors.Is(err, ErrTeacherNotActive) {
		t.Fatalf("MarkReady(C) error = %v, want ErrTeacherNotActive", err)
	}

	got, _ := st.Get(sess.SessionID)
	for _, teacher := range []string{"A", "B"} {
		if got.Queues[teacher].Status != StatusIdle {
			t.Errorf("queue(%s).Status = %q after foreign clip, want %q", teacher, got.Queues[teacher].Status, StatusIdle)
		}
	}
	if _, ok := got.Queues["C"]; ok {
		t.Error("foreign teacher gained a queue entry")
	}
}

func TestQueueTransitions(t *testing.T) {
	st := NewStore("")
	sess := mustCreate(t, st)

	got, err := st.MarkRendering(sess.SessionID, "B")
	if err != nil {
		t.Fatalf("MarkRendering() error = %v", err)
	}
	if got.Queues["B"].Status != StatusRendering {
		t.Errorf("queue(B).Status = %q, want %q", got.Queues["B"].Status, StatusRendering)
	}

	got, err = st.MarkReady(sess.SessionID, "B", Clip{"clipId": "clip-9", "videoUrl": "http://v/9.mp4"})
	if err != nil {
		t.Fatalf("MarkReady() error = %v", err)
	}
	if got.Queues["B"].Status != StatusReady || got.Queues["B"].NextClipID != "clip-9" {
		t.Errorf("queue(B) = %+v, want ready/clip-9", got.Queues["B"])
	}

	got, err = st.MarkDispatchError(sess.SessionID, "B")
	if err != nil {
		t.Fatalf("MarkDispatchError() error = %v", err)
	}
	if got.Queues["B"].Status != StatusError {
		t.Errorf("queue(B).Status = %q, want %q", got.Queues["B"].Status, StatusError)
	}
}

func TestClipID(t *testing.T) {
	tests := []struct {
		name string
		clip Clip
		want string
	}{
		{"with clipId", Clip{"clipId": "c1"}, "c1"},
		{"missing clipId", Clip{"text": "hello"}, ""},
		{"non-string clipId", Clip{"clipId": 42}, ""},
		{"nil clip", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.clip.ID(); got != tt.want {
				t.Errorf("ID() = %q, want %q", got, tt.want)
			}
		})
	}
}
