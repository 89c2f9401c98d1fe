package session

// Turn-taking rules. A session only ever moves between two states:
// left-speaks/right-renders and right-speaks/left-renders. Swap is the single
// transition, gated on the renderer's clip being ready.
//
// Queue entries are always addressed by teacher identity, never by current
// role. A clip-ready callback for the teacher who is about to become renderer
// lands in that teacher's own entry and feeds the *next* swap; it can never be
// mistaken for the entry being checked by a swap already in progress.

// Swap exchanges speaker and renderer and increments the turn counter.
// Precondition: the current renderer's queue entry is ready. If it is not,
// the session is left untouched and ErrRendererNotReady is returned; callers
// surface that as a distinct outcome, not a failure.
//
// The ready entry is consumed by the swap (the clip is now playing), so a
// second speech-ended without a fresh clip-ready reports not ready instead of
// replaying a stale entry.
func (st *Store) Swap(id string) (Session, error) {
	return st.Mutate(id, func(s *Session) error {
		if s.Queues[s.Renderer].Status != StatusReady {
			return ErrRendererNotReady
		}

		s.Speaker, s.Renderer = s.Renderer, s.Speaker
		s.Turn++
		s.Queues[s.Speaker] = QueueEntry{Status: StatusIdle}
		return nil
	})
}

// MarkRendering records that a render job has been handed to a worker for
// the given teacher. Any previously attached clip is discarded.
func (st *Store) MarkRendering(id, teacher string) (Session, error) {
	return st.Mutate(id, func(s *Session) error {
		if !s.IsActiveTeacher(teacher) {
			return ErrTeacherNotActive
		}
		s.Queues[teacher] = QueueEntry{Status: StatusRendering}
		return nil
	})
}

// MarkReady attaches a completed clip to the teacher's queue entry. A teacher
// outside the session's fixed pair yields ErrTeacherNotActive, which callers
// treat as a benign no-op: late or cross-session worker callbacks are expected
// under normal race conditions.
func (st *Store) MarkReady(id, teacher string, clip Clip) (Session, error) {
	return st.Mutate(id, func(s *Session) error {
		if !s.IsActiveTeacher(teacher) {
			return ErrTeacherNotActive
		}
		s.Queues[teacher] = QueueEntry{
			Status:     StatusReady,
			NextClipID: clip.ID(),
			NextClip:   clip,
		}
		return nil
	})
}

// MarkDispatchError records a failed hand-off to the render worker. The entry
// stays in error until a later section update or swap re-dispatches; the
// coordinator never retries on its own.
func (st *Store) MarkDispatchError(id, teacher string) (Session, error) {
	return st.Mutate(id, func(s *Session) error {
		if !s.IsActiveTeacher(teacher) {
			return ErrTeacherNotActive
		}
		s.Queues[teacher] = QueueEntry{Status: StatusError}
		return nil
	})
}
