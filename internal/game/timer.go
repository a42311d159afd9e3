package game

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// =============================================================================
// TIMER MANAGEMENT
// =============================================================================

// scheduleLocked arms a deferred completeness check for key. A key that is
// already armed or committed is left alone, so a burst of observed changes
// for one step collapses into a single check.
func (s *Session) scheduleLocked(key stepKey) {
	if s.committed[key] {
		return
	}
	if _, armed := s.pending[key]; armed {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.debounce)
	s.pending[key] = pendingCheck{ctx: ctx, cancel: cancel}
	log.Debug().Str("room", s.roomId).Str("step", key.String()).Dur("after", s.debounce).
		Msg("[scheduleLocked] check armed")

	go func() {
		<-ctx.Done()
		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Debug().Str("room", s.roomId).Str("step", key.String()).Msg("[scheduleLocked] check cancelled")
			return
		}

		s.mu.Lock()
		defer s.unlockAndNotify()
		// A cancel that lost the race with the deadline still wins.
		if s.ctx.Err() != nil {
			return
		}
		// The slot may have been re-armed after a reset; only the check that
		// owns it may run.
		if check, ok := s.pending[key]; !ok || check.ctx != ctx {
			return
		}
		s.cancelPendingLocked(key)
		s.revalidateLocked(key)
	}()
}

// revalidateLocked re-reads the projection when a check fires and commits
// only if the step it was armed for is still current and still complete.
func (s *Session) revalidateLocked(key stepKey) {
	if current := keyOf(s.state); current != key {
		log.Debug().Str("room", s.roomId).Str("step", key.String()).Str("current", current.String()).
			Msg("[revalidateLocked] step moved on")
		return
	}
	if !s.isHostLocked() {
		log.Info().Str("room", s.roomId).Str("step", key.String()).Msg("[revalidateLocked] no longer host")
		return
	}
	next, ok := PendingTransition(s.state)
	if !ok {
		log.Debug().Str("room", s.roomId).Str("step", key.String()).Msg("[revalidateLocked] no longer complete")
		return
	}
	// commitLocked logs a failed write; the next observed change re-arms.
	if err := s.commitLocked(s.ctx, key, next); err != nil {
		return
	}
}

type pendingCheck struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// cancelPendingLocked disarms the check for key, if any.
func (s *Session) cancelPendingLocked(key stepKey) {
	if check, ok := s.pending[key]; ok {
		check.cancel()
		delete(s.pending, key)
	}
}

// resetStepsLocked forgets every armed, committed and NPC-handled step. Used
// when a new game starts or the room goes back to the lobby, since round
// numbers repeat across games.
func (s *Session) resetStepsLocked() {
	for key := range s.pending {
		s.cancelPendingLocked(key)
	}
	clear(s.committed)
	clear(s.npcHandled)
}
