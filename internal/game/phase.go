package game

import (
	"fmt"

	"github.com/scythe504/wavelength-backend/internal"
)

// stepKey names one logical round step. Derived transitions commit at most
// once per key.
type stepKey struct {
	phase internal.Phase
	round int
}

func (k stepKey) String() string {
	return fmt.Sprintf("%s#%d", k.phase, k.round)
}

func keyOf(s internal.SessionState) stepKey {
	return stepKey{phase: s.Phase, round: s.RoundCount}
}

func checkTransition(from, to internal.Phase) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", internal.ErrInvalidTransition, from, to)
	}
	return nil
}

func requirePhase(s internal.SessionState, allowed ...internal.Phase) error {
	for _, p := range allowed {
		if s.Phase == p {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", internal.ErrWrongPhase, s.Phase)
}

// PendingTransition reports the derived transition the host should commit
// for s, if its completeness condition holds.
func PendingTransition(s internal.SessionState) (internal.Phase, bool) {
	players := s.SortedPlayers()
	switch s.Phase {
	case internal.PhaseSetting:
		if s.ThemeChoice != nil && validThemeChoice(s, *s.ThemeChoice) == nil {
			return internal.PhaseGame, true
		}
	case internal.PhaseGame:
		if IsComplete(players, s.AllGuesses) {
			if s.Settings.IsDiscussionEnabled {
				return internal.PhaseDiscussion, true
			}
			return internal.PhaseResult, true
		}
	case internal.PhaseDiscussion:
		if IsDiscussionComplete(players, s.DiscussionVoted.StringSet) {
			return internal.PhaseResult, true
		}
	}
	return "", false
}

// IsLastRound reports whether the round after s.RoundCount ends the game.
func IsLastRound(s internal.SessionState) bool {
	return s.RoundCount+1 >= len(s.Players)
}
