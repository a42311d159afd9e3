package game

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/scythe504/wavelength-backend/internal"
)

// =============================================================================
// GAME FLOW - ROUND MANAGEMENT
// =============================================================================

// SelectTheme picks the round's theme on behalf of actorId, who must be the
// turn player or the host. On the host the choice commits immediately; on
// any other replica it is written as a proposal the host commits.
func (s *Session) SelectTheme(ctx context.Context, actorId string, theme internal.Theme) error {
	s.mu.Lock()
	defer s.unlockAndNotify()

	if actorId == "" {
		actorId = s.selfId
	}
	if err := requirePhase(s.state, internal.PhaseSetting); err != nil {
		return err
	}
	if err := s.requireOwnerLocked(actorId); err != nil {
		return err
	}
	choice := internal.ThemeChoice{PlayerId: actorId, Theme: theme}
	if err := validThemeChoice(s.state, choice); err != nil {
		return err
	}

	if !s.isHostLocked() {
		if err := s.sink.SubmitThemeChoice(ctx, choice); err != nil {
			return err
		}
		log.Info().Str("room", s.roomId).Str("player", actorId).Str("theme", theme.Text).
			Msg("[SelectTheme] choice proposed")
		return nil
	}

	resolved, err := resolveTheme(s.state, theme)
	if err != nil {
		return err
	}
	key := keyOf(s.state)
	s.cancelPendingLocked(key)
	if err := s.enterGameLocked(ctx, resolved); err != nil {
		return err
	}
	s.committed[key] = true
	log.Info().Str("room", s.roomId).Str("player", actorId).Str("theme", resolved.Text).
		Msg("[SelectTheme] theme committed")
	return s.settleLocked(ctx)
}

// SubmitVotes records guesserId's placements and memo. During discussion it
// is the player's single revision and marks them done.
func (s *Session) SubmitVotes(ctx context.Context, guesserId string, placements map[string]int, memo string) error {
	s.mu.Lock()
	defer s.unlockAndNotify()

	if err := requirePhase(s.state, internal.PhaseGame, internal.PhaseDiscussion); err != nil {
		return err
	}
	if err := s.requireOwnerLocked(guesserId); err != nil {
		return err
	}
	players := s.state.SortedPlayers()
	if err := validatePlacements(players, guesserId, placements); err != nil {
		return err
	}

	discussing := s.state.Phase == internal.PhaseDiscussion
	if discussing {
		if s.state.DiscussionVoted.Has(guesserId) {
			return internal.ErrAlreadySubmitted
		}
		if err := ValidateRevision(s.state.DiscussionSnapshot, guesserId, placements); err != nil {
			return err
		}
	}

	if err := s.sink.SubmitMemo(ctx, guesserId, TrimMemo(memo)); err != nil {
		return err
	}
	if err := s.sink.SubmitGuesses(ctx, guesserId, placements); err != nil {
		return err
	}
	if discussing {
		if err := s.sink.MarkDiscussionDone(ctx, guesserId); err != nil {
			return err
		}
	}
	log.Debug().Str("room", s.roomId).Str("player", guesserId).Int("placements", len(placements)).
		Str("phase", string(s.state.Phase)).Msg("[SubmitVotes] recorded")
	return s.settleLocked(ctx)
}

// UpdateMemo replaces a player's shared memo without touching guesses.
func (s *Session) UpdateMemo(ctx context.Context, playerId, text string) error {
	s.mu.Lock()
	defer s.unlockAndNotify()

	if err := requirePhase(s.state, internal.PhaseGame, internal.PhaseDiscussion); err != nil {
		return err
	}
	if err := s.requireOwnerLocked(playerId); err != nil {
		return err
	}
	return s.sink.SubmitMemo(ctx, playerId, TrimMemo(text))
}

// ForceProgress ends the current voting step now. Missing guesses are
// filled uniformly at random; missing discussion markers are set.
func (s *Session) ForceProgress(ctx context.Context) error {
	s.mu.Lock()
	defer s.unlockAndNotify()

	if err := s.requireHostLocked(); err != nil {
		return err
	}
	key := keyOf(s.state)
	players := s.state.SortedPlayers()

	var err error
	switch s.state.Phase {
	case internal.PhaseGame:
		stragglers := Stragglers(players, s.state.AllGuesses)
		filled := s.aggregator.ForceComplete(players, s.state.AllGuesses)
		s.cancelPendingLocked(key)
		if s.state.Settings.IsDiscussionEnabled {
			err = s.enterDiscussionLocked(ctx, filled)
		} else {
			err = s.publishResultsLocked(ctx, filled, s.state.DiscussionVoted)
		}
		log.Info().Str("room", s.roomId).Strs("filled", stragglers).Msg("[ForceProgress] voting forced")
	case internal.PhaseDiscussion:
		voted := ForceDiscussion(players, s.state.DiscussionVoted)
		s.cancelPendingLocked(key)
		err = s.publishResultsLocked(ctx, s.state.AllGuesses, voted)
		log.Info().Str("room", s.roomId).Msg("[ForceProgress] discussion forced")
	default:
		return fmt.Errorf("%w: cannot force %s", internal.ErrWrongPhase, s.state.Phase)
	}
	if err != nil {
		return err
	}
	s.committed[key] = true
	return s.settleLocked(ctx)
}

// AdvanceRound leaves RESULT: to the next round's setup, or to the final
// standings once every player has had a turn.
func (s *Session) AdvanceRound(ctx context.Context) error {
	s.mu.Lock()
	defer s.unlockAndNotify()

	if err := s.requireHostLocked(); err != nil {
		return err
	}
	if err := requirePhase(s.state, internal.PhaseResult); err != nil {
		return err
	}
	players := s.state.SortedPlayers()

	if IsLastRound(s.state) {
		finals, err := s.scorer.FinalizeStandings(players, s.state.GameHistory)
		if err != nil {
			return err
		}
		next := s.state.Clone().WithPlayers(finals)
		next.Phase = internal.PhaseFinalResult
		next.RoundCount = s.state.RoundCount + 1
		if err := s.sink.AdvancePhase(ctx, next, fieldPlayers, fieldPhase, fieldRoundCount); err != nil {
			return err
		}
		log.Info().Str("room", s.roomId).Int("rounds", next.RoundCount).Msg("[AdvanceRound] game finished")
		return nil
	}

	setup, err := s.orchestrator.StartRound(players, s.state.RoundCount+1, s.state.Settings,
		s.state.PastTurnPlayerIds, s.state.UsedThemeTexts)
	if err != nil {
		return err
	}
	if err := s.sink.PublishRoundSetup(ctx, setup.Apply(s.state)); err != nil {
		return err
	}
	log.Info().Str("room", s.roomId).Int("round", setup.RoundIndex).Str("turn", setup.TurnPlayerId).
		Msg("[AdvanceRound] next round")
	return s.settleLocked(ctx)
}
