package game

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/scythe504/wavelength-backend/internal"
)

// =============================================================================
// GAME FLOW - LOBBY & INITIALIZATION
// =============================================================================

// SetReady toggles a player's ready flag in the lobby.
func (s *Session) SetReady(ctx context.Context, playerId string, ready bool) error {
	s.mu.Lock()
	defer s.unlockAndNotify()

	if err := requirePhase(s.state, internal.PhaseLobby); err != nil {
		return err
	}
	if err := s.requireOwnerLocked(playerId); err != nil {
		return err
	}
	if err := s.sink.UpdatePlayer(ctx, playerId, ProfileUpdate{IsReady: &ready}); err != nil {
		return err
	}
	log.Debug().Str("room", s.roomId).Str("player", playerId).Bool("ready", ready).Msg("[SetReady] updated")
	return nil
}

// UpdateColor changes a player's color. Two players never share one.
func (s *Session) UpdateColor(ctx context.Context, playerId, color string) error {
	s.mu.Lock()
	defer s.unlockAndNotify()

	if err := s.requireOwnerLocked(playerId); err != nil {
		return err
	}
	if color == "" {
		return internal.Invalid("color is required")
	}
	if s.state.ColorTaken(color, playerId) {
		return fmt.Errorf("%w: %s", internal.ErrColorTaken, color)
	}
	return s.sink.UpdatePlayer(ctx, playerId, ProfileUpdate{Color: &color})
}

// StartGame leaves the lobby and publishes round 0.
func (s *Session) StartGame(ctx context.Context, settings internal.Settings) error {
	s.mu.Lock()
	defer s.unlockAndNotify()

	if err := s.requireHostLocked(); err != nil {
		return err
	}
	if err := checkTransition(s.state.Phase, internal.PhaseSetting); err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	players := s.state.SortedPlayers()
	if len(players) == 0 {
		return internal.ErrNoPlayers
	}

	setup, err := s.orchestrator.StartRound(players, 0, settings, internal.StringSet{}, s.state.UsedThemeTexts)
	if err != nil {
		return err
	}
	next := setup.Apply(s.state)
	next.GameHistory = nil

	s.resetStepsLocked()
	if err := s.sink.PublishRoundSetup(ctx, next); err != nil {
		return err
	}
	log.Info().Str("room", s.roomId).Int("players", len(players)).Str("mode", string(settings.GameMode)).
		Bool("discussion", settings.IsDiscussionEnabled).Msg("[StartGame] game started")
	return s.settleLocked(ctx)
}

// ReturnToLobby clears every game-scoped field. Identity, name, color and
// the used-theme set survive.
func (s *Session) ReturnToLobby(ctx context.Context) error {
	s.mu.Lock()
	defer s.unlockAndNotify()

	if err := s.requireHostLocked(); err != nil {
		return err
	}
	if err := checkTransition(s.state.Phase, internal.PhaseLobby); err != nil {
		return err
	}

	next := s.state.Clone()
	for id, p := range next.Players {
		p = p.ResetForLobby()
		if p.IsNpc || id == next.HostId {
			p.IsReady = true
		}
		next.Players[id] = p
	}
	next.Phase = internal.PhaseLobby
	next.RoundCount = 0
	next.CurrentTheme = nil
	next.ThemeCandidates = nil
	next.ThemeChoice = nil
	next.CurrentTurnPlayerId = ""
	next.PastTurnPlayerIds = internal.StringSet{}
	next.SharedMemos = map[string]string{}
	next.AllGuesses = internal.GuessTable{}
	next.DiscussionSnapshot = nil
	next.DiscussionVoted = internal.MarkSet{}
	next.RoundResults = nil
	next.GameHistory = nil

	s.resetStepsLocked()
	if err := s.sink.AdvancePhase(ctx, next,
		fieldPlayers, fieldPhase, fieldRoundCount, fieldCurrentTheme, fieldThemeCandidates,
		fieldThemeChoice, fieldTurnPlayer, fieldPastTurnPlayers, fieldSharedMemos, fieldAllGuesses,
		fieldDiscussionSnapshot, fieldDiscussionVoted, fieldRoundResults, fieldGameHistory,
	); err != nil {
		return err
	}
	log.Info().Str("room", s.roomId).Msg("[ReturnToLobby] room reset")
	return nil
}
