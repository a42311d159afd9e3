package game

import (
	"testing"

	"github.com/scythe504/wavelength-backend/internal"
	"github.com/stretchr/testify/assert"
)

func twoPlayerState(phase internal.Phase) internal.SessionState {
	s := internal.NewSessionState("1234", internal.NewPlayer("a", "A", "", 0))
	s.Players["b"] = internal.NewPlayer("b", "B", "", 1)
	s.Phase = phase
	return s
}

func TestPendingTransition(t *testing.T) {
	tests := []struct {
		name   string
		state  func() internal.SessionState
		want   internal.Phase
		wantOk bool
	}{
		{"lobby never derives", func() internal.SessionState {
			return twoPlayerState(internal.PhaseLobby)
		}, "", false},
		{"setting without choice", func() internal.SessionState {
			return twoPlayerState(internal.PhaseSetting)
		}, "", false},
		{"setting with valid choice", func() internal.SessionState {
			s := twoPlayerState(internal.PhaseSetting)
			s.CurrentTurnPlayerId = "b"
			s.ThemeCandidates = []internal.Theme{{Text: "t"}}
			s.ThemeChoice = &internal.ThemeChoice{PlayerId: "b", Theme: internal.Theme{Text: "t"}}
			return s
		}, internal.PhaseGame, true},
		{"setting with foreign choice", func() internal.SessionState {
			s := twoPlayerState(internal.PhaseSetting)
			s.Players["c"] = internal.NewPlayer("c", "C", "", 2)
			s.CurrentTurnPlayerId = "b"
			s.ThemeCandidates = []internal.Theme{{Text: "t"}}
			s.ThemeChoice = &internal.ThemeChoice{PlayerId: "c", Theme: internal.Theme{Text: "t"}}
			return s
		}, "", false},
		{"game incomplete", func() internal.SessionState {
			s := twoPlayerState(internal.PhaseGame)
			s.AllGuesses = internal.GuessTable{"a": {"b": 1}}
			return s
		}, "", false},
		{"game complete no discussion", func() internal.SessionState {
			s := twoPlayerState(internal.PhaseGame)
			s.AllGuesses = internal.GuessTable{"a": {"b": 1}, "b": {"a": 1}}
			return s
		}, internal.PhaseResult, true},
		{"game complete with discussion", func() internal.SessionState {
			s := twoPlayerState(internal.PhaseGame)
			s.Settings.IsDiscussionEnabled = true
			s.AllGuesses = internal.GuessTable{"a": {"b": 1}, "b": {"a": 1}}
			return s
		}, internal.PhaseDiscussion, true},
		{"discussion partial", func() internal.SessionState {
			s := twoPlayerState(internal.PhaseDiscussion)
			s.DiscussionVoted = internal.NewMarkSet("a")
			return s
		}, "", false},
		{"discussion done", func() internal.SessionState {
			s := twoPlayerState(internal.PhaseDiscussion)
			s.DiscussionVoted = internal.NewMarkSet("a", "b")
			return s
		}, internal.PhaseResult, true},
		{"result waits for host", func() internal.SessionState {
			return twoPlayerState(internal.PhaseResult)
		}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PendingTransition(tt.state())
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsLastRound(t *testing.T) {
	s := twoPlayerState(internal.PhaseResult)
	assert.False(t, IsLastRound(s))
	s.RoundCount = 1
	assert.True(t, IsLastRound(s))
}

func TestCheckTransition(t *testing.T) {
	assert.NoError(t, checkTransition(internal.PhaseLobby, internal.PhaseSetting))
	assert.ErrorIs(t, checkTransition(internal.PhaseLobby, internal.PhaseGame), internal.ErrInvalidTransition)
	assert.ErrorIs(t, checkTransition(internal.PhaseResult, internal.PhaseLobby), internal.ErrInvalidTransition)
	assert.ErrorIs(t, requirePhase(twoPlayerState(internal.PhaseGame), internal.PhaseLobby), internal.ErrWrongPhase)
}

func TestStepKeyString(t *testing.T) {
	assert.Equal(t, "GAME#2", stepKey{phase: internal.PhaseGame, round: 2}.String())
}
