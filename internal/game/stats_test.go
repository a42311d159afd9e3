package game

import (
	"testing"

	"github.com/scythe504/wavelength-backend/internal"
	"github.com/stretchr/testify/assert"
)

func TestGetRoomStats(t *testing.T) {
	s := internal.NewSessionState("1234", internal.NewPlayer("a", "A", "", 0))
	npc := internal.NewPlayer("b", "Bot", "", 1)
	npc.IsNpc, npc.IsReady = true, true
	s.Players["b"] = npc
	s.Players["c"] = internal.NewPlayer("c", "C", "", 2)
	s.Phase = internal.PhaseGame
	s.AllGuesses = internal.GuessTable{"a": {"b": 1, "c": 2}, "b": {"a": 3}}

	stats := GetRoomStats(s)
	assert.Equal(t, 3, stats.Players)
	assert.Equal(t, 1, stats.Npcs)
	assert.Equal(t, 1, stats.Ready)
	assert.Equal(t, 3, stats.GuessesMade)
	assert.Equal(t, 6, stats.GuessesNeeded)
	assert.Equal(t, 3, stats.TotalRounds)
	assert.Empty(t, stats.Leader)

	s.Phase = internal.PhaseResult
	p := s.Players["c"]
	p.Score, p.CumulativeScore = 90, 90
	s.Players["c"] = p
	stats = GetRoomStats(s)
	assert.Equal(t, "c", stats.Leader)
	assert.InDelta(t, 30.0, stats.AverageScore, 0.001)
}
