package game

import "github.com/scythe504/wavelength-backend/internal"

// =============================================================================
// ROOM STATISTICS & ANALYTICS
// =============================================================================

// RoomStats is a read-only summary of a room document.
type RoomStats struct {
	RoomId        string         `json:"room_id"`
	Phase         internal.Phase `json:"phase"`
	Round         int            `json:"round"`
	TotalRounds   int            `json:"total_rounds"`
	Players       int            `json:"players"`
	Npcs          int            `json:"npcs"`
	Ready         int            `json:"ready"`
	GuessesMade   int            `json:"guesses_made"`
	GuessesNeeded int            `json:"guesses_needed"`
	DoneVoting    int            `json:"done_voting"`
	AverageScore  float64        `json:"average_score"`
	Leader        string         `json:"leader,omitempty"`
}

// GetRoomStats counts players, guess progress and the current leader.
func GetRoomStats(s internal.SessionState) RoomStats {
	players := s.SortedPlayers()
	stats := RoomStats{
		RoomId:        s.RoomId,
		Phase:         s.Phase,
		Round:         s.RoundCount,
		TotalRounds:   len(players),
		Players:       len(players),
		GuessesNeeded: len(players) * max(len(players)-1, 0),
		DoneVoting:    s.DiscussionVoted.Len(),
	}

	total := 0
	for _, p := range players {
		if p.IsNpc {
			stats.Npcs++
		}
		if p.IsReady {
			stats.Ready++
		}
		total += p.CumulativeScore
		for target := range s.AllGuesses[p.Id] {
			if target != p.Id {
				stats.GuessesMade++
			}
		}
	}
	if len(players) > 0 {
		stats.AverageScore = float64(total) / float64(len(players))
	}
	if s.Phase == internal.PhaseResult || s.Phase == internal.PhaseFinalResult {
		stats.Leader = Standings(s)[0].Id
	}
	return stats
}
