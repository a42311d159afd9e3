package internal

import "slices"

// Methods (SessionState)

// SortedPlayers returns the roster in join order, ties broken by id.
func (s SessionState) SortedPlayers() []Player {
	out := make([]Player, 0, len(s.Players))
	for _, p := range s.Players {
		out = append(out, p.Clone())
	}
	slices.SortFunc(out, func(a, b Player) int {
		if a.JoinedAt != b.JoinedAt {
			if a.JoinedAt < b.JoinedAt {
				return -1
			}
			return 1
		}
		if a.Id < b.Id {
			return -1
		}
		if a.Id > b.Id {
			return 1
		}
		return 0
	})
	return out
}

func (s SessionState) GetPlayer(id string) (Player, bool) {
	p, ok := s.Players[id]
	return p, ok
}

func (s SessionState) GetPlayerCount() int {
	return len(s.Players)
}

func (s SessionState) IsHost(playerId string) bool {
	return playerId != "" && s.HostId == playerId
}

// ColorTaken reports whether a player other than exceptId holds color.
func (s SessionState) ColorTaken(color, exceptId string) bool {
	for id, p := range s.Players {
		if id != exceptId && p.Color == color {
			return true
		}
	}
	return false
}

// FreeColor returns the first palette color nobody holds. Past the palette
// it hands out generated colors, so it only returns "" for a roster larger
// than MaxPlayers.
func (s SessionState) FreeColor() string {
	for _, c := range Palette {
		if !s.ColorTaken(c, "") {
			return c
		}
	}
	for _, c := range overflowColors {
		if !s.ColorTaken(c, "") {
			return c
		}
	}
	return ""
}

// WithPlayers replaces the roster with players.
func (s SessionState) WithPlayers(players []Player) SessionState {
	s.Players = make(map[string]Player, len(players))
	for _, p := range players {
		s.Players[p.Id] = p
	}
	return s
}

// Clone deep-copies every mutable field.
func (s SessionState) Clone() SessionState {
	out := s
	out.Players = make(map[string]Player, len(s.Players))
	for id, p := range s.Players {
		out.Players[id] = p.Clone()
	}
	if s.CurrentTheme != nil {
		t := *s.CurrentTheme
		out.CurrentTheme = &t
	}
	if s.ThemeChoice != nil {
		c := *s.ThemeChoice
		out.ThemeChoice = &c
	}
	out.ThemeCandidates = append([]Theme(nil), s.ThemeCandidates...)
	out.SharedMemos = make(map[string]string, len(s.SharedMemos))
	for k, v := range s.SharedMemos {
		out.SharedMemos[k] = v
	}
	out.AllGuesses = s.AllGuesses.Clone()
	if s.DiscussionSnapshot != nil {
		out.DiscussionSnapshot = s.DiscussionSnapshot.Clone()
	}
	out.RoundResults = cloneResults(s.RoundResults)
	out.GameHistory = make([][]RoundResult, len(s.GameHistory))
	for i, round := range s.GameHistory {
		out.GameHistory[i] = cloneResults(round)
	}
	return out
}

func cloneResults(in []RoundResult) []RoundResult {
	if in == nil {
		return nil
	}
	out := make([]RoundResult, len(in))
	for i, r := range in {
		g := make(map[string]int, len(r.Guesses))
		for k, v := range r.Guesses {
			g[k] = v
		}
		r.Guesses = g
		out[i] = r
	}
	return out
}
