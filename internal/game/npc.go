package game

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/scythe504/wavelength-backend/internal"
	"github.com/scythe504/wavelength-backend/internal/random"
)

const (
	npcNoise      = 10
	npcWildNoise  = 30
	npcWildChance = 0.2
)

// npcGuess is a noisy read of secret: usually within ±10, occasionally ±30.
func npcGuess(rng random.Source, secret int) int {
	spread := npcNoise
	if rng.Float64() < npcWildChance {
		spread = npcWildNoise
	}
	v := secret + random.Between(rng, -spread, spread)
	return min(max(v, internal.MinSecret), internal.MaxSecret)
}

func npcPlacements(rng random.Source, npc internal.Player, players []internal.Player) map[string]int {
	out := make(map[string]int, len(players)-1)
	for _, target := range players {
		if target.Id == npc.Id {
			continue
		}
		out[target.Id] = npcGuess(rng, target.SecretNumber)
	}
	return out
}

// npcRevision moves one random target of the NPC's snapshot row to a fresh
// read.
func npcRevision(rng random.Source, npc internal.Player, players []internal.Player, snapshot map[string]int) map[string]int {
	draft := NewDiscussionDraft(snapshot)
	var targets []internal.Player
	for _, p := range players {
		if p.Id != npc.Id {
			targets = append(targets, p)
		}
	}
	if len(targets) == 0 {
		return draft.Placements()
	}
	target := random.Pick(rng, targets)
	_ = draft.Set(target.Id, npcGuess(rng, target.SecretNumber))
	return draft.Placements()
}

// driveNPCsLocked submits on behalf of every NPC that has not acted in the
// current step. It runs at most once per step and only on the replica that
// owns NPCs. It reports whether anything was written.
func (s *Session) driveNPCsLocked(ctx context.Context) bool {
	if !s.isHostLocked() {
		return false
	}
	key := keyOf(s.state)
	if s.npcHandled[key] {
		return false
	}
	if s.state.Phase != internal.PhaseGame && s.state.Phase != internal.PhaseDiscussion {
		return false
	}

	players := s.state.SortedPlayers()
	phase := s.state.Phase
	wrote := false
	for _, npc := range players {
		if !npc.IsNpc {
			continue
		}
		var err error
		switch phase {
		case internal.PhaseGame:
			if row := s.state.AllGuesses[npc.Id]; len(row) >= len(players)-1 {
				continue
			}
			err = s.sink.SubmitGuesses(ctx, npc.Id, npcPlacements(s.rng, npc, players))
		case internal.PhaseDiscussion:
			if s.state.DiscussionVoted.Has(npc.Id) {
				continue
			}
			revised := npcRevision(s.rng, npc, players, s.state.DiscussionSnapshot[npc.Id])
			if err = s.sink.SubmitGuesses(ctx, npc.Id, revised); err == nil {
				err = s.sink.MarkDiscussionDone(ctx, npc.Id)
			}
		}
		if err != nil {
			log.Error().Err(err).Str("room", s.roomId).Str("npc", npc.Id).Msg("[driveNPCsLocked] submit failed")
			return wrote
		}
		wrote = true
	}
	s.npcHandled[key] = true
	if wrote {
		log.Debug().Str("room", s.roomId).Str("step", key.String()).Msg("[driveNPCsLocked] NPCs submitted")
	}
	return wrote
}

// AddNPC seats a computer player in the lobby.
func (s *Session) AddNPC(ctx context.Context, name string) (internal.Player, error) {
	s.mu.Lock()
	defer s.unlockAndNotify()

	if err := s.requireHostLocked(); err != nil {
		return internal.Player{}, err
	}
	if err := requirePhase(s.state, internal.PhaseLobby); err != nil {
		return internal.Player{}, err
	}
	if err := internal.ValidateName(name); err != nil {
		return internal.Player{}, err
	}
	if len(s.state.Players) >= internal.MaxPlayers {
		return internal.Player{}, internal.ErrTooManyPlayers
	}
	color := s.state.FreeColor()
	if color == "" {
		return internal.Player{}, internal.ErrTooManyPlayers
	}

	npc := internal.NewPlayer(fmt.Sprintf("npc-%s", uuid.NewString()[:8]), name, color, s.nowMillis())
	npc.IsNpc = true
	npc.IsReady = true
	if err := s.sink.AddPlayer(ctx, npc); err != nil {
		return internal.Player{}, err
	}
	log.Info().Str("room", s.roomId).Str("npc", npc.Id).Str("name", npc.Name).Msg("[AddNPC] NPC seated")
	return npc, nil
}
