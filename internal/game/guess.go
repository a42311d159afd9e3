package game

import (
	"fmt"
	"strings"

	"github.com/scythe504/wavelength-backend/internal"
	"github.com/scythe504/wavelength-backend/internal/random"
)

// =============================================================================
// VOTE AGGREGATION
// =============================================================================

type Aggregator struct {
	rng random.Source
}

func NewAggregator(rng random.Source) *Aggregator {
	return &Aggregator{rng: rng}
}

func roster(players []internal.Player) map[string]bool {
	ids := make(map[string]bool, len(players))
	for _, p := range players {
		ids[p.Id] = true
	}
	return ids
}

// RecordGuess returns a copy of table with guesser's guess for target set.
// Resubmission overwrites.
func (a *Aggregator) RecordGuess(players []internal.Player, table internal.GuessTable,
	guesserId, targetId string, value int) (internal.GuessTable, error) {
	return a.RecordBatch(players, table, guesserId, map[string]int{targetId: value})
}

// RecordBatch validates every placement before applying any of them.
func (a *Aggregator) RecordBatch(players []internal.Player, table internal.GuessTable,
	guesserId string, placements map[string]int) (internal.GuessTable, error) {
	if err := validatePlacements(players, guesserId, placements); err != nil {
		return nil, err
	}
	out := table.Clone()
	row := out[guesserId]
	if row == nil {
		row = make(map[string]int, len(placements))
		out[guesserId] = row
	}
	for target, v := range placements {
		row[target] = v
	}
	return out, nil
}

func validatePlacements(players []internal.Player, guesserId string, placements map[string]int) error {
	ids := roster(players)
	if !ids[guesserId] {
		return fmt.Errorf("%w: guesser %s", internal.ErrUnknownPlayer, guesserId)
	}
	for target, v := range placements {
		if !ids[target] {
			return fmt.Errorf("%w: target %s", internal.ErrUnknownPlayer, target)
		}
		if target == guesserId {
			return internal.Invalid("players cannot guess their own number")
		}
		if v < internal.MinSecret || v > internal.MaxSecret {
			return internal.Invalid("guess must be between %d and %d", internal.MinSecret, internal.MaxSecret)
		}
	}
	return nil
}

// RecordMemo returns a copy of memos with playerId's memo trimmed and capped.
func RecordMemo(memos map[string]string, playerId, text string) map[string]string {
	out := make(map[string]string, len(memos)+1)
	for k, v := range memos {
		out[k] = v
	}
	out[playerId] = TrimMemo(text)
	return out
}

func TrimMemo(text string) string {
	text = strings.TrimSpace(text)
	if r := []rune(text); len(r) > internal.MaxMemoLength {
		text = string(r[:internal.MaxMemoLength])
	}
	return text
}

// IsComplete reports whether every player has guessed every other player.
func IsComplete(players []internal.Player, table internal.GuessTable) bool {
	if len(players) == 0 {
		return false
	}
	for _, guesser := range players {
		row, ok := table[guesser.Id]
		if !ok {
			return false
		}
		for _, target := range players {
			if target.Id == guesser.Id {
				continue
			}
			if _, ok := row[target.Id]; !ok {
				return false
			}
		}
	}
	return true
}

// IsDiscussionComplete applies the same roster rule to the done set.
func IsDiscussionComplete(players []internal.Player, done internal.StringSet) bool {
	if len(players) == 0 {
		return false
	}
	for _, p := range players {
		if !done.Has(p.Id) {
			return false
		}
	}
	return true
}

// ValidateRevision checks a discussion resubmission against the snapshot
// taken when discussion opened. At most one target may change.
func ValidateRevision(snapshot internal.GuessTable, guesserId string, revised map[string]int) error {
	before := snapshot[guesserId]
	changed := 0
	for target, v := range revised {
		if old, ok := before[target]; !ok || old != v {
			changed++
		}
	}
	if changed > 1 {
		return fmt.Errorf("%w: %d placements changed", internal.ErrTooManyRevisions, changed)
	}
	return nil
}

// ForceComplete fills every missing guesser→target pair with a uniform draw
// from [1,100]. Existing guesses are kept.
func (a *Aggregator) ForceComplete(players []internal.Player, table internal.GuessTable) internal.GuessTable {
	out := table.Clone()
	for _, guesser := range players {
		row := out[guesser.Id]
		if row == nil {
			row = make(map[string]int, len(players)-1)
			out[guesser.Id] = row
		}
		for _, target := range players {
			if target.Id == guesser.Id {
				continue
			}
			if _, ok := row[target.Id]; !ok {
				row[target.Id] = random.Between(a.rng, internal.MinSecret, internal.MaxSecret)
			}
		}
	}
	return out
}

// ForceDiscussion marks every player done.
func ForceDiscussion(players []internal.Player, done internal.MarkSet) internal.MarkSet {
	for _, p := range players {
		done = done.Mark(p.Id)
	}
	return done
}

// Stragglers lists players whose table entry is incomplete.
func Stragglers(players []internal.Player, table internal.GuessTable) []string {
	var out []string
	for _, guesser := range players {
		row := table[guesser.Id]
		for _, target := range players {
			if target.Id == guesser.Id {
				continue
			}
			if _, ok := row[target.Id]; !ok {
				out = append(out, guesser.Id)
				break
			}
		}
	}
	return out
}
