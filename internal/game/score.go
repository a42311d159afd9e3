package game

import (
	"fmt"
	"math"
	"slices"

	"github.com/scythe504/wavelength-backend/internal"
	"github.com/scythe504/wavelength-backend/internal/random"
)

const (
	AwardBonus        = 20
	PerfectMatchBonus = 20
)

// RankBonuses are added to the top three round scores.
var RankBonuses = []int{100, 50, 30}

var (
	awardUnderstander = internal.Award{Name: "True Understander", Description: "Smallest average miss when guessing others", Bonus: AwardBonus}
	awardWhiff        = internal.Award{Name: "Whiff", Description: "Largest average miss when guessing others", Bonus: -AwardBonus}
	awardResonator    = internal.Award{Name: "Resonator", Description: "Others read you most accurately", Bonus: AwardBonus}
	awardZeroEmpathy  = internal.Award{Name: "Zero Empathy", Description: "Others read you least accurately", Bonus: -AwardBonus}
	awardPerfectMatch = internal.Award{Name: "Perfect Match", Description: "Guessed a number exactly", Bonus: PerfectMatchBonus}
)

func rankAward(rank, bonus int) internal.Award {
	return internal.Award{
		Name:        fmt.Sprintf("Rank %d", rank),
		Description: "Rank bonus",
		Bonus:       bonus,
	}
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// ScoreRound computes every player's result for one completed guess table.
func ScoreRound(players []internal.Player, table internal.GuessTable) ([]internal.RoundResult, error) {
	secrets := make(map[string]int, len(players))
	for _, p := range players {
		secrets[p.Id] = p.SecretNumber
	}
	for guesser, row := range table {
		if _, ok := secrets[guesser]; !ok {
			return nil, fmt.Errorf("%w: guesser %s", internal.ErrUnknownPlayer, guesser)
		}
		for target := range row {
			if _, ok := secrets[target]; !ok {
				return nil, fmt.Errorf("%w: target %s", internal.ErrUnknownPlayer, target)
			}
		}
	}

	results := make([]internal.RoundResult, 0, len(players))
	for _, p := range players {
		received := make(map[string]int)
		incoming := 0.0
		for guesserId, row := range table {
			if guesserId == p.Id {
				continue
			}
			if v, ok := row[p.Id]; ok {
				received[guesserId] = v
				incoming += float64(absDiff(v, p.SecretNumber))
			}
		}

		outgoing := 0.0
		for targetId, v := range table[p.Id] {
			if targetId == p.Id {
				continue
			}
			outgoing += float64(absDiff(v, secrets[targetId]))
		}

		results = append(results, internal.RoundResult{
			PlayerId:      p.Id,
			SecretNumber:  p.SecretNumber,
			Guesses:       received,
			IncomingScore: -int(math.Round(incoming)),
			OutgoingScore: -int(math.Round(outgoing)),
			ScoreGain:     -int(math.Round(incoming + outgoing)),
		})
	}
	return results, nil
}

// accuracy accumulates absolute misses.
type accuracy struct {
	sum   int
	count int
}

func (a accuracy) avg() (float64, bool) {
	if a.count == 0 {
		return 0, false
	}
	return float64(a.sum) / float64(a.count), true
}

// accuracyStats walks the whole history: given is how far each player missed
// as a guesser, received is how far others missed when guessing them.
func accuracyStats(history [][]internal.RoundResult) (given, received map[string]accuracy) {
	given = make(map[string]accuracy)
	received = make(map[string]accuracy)
	for _, round := range history {
		for _, res := range round {
			for guesserId, v := range res.Guesses {
				if guesserId == res.PlayerId {
					continue
				}
				d := absDiff(v, res.SecretNumber)
				g := given[guesserId]
				g.sum += d
				g.count++
				given[guesserId] = g

				r := received[res.PlayerId]
				r.sum += d
				r.count++
				received[res.PlayerId] = r
			}
		}
	}
	return given, received
}

// extremes returns the ids with the lowest and highest average, scanning ids
// in ascending order so ties go to the smaller id. worst is empty when it
// would be the same player as best.
func extremes(ids []string, stats map[string]accuracy) (best, worst string) {
	bestAvg, worstAvg := math.Inf(1), math.Inf(-1)
	for _, id := range ids {
		avg, ok := stats[id].avg()
		if !ok {
			continue
		}
		if avg < bestAvg {
			bestAvg, best = avg, id
		}
		if avg > worstAvg {
			worstAvg, worst = avg, id
		}
	}
	if worst == best {
		worst = ""
	}
	return best, worst
}

// compareStanding orders by score desc, cumulative desc, then id asc.
func compareStanding(a, b internal.Player) int {
	if a.Score != b.Score {
		return b.Score - a.Score
	}
	if a.CumulativeScore != b.CumulativeScore {
		return b.CumulativeScore - a.CumulativeScore
	}
	switch {
	case a.Id < b.Id:
		return -1
	case a.Id > b.Id:
		return 1
	}
	return 0
}

type Scorer struct {
	rng random.Source
}

func NewScorer(rng random.Source) *Scorer {
	return &Scorer{rng: rng}
}

// ApplyRound runs the per-round standings pass. history must already end with
// the round being scored. Players come back in ranking order.
func (s *Scorer) ApplyRound(players []internal.Player, history [][]internal.RoundResult) ([]internal.Player, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: no rounds to score", internal.ErrHistoryMismatch)
	}
	current := make(map[string]internal.RoundResult)
	for _, res := range history[len(history)-1] {
		current[res.PlayerId] = res
	}

	out := make([]internal.Player, len(players))
	ids := make([]string, len(players))
	for i, p := range players {
		res, ok := current[p.Id]
		if !ok {
			return nil, fmt.Errorf("%w: no result for %s", internal.ErrHistoryMismatch, p.Id)
		}
		p = p.Clone()
		p.ScoreHistory = append(p.ScoreHistory, res.ScoreGain)
		p.CumulativeScore += res.ScoreGain
		p.Score = res.ScoreGain
		p.Awards = nil
		out[i] = p
		ids[i] = p.Id
	}
	slices.Sort(ids)

	awards := make(map[string][]internal.Award, len(players))
	given, received := accuracyStats(history)
	if best, worst := extremes(ids, given); best != "" {
		awards[best] = append(awards[best], awardUnderstander)
		if worst != "" {
			awards[worst] = append(awards[worst], awardWhiff)
		}
	}
	if best, worst := extremes(ids, received); best != "" {
		awards[best] = append(awards[best], awardResonator)
		if worst != "" {
			awards[worst] = append(awards[worst], awardZeroEmpathy)
		}
	}

	// Perfect matches count for the round being scored only.
	for _, res := range history[len(history)-1] {
		for guesserId, v := range res.Guesses {
			if guesserId != res.PlayerId && v == res.SecretNumber {
				awards[guesserId] = append(awards[guesserId], awardPerfectMatch)
			}
		}
	}

	for i := range out {
		bonus := 0
		for _, a := range awards[out[i].Id] {
			bonus += a.Bonus
		}
		out[i].Awards = awards[out[i].Id]
		out[i].Score += bonus
		out[i].CumulativeScore += bonus
	}

	slices.SortFunc(out, compareStanding)
	for i := range out {
		if i < len(RankBonuses) {
			bonus := RankBonuses[i]
			out[i].Score += bonus
			out[i].CumulativeScore += bonus
			out[i].Awards = append(out[i].Awards, rankAward(i+1, bonus))
		}
		out[i].Title = s.Title(out[i].Score, len(out))
	}
	return out, nil
}

// FinalizeStandings scores the game as the plain sum of each player's raw
// round gains. It never changes cumulative scores.
func (s *Scorer) FinalizeStandings(players []internal.Player, history [][]internal.RoundResult) ([]internal.Player, error) {
	out := make([]internal.Player, len(players))
	for i, p := range players {
		if len(p.ScoreHistory) != len(history) {
			return nil, fmt.Errorf("%w: %s has %d entries, game has %d rounds",
				internal.ErrHistoryMismatch, p.Id, len(p.ScoreHistory), len(history))
		}
		p = p.Clone()
		p.Score = p.TotalHistory()
		p.Awards = nil
		out[i] = p
	}
	slices.SortFunc(out, compareStanding)
	for i := range out {
		out[i].Title = s.Title(out[i].CumulativeScore, len(out))
	}
	return out, nil
}
