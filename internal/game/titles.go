package game

import "github.com/scythe504/wavelength-backend/internal/random"

var (
	winnerWords = []string{
		"Mind Reader", "Telepath", "Soul Twin", "Oracle", "The Tuned-In",
		"Wavelength Master", "Heart Whisperer", "Empath Supreme",
	}
	normalWords = []string{
		"Regular", "Decent Guesser", "Everyday Hero", "Middle Lane", "Steady Hand",
		"Crowd Member", "Fair Player",
	}
	abnormalWords = []string{
		"Oddball", "Off-Beat", "Wildcard", "Strange Frequency", "Static",
		"Left Field",
	}
	dangerWords = []string{
		"Menace", "Chaos Engine", "Signal Jammer", "Lost Cause", "Black Hole",
		"Disaster",
	}
	decoratorWords = []string{
		"Legendary ", "Cosmic ", "Ultimate ", "Certified ", "Eternal ",
	}
)

const (
	TierWinner    = "winner"
	TierNormal    = "normal"
	TierAbnormal  = "abnormal"
	TierDanger    = "danger"
	TierDecorated = "decorated-danger"
)

// TitleTier names the word pool a score falls into. Thresholds scale with
// the roster since bigger rooms produce bigger misses.
func TitleTier(score, playerCount int) string {
	scale := float64(max(playerCount, 1)) / 4
	v := float64(score)
	switch {
	case v >= 0:
		return TierWinner
	case v <= -160*scale:
		return TierDecorated
	case v <= -120*scale:
		return TierDanger
	case v <= -80*scale:
		return TierAbnormal
	default:
		// -40*scale only splits the normal band.
		return TierNormal
	}
}

// Title samples a flavor title for score from its tier's pool.
func (s *Scorer) Title(score, playerCount int) string {
	switch TitleTier(score, playerCount) {
	case TierWinner:
		return random.Pick(s.rng, winnerWords)
	case TierDecorated:
		return random.Pick(s.rng, decoratorWords) + random.Pick(s.rng, dangerWords)
	case TierDanger:
		return random.Pick(s.rng, dangerWords)
	case TierAbnormal:
		return random.Pick(s.rng, abnormalWords)
	}
	return random.Pick(s.rng, normalWords)
}
