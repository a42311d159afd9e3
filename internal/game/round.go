package game

import (
	"fmt"
	"strings"

	"github.com/scythe504/wavelength-backend/internal"
	"github.com/scythe504/wavelength-backend/internal/random"
	"github.com/scythe504/wavelength-backend/internal/themes"
)

// ===== ROUND SETUP =====

// RoundSetup is everything the host publishes when a round starts.
type RoundSetup struct {
	Players           []internal.Player
	RoundIndex        int
	Settings          internal.Settings
	TurnPlayerId      string
	PastTurnPlayerIds internal.StringSet
	ThemeCandidates   []internal.Theme
	UsedThemeTexts    internal.StringSet
}

// Apply writes the setup into a copy of s and clears every round-scoped field.
func (r RoundSetup) Apply(s internal.SessionState) internal.SessionState {
	next := s.Clone().WithPlayers(r.Players)
	next.Phase = internal.PhaseSetting
	next.Settings = r.Settings
	next.RoundCount = r.RoundIndex
	next.CurrentTheme = nil
	next.ThemeChoice = nil
	next.ThemeCandidates = r.ThemeCandidates
	next.UsedThemeTexts = r.UsedThemeTexts
	next.CurrentTurnPlayerId = r.TurnPlayerId
	next.PastTurnPlayerIds = r.PastTurnPlayerIds
	next.SharedMemos = map[string]string{}
	next.AllGuesses = internal.GuessTable{}
	next.DiscussionSnapshot = nil
	next.DiscussionVoted = internal.MarkSet{}
	next.RoundResults = nil
	return next
}

type Orchestrator struct {
	catalog *themes.Catalog
	rng     random.Source
}

func NewOrchestrator(catalog *themes.Catalog, rng random.Source) *Orchestrator {
	return &Orchestrator{catalog: catalog, rng: rng}
}

// StartRound assigns secrets, picks the turn player and draws two theme
// candidates for round roundIndex.
func (o *Orchestrator) StartRound(players []internal.Player, roundIndex int, settings internal.Settings,
	pastTurn, used internal.StringSet) (RoundSetup, error) {
	if len(players) == 0 {
		return RoundSetup{}, internal.ErrNoPlayers
	}

	assigned, err := o.AssignNumbers(players)
	if err != nil {
		return RoundSetup{}, err
	}
	turnId, past := o.PickTurnPlayer(assigned, pastTurn)
	candidates, nextUsed := o.PickThemeCandidates(settings, used)

	return RoundSetup{
		Players:           assigned,
		RoundIndex:        roundIndex,
		Settings:          settings,
		TurnPlayerId:      turnId,
		PastTurnPlayerIds: past,
		ThemeCandidates:   candidates,
		UsedThemeTexts:    nextUsed,
	}, nil
}

// AssignNumbers gives every player a distinct secret in [1,100] by
// rejection sampling.
func (o *Orchestrator) AssignNumbers(players []internal.Player) ([]internal.Player, error) {
	if len(players) > internal.MaxPlayers {
		return nil, fmt.Errorf("%w: %d", internal.ErrTooManyPlayers, len(players))
	}
	used := make(map[int]bool, len(players))
	out := make([]internal.Player, len(players))
	for i, p := range players {
		n := random.Between(o.rng, internal.MinSecret, internal.MaxSecret)
		for used[n] {
			n = random.Between(o.rng, internal.MinSecret, internal.MaxSecret)
		}
		used[n] = true
		p = p.Clone()
		p.SecretNumber = n
		out[i] = p
	}
	return out, nil
}

// PickTurnPlayer draws uniformly among players who have not had a turn this
// cycle. Once everyone has, the cycle restarts.
func (o *Orchestrator) PickTurnPlayer(players []internal.Player, past internal.StringSet) (string, internal.StringSet) {
	var candidates []string
	for _, p := range players {
		if !past.Has(p.Id) {
			candidates = append(candidates, p.Id)
		}
	}
	if len(candidates) == 0 {
		past = internal.StringSet{}
		for _, p := range players {
			candidates = append(candidates, p.Id)
		}
	}
	chosen := random.Pick(o.rng, candidates)
	return chosen, past.With(chosen)
}

// PickThemeCandidates draws two distinct unused themes from the settings'
// pool. When fewer than two remain, the pool's texts are forgotten and the
// draw uses the whole pool; used texts from other pools survive.
func (o *Orchestrator) PickThemeCandidates(settings internal.Settings, used internal.StringSet) ([]internal.Theme, internal.StringSet) {
	pool := o.catalog.Pool(settings)

	var available []internal.Theme
	for _, t := range pool {
		if !used.Has(t.Text) {
			available = append(available, t)
		}
	}

	from := available
	if len(available) < 2 {
		inPool := make(map[string]bool, len(pool))
		for _, t := range pool {
			inPool[t.Text] = true
		}
		used = used.Without(func(text string) bool { return inPool[text] })
		from = pool
	}
	return random.Sample(o.rng, from, 2), used
}

// ===== THEME SELECTION =====

func validThemeChoice(s internal.SessionState, choice internal.ThemeChoice) error {
	if choice.PlayerId != s.CurrentTurnPlayerId && !s.IsHost(choice.PlayerId) {
		return internal.ErrNotTurnPlayer
	}
	_, err := resolveTheme(s, choice.Theme)
	return err
}

// resolveTheme returns the candidate named by theme, or in ORIGINAL mode the
// custom theme itself.
func resolveTheme(s internal.SessionState, theme internal.Theme) (internal.Theme, error) {
	text := strings.TrimSpace(theme.Text)
	if text == "" {
		return internal.Theme{}, internal.Invalid("theme text is required")
	}
	for _, c := range s.ThemeCandidates {
		if c.Text == text {
			return c, nil
		}
	}
	if s.Settings.GameMode != internal.ModeOriginal {
		return internal.Theme{}, internal.Invalid("theme %q is not one of the candidates", text)
	}
	if strings.TrimSpace(theme.Min) == "" || strings.TrimSpace(theme.Max) == "" {
		return internal.Theme{}, internal.Invalid("both ends of the scale need a label")
	}
	theme.Text = text
	theme.Min = strings.TrimSpace(theme.Min)
	theme.Max = strings.TrimSpace(theme.Max)
	return theme, nil
}

// applyTheme moves a copy of s into GAME on theme.
func applyTheme(s internal.SessionState, theme internal.Theme) internal.SessionState {
	next := s.Clone()
	if theme.Genre == "" {
		theme.Genre = internal.GenreNormal
	}
	next.CurrentTheme = &theme
	next.ThemeChoice = nil
	next.UsedThemeTexts = s.UsedThemeTexts.With(theme.Text)
	next.Phase = internal.PhaseGame
	return next
}
