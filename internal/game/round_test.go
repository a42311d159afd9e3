package game

import (
	"fmt"
	"testing"

	"github.com/scythe504/wavelength-backend/internal"
	"github.com/scythe504/wavelength-backend/internal/random"
	"github.com/scythe504/wavelength-backend/internal/themes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crowd(n int) []internal.Player {
	players := make([]internal.Player, n)
	for i := range players {
		players[i] = internal.NewPlayer(fmt.Sprintf("p%03d", i), "P", "", int64(i))
	}
	return players
}

func testCatalog() *themes.Catalog {
	return themes.New(
		internal.Theme{Text: "n1", Min: "lo", Max: "hi", Genre: internal.GenreNormal},
		internal.Theme{Text: "n2", Min: "lo", Max: "hi", Genre: internal.GenreNormal},
		internal.Theme{Text: "n3", Min: "lo", Max: "hi", Genre: internal.GenreNormal},
		internal.Theme{Text: "x1", Min: "lo", Max: "hi", Genre: internal.GenreAbnormal},
		internal.Theme{Text: "x2", Min: "lo", Max: "hi", Genre: internal.GenreAbnormal},
	)
}

func TestAssignNumbersDistinct(t *testing.T) {
	o := NewOrchestrator(testCatalog(), random.New(5))
	out, err := o.AssignNumbers(crowd(internal.MaxPlayers))
	require.NoError(t, err)

	seen := map[int]bool{}
	for _, p := range out {
		require.GreaterOrEqual(t, p.SecretNumber, internal.MinSecret)
		require.LessOrEqual(t, p.SecretNumber, internal.MaxSecret)
		require.False(t, seen[p.SecretNumber], "duplicate secret %d", p.SecretNumber)
		seen[p.SecretNumber] = true
	}
}

func TestAssignNumbersTooManyPlayers(t *testing.T) {
	o := NewOrchestrator(testCatalog(), random.New(5))
	_, err := o.AssignNumbers(crowd(internal.MaxPlayers + 1))
	assert.ErrorIs(t, err, internal.ErrTooManyPlayers)
}

func TestPickTurnPlayerCyclesEveryone(t *testing.T) {
	o := NewOrchestrator(testCatalog(), random.New(11))
	players := crowd(5)

	past := internal.StringSet{}
	picked := map[string]int{}
	for i := 0; i < len(players); i++ {
		var id string
		id, past = o.PickTurnPlayer(players, past)
		picked[id]++
	}
	assert.Len(t, picked, len(players))
	assert.Equal(t, len(players), past.Len())

	// A full cycle restarts from an empty set.
	id, past := o.PickTurnPlayer(players, past)
	assert.Equal(t, []string{id}, past.Slice())
}

func TestPickThemeCandidates(t *testing.T) {
	o := NewOrchestrator(testCatalog(), random.New(3))
	normal := internal.Settings{GameMode: internal.ModeAuto, IncludeNormalThemes: true}

	got, used := o.PickThemeCandidates(normal, internal.NewStringSet("n1"))
	require.Len(t, got, 2)
	assert.ElementsMatch(t, []string{"n2", "n3"}, []string{got[0].Text, got[1].Text})
	assert.Equal(t, []string{"n1"}, used.Slice())
}

func TestPickThemeCandidatesResetsExhaustedPool(t *testing.T) {
	o := NewOrchestrator(testCatalog(), random.New(3))
	normal := internal.Settings{GameMode: internal.ModeAuto, IncludeNormalThemes: true}

	got, used := o.PickThemeCandidates(normal, internal.NewStringSet("n1", "n2", "x1"))
	require.Len(t, got, 2)
	assert.NotEqual(t, got[0].Text, got[1].Text)
	for _, th := range got {
		assert.Equal(t, internal.GenreNormal, th.Genre)
	}
	// Texts outside the pool are remembered.
	assert.Equal(t, []string{"x1"}, used.Slice())
}

func TestStartRound(t *testing.T) {
	o := NewOrchestrator(testCatalog(), random.New(8))
	players := crowd(3)
	settings := internal.DefaultSettings()

	setup, err := o.StartRound(players, 2, settings, internal.NewStringSet("p000"), internal.StringSet{})
	require.NoError(t, err)
	assert.Equal(t, 2, setup.RoundIndex)
	assert.NotEqual(t, "p000", setup.TurnPlayerId)
	assert.True(t, setup.PastTurnPlayerIds.Has(setup.TurnPlayerId))
	assert.Len(t, setup.ThemeCandidates, 2)
	assert.Len(t, setup.Players, 3)

	_, err = o.StartRound(nil, 0, settings, internal.StringSet{}, internal.StringSet{})
	assert.ErrorIs(t, err, internal.ErrNoPlayers)
}

func TestRoundSetupApplyClearsRoundFields(t *testing.T) {
	host := internal.NewPlayer("p000", "Host", internal.Palette[0], 0)
	s := internal.NewSessionState("1234", host)
	s.Phase = internal.PhaseResult
	s.SharedMemos = map[string]string{"p000": "memo"}
	s.AllGuesses = internal.GuessTable{"p000": {"p001": 3}}
	s.DiscussionVoted = internal.NewMarkSet("p000")
	s.RoundResults = []internal.RoundResult{{PlayerId: "p000"}}
	s.ThemeChoice = &internal.ThemeChoice{PlayerId: "p000"}

	next := RoundSetup{Players: []internal.Player{host}, RoundIndex: 1, Settings: internal.DefaultSettings(), TurnPlayerId: "p000"}.Apply(s)
	assert.Equal(t, internal.PhaseSetting, next.Phase)
	assert.Equal(t, 1, next.RoundCount)
	assert.Empty(t, next.SharedMemos)
	assert.Empty(t, next.AllGuesses)
	assert.Zero(t, next.DiscussionVoted.Len())
	assert.Nil(t, next.RoundResults)
	assert.Nil(t, next.ThemeChoice)
	assert.Nil(t, next.CurrentTheme)

	// The input document is untouched.
	assert.Equal(t, internal.PhaseResult, s.Phase)
	assert.Len(t, s.AllGuesses, 1)
}

func TestResolveTheme(t *testing.T) {
	s := internal.NewSessionState("1234", internal.NewPlayer("h", "Host", "", 0))
	s.ThemeCandidates = []internal.Theme{{Text: "n1", Min: "lo", Max: "hi", Genre: internal.GenreNormal}}

	got, err := resolveTheme(s, internal.Theme{Text: " n1 "})
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Max)

	_, err = resolveTheme(s, internal.Theme{Text: "custom", Min: "a", Max: "b"})
	assert.True(t, internal.IsValidation(err))

	s.Settings.GameMode = internal.ModeOriginal
	got, err = resolveTheme(s, internal.Theme{Text: " custom ", Min: " a ", Max: "b"})
	require.NoError(t, err)
	assert.Equal(t, internal.Theme{Text: "custom", Min: "a", Max: "b"}, got)

	_, err = resolveTheme(s, internal.Theme{Text: "custom", Min: "a"})
	assert.True(t, internal.IsValidation(err))

	_, err = resolveTheme(s, internal.Theme{Text: "  "})
	assert.True(t, internal.IsValidation(err))
}

func TestValidThemeChoice(t *testing.T) {
	s := internal.NewSessionState("1234", internal.NewPlayer("h", "Host", "", 0))
	s.Players["t"] = internal.NewPlayer("t", "Turn", "", 1)
	s.Players["o"] = internal.NewPlayer("o", "Other", "", 2)
	s.CurrentTurnPlayerId = "t"
	s.ThemeCandidates = []internal.Theme{{Text: "n1", Min: "lo", Max: "hi"}}

	assert.NoError(t, validThemeChoice(s, internal.ThemeChoice{PlayerId: "t", Theme: internal.Theme{Text: "n1"}}))
	assert.NoError(t, validThemeChoice(s, internal.ThemeChoice{PlayerId: "h", Theme: internal.Theme{Text: "n1"}}))
	assert.ErrorIs(t, validThemeChoice(s, internal.ThemeChoice{PlayerId: "o", Theme: internal.Theme{Text: "n1"}}), internal.ErrNotTurnPlayer)
}

func TestApplyThemeRecordsUsedText(t *testing.T) {
	s := internal.NewSessionState("1234", internal.NewPlayer("h", "Host", "", 0))
	s.Phase = internal.PhaseSetting
	s.ThemeChoice = &internal.ThemeChoice{PlayerId: "h"}

	next := applyTheme(s, internal.Theme{Text: "custom", Min: "a", Max: "b"})
	assert.Equal(t, internal.PhaseGame, next.Phase)
	require.NotNil(t, next.CurrentTheme)
	assert.Equal(t, internal.GenreNormal, next.CurrentTheme.Genre)
	assert.True(t, next.UsedThemeTexts.Has("custom"))
	assert.Nil(t, next.ThemeChoice)
}
