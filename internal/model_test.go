package internal

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringSetJSON(t *testing.T) {
	s := NewStringSet("b", "a", "b")
	assert.Equal(t, []string{"b", "a"}, s.Slice())

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["b","a"]`, string(b))

	var back StringSet
	require.NoError(t, json.Unmarshal([]byte(`["x","y","x"]`), &back))
	assert.Equal(t, 2, back.Len())
	assert.True(t, back.Has("y"))

	var zero StringSet
	b, err = json.Marshal(zero)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))
}

func TestStringSetIsImmutable(t *testing.T) {
	a := NewStringSet("x")
	b := a.With("y")
	assert.False(t, a.Has("y"))
	assert.True(t, b.Has("y"))

	c := b.Without(func(s string) bool { return s == "x" })
	assert.Equal(t, []string{"y"}, c.Slice())
	assert.Equal(t, 2, b.Len())
}

func TestMarkSetJSON(t *testing.T) {
	m := NewMarkSet("b").Mark("a")
	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":true,"b":true}`, string(b))

	var back MarkSet
	require.NoError(t, json.Unmarshal([]byte(`{"z":true,"a":true,"off":false}`), &back))
	assert.Equal(t, []string{"a", "z"}, back.Slice())
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"defaults", func(*Settings) {}, false},
		{"original mode", func(s *Settings) { s.GameMode = ModeOriginal }, false},
		{"unknown mode", func(s *Settings) { s.GameMode = "CHAOS" }, true},
		{"timer too short", func(s *Settings) { s.TimerSeconds = MinTimerSeconds - 1 }, true},
		{"timer too long", func(s *Settings) { s.TimerSeconds = MaxTimerSeconds + 1 }, true},
		{"timer edge", func(s *Settings) { s.TimerSeconds = MaxTimerSeconds }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr {
				assert.True(t, IsValidation(err), "want validation error, got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("  Mika "))
	assert.NoError(t, ValidateName(strings.Repeat("é", MaxNameLength)))
	assert.Error(t, ValidateName("   "))
	assert.Error(t, ValidateName(strings.Repeat("a", MaxNameLength+1)))
}

func TestPhaseTransitions(t *testing.T) {
	allowed := [][2]Phase{
		{PhaseLobby, PhaseSetting},
		{PhaseSetting, PhaseGame},
		{PhaseGame, PhaseDiscussion},
		{PhaseGame, PhaseResult},
		{PhaseDiscussion, PhaseResult},
		{PhaseResult, PhaseSetting},
		{PhaseResult, PhaseFinalResult},
		{PhaseFinalResult, PhaseLobby},
	}
	for _, pair := range allowed {
		assert.True(t, pair[0].CanTransitionTo(pair[1]), "%s -> %s", pair[0], pair[1])
	}

	assert.False(t, PhaseLobby.CanTransitionTo(PhaseGame))
	assert.False(t, PhaseDiscussion.CanTransitionTo(PhaseGame))
	assert.False(t, PhaseResult.CanTransitionTo(PhaseLobby))
	assert.False(t, Phase("NOPE").Valid())
	assert.True(t, PhaseFinalResult.Valid())
}

func TestDocumentRoundTrip(t *testing.T) {
	host := NewPlayer("h", "Host", Palette[0], 1)
	s := NewSessionState("1234", host)
	s.Players["g"] = NewPlayer("g", "Guest", Palette[1], 2)
	s.UsedThemeTexts = NewStringSet("t1")
	s.PastTurnPlayerIds = NewStringSet("g")
	s.DiscussionVoted = NewMarkSet("h")
	s.AllGuesses = GuessTable{"h": {"g": 42}}
	s.ThemeChoice = &ThemeChoice{PlayerId: "g", Theme: Theme{Text: "t1"}}

	doc, err := s.Document()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"h": true}, doc["discussionVoted"])

	back, err := DecodeState(doc)
	require.NoError(t, err)
	assert.Equal(t, "h", back.HostId)
	assert.True(t, back.Players["h"].IsHost)
	assert.True(t, back.UsedThemeTexts.Has("t1"))
	assert.True(t, back.PastTurnPlayerIds.Has("g"))
	assert.True(t, back.DiscussionVoted.Has("h"))
	v, ok := back.AllGuesses.Get("h", "g")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
	require.NotNil(t, back.ThemeChoice)
	assert.Equal(t, "g", back.ThemeChoice.PlayerId)
}

func TestDecodeStateFillsMaps(t *testing.T) {
	s, err := DecodeState(map[string]any{"roomId": "1", "phase": "LOBBY"})
	require.NoError(t, err)
	assert.NotNil(t, s.Players)
	assert.NotNil(t, s.SharedMemos)
	assert.NotNil(t, s.AllGuesses)
	assert.Nil(t, s.ThemeChoice)
}

func TestCloneIsDeep(t *testing.T) {
	s := NewSessionState("1", NewPlayer("h", "Host", "", 0))
	s.AllGuesses = GuessTable{"h": {"g": 1}}
	s.GameHistory = [][]RoundResult{{{PlayerId: "h"}}}
	theme := Theme{Text: "t"}
	s.CurrentTheme = &theme

	c := s.Clone()
	c.AllGuesses["h"]["g"] = 9
	c.GameHistory[0][0].PlayerId = "x"
	c.CurrentTheme.Text = "changed"
	p := c.Players["h"]
	p.Name = "Other"
	c.Players["h"] = p

	assert.Equal(t, 1, s.AllGuesses["h"]["g"])
	assert.Equal(t, "h", s.GameHistory[0][0].PlayerId)
	assert.Equal(t, "t", s.CurrentTheme.Text)
	assert.Equal(t, "Host", s.Players["h"].Name)
}

func TestRosterHelpers(t *testing.T) {
	s := NewSessionState("1", NewPlayer("b", "B", Palette[0], 5))
	s.Players["a"] = NewPlayer("a", "A", Palette[1], 5)
	s.Players["c"] = NewPlayer("c", "C", Palette[2], 1)

	ids := []string{}
	for _, p := range s.SortedPlayers() {
		ids = append(ids, p.Id)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
	assert.True(t, s.ColorTaken(Palette[1], "b"))
	assert.False(t, s.ColorTaken(Palette[1], "a"))
	assert.Equal(t, Palette[3], s.FreeColor())
	assert.True(t, s.IsHost("b"))
	assert.False(t, s.IsHost(""))
}

func TestFreeColorCoversFullRoster(t *testing.T) {
	s := NewSessionState("1", NewPlayer("h", "H", Palette[0], 0))
	for i := 1; i < MaxPlayers; i++ {
		c := s.FreeColor()
		require.NotEmpty(t, c, "player %d", i)
		require.False(t, s.ColorTaken(c, ""))
		id := fmt.Sprintf("p%03d", i)
		s.Players[id] = NewPlayer(id, "P", c, int64(i))
	}
	assert.Len(t, s.Players, MaxPlayers)
	for _, c := range Palette {
		assert.True(t, s.ColorTaken(c, ""), "palette color %s used first", c)
	}
}

func TestInvalid(t *testing.T) {
	err := Invalid("bad %s", "input")
	assert.Equal(t, "bad input", err.Error())
	assert.True(t, IsValidation(err))
	assert.False(t, IsValidation(ErrNotHost))
}
