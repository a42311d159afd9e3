package game

import (
	"context"

	"github.com/scythe504/wavelength-backend/internal"
)

// Top-level document fields written by full-state intents.
const (
	fieldPhase              = "phase"
	fieldPlayers            = "players"
	fieldSettings           = "settings"
	fieldRoundCount         = "roundCount"
	fieldCurrentTheme       = "currentTheme"
	fieldThemeCandidates    = "themeCandidates"
	fieldThemeChoice        = "themeChoice"
	fieldUsedThemeTexts     = "usedThemeTexts"
	fieldTurnPlayer         = "currentTurnPlayerId"
	fieldPastTurnPlayers    = "pastTurnPlayerIds"
	fieldSharedMemos        = "sharedMemos"
	fieldAllGuesses         = "allGuesses"
	fieldDiscussionSnapshot = "discussionSnapshot"
	fieldDiscussionVoted    = "discussionVoted"
	fieldRoundResults       = "roundResults"
	fieldGameHistory        = "gameHistory"
	fieldLastUpdated        = "lastUpdated"
)

var (
	roundSetupFields = []string{
		fieldPlayers, fieldPhase, fieldSettings, fieldRoundCount, fieldCurrentTheme,
		fieldThemeCandidates, fieldThemeChoice, fieldUsedThemeTexts, fieldTurnPlayer,
		fieldPastTurnPlayers, fieldSharedMemos, fieldAllGuesses, fieldDiscussionSnapshot,
		fieldDiscussionVoted, fieldRoundResults,
	}
	resultFields = []string{
		fieldPlayers, fieldPhase, fieldAllGuesses, fieldDiscussionVoted, fieldRoundResults, fieldGameHistory,
	}
)

// ProfileUpdate carries the profile fields a player may change on their
// own record. Nil fields are left alone.
type ProfileUpdate struct {
	Color   *string
	Name    *string
	IsReady *bool
}

func (u ProfileUpdate) fields() map[string]any {
	out := map[string]any{}
	if u.Color != nil {
		out["color"] = *u.Color
	}
	if u.Name != nil {
		out["name"] = *u.Name
	}
	if u.IsReady != nil {
		out["isReady"] = *u.IsReady
	}
	return out
}

func (u ProfileUpdate) applyTo(p internal.Player) internal.Player {
	if u.Color != nil {
		p.Color = *u.Color
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.IsReady != nil {
		p.IsReady = *u.IsReady
	}
	return p
}

// StateSink is where engine intents become state. Full-state intents carry
// the complete next state plus the top-level fields that changed; only the
// host may issue them. Field-scoped intents touch one player's slot.
//
// Sinks are called with the session lock held and must not call back into
// the session.
type StateSink interface {
	AdvancePhase(ctx context.Context, next internal.SessionState, fields ...string) error
	PublishRoundSetup(ctx context.Context, next internal.SessionState) error
	PublishResults(ctx context.Context, next internal.SessionState) error

	SubmitGuesses(ctx context.Context, guesserId string, placements map[string]int) error
	SubmitMemo(ctx context.Context, playerId, text string) error
	MarkDiscussionDone(ctx context.Context, playerId string) error
	SubmitThemeChoice(ctx context.Context, choice internal.ThemeChoice) error
	UpdatePlayer(ctx context.Context, playerId string, update ProfileUpdate) error
	AddPlayer(ctx context.Context, p internal.Player) error
}
