package game

import (
	"context"
	"fmt"

	"github.com/scythe504/wavelength-backend/internal"
)

// LocalSink applies intents straight to an in-memory state.
type LocalSink struct {
	state *internal.SessionState
	now   func() int64
}

func NewLocalSink(state *internal.SessionState, now func() int64) *LocalSink {
	return &LocalSink{state: state, now: now}
}

func (l *LocalSink) replace(next internal.SessionState) {
	next.LastUpdated = l.now()
	*l.state = next.Clone()
}

func (l *LocalSink) AdvancePhase(ctx context.Context, next internal.SessionState, fields ...string) error {
	l.replace(next)
	return nil
}

func (l *LocalSink) PublishRoundSetup(ctx context.Context, next internal.SessionState) error {
	l.replace(next)
	return nil
}

func (l *LocalSink) PublishResults(ctx context.Context, next internal.SessionState) error {
	l.replace(next)
	return nil
}

func (l *LocalSink) SubmitGuesses(ctx context.Context, guesserId string, placements map[string]int) error {
	if l.state.AllGuesses == nil {
		l.state.AllGuesses = internal.GuessTable{}
	}
	row := l.state.AllGuesses[guesserId]
	if row == nil {
		row = make(map[string]int, len(placements))
		l.state.AllGuesses[guesserId] = row
	}
	for target, v := range placements {
		row[target] = v
	}
	return nil
}

func (l *LocalSink) SubmitMemo(ctx context.Context, playerId, text string) error {
	if l.state.SharedMemos == nil {
		l.state.SharedMemos = map[string]string{}
	}
	l.state.SharedMemos[playerId] = text
	return nil
}

func (l *LocalSink) MarkDiscussionDone(ctx context.Context, playerId string) error {
	l.state.DiscussionVoted = l.state.DiscussionVoted.Mark(playerId)
	return nil
}

func (l *LocalSink) SubmitThemeChoice(ctx context.Context, choice internal.ThemeChoice) error {
	l.state.ThemeChoice = &choice
	return nil
}

func (l *LocalSink) UpdatePlayer(ctx context.Context, playerId string, update ProfileUpdate) error {
	p, ok := l.state.Players[playerId]
	if !ok {
		return fmt.Errorf("%w: %s", internal.ErrUnknownPlayer, playerId)
	}
	l.state.Players[playerId] = update.applyTo(p)
	return nil
}

func (l *LocalSink) AddPlayer(ctx context.Context, p internal.Player) error {
	if l.state.Players == nil {
		l.state.Players = map[string]internal.Player{}
	}
	l.state.Players[p.Id] = p.Clone()
	return nil
}
