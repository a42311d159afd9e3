package game

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/scythe504/wavelength-backend/internal"
	"github.com/scythe504/wavelength-backend/internal/docstore"
)

// ReplicatedSink turns intents into document patches. Full-state intents
// are refused unless isHost reports true for the local replica.
type ReplicatedSink struct {
	store  docstore.Store
	roomId string
	isHost func() bool
	now    func() int64
}

func NewReplicatedSink(store docstore.Store, roomId string, isHost func() bool, now func() int64) *ReplicatedSink {
	return &ReplicatedSink{store: store, roomId: roomId, isHost: isHost, now: now}
}

// publish writes the listed top-level fields of next. A field absent from
// the encoded document is deleted.
func (r *ReplicatedSink) publish(ctx context.Context, intent string, next internal.SessionState, fields []string) error {
	if !r.isHost() {
		return fmt.Errorf("%s: %w", intent, internal.ErrNotHost)
	}
	doc, err := next.Document()
	if err != nil {
		return fmt.Errorf("%s: encode state: %w", intent, err)
	}
	patch := make(map[string]any, len(fields)+1)
	for _, f := range fields {
		patch[f] = doc[f]
	}
	patch[fieldLastUpdated] = r.now()

	if err := r.store.Patch(ctx, r.roomId, "", patch); err != nil {
		log.Error().Err(err).Str("room", r.roomId).Str("intent", intent).Msg("[ReplicatedSink] write failed")
		return fmt.Errorf("%s: %w", intent, err)
	}
	log.Debug().Str("room", r.roomId).Str("intent", intent).Str("phase", string(next.Phase)).
		Msg("[ReplicatedSink] published")
	return nil
}

func (r *ReplicatedSink) AdvancePhase(ctx context.Context, next internal.SessionState, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{fieldPhase}
	}
	return r.publish(ctx, "advance phase", next, fields)
}

func (r *ReplicatedSink) PublishRoundSetup(ctx context.Context, next internal.SessionState) error {
	return r.publish(ctx, "publish round setup", next, roundSetupFields)
}

func (r *ReplicatedSink) PublishResults(ctx context.Context, next internal.SessionState) error {
	return r.publish(ctx, "publish results", next, resultFields)
}

func (r *ReplicatedSink) patch(ctx context.Context, path string, fields map[string]any) error {
	if err := r.store.Patch(ctx, r.roomId, path, fields); err != nil {
		log.Error().Err(err).Str("room", r.roomId).Str("path", path).Msg("[ReplicatedSink] field write failed")
		return err
	}
	return nil
}

func (r *ReplicatedSink) SubmitGuesses(ctx context.Context, guesserId string, placements map[string]int) error {
	fields := make(map[string]any, len(placements))
	for target, v := range placements {
		fields[target] = v
	}
	return r.patch(ctx, fieldAllGuesses+"/"+guesserId, fields)
}

func (r *ReplicatedSink) SubmitMemo(ctx context.Context, playerId, text string) error {
	return r.patch(ctx, fieldSharedMemos, map[string]any{playerId: text})
}

func (r *ReplicatedSink) MarkDiscussionDone(ctx context.Context, playerId string) error {
	return r.patch(ctx, fieldDiscussionVoted, map[string]any{playerId: true})
}

func (r *ReplicatedSink) SubmitThemeChoice(ctx context.Context, choice internal.ThemeChoice) error {
	v, err := internal.Encode(choice)
	if err != nil {
		return err
	}
	return r.patch(ctx, "", map[string]any{fieldThemeChoice: v})
}

func (r *ReplicatedSink) UpdatePlayer(ctx context.Context, playerId string, update ProfileUpdate) error {
	return r.patch(ctx, fieldPlayers+"/"+playerId, update.fields())
}

func (r *ReplicatedSink) AddPlayer(ctx context.Context, p internal.Player) error {
	v, err := internal.Encode(p)
	if err != nil {
		return err
	}
	return r.patch(ctx, fieldPlayers, map[string]any{p.Id: v})
}
