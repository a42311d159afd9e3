package game

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/scythe504/wavelength-backend/internal"
	"github.com/scythe504/wavelength-backend/internal/docstore"
	"github.com/scythe504/wavelength-backend/internal/random"
)

// =============================================================================
// ROOM MANAGEMENT
// =============================================================================

const (
	roomIdMin      = 1000
	roomIdMax      = 9999
	createAttempts = 20
)

var errNoRoomId = errors.New("could not allocate a free room id")

// CreateRoom writes a new lobby document under a free 4-digit id with the
// creator as host.
func CreateRoom(ctx context.Context, store docstore.Store, rng random.Source, name, color string) (internal.SessionState, error) {
	if err := internal.ValidateName(name); err != nil {
		return internal.SessionState{}, err
	}
	if color == "" || !slices.Contains(internal.Palette, color) {
		color = internal.Palette[0]
	}
	host := internal.NewPlayer(uuid.NewString(), name, color, time.Now().UnixMilli())
	host.IsReady = true

	for attempt := 0; attempt < createAttempts; attempt++ {
		roomId := fmt.Sprintf("%04d", random.Between(rng, roomIdMin, roomIdMax))
		state := internal.NewSessionState(roomId, host)
		state.LastUpdated = time.Now().UnixMilli()
		doc, err := state.Document()
		if err != nil {
			return internal.SessionState{}, err
		}

		err = store.Create(ctx, roomId, doc)
		if errors.Is(err, docstore.ErrExists) {
			log.Debug().Str("room", roomId).Msg("[CreateRoom] id taken, retrying")
			continue
		}
		if err != nil {
			return internal.SessionState{}, fmt.Errorf("create room: %w", err)
		}
		log.Info().Str("room", roomId).Str("host", host.Id).Msg("[CreateRoom] room created")
		return state, nil
	}
	return internal.SessionState{}, errNoRoomId
}

// JoinRoom seats a new player in a lobby. A taken or unknown color is
// swapped for the first free one.
func JoinRoom(ctx context.Context, store docstore.Store, roomId, name, color string) (internal.Player, error) {
	if err := internal.ValidateName(name); err != nil {
		return internal.Player{}, err
	}
	state, err := LoadRoom(ctx, store, roomId)
	if err != nil {
		return internal.Player{}, err
	}
	if state.Phase != internal.PhaseLobby {
		return internal.Player{}, fmt.Errorf("%w: room %s is in %s", internal.ErrGameStarted, roomId, state.Phase)
	}
	if len(state.Players) >= internal.MaxPlayers {
		return internal.Player{}, internal.ErrTooManyPlayers
	}
	if color == "" || !slices.Contains(internal.Palette, color) || state.ColorTaken(color, "") {
		color = state.FreeColor()
		if color == "" {
			return internal.Player{}, internal.ErrTooManyPlayers
		}
	}

	player := internal.NewPlayer(uuid.NewString(), name, color, time.Now().UnixMilli())
	v, err := internal.Encode(player)
	if err != nil {
		return internal.Player{}, err
	}
	if err := store.Patch(ctx, roomId, "players", map[string]any{player.Id: v}); err != nil {
		return internal.Player{}, fmt.Errorf("join room %s: %w", roomId, err)
	}
	log.Info().Str("room", roomId).Str("player", player.Id).Str("name", player.Name).Msg("[JoinRoom] player joined")
	return player, nil
}

// LoadRoom reads and decodes a room document.
func LoadRoom(ctx context.Context, store docstore.Store, roomId string) (internal.SessionState, error) {
	doc, err := store.Get(ctx, roomId)
	if errors.Is(err, docstore.ErrNotFound) {
		return internal.SessionState{}, fmt.Errorf("%w: %s", internal.ErrRoomNotFound, roomId)
	}
	if err != nil {
		return internal.SessionState{}, err
	}
	return internal.DecodeState(doc)
}

// DeleteRoom tears a room down. Subscribers see a nil document.
func DeleteRoom(ctx context.Context, store docstore.Store, roomId string) error {
	err := store.Delete(ctx, roomId)
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%w: %s", internal.ErrRoomNotFound, roomId)
	}
	if err != nil {
		return err
	}
	log.Info().Str("room", roomId).Msg("[DeleteRoom] room deleted")
	return nil
}
