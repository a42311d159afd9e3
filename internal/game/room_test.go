package game

import (
	"context"
	"testing"

	"github.com/scythe504/wavelength-backend/internal"
	"github.com/scythe504/wavelength-backend/internal/docstore"
	"github.com/scythe504/wavelength-backend/internal/random"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constSource always draws the lowest value.
type constSource struct{}

func (constSource) IntN(int) int     { return 0 }
func (constSource) Float64() float64 { return 0 }

func TestCreateRoom(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()

	state, err := CreateRoom(ctx, store, random.New(1), "  Host ", "not-a-color")
	require.NoError(t, err)
	assert.Len(t, state.RoomId, 4)
	assert.Equal(t, internal.PhaseLobby, state.Phase)

	host := state.Players[state.HostId]
	assert.Equal(t, "Host", host.Name)
	assert.Equal(t, internal.Palette[0], host.Color)
	assert.True(t, host.IsHost)
	assert.True(t, host.IsReady)

	loaded, err := LoadRoom(ctx, store, state.RoomId)
	require.NoError(t, err)
	assert.Equal(t, state.HostId, loaded.HostId)
	assert.Equal(t, internal.DefaultSettings(), loaded.Settings)
}

func TestCreateRoomRetriesTakenIds(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()

	first, err := CreateRoom(ctx, store, constSource{}, "Host", "")
	require.NoError(t, err)
	assert.Equal(t, "1000", first.RoomId)

	_, err = CreateRoom(ctx, store, constSource{}, "Host", "")
	assert.ErrorIs(t, err, errNoRoomId)

	_, err = CreateRoom(ctx, store, constSource{}, "", "")
	assert.True(t, internal.IsValidation(err))
}

func TestJoinRoom(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	room, err := CreateRoom(ctx, store, random.New(1), "Host", internal.Palette[2])
	require.NoError(t, err)

	p, err := JoinRoom(ctx, store, room.RoomId, "Guest", internal.Palette[2])
	require.NoError(t, err)
	assert.Equal(t, internal.Palette[0], p.Color, "taken color swapped for the first free one")
	assert.False(t, p.IsHost)

	q, err := JoinRoom(ctx, store, room.RoomId, "Other", internal.Palette[4])
	require.NoError(t, err)
	assert.Equal(t, internal.Palette[4], q.Color)

	state, err := LoadRoom(ctx, store, room.RoomId)
	require.NoError(t, err)
	assert.Len(t, state.Players, 3)
	assert.Equal(t, "Guest", state.Players[p.Id].Name)

	_, err = JoinRoom(ctx, store, "9999x", "Guest", "")
	assert.ErrorIs(t, err, internal.ErrRoomNotFound)

	_, err = JoinRoom(ctx, store, room.RoomId, "", "")
	assert.True(t, internal.IsValidation(err))
}

func TestJoinRoomAfterStart(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	room, err := CreateRoom(ctx, store, random.New(1), "Host", "")
	require.NoError(t, err)
	require.NoError(t, store.Patch(ctx, room.RoomId, "", map[string]any{"phase": string(internal.PhaseSetting)}))

	_, err = JoinRoom(ctx, store, room.RoomId, "Late", "")
	assert.ErrorIs(t, err, internal.ErrGameStarted)
}

func TestDeleteRoom(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	room, err := CreateRoom(ctx, store, random.New(1), "Host", "")
	require.NoError(t, err)

	require.NoError(t, DeleteRoom(ctx, store, room.RoomId))
	assert.ErrorIs(t, DeleteRoom(ctx, store, room.RoomId), internal.ErrRoomNotFound)
	_, err = LoadRoom(ctx, store, room.RoomId)
	assert.ErrorIs(t, err, internal.ErrRoomNotFound)
}

func TestJoinRoomPastPaletteKeepsColorsUnique(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	room, err := CreateRoom(ctx, store, random.New(1), "Host", internal.Palette[0])
	require.NoError(t, err)

	for i := 0; i < len(internal.Palette)+4; i++ {
		_, err := JoinRoom(ctx, store, room.RoomId, "Guest", internal.Palette[0])
		require.NoError(t, err)
	}

	state, err := LoadRoom(ctx, store, room.RoomId)
	require.NoError(t, err)
	require.Len(t, state.Players, len(internal.Palette)+5)
	holders := map[string]string{}
	for id, p := range state.Players {
		require.NotEmpty(t, p.Color)
		other, dup := holders[p.Color]
		assert.False(t, dup, "%s and %s share %s", id, other, p.Color)
		holders[p.Color] = id
	}
}
