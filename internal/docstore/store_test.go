package docstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPatchMergesAtPath(t *testing.T) {
	doc := Document{
		"phase": "GAME",
		"allGuesses": map[string]any{
			"a": map[string]any{"b": 10.0},
		},
	}

	got := ApplyPatch(doc, "allGuesses/a", map[string]any{"c": 20.0})
	assert.Equal(t, map[string]any{"b": 10.0, "c": 20.0}, got["allGuesses"].(map[string]any)["a"])
	assert.Equal(t, map[string]any{"b": 10.0}, doc["allGuesses"].(map[string]any)["a"], "input must not change")

	got = ApplyPatch(got, "", map[string]any{"phase": nil, "roundCount": 2.0})
	_, hasPhase := got["phase"]
	assert.False(t, hasPhase)
	assert.Equal(t, 2.0, got["roundCount"])
}

func TestApplyPatchReplacesNonObjectNodes(t *testing.T) {
	doc := Document{"discussionVoted": []any{"x"}}
	got := ApplyPatch(doc, "discussionVoted", map[string]any{"p1": true})
	assert.Equal(t, map[string]any{"p1": true}, got["discussionVoted"])

	got = ApplyPatch(nil, "a/b", map[string]any{"c": "d"})
	assert.Equal(t, "d", got["a"].(map[string]any)["b"].(map[string]any)["c"])
}

func TestNormalizeProducesJSONTypes(t *testing.T) {
	got, err := Normalize(map[string]any{"n": 3, "list": []string{"x"}, "gone": nil})
	require.NoError(t, err)
	assert.Equal(t, 3.0, got["n"])
	assert.Equal(t, []any{"x"}, got["list"])
	v, ok := got["gone"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

// recorder collects documents delivered to a subscription.
type recorder struct {
	mu   sync.Mutex
	docs []Document
}

func (r *recorder) add(d Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, d)
}

func (r *recorder) last() (Document, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.docs) == 0 {
		return nil, 0
	}
	return r.docs[len(r.docs)-1], len(r.docs)
}

// testStoreContract exercises behavior every Store must share.
func testStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	roomId := "r-" + time.Now().Format("150405.000000000")

	_, err := store.Get(ctx, roomId)
	require.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	require.True(t, errors.Is(store.Patch(ctx, roomId, "", map[string]any{"a": 1}), ErrNotFound))

	require.NoError(t, store.Create(ctx, roomId, Document{"phase": "LOBBY", "players": map[string]any{}}))
	require.True(t, errors.Is(store.Create(ctx, roomId, Document{}), ErrExists))

	rec := &recorder{}
	stop, err := store.Subscribe(ctx, roomId, rec.add)
	require.NoError(t, err)
	defer stop()

	require.Eventually(t, func() bool {
		doc, n := rec.last()
		return n >= 1 && doc["phase"] == "LOBBY"
	}, 5*time.Second, 10*time.Millisecond, "initial document")

	require.NoError(t, store.Patch(ctx, roomId, "players/p1", map[string]any{"name": "Ann", "color": "#FF5252"}))
	require.NoError(t, store.Patch(ctx, roomId, "", map[string]any{"phase": "SETTING"}))

	require.Eventually(t, func() bool {
		doc, _ := rec.last()
		return doc != nil && doc["phase"] == "SETTING"
	}, 5*time.Second, 10*time.Millisecond, "patched document")

	doc, err := store.Get(ctx, roomId)
	require.NoError(t, err)
	player := doc["players"].(map[string]any)["p1"].(map[string]any)
	assert.Equal(t, "Ann", player["name"])

	require.NoError(t, store.Delete(ctx, roomId))
	require.True(t, errors.Is(store.Delete(ctx, roomId), ErrNotFound))
	require.Eventually(t, func() bool {
		doc, n := rec.last()
		return n > 1 && doc == nil
	}, 5*time.Second, 10*time.Millisecond, "deletion notice")
}

func TestMemoryStoreContract(t *testing.T) {
	testStoreContract(t, NewMemoryStore())
}

func TestMemoryStoreDeliversLatestInOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Create(ctx, "room", Document{"n": 0}))

	rec := &recorder{}
	stop, err := store.Subscribe(ctx, "room", rec.add)
	require.NoError(t, err)
	defer stop()

	for i := 1; i <= 50; i++ {
		require.NoError(t, store.Patch(ctx, "room", "", map[string]any{"n": i}))
	}
	require.Eventually(t, func() bool {
		doc, _ := rec.last()
		return doc != nil && doc["n"] == 50.0
	}, 2*time.Second, 5*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	prev := -1.0
	for _, d := range rec.docs {
		n := d["n"].(float64)
		assert.Greater(t, n, prev, "documents must arrive in write order")
		prev = n
	}
}

func TestMemoryStoreStopEndsDelivery(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Create(ctx, "room", Document{"n": 0}))

	rec := &recorder{}
	stop, err := store.Subscribe(ctx, "room", rec.add)
	require.NoError(t, err)
	require.Eventually(t, func() bool { _, n := rec.last(); return n == 1 }, time.Second, 5*time.Millisecond)
	stop()

	require.NoError(t, store.Patch(ctx, "room", "", map[string]any{"n": 1}))
	time.Sleep(50 * time.Millisecond)
	_, n := rec.last()
	assert.Equal(t, 1, n)
}

func TestSQLiteStoreContract(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(ctx, t.TempDir()+"/rooms.sqlite")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	testStoreContract(t, store)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/rooms.sqlite"

	store, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, "1234", Document{"phase": "LOBBY"}))
	require.NoError(t, store.Patch(ctx, "1234", "sharedMemos", map[string]any{"p1": "hot"}))
	require.NoError(t, store.Close())

	store, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer store.Close()
	doc, err := store.Get(ctx, "1234")
	require.NoError(t, err)
	assert.Equal(t, "hot", doc["sharedMemos"].(map[string]any)["p1"])
}
