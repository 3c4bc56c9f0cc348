package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"option_bot/internal/models"
	sessions "option_bot/internal/modules/sessions/service"
)

func newSession(id string) *models.Session {
	return models.NewSession(id, models.SessionConfig{
		APIToken:             "tok",
		BaseAmount:           1,
		TakeProfitTarget:     5,
		MaxConsecutiveLosses: 3,
		Symbol:               "R_100",
	})
}

func TestStore_InsertAndLoad(t *testing.T) {
	st := NewStore()
	ctx := context.Background()

	sess := newSession("a")
	require.NoError(t, st.Save(ctx, sess))
	assert.Equal(t, int64(1), sess.Rev)

	got, err := st.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
	assert.Equal(t, int64(1), got.Rev)
}

func TestStore_LoadMissing(t *testing.T) {
	st := NewStore()
	_, err := st.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, sessions.ErrNotFound)
}

func TestStore_InsertConflictOnExisting(t *testing.T) {
	st := NewStore()
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, newSession("a")))

	dup := newSession("a") // rev 0 — повторная вставка
	assert.ErrorIs(t, st.Save(ctx, dup), sessions.ErrConflict)
}

func TestStore_UpdateBumpsRev(t *testing.T) {
	st := NewStore()
	ctx := context.Background()

	sess := newSession("a")
	require.NoError(t, st.Save(ctx, sess))

	sess.TotalWins = 1
	require.NoError(t, st.Save(ctx, sess))
	assert.Equal(t, int64(2), sess.Rev)

	got, err := st.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalWins)
	assert.Equal(t, int64(2), got.Rev)
}

func TestStore_StaleRevConflict(t *testing.T) {
	st := NewStore()
	ctx := context.Background()

	sess := newSession("a")
	require.NoError(t, st.Save(ctx, sess))

	stale, err := st.Load(ctx, "a")
	require.NoError(t, err)

	sess.TotalWins = 1
	require.NoError(t, st.Save(ctx, sess)) // rev 2

	stale.TotalLosses = 5
	assert.ErrorIs(t, st.Save(ctx, stale), sessions.ErrConflict)

	// проигравший ничего не затёр
	got, err := st.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalWins)
	assert.Equal(t, 0, got.TotalLosses)
}

func TestStore_UpdateMissing(t *testing.T) {
	st := NewStore()
	sess := newSession("a")
	sess.Rev = 3
	assert.ErrorIs(t, st.Save(context.Background(), sess), sessions.ErrNotFound)
}

func TestStore_DeleteAndListActive(t *testing.T) {
	st := NewStore()
	ctx := context.Background()

	running := newSession("a")
	require.NoError(t, st.Save(ctx, running))

	stopped := newSession("b")
	stopped.Stop("остановлен пользователем")
	require.NoError(t, st.Save(ctx, stopped))

	active, err := st.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "a", active[0].ID)

	require.NoError(t, st.Delete(ctx, "a"))
	active, err = st.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestStore_LoadReturnsCopy(t *testing.T) {
	st := NewStore()
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, newSession("a")))

	got, err := st.Load(ctx, "a")
	require.NoError(t, err)
	got.TotalWins = 42 // мутация копии не видна стору

	again, err := st.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, again.TotalWins)
}
