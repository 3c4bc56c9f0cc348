package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"option_bot/internal/models"
	"option_bot/internal/modules/sessions/service/memory"
)

type allowAll struct{}

func (allowAll) IsAuthorized(context.Context, string) (bool, error) { return true, nil }

type denyAll struct{}

func (denyAll) IsAuthorized(context.Context, string) (bool, error) { return false, nil }

func validCfg() models.SessionConfig {
	return models.SessionConfig{
		APIToken:             "tok-abc",
		BaseAmount:           1.0,
		TakeProfitTarget:     5.0,
		MaxConsecutiveLosses: 3,
	}
}

func newSessions(ent Entitlements) (*Sessions, *memory.Store) {
	st := memory.NewStore()
	return NewSessions(testCfg(), st, ent), st
}

func TestSessionsStart(t *testing.T) {
	svc, _ := newSessions(allowAll{})

	sess, err := svc.Start(context.Background(), "77", validCfg())
	require.NoError(t, err)
	assert.True(t, sess.IsRunning)
	assert.Equal(t, models.StateIdle, sess.State)
	assert.Equal(t, 1.0, sess.CurrentAmount)
	assert.Equal(t, "R_100", sess.Config.Symbol, "пустой инструмент берётся из конфига")
}

func TestSessionsStart_Validation(t *testing.T) {
	svc, _ := newSessions(allowAll{})
	ctx := context.Background()

	cfg := validCfg()
	cfg.APIToken = ""
	_, err := svc.Start(ctx, "77", cfg)
	assert.Error(t, err)

	cfg = validCfg()
	cfg.BaseAmount = 0
	_, err = svc.Start(ctx, "77", cfg)
	assert.Error(t, err)

	cfg = validCfg()
	cfg.TakeProfitTarget = -1
	_, err = svc.Start(ctx, "77", cfg)
	assert.Error(t, err)

	cfg = validCfg()
	cfg.MaxConsecutiveLosses = 0
	_, err = svc.Start(ctx, "77", cfg)
	assert.Error(t, err)
}

func TestSessionsStart_AlreadyRunning(t *testing.T) {
	svc, _ := newSessions(allowAll{})
	ctx := context.Background()

	_, err := svc.Start(ctx, "77", validCfg())
	require.NoError(t, err)

	_, err = svc.Start(ctx, "77", validCfg())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestSessionsStart_Unauthorized(t *testing.T) {
	svc, _ := newSessions(denyAll{})

	_, err := svc.Start(context.Background(), "77", validCfg())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSessionsStart_ReplacesStoppedRecord(t *testing.T) {
	svc, st := newSessions(allowAll{})
	ctx := context.Background()

	old, err := svc.Start(ctx, "77", validCfg())
	require.NoError(t, err)
	old.TotalWins = 9
	old.Stop("лимит проигрышей подряд (3)")
	require.NoError(t, st.Save(ctx, old))

	fresh, err := svc.Start(ctx, "77", validCfg())
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.TotalWins, "новая сессия начинает с нуля")
	assert.True(t, fresh.IsRunning)
}

func TestSessionsStop_NoContractStopsImmediately(t *testing.T) {
	svc, st := newSessions(allowAll{})
	ctx := context.Background()

	_, err := svc.Start(ctx, "77", validCfg())
	require.NoError(t, err)

	require.NoError(t, svc.Stop(ctx, "77"))

	sess, err := st.Load(ctx, "77")
	require.NoError(t, err)
	assert.False(t, sess.IsRunning)
	assert.Equal(t, models.StateStopped, sess.State)
	assert.False(t, sess.StopRequested)
}

func TestSessionsStop_OpenContractDefersStop(t *testing.T) {
	svc, st := newSessions(allowAll{})
	ctx := context.Background()

	sess, err := svc.Start(ctx, "77", validCfg())
	require.NoError(t, err)
	sess.SetOpenContract(777, time.Now())
	require.NoError(t, st.Save(ctx, sess))

	require.NoError(t, svc.Stop(ctx, "77"))

	stored, err := st.Load(ctx, "77")
	require.NoError(t, err)
	assert.True(t, stored.IsRunning, "контракт дорассчитается, движок остановит сам")
	assert.True(t, stored.StopRequested)
}

func TestSessionsStop_AlreadyStoppedIsNoop(t *testing.T) {
	svc, st := newSessions(allowAll{})
	ctx := context.Background()

	sess, err := svc.Start(ctx, "77", validCfg())
	require.NoError(t, err)
	sess.Stop("остановлен пользователем")
	require.NoError(t, st.Save(ctx, sess))

	assert.NoError(t, svc.Stop(ctx, "77"))
}

func TestSessionsStatus(t *testing.T) {
	svc, _ := newSessions(allowAll{})
	ctx := context.Background()

	started, err := svc.Start(ctx, "77", validCfg())
	require.NoError(t, err)

	got, err := svc.Status(ctx, "77")
	require.NoError(t, err)
	assert.Equal(t, started.ID, got.ID)
	assert.True(t, got.IsRunning)
}
