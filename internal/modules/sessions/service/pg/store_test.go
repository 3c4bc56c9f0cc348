package pg

import (
	"context"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"option_bot/internal/models"
	sessions "option_bot/internal/modules/sessions/service"
	"option_bot/pkg/db"
)

var store *Store

func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpassword",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp"),
	}

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		log.Fatalf("could not start postgres container: %s", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Fatalf("could not stop postgres container: %s", err)
		}
	}()

	host, err := pgContainer.Host(ctx)
	if err != nil {
		log.Fatalf("could not get container host: %s", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		log.Fatalf("could not get mapped port: %s", err)
	}

	connStr := "postgres://testuser:testpassword@" + host + ":" + port.Port() + "/testdb"

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("could not connect to database: %s", err)
	}
	defer pool.Close()

	schema, err := os.ReadFile("../../../../../migrations/001_init.sql")
	if err != nil {
		log.Fatalf("could not read schema: %s", err)
	}
	// pgx по умолчанию шлёт extended protocol — по одному стейтменту за раз
	for _, stmt := range strings.Split(string(schema), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			log.Fatalf("could not apply schema: %s", err)
		}
	}

	store = NewStore(db.NewPgTxManager(pool))

	os.Exit(m.Run())
}

func newSession(id string) *models.Session {
	return models.NewSession(id, models.SessionConfig{
		APIToken:             "tok",
		BaseAmount:           1,
		TakeProfitTarget:     5,
		MaxConsecutiveLosses: 3,
		Symbol:               "R_100",
	})
}

func TestStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()

	sess := newSession("save-load")
	sess.CurrentAmount = 2.2
	sess.ConsecutiveLosses = 1
	require.NoError(t, store.Save(ctx, sess))
	assert.Equal(t, int64(1), sess.Rev)

	got, err := store.Load(ctx, "save-load")
	require.NoError(t, err)
	assert.Equal(t, "save-load", got.ID)
	assert.Equal(t, 2.2, got.CurrentAmount)
	assert.Equal(t, 1, got.ConsecutiveLosses)
	assert.Equal(t, "tok", got.Config.APIToken)
	assert.Equal(t, int64(1), got.Rev)
}

func TestStore_LoadMissing(t *testing.T) {
	_, err := store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, sessions.ErrNotFound)
}

func TestStore_InsertConflict(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newSession("dup")))
	assert.ErrorIs(t, store.Save(ctx, newSession("dup")), sessions.ErrConflict)
}

func TestStore_CASUpdate(t *testing.T) {
	ctx := context.Background()

	sess := newSession("cas")
	require.NoError(t, store.Save(ctx, sess))

	stale, err := store.Load(ctx, "cas")
	require.NoError(t, err)

	sess.TotalWins = 1
	require.NoError(t, store.Save(ctx, sess))
	assert.Equal(t, int64(2), sess.Rev)

	stale.TotalLosses = 7
	assert.ErrorIs(t, store.Save(ctx, stale), sessions.ErrConflict)

	got, err := store.Load(ctx, "cas")
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalWins)
	assert.Equal(t, 0, got.TotalLosses)
}

func TestStore_UpdateMissing(t *testing.T) {
	sess := newSession("ghost")
	sess.Rev = 5
	assert.ErrorIs(t, store.Save(context.Background(), sess), sessions.ErrNotFound)
}

func TestStore_DeleteAndListActive(t *testing.T) {
	ctx := context.Background()

	running := newSession("active-1")
	require.NoError(t, store.Save(ctx, running))

	stopped := newSession("stopped-1")
	stopped.Stop("остановлен пользователем")
	require.NoError(t, store.Save(ctx, stopped))

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(active))
	for _, s := range active {
		ids = append(ids, s.ID)
	}
	assert.Contains(t, ids, "active-1")
	assert.NotContains(t, ids, "stopped-1")

	require.NoError(t, store.Delete(ctx, "active-1"))
	_, err = store.Load(ctx, "active-1")
	assert.ErrorIs(t, err, sessions.ErrNotFound)
}

func TestStore_IsAuthorized(t *testing.T) {
	ctx := context.Background()

	ok, err := store.IsAuthorized(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, ok)

	err = store.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx,
			`INSERT INTO allowed_users (session_id, note) VALUES ($1, $2)`,
			"vip", "ручной допуск")
		return err
	})
	require.NoError(t, err)

	ok, err = store.IsAuthorized(ctx, "vip")
	require.NoError(t, err)
	assert.True(t, ok)
}
