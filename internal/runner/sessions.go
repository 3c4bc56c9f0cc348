package runner

import (
	"context"
	"errors"
	"fmt"

	"option_bot/internal/models"
	"option_bot/internal/modules/config"
	sessions "option_bot/internal/modules/sessions/service"
)

// Sessions — то, что видят фронтенды: запустить, остановить, посмотреть.
type Sessions struct {
	cfg   *config.Config
	store SessionStore
	ent   Entitlements
}

func NewSessions(cfg *config.Config, store SessionStore, ent Entitlements) *Sessions {
	return &Sessions{cfg: cfg, store: store, ent: ent}
}

// Start создаёт и запускает сессию. Валидация конфига здесь, движок
// дальше считает его корректным.
func (s *Sessions) Start(ctx context.Context, id string, cfg models.SessionConfig) (*models.Session, error) {
	ok, err := s.ent.IsAuthorized(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("entitlement check: %w", err)
	}
	if !ok {
		return nil, ErrUnauthorized
	}

	if cfg.APIToken == "" {
		return nil, errors.New("api token is required")
	}
	if cfg.BaseAmount <= 0 {
		return nil, errors.New("base amount must be positive")
	}
	if cfg.TakeProfitTarget <= 0 {
		return nil, errors.New("take profit target must be positive")
	}
	if cfg.MaxConsecutiveLosses < 1 {
		return nil, errors.New("max consecutive losses must be at least 1")
	}
	if cfg.Symbol == "" {
		cfg.Symbol = s.cfg.Trading.Symbol
	}

	existing, err := s.store.Load(ctx, id)
	if err != nil && !errors.Is(err, sessions.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.IsRunning {
		return nil, ErrAlreadyRunning
	}
	if existing != nil {
		// старую остановленную запись убираем, rev начинается заново
		if err := s.store.Delete(ctx, id); err != nil {
			return nil, err
		}
	}

	sess := models.NewSession(id, cfg)
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Stop останавливает сессию. При открытом контракте ставится
// stop_requested: движок даст контракту рассчитаться и остановит сам.
func (s *Sessions) Stop(ctx context.Context, id string) error {
	for attempt := 0; attempt < 3; attempt++ {
		sess, err := s.store.Load(ctx, id)
		if err != nil {
			return err
		}
		if !sess.IsRunning {
			return nil
		}

		if sess.HasOpenContract() {
			sess.StopRequested = true
		} else {
			sess.Stop("остановлен пользователем")
		}

		err = s.store.Save(ctx, sess)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sessions.ErrConflict) {
			return err
		}
		// движок записал сессию первым — перечитываем и повторяем
	}
	return sessions.ErrConflict
}

// Status — текущая сессия как есть, из стора.
func (s *Sessions) Status(ctx context.Context, id string) (*models.Session, error) {
	return s.store.Load(ctx, id)
}
