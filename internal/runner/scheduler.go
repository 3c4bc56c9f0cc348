package runner

import (
	"context"
	"sync"
	"time"

	"option_bot/internal/models"
	"option_bot/internal/modules/config"
	"option_bot/pkg/logger"

	"github.com/opentracing/opentracing-go"
)

// HealthSink — кто хочет знать, что планировщик жив (health-модуль).
type HealthSink interface {
	SweepDone(active int, at time.Time)
}

// Scheduler раз в interval обходит активные сессии и запускает Step.
// Инвариант: не больше одного Step на сессию одновременно — медленный
// I/O одной сессии не приводит к двойному входу или двойному расчёту.
type Scheduler struct {
	cfg    *config.Config
	store  SessionStore
	engine *Engine
	health HealthSink

	mu       sync.Mutex
	inflight map[string]bool
}

func NewScheduler(cfg *config.Config, store SessionStore, engine *Engine, health HealthSink) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		store:    store,
		engine:   engine,
		health:   health,
		inflight: make(map[string]bool),
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	interval := s.cfg.Scheduler.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("scheduler started, interval=%s", interval)
	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep — один обход: по горутине на сессию, single-flight по id.
func (s *Scheduler) Sweep(ctx context.Context) {
	active, err := s.store.ListActive(ctx)
	if err != nil {
		logger.Error("scheduler: list active sessions: %v", err)
		return
	}

	for _, sess := range active {
		if !s.tryAcquire(sess.ID) {
			continue // предыдущий шаг этой сессии ещё работает
		}
		sess := sess
		go func() {
			defer s.release(sess.ID)
			s.step(ctx, sess)
		}()
	}

	if s.health != nil {
		s.health.SweepDone(len(active), time.Now())
	}
}

// step — шаг сессии под спаном и recover: падение одной сессии не
// трогает ни планировщик, ни соседей.
func (s *Scheduler) step(ctx context.Context, sess *models.Session) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("session %s: step panic: %v", sess.ID, p)
		}
	}()

	span := opentracing.StartSpan("session.step")
	span.SetTag("session_id", sess.ID)
	defer span.Finish()

	stepCtx := opentracing.ContextWithSpan(ctx, span)
	if err := s.engine.Step(stepCtx, sess); err != nil {
		span.SetTag("error", true)
		logger.Error("session %s: step failed: %v", sess.ID, err)
	}
}

func (s *Scheduler) tryAcquire(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[id] {
		return false
	}
	s.inflight[id] = true
	return true
}

func (s *Scheduler) release(id string) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
}
