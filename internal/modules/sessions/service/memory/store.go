package memory

import (
	"context"
	"sync"

	"option_bot/internal/models"
	sessions "option_bot/internal/modules/sessions/service"
)

// Store — ин-мемори реализация стора сессий с той же CAS-семантикой,
// что и pg-вариант. Для тестов и локальных прогонов без базы.
type Store struct {
	mu   sync.RWMutex
	data map[string]models.Session
}

func NewStore() *Store {
	return &Store{
		data: make(map[string]models.Session),
	}
}

func (s *Store) Load(_ context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.data[id]
	if !ok {
		return nil, sessions.ErrNotFound
	}
	cp := cur
	return &cp, nil
}

func (s *Store) Save(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.data[sess.ID]
	if sess.Rev == 0 {
		if ok {
			return sessions.ErrConflict
		}
		cp := *sess
		cp.Rev = 1
		s.data[sess.ID] = cp
		sess.Rev = 1
		return nil
	}

	if !ok {
		return sessions.ErrNotFound
	}
	if cur.Rev != sess.Rev {
		return sessions.ErrConflict
	}
	cp := *sess
	cp.Rev++
	s.data[sess.ID] = cp
	sess.Rev = cp.Rev
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *Store) ListActive(_ context.Context) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Session, 0, len(s.data))
	for _, cur := range s.data {
		if !cur.IsRunning {
			continue
		}
		cp := cur
		out = append(out, &cp)
	}
	return out, nil
}
