package service

import (
	"sync"
	"time"
)

// State — что здоровый процесс знает о себе: когда стартовал, когда был
// последний обход планировщика и сколько сессий он видел.
type State struct {
	mu        sync.RWMutex
	startedAt time.Time
	lastSweep time.Time
	active    int
}

func NewState() *State {
	return &State{startedAt: time.Now()}
}

// SweepDone вызывается планировщиком после каждого обхода.
func (s *State) SweepDone(active int, at time.Time) {
	s.mu.Lock()
	s.active = active
	s.lastSweep = at
	s.mu.Unlock()
}

// Ready — готовность: хотя бы один обход прошёл.
func (s *State) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.lastSweep.IsZero()
}

func (s *State) LastSweep() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSweep
}

func (s *State) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *State) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startedAt)
}
