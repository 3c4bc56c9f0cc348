package service

import "errors"

var (
	ErrNotFound = errors.New("session not found")
	// ErrConflict — ревизия записи ушла вперёд: кто-то записал сессию
	// между нашим чтением и записью.
	ErrConflict = errors.New("session revision conflict")
)
