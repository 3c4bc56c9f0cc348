package service

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth — битый/протухший токен. После трёх подряд — стоп сессии.
	ErrAuth = errors.New("broker: authorization failed")
	// ErrTimeout — не дождались ответа за request_timeout. Транзиент.
	ErrTimeout = errors.New("broker: request timed out")
)

// RejectionError — брокер ответил error-пэйлоадом на валидный запрос
// (отклонил proposal/buy и т.п.). Не крэш, пропущенный вход.
type RejectionError struct {
	Code    string
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("broker rejection %s: %s", e.Code, e.Message)
}

func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}
