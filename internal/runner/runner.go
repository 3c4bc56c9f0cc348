package runner

import (
	"context"
	"errors"

	"option_bot/internal/models"
)

// SessionStore — единственный источник правды по сессиям. Save — это CAS
// по ревизии записи: одновременная запись того же session_id не может
// молча затереть счётчики.
type SessionStore interface {
	Load(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, id string) error
	ListActive(ctx context.Context) ([]*models.Session, error)
}

// BrokerConn — одно авторизованное соединение с брокером на один шаг.
type BrokerConn interface {
	AuthBalance() float64
	Currency() string
	Balance(ctx context.Context) (float64, error)
	RecentTicks(ctx context.Context, symbol string, count int) ([]models.Tick, error)
	Proposal(ctx context.Context, symbol string, side models.Side, stake float64, duration int, durationUnit string) (*models.Proposal, error)
	Buy(ctx context.Context, proposalID string, price float64) (int64, error)
	ContractStatus(ctx context.Context, contractID int64) (*models.ContractStatus, error)
	Close() error
}

// Broker — фабрика соединений (connect + authorize одним вызовом).
type Broker interface {
	Connect(ctx context.Context, token string) (BrokerConn, error)
}

// Notifier — канал сообщений пользователю (телеграм в бою, stdout в smoke).
type Notifier interface {
	SendF(ctx context.Context, sessionID string, format string, args ...any)
}

// Entitlements — проверка, что идентификатору разрешено запускать бота.
type Entitlements interface {
	IsAuthorized(ctx context.Context, id string) (bool, error)
}

var (
	ErrAlreadyRunning = errors.New("bot already running for this user")
	ErrUnauthorized   = errors.New("user is not authorized to run a bot")
)
