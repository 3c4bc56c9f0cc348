package models

import (
	"time"
)

// TradeState — явное состояние торгового цикла сессии вместо
// комбинаций nullable-полей.
type TradeState string

const (
	StateIdle    TradeState = "idle"    // нет открытого контракта, ищем вход
	StatePlaced  TradeState = "placed"  // контракт куплен, ждём экспирацию
	StateStopped TradeState = "stopped" // терминальное, бот выключен
)

// SessionConfig — неизменяемая часть сессии, задаётся при запуске бота.
type SessionConfig struct {
	APIToken string `json:"api_token"`

	BaseAmount           float64 `json:"base_amount"`            // стартовая ставка
	TakeProfitTarget     float64 `json:"take_profit_target"`     // цель по прибыли
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"` // стоп-лосс по серии

	Symbol string `json:"symbol"` // тикер брокера, напр. "R_100"
}

// Session хранит данные одного запущенного бота. Источник правды — стор,
// движок работает с копией и пишет её обратно в конце шага (CAS по Rev).
type Session struct {
	ID string `json:"id"` // opaque: email / device id / chat id

	Config SessionConfig `json:"config"`

	State TradeState `json:"state"`

	// мартингейл
	CurrentAmount     float64 `json:"current_amount"`
	ConsecutiveLosses int     `json:"consecutive_losses"`
	TotalWins         int     `json:"total_wins"`
	TotalLosses       int     `json:"total_losses"`

	// баланс на момент первой успешной авторизации; фиксируется один раз
	InitialBalance    float64 `json:"initial_balance"`
	HasInitialBalance bool    `json:"has_initial_balance"`

	// открытый контракт (оба поля либо заполнены, либо пусты)
	OpenContractID int64     `json:"open_contract_id,omitempty"`
	TradeOpenedAt  time.Time `json:"trade_opened_at,omitempty"`

	IsRunning     bool   `json:"is_running"`
	StopRequested bool   `json:"stop_requested"` // /stop при открытом контракте
	StopReason    string `json:"stop_reason,omitempty"`

	AuthFailures int `json:"auth_failures"`

	CreatedAt time.Time `json:"created_at"`

	// ревизия записи в сторе, двигается только стором
	Rev int64 `json:"-"`
}

// NewSession создаёт запущенную сессию со ставкой на базовом уровне.
func NewSession(id string, cfg SessionConfig) *Session {
	return &Session{
		ID:            id,
		Config:        cfg,
		State:         StateIdle,
		CurrentAmount: cfg.BaseAmount,
		IsRunning:     true,
		CreatedAt:     time.Now().UTC(),
	}
}

func (s *Session) HasOpenContract() bool {
	return s.OpenContractID != 0 && !s.TradeOpenedAt.IsZero()
}

// SetOpenContract переводит сессию в Placed.
func (s *Session) SetOpenContract(contractID int64, openedAt time.Time) {
	s.OpenContractID = contractID
	s.TradeOpenedAt = openedAt
	s.State = StatePlaced
}

// ClearOpenContract возвращает сессию в Idle после расчёта контракта.
func (s *Session) ClearOpenContract() {
	s.OpenContractID = 0
	s.TradeOpenedAt = time.Time{}
	if s.State == StatePlaced {
		s.State = StateIdle
	}
}

// Stop — терминальный переход; причина видна пользователю в /status.
func (s *Session) Stop(reason string) {
	s.State = StateStopped
	s.IsRunning = false
	s.StopRequested = false
	s.StopReason = reason
}
