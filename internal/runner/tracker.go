package runner

import (
	"context"
	"time"

	"option_bot/internal/models"
)

// Tracker — дисциплина наблюдения за открытым контрактом: после покупки
// выдерживаем паузу (контракт всё равно не рассчитается раньше экспирации),
// дальше опрашиваем на каждом тике планировщика до is_sold.
type Tracker struct {
	dwell time.Duration
}

func NewTracker(dwell time.Duration) *Tracker {
	return &Tracker{dwell: dwell}
}

// Due — пора ли опрашивать контракт. До истечения паузы опрос не делается.
func (t *Tracker) Due(s *models.Session, now time.Time) bool {
	if !s.HasOpenContract() {
		return false
	}
	return now.Sub(s.TradeOpenedAt) >= t.dwell
}

// Check опрашивает статус контракта. Возвращает nil, nil пока контракт
// не рассчитан. Ошибка опроса не снимает контракт с сессии — следующий
// тик попробует ещё раз.
func (t *Tracker) Check(ctx context.Context, conn BrokerConn, s *models.Session) (*models.ContractStatus, error) {
	st, err := conn.ContractStatus(ctx, s.OpenContractID)
	if err != nil {
		return nil, err
	}
	if !st.IsSold {
		return nil, nil
	}
	return st, nil
}
