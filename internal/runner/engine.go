package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"option_bot/internal/models"
	broker "option_bot/internal/modules/broker/service"
	"option_bot/internal/modules/config"
	sessions "option_bot/internal/modules/sessions/service"
	"option_bot/internal/signal"
	"option_bot/pkg/logger"
)

// Engine гоняет один шаг жизненного цикла сессии:
// открытый контракт → ждём/опрашиваем расчёт; контракта нет → окно входа,
// тики, сигнал, proposal, buy. Все ошибки шага транзиентны, кроме
// повторной неавторизации и стоп-условий.
type Engine struct {
	cfg     *config.Config
	store   SessionStore
	broker  Broker
	signal  signal.Engine
	tracker *Tracker
	n       Notifier

	now func() time.Time
}

func NewEngine(
	cfg *config.Config,
	store SessionStore,
	b Broker,
	sig signal.Engine,
	n Notifier,
) *Engine {
	return &Engine{
		cfg:     cfg,
		store:   store,
		broker:  b,
		signal:  sig,
		tracker: NewTracker(cfg.Trading.ResultDelay),
		n:       n,
		now:     time.Now,
	}
}

// Step — один проход по сессии. Ошибка наружу — только для лога:
// состояние сессии к этому моменту уже согласовано со стором.
func (e *Engine) Step(ctx context.Context, sess *models.Session) error {
	if !sess.IsRunning {
		return nil
	}

	now := e.now()

	if sess.HasOpenContract() {
		// расчёт обрабатываем даже при запрошенном стопе — housekeeping
		if !e.tracker.Due(sess, now) {
			return nil
		}
		return e.checkSettlement(ctx, sess)
	}

	if sess.StopRequested {
		sess.Stop("остановлен пользователем")
		if err := e.persist(ctx, sess); err != nil {
			return err
		}
		e.n.SendF(ctx, sess.ID, "⏹ Бот остановлен. Побед: %d, поражений: %d", sess.TotalWins, sess.TotalLosses)
		return nil
	}

	if !e.entryGateOpen(now) {
		return nil
	}

	return e.tryEnter(ctx, sess, now)
}

// checkSettlement — опрос открытого контракта и применение результата.
func (e *Engine) checkSettlement(ctx context.Context, sess *models.Session) error {
	conn, err := e.broker.Connect(ctx, sess.Config.APIToken)
	if err != nil {
		return e.onConnectError(ctx, sess, err)
	}
	defer func() { _ = conn.Close() }()
	sess.AuthFailures = 0

	st, err := e.tracker.Check(ctx, conn, sess)
	if err != nil {
		// контракт остаётся Placed, попробуем на следующем тике
		logger.Warn("session %s: contract %d status check failed: %v", sess.ID, sess.OpenContractID, err)
		return nil
	}
	if st == nil {
		return nil // ещё не рассчитан
	}

	contractID := sess.OpenContractID
	ApplySettlement(sess, st.Profit)
	sess.ClearOpenContract()

	switch {
	case st.Profit > 0:
		e.n.SendF(ctx, sess.ID, "✅ Контракт %d: +%.2f | ставка → %.2f", contractID, st.Profit, sess.CurrentAmount)
	case st.Profit < 0:
		e.n.SendF(ctx, sess.ID, "❌ Контракт %d: %.2f | серия %d, ставка → %.2f",
			contractID, st.Profit, sess.ConsecutiveLosses, sess.CurrentAmount)
	default:
		e.n.SendF(ctx, sess.ID, "➖ Контракт %d: возврат ставки", contractID)
	}

	e.evaluateStops(ctx, conn, sess)

	if sess.StopRequested && sess.IsRunning {
		sess.Stop("остановлен пользователем")
	}

	if err := e.persist(ctx, sess); err != nil {
		// потерять расчёт — значит рискнуть двойной ставкой; это громкая ошибка
		logger.Error("session %s: failed to persist settlement of contract %d: %v", sess.ID, contractID, err)
		return fmt.Errorf("persist settlement: %w", err)
	}

	if !sess.IsRunning {
		e.n.SendF(ctx, sess.ID, "🛑 Бот остановлен: %s. Побед: %d, поражений: %d",
			sess.StopReason, sess.TotalWins, sess.TotalLosses)
	}
	return nil
}

// evaluateStops — стоп-условия сразу после расчёта.
func (e *Engine) evaluateStops(ctx context.Context, conn BrokerConn, sess *models.Session) {
	if sess.ConsecutiveLosses >= sess.Config.MaxConsecutiveLosses {
		sess.Stop(fmt.Sprintf("лимит проигрышей подряд (%d)", sess.Config.MaxConsecutiveLosses))
		return
	}

	if !sess.HasInitialBalance {
		return
	}
	balance, err := conn.Balance(ctx)
	if err != nil {
		// тейк-профит проверим на следующем расчёте
		logger.Warn("session %s: balance fetch failed: %v", sess.ID, err)
		return
	}
	if balance-sess.InitialBalance >= sess.Config.TakeProfitTarget {
		sess.Stop(fmt.Sprintf("цель по прибыли достигнута (+%.2f)", balance-sess.InitialBalance))
	}
}

// tryEnter — попытка нового входа: авторизация, тики, сигнал, покупка.
func (e *Engine) tryEnter(ctx context.Context, sess *models.Session, now time.Time) error {
	conn, err := e.broker.Connect(ctx, sess.Config.APIToken)
	if err != nil {
		return e.onConnectError(ctx, sess, err)
	}
	defer func() { _ = conn.Close() }()
	sess.AuthFailures = 0

	// первый успешный баланс фиксируем навсегда
	if !sess.HasInitialBalance {
		sess.InitialBalance = conn.AuthBalance()
		sess.HasInitialBalance = true
	}

	symbol := sess.Config.Symbol
	if symbol == "" {
		symbol = e.cfg.Trading.Symbol
	}

	ticks, err := conn.RecentTicks(ctx, symbol, e.cfg.Trading.TickCount)
	if err != nil {
		logger.Warn("session %s: ticks fetch failed: %v", sess.ID, err)
		return e.persist(ctx, sess)
	}

	side := e.signal.Analyse(ticks)
	if side == models.SideNone {
		return e.persist(ctx, sess)
	}

	stake := SubmitStake(sess)

	prop, err := conn.Proposal(ctx, symbol, side, stake, e.cfg.Trading.Duration, e.cfg.Trading.DurationUnit)
	if err != nil {
		// отклонённый proposal — пропущенный вход, ставка не меняется
		logger.Warn("session %s: proposal failed: %v", sess.ID, err)
		return e.persist(ctx, sess)
	}

	contractID, err := conn.Buy(ctx, prop.ID, stake)
	if err != nil {
		logger.Warn("session %s: buy failed: %v", sess.ID, err)
		return e.persist(ctx, sess)
	}

	sess.SetOpenContract(contractID, now)
	if err := e.persist(ctx, sess); err != nil {
		logger.Error("session %s: failed to persist open contract %d: %v", sess.ID, contractID, err)
		return fmt.Errorf("persist contract: %w", err)
	}

	e.n.SendF(ctx, sess.ID, "📈 %s %s | ставка %.2f | контракт %d", symbol, side, stake, contractID)
	return nil
}

// onConnectError — транзиентные сетевые ошибки молча ждут следующего тика,
// неавторизация считается: три подряд — стоп.
func (e *Engine) onConnectError(ctx context.Context, sess *models.Session, err error) error {
	if !errors.Is(err, broker.ErrAuth) {
		logger.Warn("session %s: broker connect failed: %v", sess.ID, err)
		return nil
	}

	sess.AuthFailures++
	logger.Warn("session %s: authorization failed (%d/%d)", sess.ID, sess.AuthFailures, maxAuthFailures)
	if sess.AuthFailures >= maxAuthFailures {
		sess.Stop("авторизация у брокера не проходит")
	}
	if perr := e.persist(ctx, sess); perr != nil {
		return perr
	}
	if !sess.IsRunning {
		e.n.SendF(ctx, sess.ID, "🛑 Бот остановлен: токен брокера не проходит авторизацию")
	}
	return nil
}

// entryGateOpen — окно входа около конца минуты: [entry_second,
// entry_second+entry_window) по секундам, с переходом через 60.
func (e *Engine) entryGateOpen(now time.Time) bool {
	start := e.cfg.Trading.EntrySecond
	width := e.cfg.Trading.EntryWindow
	if width <= 0 {
		width = 1
	}
	sec := now.Second()
	offset := (sec - start + 60) % 60
	return offset < width
}

// persist — запись с ретраями. На конфликт ревизии подтягиваем свежие
// контрольные флаги (стоп из фронтенда) и повторяем.
func (e *Engine) persist(ctx context.Context, sess *models.Session) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = e.store.Save(ctx, sess)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sessions.ErrConflict) {
			continue
		}
		fresh, loadErr := e.store.Load(ctx, sess.ID)
		if loadErr != nil {
			return fmt.Errorf("reload after conflict: %w", loadErr)
		}
		sess.Rev = fresh.Rev
		// стоп из фронтенда не перезатираем: и отложенный (stop_requested),
		// и уже завершённый (is_running=false) превращаются в наш стоп
		if fresh.StopRequested || !fresh.IsRunning {
			sess.StopRequested = true
		}
	}
	return err
}
