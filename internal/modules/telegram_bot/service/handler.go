package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"option_bot/internal/models"
	"option_bot/internal/runner"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Шаги диалога /run: токен → ставка → тейк → лимит проигрышей.
const (
	stepToken      = "token"
	stepBaseAmount = "base_amount"
	stepTakeProfit = "take_profit"
	stepMaxLosses  = "max_losses"
)

type dialog struct {
	step string
	cfg  models.SessionConfig
}

func (t *Telegram) handleMessage(ctx context.Context, msg *tgbot.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "run":
			t.handleRun(ctx, chatID)
		case "stop":
			t.handleStop(ctx, chatID)
		case "status":
			t.handleStatus(ctx, chatID)
		default:
			_, _ = t.Send(ctx, chatID,
				"Команды:\n/run — запустить бота\n/stop — остановить\n/status — состояние")
		}
		return
	}

	t.mu.Lock()
	d, ok := t.dialogs[chatID]
	t.mu.Unlock()
	if ok {
		t.handleDialogStep(ctx, chatID, d, strings.TrimSpace(msg.Text))
	}
}

func (t *Telegram) handleRun(ctx context.Context, chatID int64) {
	sess, err := t.sessions.Status(ctx, sessionID(chatID))
	if err == nil && sess.IsRunning {
		_, _ = t.Send(ctx, chatID, "⚠️ Бот уже запущен. Сначала /stop.")
		return
	}

	t.mu.Lock()
	t.dialogs[chatID] = &dialog{step: stepToken}
	t.mu.Unlock()

	_, _ = t.Send(ctx, chatID, "🔑 Пришли API-токен брокера (сообщение можно сразу удалить).")
}

func (t *Telegram) handleDialogStep(ctx context.Context, chatID int64, d *dialog, text string) {
	switch d.step {
	case stepToken:
		if text == "" {
			_, _ = t.Send(ctx, chatID, "Токен пустой, пришли ещё раз.")
			return
		}
		d.cfg.APIToken = text
		d.step = stepBaseAmount
		_, _ = t.Send(ctx, chatID, "💵 Базовая ставка? (например 1.0)")

	case stepBaseAmount:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil || v <= 0 {
			_, _ = t.Send(ctx, chatID, "Нужно положительное число, например 1.0")
			return
		}
		d.cfg.BaseAmount = v
		d.step = stepTakeProfit
		_, _ = t.Send(ctx, chatID, "🎯 Цель по прибыли? (например 5.0)")

	case stepTakeProfit:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil || v <= 0 {
			_, _ = t.Send(ctx, chatID, "Нужно положительное число, например 5.0")
			return
		}
		d.cfg.TakeProfitTarget = v
		d.step = stepMaxLosses
		_, _ = t.Send(ctx, chatID, "🛑 Сколько проигрышей подряд терпим? (например 3)")

	case stepMaxLosses:
		n, err := strconv.Atoi(text)
		if err != nil || n < 1 {
			_, _ = t.Send(ctx, chatID, "Нужно целое число не меньше 1")
			return
		}
		d.cfg.MaxConsecutiveLosses = n

		t.mu.Lock()
		delete(t.dialogs, chatID)
		t.mu.Unlock()

		t.startSession(ctx, chatID, d.cfg)
	}
}

func (t *Telegram) startSession(ctx context.Context, chatID int64, cfg models.SessionConfig) {
	sess, err := t.sessions.Start(ctx, sessionID(chatID), cfg)
	switch {
	case errors.Is(err, runner.ErrUnauthorized):
		_, _ = t.Send(ctx, chatID, "⛔️ Тебе не разрешено запускать бота.")
		return
	case errors.Is(err, runner.ErrAlreadyRunning):
		_, _ = t.Send(ctx, chatID, "⚠️ Бот уже запущен.")
		return
	case err != nil:
		_, _ = t.SendF(ctx, chatID, "❗️ Не получилось запустить: %v", err)
		return
	}

	_, _ = t.SendF(ctx, chatID,
		"🚀 Бот запущен\n• Инструмент: %s\n• Ставка: %.2f\n• Цель: +%.2f\n• Стоп после %d проигрышей подряд",
		sess.Config.Symbol, sess.Config.BaseAmount, sess.Config.TakeProfitTarget, sess.Config.MaxConsecutiveLosses)
}

func (t *Telegram) handleStop(ctx context.Context, chatID int64) {
	err := t.sessions.Stop(ctx, sessionID(chatID))
	if err != nil {
		_, _ = t.SendF(ctx, chatID, "❗️ Не получилось остановить: %v", err)
		return
	}
	_, _ = t.Send(ctx, chatID, "⏳ Останавливаю. Открытый контракт (если есть) дорассчитается.")
}

func (t *Telegram) handleStatus(ctx context.Context, chatID int64) {
	sess, err := t.sessions.Status(ctx, sessionID(chatID))
	if err != nil {
		_, _ = t.Send(ctx, chatID, "📭 Бот не запускался.")
		return
	}

	var b strings.Builder
	if sess.IsRunning {
		b.WriteString("🟢 Бот работает\n")
	} else {
		b.WriteString("🔴 Бот остановлен")
		if sess.StopReason != "" {
			b.WriteString(": " + sess.StopReason)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "• Ставка сейчас: %.2f\n", sess.CurrentAmount)
	fmt.Fprintf(&b, "• Побед: %d | Поражений: %d | Серия: %d\n",
		sess.TotalWins, sess.TotalLosses, sess.ConsecutiveLosses)
	if sess.HasOpenContract() {
		fmt.Fprintf(&b, "• Открыт контракт %d с %s\n",
			sess.OpenContractID, sess.TradeOpenedAt.Format("15:04:05"))
	}
	fmt.Fprintf(&b, "• Токен: %s", maskToken(sess.Config.APIToken))

	_, _ = t.Send(ctx, chatID, b.String())
}

func sessionID(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// maskToken — токен в логи и статусы попадает только замаскированным.
func maskToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return token[:4] + strings.Repeat("*", len(token)-4)
}
