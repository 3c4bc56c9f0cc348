package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"option_bot/internal/modules/config"
	"option_bot/internal/runner"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram — фронтенд бота: запуск/остановка/статус через команды,
// плюс пуш уведомлений о сделках из движка.
type Telegram struct {
	bot      *tgbot.BotAPI
	cfg      *config.Config
	sessions *runner.Sessions

	mu      sync.Mutex
	dialogs map[int64]*dialog
}

func NewTelegram(cfg *config.Config, sessions *runner.Sessions) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}

	return &Telegram{
		bot:      b,
		cfg:      cfg,
		sessions: sessions,
		dialogs:  make(map[int64]*dialog),
	}, nil
}

func (t *Telegram) Send(ctx context.Context, chatID int64, msg string) (tgbot.Message, error) {
	return t.bot.Send(tgbot.NewMessage(chatID, msg))
}

func (t *Telegram) SendF(ctx context.Context, chatID int64, format string, args ...any) (tgbot.Message, error) {
	return t.Send(ctx, chatID, fmt.Sprintf(format, args...))
}

// NotifySession — runner.Notifier: session id это chat id строкой.
func (t *Telegram) NotifySession(ctx context.Context, sessionID string, format string, args ...any) {
	chatID, err := strconv.ParseInt(sessionID, 10, 64)
	if err != nil {
		return
	}
	_, _ = t.SendF(ctx, chatID, format, args...)
}

// Start ...
func (t *Telegram) Start(ctx context.Context) error {
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					return
				}
				if upd.Message != nil {
					t.handleMessage(ctx, upd.Message)
				}
			}
		}
	}()
	return nil
}

func (t *Telegram) Stop() {
	t.bot.StopReceivingUpdates()
}
