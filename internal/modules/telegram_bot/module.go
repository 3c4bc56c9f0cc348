package telegram_bot

import (
	"context"

	"go.uber.org/fx"

	"option_bot/internal/modules/telegram_bot/service"
	"option_bot/internal/runner"
)

type notifier struct{ t *service.Telegram }

func (n notifier) SendF(ctx context.Context, sessionID string, format string, args ...any) {
	n.t.NotifySession(ctx, sessionID, format, args...)
}

func Module() fx.Option {
	return fx.Module("telegram_bot",
		fx.Provide(
			service.NewTelegram,
			func(t *service.Telegram) runner.Notifier { return notifier{t: t} },
		),
		fx.Invoke(func(lc fx.Lifecycle, t *service.Telegram) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return t.Start(context.Background())
				},
				OnStop: func(ctx context.Context) error {
					t.Stop()
					return nil
				},
			})
		}),
	)
}
