package runner

import (
	"context"

	"option_bot/internal/modules/config"
	"option_bot/internal/signal"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			func(cfg *config.Config) (signal.Engine, error) {
				return signal.New(cfg.Trading.Strategy, cfg.Trading.MinTicks)
			},
			NewEngine,    // *Engine
			NewScheduler, // *Scheduler
			NewSessions,  // *Sessions
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			sched *Scheduler,
			ctx context.Context,
		) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go sched.Run(ctx)
					return nil
				},
			})
		}),
	)
}
