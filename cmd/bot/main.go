package main

import (
	"context"
	"log"

	"option_bot/internal/modules/broker"
	"option_bot/internal/modules/config"
	"option_bot/internal/modules/health"
	"option_bot/internal/modules/postgres"
	"option_bot/internal/modules/sessions"
	telegram "option_bot/internal/modules/telegram_bot"
	"option_bot/internal/runner"
	"option_bot/pkg/logger"
	"option_bot/pkg/tracing"

	"go.uber.org/fx"
)

const serviceName = "option_bot"

func main() {
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	logger.SetServiceName(serviceName)

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		postgres.Module(),
		sessions.Module(),
		broker.Module(),
		runner.Module(),
		telegram.Module(),
		health.Module(),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) error {
			if cfg.Jaeger.Host == "" {
				return nil // трассировка опциональна
			}
			tracing.SetServiceName(serviceName)
			_, closeTracer, err := tracing.InitTracer(tracing.Config{
				Host: cfg.Jaeger.Host,
				Port: cfg.Jaeger.Port,
			})
			if err != nil {
				return err
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					closeTracer()
					return nil
				},
			})
			return nil
		}),
	)
	app.Run()
}
