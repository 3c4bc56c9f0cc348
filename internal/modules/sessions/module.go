package sessions

import (
	"context"

	"option_bot/internal/modules/config"
	"option_bot/internal/modules/sessions/service/pg"
	"option_bot/internal/runner"

	"go.uber.org/fx"
)

// allowAll — режим entitlement=open: пускаем всех (локальные прогоны).
type allowAll struct{}

func (allowAll) IsAuthorized(context.Context, string) (bool, error) { return true, nil }

func Module() fx.Option {
	return fx.Module("sessions",
		fx.Provide(
			pg.NewStore, // *pg.Store
		),
		fx.Provide(
			func(s *pg.Store) runner.SessionStore { return s },
		),
		fx.Provide(
			func(cfg *config.Config, s *pg.Store) runner.Entitlements {
				if cfg.Entitlement == "allowlist" {
					return s
				}
				return allowAll{}
			},
		),
	)
}
