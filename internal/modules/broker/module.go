package broker

import (
	"context"

	"option_bot/internal/modules/broker/service"
	"option_bot/internal/runner"

	"go.uber.org/fx"
)

// linkAdapter — *service.Client как runner.Broker (конкретный *Conn
// наружу не светим).
type linkAdapter struct {
	c *service.Client
}

func (a linkAdapter) Connect(ctx context.Context, token string) (runner.BrokerConn, error) {
	conn, err := a.c.Connect(ctx, token)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func Module() fx.Option {
	return fx.Module("broker",
		fx.Provide(
			service.NewClient, // *service.Client
		),
		fx.Provide(
			func(c *service.Client) runner.Broker {
				return linkAdapter{c: c}
			},
		),
	)
}
