package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"option_bot/internal/modules/broker/service"
	"option_bot/internal/modules/config"
	"option_bot/internal/signal"

	"github.com/joho/godotenv"
)

// Smoke-прогон без ордеров: подключаемся к брокеру, авторизуемся,
// забираем тики и печатаем сигнал. Токен и app_id — из окружения/.env.
func main() {
	_ = godotenv.Load()

	token := os.Getenv("BROKER_API_TOKEN")
	if token == "" {
		log.Fatal("BROKER_API_TOKEN is required")
	}

	cfg := &config.Config{}
	cfg.Broker.Endpoint = envDefault("BROKER_ENDPOINT", "wss://ws.binaryws.com/websockets/v3")
	cfg.Broker.AppID = envDefault("BROKER_APP_ID", "1089")
	cfg.Broker.ConnectTimeout = 10 * time.Second
	cfg.Broker.RequestTimeout = 15 * time.Second

	symbol := envDefault("TRADING_SYMBOL", "R_100")
	count := envInt("TRADING_TICK_COUNT", 60)
	strategy := envDefault("TRADING_STRATEGY", "last_first")

	sig, err := signal.New(strategy, envInt("TRADING_MIN_TICKS", 5))
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := service.NewClient(cfg).Connect(ctx, token)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer func() { _ = conn.Close() }()

	fmt.Printf("authorized: balance=%.2f %s\n", conn.AuthBalance(), conn.Currency())

	ticks, err := conn.RecentTicks(ctx, symbol, count)
	if err != nil {
		log.Fatalf("ticks: %v", err)
	}
	if len(ticks) == 0 {
		log.Fatalf("%s: empty tick history", symbol)
	}
	fmt.Printf("%s: %d ticks, last=%.4f\n", symbol, len(ticks), ticks[len(ticks)-1].Price)

	side := sig.Analyse(ticks)
	if side == "" {
		fmt.Printf("signal (%s): neutral, no entry\n", sig.Name())
		return
	}
	fmt.Printf("signal (%s): %s\n", sig.Name(), side)
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
