package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
	brokerAppIDENV    = "BROKER_APP_ID"
)

// Config ...
type Config struct {
	Telegram struct {
		Token string `yaml:"token"`
	} `yaml:"telegram"`
	DB string `yaml:"db_dsn"`

	Broker struct {
		Endpoint       string        `yaml:"endpoint"` // wss://.../websockets/v3
		AppID          string        `yaml:"app_id"`
		ConnectTimeout time.Duration `yaml:"connect_timeout"` // handshake + authorize
		RequestTimeout time.Duration `yaml:"request_timeout"` // один запрос-ответ
	} `yaml:"broker"`

	Trading struct {
		Symbol       string        `yaml:"symbol"`        // дефолтный инструмент
		Duration     int           `yaml:"duration"`      // длительность контракта
		DurationUnit string        `yaml:"duration_unit"` // "m" | "t"
		ResultDelay  time.Duration `yaml:"result_delay"`  // пауза до первого опроса результата
		EntrySecond  int           `yaml:"entry_second"`  // секунда минуты, с которой открыто окно входа
		EntryWindow  int           `yaml:"entry_window"`  // ширина окна, сек
		TickCount    int           `yaml:"tick_count"`    // сколько тиков запрашиваем
		MinTicks     int           `yaml:"min_ticks"`     // минимум тиков для сигнала
		Strategy     string        `yaml:"strategy"`      // last_first | split_mean
	} `yaml:"trading"`

	Scheduler struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"scheduler"`

	Entitlement string `yaml:"entitlement"` // open | allowlist

	Health struct {
		Addr string `yaml:"addr"`
	} `yaml:"health"`

	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`
}

func NewConfig() (*Config, error) {

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		log.Fatalf("Failed to open config file: %v", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := yaml.NewDecoder(file)
	config := Config{}

	// дефолты до декодирования — yaml перекрывает только то, что задан
	config.Broker.Endpoint = getenvDefault("BROKER_ENDPOINT", "wss://ws.binaryws.com/websockets/v3")
	config.Broker.ConnectTimeout = durationFromEnv("BROKER_CONNECT_TIMEOUT", "10s")
	config.Broker.RequestTimeout = durationFromEnv("BROKER_REQUEST_TIMEOUT", "15s")

	config.Trading.Symbol = getenvDefault("TRADING_SYMBOL", "R_100")
	config.Trading.Duration = intFromEnv("TRADING_DURATION", 1)
	config.Trading.DurationUnit = getenvDefault("TRADING_DURATION_UNIT", "m")
	config.Trading.ResultDelay = durationFromEnv("TRADING_RESULT_DELAY", "65s")
	config.Trading.EntrySecond = intFromEnv("TRADING_ENTRY_SECOND", 58)
	config.Trading.EntryWindow = intFromEnv("TRADING_ENTRY_WINDOW", 3)
	config.Trading.TickCount = intFromEnv("TRADING_TICK_COUNT", 60)
	config.Trading.MinTicks = intFromEnv("TRADING_MIN_TICKS", 5)
	config.Trading.Strategy = getenvDefault("TRADING_STRATEGY", "last_first")

	config.Scheduler.Interval = durationFromEnv("SCHEDULER_INTERVAL", "1s")
	config.Entitlement = getenvDefault("ENTITLEMENT_MODE", "open")
	config.Health.Addr = getenvDefault("HEALTH_ADDR", ":8080")

	err = decoder.Decode(&config)
	if err != nil {
		log.Fatalf("Failed to decode config file: %v", err)
	}

	token := os.Getenv(tokenTelegramENV)
	if token != "" {
		config.Telegram.Token = token
	}

	dsn := os.Getenv(databaseDSN)
	if dsn != "" {
		config.DB = dsn
	}

	if appID := os.Getenv(brokerAppIDENV); appID != "" {
		config.Broker.AppID = appID
	}

	return &config, nil
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
