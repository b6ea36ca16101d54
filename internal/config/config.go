package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	LockMemory = "memory"
	LockRedis  = "redis"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string // サーバーポート（8080）
	GoEnv string // dev/prod

	StorageBackend string // memory / postgres
	SeedData       bool   // 起動時にサンプル料理・住所を入れる

	DatabaseURL      string // 指定があればPOSTGRES_*より優先
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int
	PostgresSSLMode  string

	JWTSecret       string // 空ならFixedIdentityで動く
	FixedCustomerID string
	FixedMerchantID string

	PaymentDelay       time.Duration
	PaymentSuccessRate float64
	PaymentSeed        int64

	LockBackend string // memory / redis
	RedisAddr   string
	LockTTL     time.Duration

	KafkaBrokers []string // 空ならKafkaに流さない
	KafkaTopic   string
	AMQPURL      string // 空ならRabbitMQに流さない
	AMQPExchange string

	LogLevel string
}

// Loadは環境変数
func Load() (Config, error) {
	var err error
	cfg := Config{
		Port:  envOr("PORT", "8080"),
		GoEnv: envOr("GO_ENV", "dev"),

		StorageBackend: envOr("STORAGE_BACKEND", StorageMemory),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresSSLMode:  envOr("POSTGRES_SSLMODE", "disable"),

		JWTSecret:       os.Getenv("JWT_SECRET"),
		FixedCustomerID: envOr("FIXED_CUSTOMER_ID", "customer-1"),
		FixedMerchantID: envOr("FIXED_MERCHANT_ID", "merchant-1"),

		LockBackend: envOr("LOCK_BACKEND", LockMemory),
		RedisAddr:   os.Getenv("REDIS_ADDR"),

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   envOr("KAFKA_TOPIC", "canteen.orders"),
		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: envOr("AMQP_EXCHANGE", "canteen.orders"),

		LogLevel: envOr("LOG_LEVEL", "info"),
	}

	if cfg.SeedData, err = boolOr("SEED_DATA", true); err != nil {
		return Config{}, err
	}
	if cfg.PostgresPort, err = intOr("POSTGRES_PORT", 5432); err != nil {
		return Config{}, err
	}
	if cfg.PaymentDelay, err = durationOr("PAYMENT_DELAY", time.Second); err != nil {
		return Config{}, err
	}
	if cfg.LockTTL, err = durationOr("LOCK_TTL", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.PaymentSuccessRate, err = floatOr("PAYMENT_SUCCESS_RATE", 0.95); err != nil {
		return Config{}, err
	}
	if cfg.PaymentSeed, err = int64Or("PAYMENT_SEED", 0); err != nil {
		return Config{}, err
	}

	//必須チェック
	if cfg.PaymentSuccessRate < 0 || cfg.PaymentSuccessRate > 1 {
		return Config{}, fmt.Errorf("PAYMENT_SUCCESS_RATE must be between 0 and 1")
	}
	if cfg.PaymentDelay < 0 {
		return Config{}, fmt.Errorf("PAYMENT_DELAY must not be negative")
	}

	switch cfg.StorageBackend {
	case StorageMemory:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			if cfg.PostgresUser == "" {
				return Config{}, fmt.Errorf("POSTGRES_USER is required")
			}
			if cfg.PostgresDB == "" {
				return Config{}, fmt.Errorf("POSTGRES_DB is required")
			}
			if cfg.PostgresHost == "" {
				return Config{}, fmt.Errorf("POSTGRES_HOST is required")
			}
		}
	default:
		return Config{}, fmt.Errorf("STORAGE_BACKEND must be memory or postgres")
	}

	switch cfg.LockBackend {
	case LockMemory:
	case LockRedis:
		if cfg.RedisAddr == "" {
			return Config{}, fmt.Errorf("REDIS_ADDR is required")
		}
	default:
		return Config{}, fmt.Errorf("LOCK_BACKEND must be memory or redis")
	}

	if cfg.FixedCustomerID == cfg.FixedMerchantID {
		return Config{}, fmt.Errorf("FIXED_CUSTOMER_ID and FIXED_MERCHANT_ID must differ")
	}

	return cfg, nil
}

func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func (c Config) IsDev() bool {
	return c.GoEnv == "dev"
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func intOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func int64Or(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func floatOr(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return f, nil
}

func boolOr(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false: %w", key, err)
	}
	return b, nil
}

func durationOr(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}
