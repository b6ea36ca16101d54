package main

import (
	"context"
	"errors"
	"io/fs"
	"os/signal"
	"syscall"
	"time"

	"canteen/internal/config"
	"canteen/internal/infra/db"
	"canteen/internal/infra/events"
	"canteen/internal/infra/lock"
	"canteen/internal/infra/memory"
	"canteen/internal/infra/realtime"
	infraRepo "canteen/internal/infra/repository"
	"canteen/internal/middleware"
	"canteen/internal/payment"
	"canteen/internal/server"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.IsDev() {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc.Level = level
	return zc.Build()
}

func main() {
	//.envは無くてもよい
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := server.Deps{
		PaymentDelay: cfg.PaymentDelay,
		Outcome:      payment.NewRandomOutcome(cfg.PaymentSuccessRate, cfg.PaymentSeed),
		Log:          log,
	}

	//ストレージ
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		gormDB, err := db.Connect(db.Options{
			DatabaseURL: cfg.DatabaseURL,
			Host:        cfg.PostgresHost,
			Port:        cfg.PostgresPort,
			User:        cfg.PostgresUser,
			Password:    cfg.PostgresPassword,
			Name:        cfg.PostgresDB,
			SSLMode:     cfg.PostgresSSLMode,
			Debug:       cfg.IsDev(),
		})
		if err != nil {
			return err
		}
		if err := gormDB.AutoMigrate(infraRepo.Models()...); err != nil {
			return err
		}
		if cfg.SeedData {
			if err := infraRepo.Seed(ctx, gormDB, time.Now().UTC()); err != nil {
				return err
			}
		}

		//Repository（GORM実装）生成
		deps.Tx = infraRepo.NewTxManagerGorm(gormDB)
		deps.Orders = infraRepo.NewOrderGormRepository(gormDB)
		deps.FoodItems = infraRepo.NewFoodItemGormRepository(gormDB)
		deps.Addresses = infraRepo.NewAddressGormRepository(gormDB)
		deps.AuditLogs = infraRepo.NewAuditLogGormRepository(gormDB)
	default:
		store := memory.NewStore()
		if cfg.SeedData {
			store.Seed(time.Now().UTC())
		}
		deps.Tx = store
		deps.Orders = store.Orders()
		deps.FoodItems = store.FoodItems()
		deps.Addresses = store.Addresses()
		deps.AuditLogs = store.AuditLogs()
	}
	log.Info("storage ready", zap.String("backend", cfg.StorageBackend))

	//注文ごとのロック
	switch cfg.LockBackend {
	case config.LockRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		deps.Locker = lock.NewRedisLocker(rdb, cfg.LockTTL)
	default:
		deps.Locker = lock.NewKeyedMutex()
	}

	//イベント配信（WebSocket + ログ + 任意でKafka/RabbitMQ）
	hub := realtime.NewHub(log)
	defer hub.Close()
	fanout := events.NewMulti(log, hub, events.NewLogPublisher(log))

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := events.NewKafkaSyncProducer(cfg.KafkaBrokers, 10, 3*time.Second, log)
		if err != nil {
			return err
		}
		kp := events.NewKafkaPublisher(producer, cfg.KafkaTopic, log)
		defer func() { _ = kp.Close() }()
		fanout.Add(kp)
	}
	if cfg.AMQPURL != "" {
		conn, ch, err := events.DialAMQP(cfg.AMQPURL)
		if err != nil {
			return err
		}
		defer func() { _ = conn.Close() }()
		ap, err := events.NewAMQPPublisher(ch, cfg.AMQPExchange, log)
		if err != nil {
			return err
		}
		fanout.Add(ap)
	}
	deps.Hub = hub
	deps.Events = fanout

	//認証
	var identity echo.MiddlewareFunc
	if cfg.JWTSecret != "" {
		identity = middleware.AuthJWT(cfg.JWTSecret)
	} else {
		identity = middleware.FixedIdentity(cfg.FixedCustomerID, cfg.FixedMerchantID)
		log.Warn("JWT_SECRET is empty, using fixed identity",
			zap.String("customer_id", cfg.FixedCustomerID),
			zap.String("merchant_id", cfg.FixedMerchantID),
		)
	}
	deps.Identity = identity

	app := server.Wire(deps)

	//Server起動
	return server.Start(ctx, app.Echo, cfg.Addr(), log)
}
