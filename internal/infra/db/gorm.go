package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Postgresの接続情報
type Options struct {
	DatabaseURL string

	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	Debug bool
}

// DSN は DATABASE_URL があれば最優先で使う
func (o Options) DSN() string {
	if o.DatabaseURL != "" {
		return o.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		o.Host, o.Port, o.User, o.Password, o.Name, o.SSLMode,
	)
}

// Connect はDBに接続して *gorm.DB を返す。
func Connect(o Options) (*gorm.DB, error) {
	cfg := &gorm.Config{
		//ユニーク制約違反をgorm.ErrDuplicatedKeyに揃える
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
	if o.Debug {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}

	gdb, err := gorm.Open(postgres.Open(o.DSN()), cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return gdb, nil
}
