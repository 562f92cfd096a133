package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/quantfeed/dcalab-go/internal/config"
)

// PostgresDB owns the pgx pool backing the portfolio repository.
type PostgresDB struct {
	Pool   *pgxpool.Pool
	logger *logrus.Logger
}

// NewPostgresConnection opens a pool sized from the config block and verifies
// it with a ping before handing it out.
func NewPostgresConnection(cfg config.DatabaseConfig, logger *logrus.Logger) (*PostgresDB, error) {
	if logger == nil {
		logger = logrus.New()
	}

	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"host":      cfg.Host,
		"dbname":    cfg.DBName,
		"max_conns": poolCfg.MaxConns,
	}).Info("Connected to PostgreSQL")

	return &PostgresDB{Pool: pool, logger: logger}, nil
}

// poolConfig translates the config block into pgxpool settings. Unset sizing
// fields fall back to values suitable for a single-instance service.
func poolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 10
	}
	if cfg.MinConns < 0 {
		cfg.MinConns = 0
	}
	if cfg.ConnMaxLifetime == "" {
		cfg.ConnMaxLifetime = "300s"
	}
	if cfg.ConnMaxIdleTime == "" {
		cfg.ConnMaxIdleTime = "60s"
	}

	// The password is quoted so an empty value stays a valid keyword pair.
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password='%s' dbname=%s sslmode=%s pool_max_conns=%d pool_min_conns=%d pool_max_conn_lifetime=%s pool_max_conn_idle_time=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
		cfg.MaxConns, cfg.MinConns, cfg.ConnMaxLifetime, cfg.ConnMaxIdleTime,
	)
	return pgxpool.ParseConfig(dsn)
}

func (db *PostgresDB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.logger.Info("PostgreSQL connection closed")
	}
}

func (db *PostgresDB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
