package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfeed/dcalab-go/internal/config"
)

func TestPoolConfig(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:            "db.example.com",
		Port:            5433,
		User:            "dbuser",
		Password:        "dbpass",
		DBName:          "dcalab",
		SSLMode:         "disable",
		MaxConns:        25,
		MinConns:        5,
		ConnMaxLifetime: "600s",
		ConnMaxIdleTime: "120s",
	}

	poolCfg, err := poolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, "db.example.com", poolCfg.ConnConfig.Host)
	assert.Equal(t, uint16(5433), poolCfg.ConnConfig.Port)
	assert.Equal(t, "dbuser", poolCfg.ConnConfig.User)
	assert.Equal(t, "dcalab", poolCfg.ConnConfig.Database)
	assert.Equal(t, int32(25), poolCfg.MaxConns)
	assert.Equal(t, int32(5), poolCfg.MinConns)
	assert.Equal(t, 10*time.Minute, poolCfg.MaxConnLifetime)
	assert.Equal(t, 2*time.Minute, poolCfg.MaxConnIdleTime)
}

func TestPoolConfigFallbacks(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:    "localhost",
		Port:    5432,
		User:    "postgres",
		DBName:  "dcalab",
		SSLMode: "disable",
	}

	poolCfg, err := poolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, int32(10), poolCfg.MaxConns)
	assert.Equal(t, 5*time.Minute, poolCfg.MaxConnLifetime)
	assert.Equal(t, time.Minute, poolCfg.MaxConnIdleTime)
}

func TestPoolConfigInvalidSSLMode(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:    "localhost",
		Port:    5432,
		User:    "postgres",
		DBName:  "dcalab",
		SSLMode: "bogus",
	}

	_, err := poolConfig(cfg)
	assert.Error(t, err)
}

func TestNewPostgresConnectionInvalidConfig(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:    "localhost",
		Port:    5432,
		User:    "postgres",
		DBName:  "dcalab",
		SSLMode: "bogus",
	}

	// Rejected while building the pool config, before any dial happens.
	_, err := NewPostgresConnection(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid database configuration")
}
