package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "ohmguard", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 20, cfg.Database.MaxConns)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	// MQTT 默认不启用
	assert.Empty(t, cfg.MQTT.Broker)
	assert.Equal(t, "ohmguard/+/events", cfg.MQTT.Topic)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)

	assert.Equal(t, ":8001", cfg.HTTP.Addr)
	assert.Equal(t, "https://exp.host/--/api/v2/push/send", cfg.Push.GatewayURL)
	assert.Equal(t, 10, cfg.Push.TimeoutSec)
	assert.Equal(t, "alerts", cfg.Push.ChannelID)
	assert.Equal(t, "ohmguard:node:", cfg.Location.CacheKeyPrefix)
	assert.Equal(t, 300, cfg.Location.CacheTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("MQTT_BROKER", "tcp://mqtt.internal:1883")
	t.Setenv("EXPO_PUSH_URL", "http://localhost:9999/push")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "tcp://mqtt.internal:1883", cfg.MQTT.Broker)
	assert.Equal(t, "http://localhost:9999/push", cfg.Push.GatewayURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestGetDSN(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		Database: "ohmguard",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=ohmguard sslmode=disable",
		cfg.GetDSN())
}

func TestGetEnvInt_Invalid(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	// 非法数值退回默认
	assert.Equal(t, 5432, cfg.Database.Port)
}
