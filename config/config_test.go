package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "BIND_ADDRESS", "DB_DRIVER", "SNAPSHOT_TTL_MINUTES", "VOTE_TIMEOUT_SECONDS", "SWEEP_INTERVAL_SECONDS", "REDIS_ENABLED"} {
		t.Setenv(key, "")
	}
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 2*time.Hour, cfg.SnapshotTTL)
	assert.Equal(t, time.Duration(0), cfg.VoteTimeout)
	assert.Equal(t, 5*time.Second, cfg.SweepEvery)
	assert.True(t, cfg.RedisEnabled)
	assert.Equal(t, "localhost:8080", cfg.Addr())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("VOTE_TIMEOUT_SECONDS", "45")
	t.Setenv("BOT_TURN_LIMIT", "3")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("SWEEP_INTERVAL_SECONDS", "not-a-number")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 45*time.Second, cfg.VoteTimeout)
	assert.Equal(t, 3, cfg.BotTurnLimit)
	assert.False(t, cfg.RedisEnabled)
	assert.Equal(t, 5*time.Second, cfg.SweepEvery)
	assert.Nil(t, InitRedis(cfg))
}

func TestInitDB(t *testing.T) {
	cfg := &Config{DBDriver: "sqlite", SQLitePath: ":memory:"}
	db, err := InitDB(cfg)
	require.NoError(t, err)
	require.NotNil(t, db)

	_, err = InitDB(&Config{DBDriver: "mysql"})
	assert.Error(t, err)
}
