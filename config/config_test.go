package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "DEMO", cfg.Symbol)
	assert.EqualValues(t, 4, cfg.PriceDigits)
	assert.Equal(t, 4096, cfg.QueueCapacity)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":50051", cfg.GRPC.Addr)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, 250*time.Millisecond, cfg.Outbox.Interval)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matchcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
symbol: BTC-USD
price_digits: 2
log:
  level: debug
  development: true
kafka:
  brokers: ["k1:9092", "k2:9092"]
  feed_topic: feed
outbox:
  dir: /tmp/outbox
  interval: 1s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "BTC-USD", cfg.Symbol)
	assert.EqualValues(t, 2, cfg.PriceDigits)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Development)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "feed", cfg.Kafka.FeedTopic)
	assert.Equal(t, "matchcore", cfg.Kafka.FeedGroup)
	assert.Equal(t, time.Second, cfg.Outbox.Interval)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MATCHCORE_SYMBOL", "ETH-USD")
	t.Setenv("MATCHCORE_LOG_LEVEL", "warn")
	t.Setenv("MATCHCORE_KAFKA_BROKERS", "a:1,b:2")
	t.Setenv("MATCHCORE_REDIS_ADDR", "localhost:6379")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "ETH-USD", cfg.Symbol)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.Kafka.Brokers)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("MATCHCORE_QUEUE_CAPACITY", "0")
	t.Setenv("MATCHCORE_PRICE_DIGITS", "12")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue_capacity")
	assert.Contains(t, err.Error(), "price_digits")
}
