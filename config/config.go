// Package config loads process settings with viper. Every key has a
// default, an optional config file may override it, and MATCHCORE_*
// environment variables override both (log.level -> MATCHCORE_LOG_LEVEL).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Symbol        string `mapstructure:"symbol"`
	PriceDigits   int32  `mapstructure:"price_digits"`
	QueueCapacity int    `mapstructure:"queue_capacity"`
	Depth         int    `mapstructure:"depth"`

	Log    Log    `mapstructure:"log"`
	GRPC   Listen `mapstructure:"grpc"`
	HTTP   HTTP   `mapstructure:"http"`
	Kafka  Kafka  `mapstructure:"kafka"`
	Outbox Outbox `mapstructure:"outbox"`
	Redis  Redis  `mapstructure:"redis"`
}

type Log struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type Listen struct {
	Addr string `mapstructure:"addr"`
}

// HTTP requires a bearer token on every route but /healthz when Token is
// set.
type HTTP struct {
	Addr  string `mapstructure:"addr"`
	Token string `mapstructure:"token"`
}

// Kafka is disabled when Brokers is empty.
type Kafka struct {
	Brokers     []string `mapstructure:"brokers"`
	FeedTopic   string   `mapstructure:"feed_topic"`
	FeedGroup   string   `mapstructure:"feed_group"`
	TradesTopic string   `mapstructure:"trades_topic"`
}

func (k Kafka) Enabled() bool { return len(k.Brokers) > 0 }

// Outbox is disabled when Dir is empty.
type Outbox struct {
	Dir      string        `mapstructure:"dir"`
	Interval time.Duration `mapstructure:"interval"`
}

// Redis is disabled when Addr is empty.
type Redis struct {
	Addr    string `mapstructure:"addr"`
	Key     string `mapstructure:"key"`
	Channel string `mapstructure:"channel"`
}

const envPrefix = "MATCHCORE"

func setDefaults(v *viper.Viper) {
	v.SetDefault("symbol", "DEMO")
	v.SetDefault("price_digits", 4)
	v.SetDefault("queue_capacity", 4096)
	v.SetDefault("depth", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("grpc.addr", ":50051")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.token", "")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.feed_topic", "matchcore.feed")
	v.SetDefault("kafka.feed_group", "matchcore")
	v.SetDefault("kafka.trades_topic", "matchcore.trades")
	v.SetDefault("outbox.dir", "")
	v.SetDefault("outbox.interval", 250*time.Millisecond)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.key", "matchcore:top")
	v.SetDefault("redis.channel", "matchcore:top")
}

// Load reads defaults, then path if it is not empty, then the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	// comma separated list from the environment
	if len(cfg.Kafka.Brokers) == 1 && strings.Contains(cfg.Kafka.Brokers[0], ",") {
		cfg.Kafka.Brokers = strings.Split(cfg.Kafka.Brokers[0], ",")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Symbol == "" {
		errs = append(errs, errors.New("symbol is empty"))
	}
	if c.PriceDigits < 0 || c.PriceDigits > 9 {
		errs = append(errs, fmt.Errorf("price_digits %d out of range", c.PriceDigits))
	}
	if c.QueueCapacity <= 0 {
		errs = append(errs, fmt.Errorf("queue_capacity must be positive, got %d", c.QueueCapacity))
	}
	if c.Outbox.Dir != "" && c.Outbox.Interval <= 0 {
		errs = append(errs, errors.New("outbox.interval must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
