package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/leshachaplin/sitetrack/internal/forwarder/measurement"
	"github.com/leshachaplin/sitetrack/internal/session"
	"github.com/leshachaplin/sitetrack/internal/storage/hit/clickhouse"
	"github.com/leshachaplin/sitetrack/internal/worker"
	"github.com/leshachaplin/sitetrack/internal/worker/redpanda/admin"
	"github.com/leshachaplin/sitetrack/internal/worker/redpanda/consumer"
	"github.com/leshachaplin/sitetrack/internal/worker/redpanda/producer"
)

const envPrefix = "SITETRACK"

type HTTP struct {
	Addr          string `mapstructure:"addr"`
	SecureCookies bool   `mapstructure:"secure_cookies"`
	Debug         bool   `mapstructure:"debug"`
}

// Config is the main config for the application
type Config struct {
	LogLevel      string             `mapstructure:"log_level"`
	MeasurementID string             `mapstructure:"measurement_id"`
	HTTP          HTTP               `mapstructure:"http"`
	Session       session.Config     `mapstructure:"session"`
	Clickhouse    clickhouse.Config  `mapstructure:"clickhouse"`
	Forwarder     measurement.Config `mapstructure:"forwarder"`
	Admin         admin.Config       `mapstructure:"admin"`
	EventWorker   worker.Config      `mapstructure:"event_worker"`
	EventProducer producer.Config    `mapstructure:"event_producer"`
	ErrorProducer producer.Config    `mapstructure:"error_producer"`
	EventConsumer consumer.Config    `mapstructure:"event_consumer"`
}

// Topics lists every topic the application produces to or consumes from.
func (c Config) Topics() []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(topics ...string) {
		for _, t := range topics {
			if _, ok := seen[t]; ok || t == "" {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	add(c.EventProducer.Topic)
	add(c.EventConsumer.Topics...)
	add(c.ErrorProducer.Topic)
	return out
}

func (c Config) Validate() error {
	if c.MeasurementID == "" {
		return errors.New("measurement_id is required")
	}
	if len(c.EventProducer.Brokers) == 0 || len(c.EventConsumer.Brokers) == 0 {
		return errors.New("event producer and consumer brokers are required")
	}
	if c.EventProducer.Topic == "" || len(c.EventConsumer.Topics) == 0 {
		return errors.New("event topic is required")
	}
	if c.Clickhouse.Addr == "" {
		return errors.New("clickhouse.addr is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "INFO")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.secure_cookies", true)
	v.SetDefault("session.idle_ttl", 30*time.Minute)
	v.SetDefault("session.sweep_interval", time.Minute)
	v.SetDefault("session.max_sessions", 100000)

	v.SetDefault("clickhouse.db", "sitetrack")
	v.SetDefault("clickhouse.dial_timeout", 5*time.Second)
	v.SetDefault("clickhouse.max_open_conns", 10)

	v.SetDefault("forwarder.retry_max", 3)
	v.SetDefault("forwarder.timeout", 5*time.Second)

	v.SetDefault("admin.partitions", 1)
	v.SetDefault("admin.replication_factor", 1)

	v.SetDefault("event_worker.num_workers", 16)
	v.SetDefault("event_worker.batch_size", 100)
	v.SetDefault("event_worker.max_batch_capacity", 1000)
	v.SetDefault("event_worker.flush_interval", time.Second)

	v.SetDefault("event_producer.retry_attempts", 5)
	v.SetDefault("event_producer.retry_delay", time.Second)
	v.SetDefault("event_producer.publish_timeout", 10*time.Second)
	v.SetDefault("event_producer.topic", "hits")

	v.SetDefault("error_producer.retry_attempts", 5)
	v.SetDefault("error_producer.retry_delay", time.Second)
	v.SetDefault("error_producer.publish_timeout", 10*time.Second)
	v.SetDefault("error_producer.topic", "hits-dlq")

	v.SetDefault("event_consumer.consumer_group", "sitetrack-hits")
	v.SetDefault("event_consumer.topics", []string{"hits"})
	v.SetDefault("event_consumer.retry_count", 5)
	v.SetDefault("event_consumer.poll_fetches_timeout", 5*time.Second)
}

// Load reads the optional config file at path, then overrides it from
// SITETRACK_ prefixed environment variables, loading .env files first.
func Load(path string, envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	// a missing .env is fine
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "unmarshal config")
	}
	if len(cfg.Admin.Brokers) == 0 {
		cfg.Admin.Brokers = cfg.EventProducer.Brokers
	}
	if len(cfg.ErrorProducer.Brokers) == 0 {
		cfg.ErrorProducer.Brokers = cfg.EventProducer.Brokers
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// bindEnv registers keys without defaults so AutomaticEnv sees them on
// Unmarshal.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"measurement_id",
		"http.debug",
		"clickhouse.addr",
		"clickhouse.username",
		"clickhouse.password",
		"clickhouse.debug",
		"forwarder.endpoint",
		"forwarder.api_secret",
		"admin.brokers",
		"event_producer.brokers",
		"event_producer.linger",
		"error_producer.brokers",
		"error_producer.linger",
		"event_consumer.brokers",
	} {
		_ = v.BindEnv(key)
	}
}
