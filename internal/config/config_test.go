package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testConfig = `
log_level: DEBUG
measurement_id: G-FILE
http:
  addr: ":9090"
clickhouse:
  addr: localhost:9000
event_producer:
  brokers: ["localhost:9092"]
event_consumer:
  brokers: ["localhost:9092"]
event_worker:
  batch_size: 50
`

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cases := map[string]struct {
		config    string
		env       map[string]string
		dotenv    string
		check     func(t *testing.T, cfg Config)
		expectErr bool
	}{
		"file with defaults": {
			config: testConfig,
			check: func(t *testing.T, cfg Config) {
				require.Equal(t, "DEBUG", cfg.LogLevel)
				require.Equal(t, "G-FILE", cfg.MeasurementID)
				require.Equal(t, ":9090", cfg.HTTP.Addr)
				require.True(t, cfg.HTTP.SecureCookies)
				require.Equal(t, 50, cfg.EventWorker.BatchSize)
				require.Equal(t, time.Second, cfg.EventWorker.FlushInterval)
				require.Equal(t, "hits", cfg.EventProducer.Topic)
				require.Equal(t, []string{"localhost:9092"}, cfg.Admin.Brokers)
				require.Equal(t, []string{"localhost:9092"}, cfg.ErrorProducer.Brokers)
				require.Equal(t, 30*time.Minute, cfg.Session.IdleTTL)
				require.Equal(t, 100000, cfg.Session.MaxSessions)
				require.Equal(t, []string{"hits", "hits-dlq"}, cfg.Topics())
			},
		},
		"env overrides file": {
			config: testConfig,
			env: map[string]string{
				"SITETRACK_MEASUREMENT_ID":             "G-ENV",
				"SITETRACK_EVENT_WORKER_FLUSH_INTERVAL": "250ms",
				"SITETRACK_FORWARDER_API_SECRET":       "secret",
			},
			check: func(t *testing.T, cfg Config) {
				require.Equal(t, "G-ENV", cfg.MeasurementID)
				require.Equal(t, 250*time.Millisecond, cfg.EventWorker.FlushInterval)
				require.Equal(t, "secret", cfg.Forwarder.APISecret)
			},
		},
		"dotenv": {
			config: testConfig,
			dotenv: "SITETRACK_CLICKHOUSE_PASSWORD=from-dotenv\n",
			check: func(t *testing.T, cfg Config) {
				require.Equal(t, "from-dotenv", cfg.Clickhouse.Password)
			},
		},
		"env only": {
			env: map[string]string{
				"SITETRACK_MEASUREMENT_ID":         "G-ENV",
				"SITETRACK_CLICKHOUSE_ADDR":        "ch:9000",
				"SITETRACK_EVENT_PRODUCER_BROKERS": "a:9092,b:9092",
				"SITETRACK_EVENT_CONSUMER_BROKERS": "a:9092",
			},
			check: func(t *testing.T, cfg Config) {
				require.Equal(t, []string{"a:9092", "b:9092"}, cfg.EventProducer.Brokers)
				require.Equal(t, ":8080", cfg.HTTP.Addr)
			},
		},
		"missing measurement id": {
			config:    "clickhouse:\n  addr: localhost:9000\n",
			expectErr: true,
		},
		"unreadable file": {
			config:    "measurement_id: [",
			expectErr: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			var path string
			if tc.config != "" {
				path = writeFile(t, "config.yaml", tc.config)
			}
			envFile := filepath.Join(t.TempDir(), "missing.env")
			if tc.dotenv != "" {
				envFile = writeFile(t, ".env", tc.dotenv)
				t.Cleanup(func() { os.Unsetenv("SITETRACK_CLICKHOUSE_PASSWORD") })
			}

			cfg, err := Load(path, envFile)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}
