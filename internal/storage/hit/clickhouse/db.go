package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	defaultDialTimeout  = 30 * time.Second
	defaultMaxOpenConns = 5
)

type Clickhouse struct {
	conn driver.Conn
}

func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Clickhouse, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = defaultMaxOpenConns
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.DB,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: cfg.Debug,
		Debugf: func(format string, v ...any) {
			logger.Debug().Msgf(format, v...)
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout:     cfg.DialTimeout,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxOpenConns,
		ConnMaxLifetime: 10 * time.Minute,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open clickhouse")
	}

	if err = conn.Ping(ctx); err != nil {
		var exception *clickhouse.Exception
		if errors.As(err, &exception) {
			logger.Error().
				Int32("code", exception.Code).
				Str("stack", exception.StackTrace).
				Msg(exception.Message)
		}
		_ = conn.Close()
		return nil, errors.Wrap(err, "ping clickhouse")
	}

	return &Clickhouse{
		conn: conn,
	}, nil
}

func (c *Clickhouse) Close() error {
	return c.conn.Close()
}

func (c *Clickhouse) Migrate(ctx context.Context) error {
	err := c.conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS hits
		(
			id             String,
			session_id     String,
			measurement_id LowCardinality(String),
			command        LowCardinality(String),
			name           LowCardinality(String),
			category       LowCardinality(String),
			params         String,
			ip             String,
			user_agent     String,
			server_time    DateTime64(3, 'UTC')
		) Engine = MergeTree
		PARTITION BY toYYYYMM(server_time)
		ORDER BY (measurement_id, name, server_time)`)
	return errors.Wrap(err, "migrate hits table")
}
