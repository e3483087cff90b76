package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	defaultPublishTimeout = 5 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryDelay     = 200 * time.Millisecond
)

type Config struct {
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
	Linger         time.Duration `mapstructure:"linger"`
	Brokers        []string      `mapstructure:"brokers"`
	Topic          string        `mapstructure:"topic"`
}

type Producer struct {
	retryAttempts  int
	retryDelay     time.Duration
	publishTimeout time.Duration
	client         *kgo.Client
	logger         zerolog.Logger
}

func NewProducer(
	ctx context.Context,
	cfg Config,
	logger zerolog.Logger,
) (*Producer, error) {
	clientOpts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerBatchCompression(kgo.Lz4Compression(), kgo.NoCompression()),
	}
	if cfg.Linger > 0 {
		clientOpts = append(clientOpts, kgo.ProducerLinger(cfg.Linger))
	}

	client, err := kgo.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("kgo new client: %w", err)
	}

	if err = client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping brokers: %w", err)
	}

	producer := &Producer{
		client:         client,
		retryAttempts:  cfg.RetryAttempts,
		retryDelay:     cfg.RetryDelay,
		publishTimeout: cfg.PublishTimeout,
		logger:         logger,
	}
	if producer.retryAttempts <= 0 {
		producer.retryAttempts = defaultRetryAttempts
	}
	if producer.retryDelay <= 0 {
		producer.retryDelay = defaultRetryDelay
	}
	if producer.publishTimeout <= 0 {
		producer.publishTimeout = defaultPublishTimeout
	}

	return producer, nil
}

func (p *Producer) Close() error {
	p.client.Close()
	return nil
}

func (p *Producer) Publish(ctx context.Context, key string, msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	record := kgo.KeyStringRecord(key, string(b))

	return linearBackOff(ctx, &p.logger, p.retryAttempts, p.retryDelay, func() error {
		produceCtx, cancel := context.WithTimeout(ctx, p.publishTimeout)
		res := p.client.ProduceSync(produceCtx, record)
		cancel()

		if err := res.FirstErr(); err != nil {
			return fmt.Errorf("produce sync: %w", err)
		}
		return nil
	})
}

func linearBackOff(ctx context.Context, log *zerolog.Logger, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return err
		}

		log.Warn().Err(err).Msgf("Retry: %d.", i)

		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay * time.Duration(i+1)):
		}
	}
	return err
}
