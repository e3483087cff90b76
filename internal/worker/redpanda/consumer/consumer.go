package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/leshachaplin/sitetrack/internal/domain"
)

const (
	defaultPollFetchesTimeout = 15 * time.Second
	defaultRetryCount         = 10
)

var errStopped = errors.New("consumer stopped")

type Config struct {
	Brokers            []string      `mapstructure:"brokers"`
	ConsumerGroup      string        `mapstructure:"consumer_group"`
	Topics             []string      `mapstructure:"topics"`
	RetryCount         int           `mapstructure:"retry_count"`
	PollFetchesTimeout time.Duration `mapstructure:"poll_fetches_timeout"`
}

type Consumer struct {
	client             *kgo.Client
	retryCount         int
	pollFetchesTimeout time.Duration
	errChan            chan<- error
}

func NewConsumer(cfg Config, errChan chan<- error) (*Consumer, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.ConsumerGroup),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.DisableAutoCommit(),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kgo new client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping brokers: %w", err)
	}

	consumer := &Consumer{
		client:             client,
		errChan:            errChan,
		pollFetchesTimeout: cfg.PollFetchesTimeout,
		retryCount:         cfg.RetryCount,
	}
	if consumer.pollFetchesTimeout == 0 {
		consumer.pollFetchesTimeout = defaultPollFetchesTimeout
	}
	if consumer.retryCount == 0 {
		consumer.retryCount = defaultRetryCount
	}

	return consumer, nil
}

func (c *Consumer) Close() error {
	c.client.Close()
	return nil
}

// Consume delivers hit batches to batchChan until ctx is cancelled or done
// is closed. Records that cannot be decoded are logged and committed.
func (c *Consumer) Consume(ctx context.Context, batchChan chan<- domain.HitBatch, done <-chan struct{}) {
	c.consume(ctx, done, func(fetches kgo.Fetches) error {
		for iter := fetches.RecordIter(); !iter.Done(); {
			record := iter.Next()

			var batch domain.HitBatch
			if err := json.Unmarshal(record.Value, &batch); err != nil {
				log.Error().Str("record", string(record.Value)).Err(err).Msg("Consume: Unmarshal hit batch.")
				if commitErr := c.commit(ctx, record); commitErr != nil {
					return commitErr
				}
				continue
			}

			select {
			case <-ctx.Done():
				return errStopped
			case <-done:
				return errStopped
			case batchChan <- batch:
			}

			if err := c.commit(ctx, record); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *Consumer) commit(ctx context.Context, record *kgo.Record) error {
	var err error
	for i := 0; i < c.retryCount; i++ {
		if err = c.client.CommitRecords(ctx, record); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("commit record: %w", err)
}

func (c *Consumer) consume(ctx context.Context, done <-chan struct{}, fn func(fetches kgo.Fetches) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		default:
			fetchCtx, cancel := context.WithTimeout(ctx, c.pollFetchesTimeout)
			fetches := c.client.PollFetches(fetchCtx)
			cancel()

			if fetches.IsClientClosed() {
				c.report(errors.New("client closed"))
				return
			}

			if err := fetches.Err(); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}

				if errors.Is(err, context.DeadlineExceeded) {
					continue
				}

				c.report(fmt.Errorf("stream poll fetches: %w", err))
				continue
			}

			if err := fn(fetches); err != nil {
				if errors.Is(err, errStopped) {
					return
				}
				c.report(err)
			}
		}
	}
}

func (c *Consumer) report(err error) {
	select {
	case c.errChan <- err:
	default:
		log.Error().Err(err).Msg("Consume: error channel full.")
	}
}
