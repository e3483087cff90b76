package worker

import (
	"context"

	"github.com/leshachaplin/sitetrack/internal/domain"
	"github.com/leshachaplin/sitetrack/internal/worker/redpanda/consumer"
	"github.com/leshachaplin/sitetrack/internal/worker/redpanda/producer"
)

type Publisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

type Queue interface {
	Publisher
	Consume(ctx context.Context, taskPayload chan<- domain.HitBatch, done <-chan struct{})
}

type RedpandaQueue struct {
	producer *producer.Producer
	consumer *consumer.Consumer
}

func NewRedpandaQueue(producer *producer.Producer, consumer *consumer.Consumer) *RedpandaQueue {
	return &RedpandaQueue{
		producer: producer,
		consumer: consumer,
	}
}

func (r *RedpandaQueue) Publish(ctx context.Context, key string, payload any) error {
	return r.producer.Publish(ctx, key, payload)
}

func (r *RedpandaQueue) Consume(ctx context.Context, taskPayload chan<- domain.HitBatch, done <-chan struct{}) {
	r.consumer.Consume(ctx, taskPayload, done)
}
