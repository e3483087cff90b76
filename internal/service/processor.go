package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/leshachaplin/sitetrack/internal/domain"
	"github.com/leshachaplin/sitetrack/internal/worker"
)

type Storage interface {
	StoreHits(ctx context.Context, batch domain.HitBatch) error
}

type Forwarder interface {
	Forward(ctx context.Context, batch domain.HitBatch) error
}

// Service is the hit pipeline shared by all visitor sessions.
type Service struct {
	hitPool   worker.WorkerPool
	storage   Storage
	forwarder Forwarder
	logger    zerolog.Logger

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	doneOnce  sync.Once
}

// New starts the pool with the service as its executor. forwarder may be nil.
func New(hitPool worker.WorkerPool, storage Storage, forwarder Forwarder, logger zerolog.Logger) *Service {
	s := &Service{
		hitPool:   hitPool,
		storage:   storage,
		forwarder: forwarder,
		logger:    logger,
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}
	hitPool.Start(s.execute)
	return s
}

// MarkReady opens the pipeline for sessions waiting to load.
func (s *Service) MarkReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Close stops accepting hits and drains the pool.
func (s *Service) Close() {
	s.doneOnce.Do(func() {
		close(s.done)
		s.hitPool.GracefulStop()
	})
}

// execute stores the batch and forwards it upstream concurrently. Only a
// storage failure fails the batch; forwarding is best effort.
func (s *Service) execute(ctx context.Context, batch domain.HitBatch) error {
	var group errgroup.Group
	group.Go(func() error {
		return s.storage.StoreHits(ctx, batch)
	})
	if s.forwarder != nil {
		group.Go(func() error {
			if err := s.forwarder.Forward(ctx, batch); err != nil {
				s.logger.Warn().Err(err).Str("BATCH_ID", batch.ID).Msg("forward hits upstream")
			}
			return nil
		})
	}
	return group.Wait()
}
