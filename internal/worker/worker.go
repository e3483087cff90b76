package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/leshachaplin/sitetrack/internal/domain"
)

const flushTimeout = 10 * time.Second

type ExecuteFn func(ctx context.Context, batch domain.HitBatch) error

type WorkerPool interface {
	Start(executeFn ExecuteFn)
	GracefulStop()
	Process(payload domain.HitBatch)
}

// Pool publishes hit batches to a queue and runs workers that consume them,
// regrouping consumed hits into batches of up to the configured size.
// Batches that fail to publish or execute go to the error queue.
type Pool struct {
	numWorkers    int
	batchSize     int
	flushInterval time.Duration
	taskPayload   chan domain.HitBatch
	queue         Queue
	errorQueue    Publisher
	start         sync.Once
	stop          sync.Once
	doneChan      chan struct{}
	ctx           context.Context
	cancelFn      context.CancelFunc
	wg            *sync.WaitGroup
	logger        zerolog.Logger
}

// New creates a pool. errorQueue may be nil, failures are then only logged.
func New(ctx context.Context, cfg Config, queue Queue, errorQueue Publisher, logger zerolog.Logger) *Pool {
	c, cancelFn := context.WithCancel(ctx)
	return &Pool{
		numWorkers:    cfg.NumWorkers,
		batchSize:     cfg.batchSize(),
		flushInterval: cfg.flushInterval(),
		taskPayload:   make(chan domain.HitBatch, cfg.NumWorkers),
		doneChan:      make(chan struct{}),
		queue:         queue,
		errorQueue:    errorQueue,
		ctx:           c,
		cancelFn:      cancelFn,
		wg:            &sync.WaitGroup{},
		logger:        logger,
	}
}

func (w *Pool) Start(executeFn ExecuteFn) {
	w.start.Do(func() {
		for i := 0; i < w.numWorkers; i++ {
			w.wg.Add(1)
			l := w.logger.With().Int("worker", i).Logger()
			go w.work(w.ctx, l, executeFn)
		}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.queue.Consume(w.ctx, w.taskPayload, w.doneChan)
		}()
	})
}

func (w *Pool) GracefulStop() {
	w.stop.Do(func() {
		close(w.doneChan)
		w.cancelFn()
		w.wg.Wait()
	})
}

func (w *Pool) Process(batch domain.HitBatch) {
	if err := w.queue.Publish(w.ctx, batch.ID, batch); err != nil {
		w.onFailure(batch, err)
	}
}

func (w *Pool) onFailure(batch domain.HitBatch, err error) {
	if w.errorQueue == nil {
		w.logger.Error().Err(err).Str("BATCH_ID", batch.ID).Int("HITS", len(batch.Hits)).Msg("failed to process hits")
		return
	}

	p := payload{
		Payload: batch,
	}
	p.SetErrorReason(err)
	if errPublish := w.errorQueue.Publish(context.Background(), batch.ID, p); errPublish != nil {
		w.logger.Error().Err(err).AnErr("publish_error", errPublish).Str("BATCH_ID", batch.ID).Msg("failed to process hits")
	}
}

func (w *Pool) work(ctx context.Context, logger zerolog.Logger, executeFn ExecuteFn) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	pending := newPending(w.batchSize)
	flush := func(ctx context.Context) {
		if len(pending.Hits) == 0 {
			return
		}
		logger.Debug().Str("BATCH_ID", pending.ID).Int("HITS", len(pending.Hits)).Msg("start processing hits")
		if err := executeFn(ctx, pending); err != nil {
			w.onFailure(pending, err)
		}
		logger.Debug().Str("BATCH_ID", pending.ID).Msg("end processing hits")
		pending = newPending(w.batchSize)
	}
	drain := func() {
		c, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		flush(c)
	}

	for {
		select {
		case <-ctx.Done():
			drain()
			return
		case <-w.doneChan:
			drain()
			return
		case <-ticker.C:
			flush(ctx)
		case pld, ok := <-w.taskPayload:
			if !ok {
				drain()
				return
			}
			if pending.ID == "" {
				pending.ID = pld.ID
			}
			pending.Hits = append(pending.Hits, pld.Hits...)
			if len(pending.Hits) >= w.batchSize {
				flush(ctx)
			}
		}
	}
}

func newPending(size int) domain.HitBatch {
	return domain.HitBatch{Hits: make([]domain.Hit, 0, size)}
}

type payload struct {
	Payload domain.HitBatch `json:"payload"`
	Error   *errorReason    `json:"error_reason"`
}

func (c *payload) SetErrorReason(err error) {
	if c.Error == nil {
		c.Error = new(errorReason)
	}
	c.Error.Reason = err
}

func (c *payload) GetErrorReason() error {
	if c.Error != nil {
		return c.Error.Reason
	}
	return nil
}

type errorReason struct {
	Reason error
}

func (e errorReason) MarshalJSON() ([]byte, error) {
	if e.Reason != nil {
		return json.Marshal(e.Reason.Error())
	}
	return json.Marshal(nil)
}

func (e *errorReason) UnmarshalJSON(data []byte) error {
	var reason string
	if err := json.Unmarshal(data, &reason); err != nil {
		return err
	}
	e.Reason = errors.New(reason)
	return nil
}
