package app

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/leshachaplin/sitetrack/app/waiter"
	"github.com/leshachaplin/sitetrack/internal/analytics"
	"github.com/leshachaplin/sitetrack/internal/config"
	"github.com/leshachaplin/sitetrack/internal/consent"
	"github.com/leshachaplin/sitetrack/internal/forwarder/measurement"
	appServer "github.com/leshachaplin/sitetrack/internal/server/http"
	"github.com/leshachaplin/sitetrack/internal/service"
	"github.com/leshachaplin/sitetrack/internal/session"
	"github.com/leshachaplin/sitetrack/internal/sink/stream"
	"github.com/leshachaplin/sitetrack/internal/storage/hit/clickhouse"
	"github.com/leshachaplin/sitetrack/internal/worker"
	"github.com/leshachaplin/sitetrack/internal/worker/redpanda/admin"
	"github.com/leshachaplin/sitetrack/internal/worker/redpanda/consumer"
	"github.com/leshachaplin/sitetrack/internal/worker/redpanda/producer"
)

type LoadConfigFn func() (config.Config, error)

type App struct {
	cfg      config.Config
	logger   zerolog.Logger
	server   *appServer.Server
	waiter   waiter.Waiter
	ctx      context.Context
	cancelFn context.CancelFunc
}

func New(loadConfigFn LoadConfigFn) *App {
	ctx, cancelFn := context.WithCancel(context.Background())
	cfg, err := loadConfigFn()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger := NewZeroLogger(Level(cfg.LogLevel))

	w := waiter.NewWaiter(ctx, cancelFn)

	return &App{
		cfg:      cfg,
		logger:   logger,
		waiter:   w,
		ctx:      w.Context(),
		cancelFn: cancelFn,
	}
}

func (a *App) Start() {
	defer a.cancelFn()

	if err := admin.EnsureTopics(a.ctx, a.cfg.Admin, a.cfg.Topics()...); err != nil {
		a.logger.Fatal().Err(err).Msg("Could not create topics.")
	}

	consumerErrorChan := make(chan error, 1)
	hitConsumer, err := consumer.NewConsumer(a.cfg.EventConsumer, consumerErrorChan)
	if err != nil {
		a.logger.Fatal().Err(err).Msg("Could not setup hit consumer.")
	}
	defer hitConsumer.Close()

	hitProducer, err := producer.NewProducer(
		a.ctx,
		a.cfg.EventProducer,
		a.logger.With().Str("producer", "hits").Logger(),
	)
	if err != nil {
		a.logger.Fatal().Err(err).Msg("Could not setup hit producer.")
	}
	defer hitProducer.Close()

	errorProducer, err := producer.NewProducer(
		a.ctx,
		a.cfg.ErrorProducer,
		a.logger.With().Str("producer", "errors").Logger(),
	)
	if err != nil {
		a.logger.Fatal().Err(err).Msg("Could not setup error producer.")
	}
	defer errorProducer.Close()

	hitQueue := worker.NewRedpandaQueue(hitProducer, hitConsumer)
	l := a.logger.With().Str("WORKER", "HIT").Logger()
	hitWorker := worker.New(a.ctx, a.cfg.EventWorker, hitQueue, errorProducer, l)

	hitStorage, err := clickhouse.New(a.ctx, a.cfg.Clickhouse, a.logger)
	if err != nil {
		a.logger.Fatal().Err(err).Msg("Could not setup hit storage.")
	}
	defer hitStorage.Close()
	if err = hitStorage.Migrate(a.ctx); err != nil {
		a.logger.Fatal().Err(err).Msg("Could not migrate hit storage.")
	}

	forwarder := measurement.New(a.cfg.Forwarder, a.logger.With().Str("forwarder", "measurement").Logger())
	if !forwarder.Enabled() {
		a.logger.Info().Msg("measurement protocol forwarding disabled")
	}

	hitService := service.New(hitWorker, hitStorage, forwarder, a.logger)
	sessions := session.NewRegistry(a.cfg.Session, a.newClientFactory(hitService), a.logger)

	opts := []appServer.Option{appServer.WithSecureCookies(a.cfg.HTTP.SecureCookies)}
	if a.cfg.HTTP.Debug {
		opts = append(opts, appServer.WithHitReader(hitStorage))
	}
	handler := appServer.NewHandler(sessions, a.logger, opts...)

	a.server = appServer.New(handler)

	a.waitForServer()
	a.waitForService(hitService)
	a.waitForSessions(sessions)
	a.waitForConsumerErrors(consumerErrorChan)

	hitService.MarkReady()
	if err = a.waiter.Wait(); err != nil {
		a.logger.Fatal().Err(err).Msg("App crash.")
	}
}

func (a *App) Stop() {
	a.cancelFn()
}

// newClientFactory builds the consent-gated analytics client of each visitor
// session, publishing into the shared hit service.
func (a *App) newClientFactory(publisher stream.Publisher) session.ClientFactory {
	return func(s *session.Session) *analytics.Client {
		tag := stream.NewTag(publisher, func() stream.Visitor {
			ip, userAgent := s.Peer()
			return stream.Visitor{SessionID: s.ID, IP: ip, UserAgent: userAgent}
		})

		return analytics.New(
			a.cfg.MeasurementID,
			consent.NewGate(s.Consent),
			tag,
			analytics.WithLocator(s),
			analytics.WithLogger(a.logger.With().Str("session", s.ID).Logger()),
		)
	}
}

func (a *App) waitForServer() {
	a.waiter.Add(func(ctx context.Context) error {
		defer a.logger.Debug().Msg("server has been shutdown")

		group, gCtx := errgroup.WithContext(ctx)
		group.Go(func() error {
			defer a.logger.Debug().Msg("public server exited")
			a.logger.Info().Str("starting server at: ", a.cfg.HTTP.Addr).Send()
			err := a.server.ServePublic(a.cfg.HTTP.Addr)
			if err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})

		group.Go(func() error {
			<-gCtx.Done()
			a.logger.Debug().Msg("shutting down the server")
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			if err := a.server.ShutdownPublic(ctx); err != nil {
				a.logger.Warn().Err(err).Msg("error while shutting down the server")
			}
			return nil
		})

		return group.Wait()
	})
}

func (a *App) waitForService(hitService *service.Service) {
	a.waiter.Add(func(ctx context.Context) error {
		<-ctx.Done()
		hitService.Close()
		a.logger.Debug().Msg("hit service has been stopped")
		return nil
	})
}

func (a *App) waitForSessions(sessions *session.Registry) {
	a.waiter.Add(func(ctx context.Context) error {
		sessions.Run(ctx)
		return nil
	})
}

func (a *App) waitForConsumerErrors(errChan <-chan error) {
	a.waiter.Add(func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case err := <-errChan:
				a.logger.Error().Err(err).Msg("hit consumer failure")
			}
		}
	})
}
