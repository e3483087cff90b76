//go:build integration

package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"github.com/leshachaplin/sitetrack/internal/domain"
	"github.com/leshachaplin/sitetrack/internal/testingh"
)

type StorageTestSuite struct {
	ctx       context.Context
	cancelFn  context.CancelFunc
	container *testingh.Container
	storage   *Clickhouse

	suite.Suite
}

func (s *StorageTestSuite) SetupSuite() {
	var err error
	s.ctx, s.cancelFn = context.WithTimeout(context.Background(), 2*time.Minute)

	s.container, err = testingh.NewClickhouse(func(connURL string) error {
		ch, err := New(s.ctx, Config{Addr: connURL, DB: "test_db", Username: "su", Password: "su"}, zerolog.Nop())
		if err != nil {
			return err
		}
		s.storage = ch
		return ch.Migrate(s.ctx)
	})
	s.Require().NoError(err)
}

func (s *StorageTestSuite) TearDownSuite() {
	s.cancelFn()
	s.Assert().NoError(s.storage.Close())
	s.Assert().NoError(s.container.Purge())
}

func TestStorageTestSuite(t *testing.T) {
	suite.Run(t, new(StorageTestSuite))
}

func (s *StorageTestSuite) TestStoreHits() {
	now := time.Now().UTC().Truncate(time.Millisecond)
	batch := domain.HitBatch{
		ID: "session-1",
		Hits: []domain.Hit{
			{ID: "a", SessionID: "session-1", MeasurementID: "G-1", Command: domain.CommandConfig, Name: "config", ServerTime: now},
			{
				ID: "b", SessionID: "session-1", MeasurementID: "G-1", Command: domain.CommandEvent,
				Name: "conversion", Category: "conversion",
				Params:     map[string]any{"conversion_type": "phone_click", "value": 1.0},
				ServerTime: now.Add(time.Millisecond),
			},
		},
	}

	s.Require().NoError(s.storage.StoreHits(s.ctx, batch))
	s.Require().NoError(s.storage.StoreHits(s.ctx, domain.HitBatch{}))

	hits, err := s.storage.SessionHits(s.ctx, "session-1")
	s.Require().NoError(err)
	s.Require().Len(hits, 2)
	s.Equal("config", hits[0].Name)
	s.Equal("phone_click", hits[1].Params["conversion_type"])
	s.True(hits[1].ServerTime.Equal(now.Add(time.Millisecond)))
}
