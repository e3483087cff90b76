package service

import (
	"github.com/leshachaplin/sitetrack/internal/domain"
)

func (s *Service) Publish(hit domain.Hit) {
	select {
	case <-s.done:
		s.logger.Debug().Str("hit", hit.ID).Msg("pipeline closed, hit dropped")
		return
	default:
	}

	s.hitPool.Process(domain.HitBatch{
		ID:   hit.SessionID,
		Hits: []domain.Hit{hit},
	})
}
