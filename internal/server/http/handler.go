package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/leshachaplin/sitetrack/internal/apierror"
	"github.com/leshachaplin/sitetrack/internal/domain"
	"github.com/leshachaplin/sitetrack/internal/session"
)

type HitReader interface {
	SessionHits(ctx context.Context, sessionID string) ([]domain.Hit, error)
}

type Option func(*Handler)

// WithHitReader enables the session debug endpoint.
func WithHitReader(r HitReader) Option {
	return func(h *Handler) {
		h.hits = r
	}
}

func WithSecureCookies(secure bool) Option {
	return func(h *Handler) {
		h.secureCookies = secure
	}
}

type Handler struct {
	sessions      *session.Registry
	hits          HitReader
	secureCookies bool
	now           func() time.Time
	logger        zerolog.Logger
}

func NewHandler(sessions *session.Registry, logger zerolog.Logger, opts ...Option) *Handler {
	h := &Handler{
		sessions: sessions,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) error(err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	var apiErr apierror.Error
	if !errors.As(err, &apiErr) {
		apiErr = apierror.NewAPIError(err.Error(), http.StatusInternalServerError)
	}

	w.WriteHeader(apiErr.StatusCode())
	if err = json.NewEncoder(w).Encode(apiErr); err != nil {
		h.logger.Error().Err(err).Msg("encode error response")
	}
}
