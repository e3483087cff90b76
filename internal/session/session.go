package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/leshachaplin/sitetrack/internal/analytics"
	"github.com/leshachaplin/sitetrack/internal/consent"
)

const (
	defaultIdleTTL       = 30 * time.Minute
	defaultSweepInterval = time.Minute
	defaultMaxSessions   = 100_000
)

type Config struct {
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	MaxSessions   int           `mapstructure:"max_sessions"`
}

// Session is one visitor page session. It owns the consent record read by
// its analytics client and the location the visitor is currently on.
type Session struct {
	ID      string
	Consent *consent.RawStore
	Client  *analytics.Client

	mu        sync.RWMutex
	location  analytics.Location
	ip        string
	userAgent string
	lastSeen  time.Time
}

// Location implements analytics.Locator.
func (s *Session) Location() analytics.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.location
}

// Visit records the visitor's current page and client details.
func (s *Session) Visit(loc analytics.Location, ip, userAgent string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if loc.URL != "" || loc.Path != "" {
		s.location = loc
	}
	s.ip = ip
	s.userAgent = userAgent
	s.lastSeen = now
}

// Peer returns the last seen client address and user agent.
func (s *Session) Peer() (ip, userAgent string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ip, s.userAgent
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastSeen)
}

// ClientFactory builds the analytics client of a new session.
type ClientFactory func(s *Session) *analytics.Client

// Registry holds at most MaxSessions visitor sessions. When full, the least
// recently resolved session is evicted.
type Registry struct {
	mu       sync.Mutex
	sessions *lru.Cache[string, *Session]

	newClient     ClientFactory
	idleTTL       time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	logger        zerolog.Logger
}

func NewRegistry(cfg Config, newClient ClientFactory, logger zerolog.Logger) *Registry {
	size := cfg.MaxSessions
	if size <= 0 {
		size = defaultMaxSessions
	}
	// only fails on a non-positive size
	sessions, _ := lru.New[string, *Session](size)

	r := &Registry{
		sessions:      sessions,
		newClient:     newClient,
		idleTTL:       cfg.IdleTTL,
		sweepInterval: cfg.SweepInterval,
		now:           time.Now,
		logger:        logger,
	}
	if r.idleTTL <= 0 {
		r.idleTTL = defaultIdleTTL
	}
	if r.sweepInterval <= 0 {
		r.sweepInterval = defaultSweepInterval
	}
	return r
}

// Resolve returns the session with the given id, creating a new one when the
// id is unknown or empty. The boolean reports whether a session was created.
func (r *Registry) Resolve(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id != "" {
		if s, ok := r.sessions.Get(id); ok {
			return s, false
		}
	}

	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	s := &Session{
		ID:       id,
		Consent:  consent.NewRawStore(""),
		lastSeen: r.now(),
	}
	s.Client = r.newClient(s)
	if evicted := r.sessions.Add(id, s); evicted {
		r.logger.Debug().Int("max_sessions", r.sessions.Len()).Msg("session limit reached, evicted least recent")
	}
	return s, true
}

func (r *Registry) Len() int {
	return r.sessions.Len()
}

// Sweep drops sessions idle for longer than the configured TTL, the server
// side equivalent of the page being unloaded.
func (r *Registry) Sweep() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int
	for _, id := range r.sessions.Keys() {
		s, ok := r.sessions.Peek(id)
		if ok && s.idleSince(now) > r.idleTTL {
			r.sessions.Remove(id)
			removed++
		}
	}
	return removed
}

// Run sweeps idle sessions until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug().Int("removed", n).Int("active", r.Len()).Msg("swept idle sessions")
			}
		}
	}
}
