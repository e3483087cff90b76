package analytics

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TimestampLayout is ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	ErrConsentDenied     = errors.New("analytics consent not granted")
	ErrNotInitialized    = errors.New("analytics client not initialized")
	ErrClientUnavailable = errors.New("tracking sink unavailable")
)

// Gate decides whether tracking is currently allowed.
type Gate interface {
	CanTrack() bool
}

// Observer receives every condition the client swallows.
type Observer func(err error)

// State is the per page session client state.
type State struct {
	Initialized    bool
	ConsentGranted bool
}

type Option func(*Client)

func WithObserver(fn Observer) Option {
	return func(c *Client) {
		c.observe = fn
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.observe = func(err error) {
			logger.Debug().Err(err).Msg("tracking call dropped")
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

func WithLocator(l Locator) Option {
	return func(c *Client) {
		c.locator = l
	}
}

// Client owns the one-time sink bootstrap of a page session and the
// consent-gated dispatch of tracking commands. It never panics and never
// returns errors to callers; dropped calls are reported to the observer.
type Client struct {
	measurementID string
	gate          Gate
	sink          Sink
	locator       Locator
	observe       Observer
	now           func() time.Time

	mu    sync.Mutex
	state State
}

func New(measurementID string, gate Gate, sink Sink, opts ...Option) *Client {
	c := &Client{
		measurementID: measurementID,
		gate:          gate,
		sink:          sink,
		observe:       func(error) {},
		now:           time.Now,
		locator:       LocatorFunc(func() Location { return Location{} }),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Initialize loads and configures the sink at most once. It is a no-op while
// consent is not granted.
func (c *Client) Initialize() {
	if !c.canTrack() {
		c.drop(ErrConsentDenied)
		return
	}

	if err := c.initialize(); err != nil {
		c.drop(err)
	}
}

// initialize holds the lock for the whole bootstrap so concurrent callers
// load the sink once. The observer must not run under it.
func (c *Client) initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ConsentGranted = true
	if c.state.Initialized {
		return nil
	}
	if c.sink == nil {
		return ErrClientUnavailable
	}

	c.sink.Load(c.measurementID, c.now())
	c.sink.Configure(c.measurementID, ConfigOptions{
		AnonymizeIP:                   true,
		AllowGoogleSignals:            false,
		AllowAdPersonalizationSignals: false,
	})
	c.state.Initialized = true
	return nil
}

func (c *Client) DispatchPageView(path, title string) {
	if err := c.guard(); err != nil {
		c.drop(err)
		return
	}

	loc := c.locator.Location()
	c.sink.Configure(c.measurementID, ConfigOptions{
		AnonymizeIP:  true,
		PagePath:     path,
		PageTitle:    title,
		PageLocation: loc.URL,
	})
}

// DispatchEvent forwards name and a copy of params with a dispatch timestamp.
func (c *Client) DispatchEvent(name string, params Params) {
	if err := c.guard(); err != nil {
		c.drop(err)
		return
	}

	p := params.clone()
	p["timestamp"] = c.now().UTC().Format(TimestampLayout)
	c.sink.Event(name, p)
}

// OnConsentUpdate bridges consent banner decisions to the client lifecycle.
// A grant initializes and records a page view of the current location. A
// revocation signals denial to a loaded sink; sessions that never loaded the
// sink send nothing.
func (c *Client) OnConsentUpdate(granted bool) {
	if granted {
		c.Initialize()
		loc := c.locator.Location()
		c.DispatchPageView(loc.Path, loc.Title)
		return
	}

	c.mu.Lock()
	c.state.ConsentGranted = false
	initialized := c.state.Initialized
	c.mu.Unlock()

	if !initialized || c.sink == nil || !c.sink.Ready() {
		c.drop(ErrClientUnavailable)
		return
	}
	c.sink.UpdateConsent(ConsentOptions{
		AnalyticsStorage: ConsentDenied,
		AdStorage:        ConsentDenied,
	})
}

func (c *Client) guard() error {
	if !c.canTrack() {
		return ErrConsentDenied
	}

	c.mu.Lock()
	initialized := c.state.Initialized
	c.mu.Unlock()
	if !initialized {
		return ErrNotInitialized
	}
	if c.sink == nil || !c.sink.Ready() {
		return ErrClientUnavailable
	}
	return nil
}

func (c *Client) canTrack() bool {
	return c.gate != nil && c.gate.CanTrack()
}

func (c *Client) drop(err error) {
	if c.observe != nil {
		c.observe(err)
	}
}
