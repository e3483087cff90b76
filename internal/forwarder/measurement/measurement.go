// Package measurement forwards hits to the GA4 Measurement Protocol.
package measurement

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/leshachaplin/sitetrack/internal/domain"
)

const (
	DefaultEndpoint = "https://www.google-analytics.com/mp/collect"

	// maxEventsPerRequest is the protocol limit on events in one request.
	maxEventsPerRequest = 25
	defaultRetryMax     = 3
	defaultTimeout      = 5 * time.Second
)

type Config struct {
	Endpoint  string        `mapstructure:"endpoint"`
	APISecret string        `mapstructure:"api_secret"`
	RetryMax  int           `mapstructure:"retry_max"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type event struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

type request struct {
	ClientID        string  `json:"client_id"`
	TimestampMicros int64   `json:"timestamp_micros,omitempty"`
	Events          []event `json:"events"`
}

type Forwarder struct {
	client   *retryablehttp.Client
	endpoint string
	secret   string
}

// New returns a forwarder. Without an api secret it is disabled and Forward
// does nothing.
func New(cfg Config, logger zerolog.Logger) *Forwarder {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	if client.RetryMax <= 0 {
		client.RetryMax = defaultRetryMax
	}
	client.HTTPClient.Timeout = cfg.Timeout
	if client.HTTPClient.Timeout <= 0 {
		client.HTTPClient.Timeout = defaultTimeout
	}
	client.Logger = leveledLogger{logger: logger}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	return &Forwarder{
		client:   client,
		endpoint: endpoint,
		secret:   cfg.APISecret,
	}
}

func (f *Forwarder) Enabled() bool {
	return f.secret != ""
}

// Forward sends the events and page views of the batch upstream, grouped per
// measurement id and session. Consent and plain config hits are not sent.
func (f *Forwarder) Forward(ctx context.Context, batch domain.HitBatch) error {
	if !f.Enabled() {
		return nil
	}

	for _, g := range group(batch.Hits) {
		for start := 0; start < len(g.events); start += maxEventsPerRequest {
			end := start + maxEventsPerRequest
			if end > len(g.events) {
				end = len(g.events)
			}
			req := request{
				ClientID: g.sessionID,
				Events:   g.events[start:end],
			}
			if !g.first.IsZero() {
				req.TimestampMicros = g.first.UnixMicro()
			}
			if err := f.send(ctx, g.measurementID, req); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *Forwarder) send(ctx context.Context, measurementID string, body request) error {
	b, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal measurement request")
	}

	u, err := url.Parse(f.endpoint)
	if err != nil {
		return errors.Wrap(err, "parse measurement endpoint")
	}
	q := u.Query()
	q.Set("measurement_id", measurementID)
	q.Set("api_secret", f.secret)
	u.RawQuery = q.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(b))
	if err != nil {
		return errors.Wrap(err, "create measurement request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := f.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "send measurement request")
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusMultipleChoices {
		return errors.Errorf("measurement protocol: unexpected status code %d", res.StatusCode)
	}
	return nil
}

type hitGroup struct {
	measurementID string
	sessionID     string
	first         time.Time
	events        []event
}

func group(hits []domain.Hit) []*hitGroup {
	groups := map[[2]string]*hitGroup{}
	for _, h := range hits {
		ev, ok := toEvent(h)
		if !ok {
			continue
		}
		key := [2]string{h.MeasurementID, h.SessionID}
		g, found := groups[key]
		if !found {
			g = &hitGroup{measurementID: h.MeasurementID, sessionID: h.SessionID, first: h.ServerTime}
			groups[key] = g
		}
		if h.ServerTime.Before(g.first) {
			g.first = h.ServerTime
		}
		g.events = append(g.events, ev)
	}

	out := make([]*hitGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].measurementID != out[j].measurementID {
			return out[i].measurementID < out[j].measurementID
		}
		return out[i].sessionID < out[j].sessionID
	})
	return out
}

func toEvent(h domain.Hit) (event, bool) {
	switch {
	case h.Command == domain.CommandEvent:
		params := make(map[string]any, len(h.Params))
		for k, v := range h.Params {
			if k == "timestamp" {
				continue
			}
			params[k] = v
		}
		return event{Name: h.Name, Params: params}, true
	case h.IsPageView():
		params := map[string]any{}
		for _, k := range []string{"page_path", "page_title", "page_location"} {
			if v, ok := h.Params[k]; ok {
				params[k] = v
			}
		}
		return event{Name: "page_view", Params: params}, true
	}
	return event{}, false
}

type leveledLogger struct {
	logger zerolog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}
