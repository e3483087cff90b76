package stream

import (
	"encoding/json"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/leshachaplin/sitetrack/internal/analytics"
	"github.com/leshachaplin/sitetrack/internal/domain"
)

// Publisher accepts hits for delivery. Ready is closed once the pipeline can
// take traffic; Done is closed when it shuts down.
type Publisher interface {
	Publish(hit domain.Hit)
	Ready() <-chan struct{}
	Done() <-chan struct{}
}

// Visitor describes who a session belongs to.
type Visitor struct {
	SessionID string
	IP        string
	UserAgent string
}

// Tag is the per-session analytics.Sink feeding the hit pipeline.
type Tag struct {
	visitor   func() Visitor
	publisher Publisher
	now       func() time.Time

	loaded        atomic.Bool
	requested     atomic.Bool
	anonymize     atomic.Bool
	measurementID atomic.Value
}

func NewTag(publisher Publisher, visitor func() Visitor) *Tag {
	return &Tag{
		visitor:   visitor,
		publisher: publisher,
		now:       time.Now,
	}
}

// Load attaches the session to the pipeline without blocking. If the pipeline
// is not ready yet, loading completes in the background once it is.
func (t *Tag) Load(measurementID string, _ time.Time) {
	if !t.requested.CompareAndSwap(false, true) {
		return
	}
	t.measurementID.Store(measurementID)

	select {
	case <-t.publisher.Ready():
		t.loaded.Store(true)
		return
	default:
	}

	go func() {
		select {
		case <-t.publisher.Ready():
			t.loaded.Store(true)
		case <-t.publisher.Done():
		}
	}()
}

func (t *Tag) Ready() bool {
	return t.loaded.Load()
}

// Configure publishes a config hit. Once any config asks for IP
// anonymization it applies to every later hit of the session.
func (t *Tag) Configure(measurementID string, opts analytics.ConfigOptions) {
	if opts.AnonymizeIP {
		t.anonymize.Store(true)
	}
	name := "config"
	if opts.PagePath != "" {
		name = "page_view"
	}
	t.publish(measurementID, domain.CommandConfig, name, "", toParams(opts))
}

func (t *Tag) Event(name string, params analytics.Params) {
	var category string
	if c, ok := params["event_category"].(string); ok {
		category = c
	}
	t.publish(t.currentID(), domain.CommandEvent, name, category, params)
}

func (t *Tag) UpdateConsent(opts analytics.ConsentOptions) {
	t.publish(t.currentID(), domain.CommandConsent, "update", "", toParams(opts))
}

func (t *Tag) publish(measurementID string, cmd domain.Command, name, category string, params map[string]any) {
	if !t.Ready() {
		return
	}
	v := t.visitor()
	if t.anonymize.Load() {
		v.IP = anonymizeIP(v.IP)
	}
	hit := domain.Hit{
		ID:            uuid.NewString(),
		SessionID:     v.SessionID,
		MeasurementID: measurementID,
		Command:       cmd,
		Name:          name,
		Category:      category,
		Params:        params,
	}
	hit.EnrichWith(v.IP, v.UserAgent, t.now())
	t.publisher.Publish(hit)
}

func (t *Tag) currentID() string {
	id, _ := t.measurementID.Load().(string)
	return id
}

var (
	ipv4Mask = net.CIDRMask(24, 32)
	ipv6Mask = net.CIDRMask(48, 128)
)

// anonymizeIP zeroes the last octet of an IPv4 address and the last 80 bits
// of an IPv6 one. Unparseable input is dropped.
func anonymizeIP(raw string) string {
	ip := net.ParseIP(raw)
	if ip == nil {
		return ""
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.Mask(ipv4Mask).String()
	}
	return ip.Mask(ipv6Mask).String()
}

func toParams(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	out := map[string]any{}
	if err = json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}
