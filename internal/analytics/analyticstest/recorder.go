// Package analyticstest provides an in-memory analytics.Sink for tests.
package analyticstest

import (
	"sync"
	"time"

	"github.com/leshachaplin/sitetrack/internal/analytics"
)

type Call struct {
	Command       string
	MeasurementID string
	Name          string
	Params        analytics.Params
	Config        analytics.ConfigOptions
	Consent       analytics.ConsentOptions
}

// Recorder records every sink call. Loads are kept apart from calls.
type Recorder struct {
	mu       sync.Mutex
	loads    []time.Time
	calls    []Call
	notReady bool
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// SetReady toggles whether the recorder reports itself as loaded.
func (r *Recorder) SetReady(ready bool) {
	r.mu.Lock()
	r.notReady = !ready
	r.mu.Unlock()
}

func (r *Recorder) Load(_ string, at time.Time) {
	r.mu.Lock()
	r.loads = append(r.loads, at)
	r.mu.Unlock()
}

func (r *Recorder) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.loads) > 0 && !r.notReady
}

func (r *Recorder) Configure(measurementID string, opts analytics.ConfigOptions) {
	r.record(Call{Command: "config", MeasurementID: measurementID, Config: opts})
}

func (r *Recorder) Event(name string, params analytics.Params) {
	r.record(Call{Command: "event", Name: name, Params: params})
}

func (r *Recorder) UpdateConsent(opts analytics.ConsentOptions) {
	r.record(Call{Command: "consent", Consent: opts})
}

func (r *Recorder) Loads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.loads)
}

func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Filter returns the recorded calls of one command.
func (r *Recorder) Filter(command string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Command == command {
			out = append(out, c)
		}
	}
	return out
}

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
}
