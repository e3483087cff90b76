package analytics

import "time"

// Params is the parameter set of a single tracking command.
type Params map[string]any

func (p Params) clone() Params {
	out := make(Params, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// ConfigOptions is the options object of a "config" command. Page fields are
// only set for page view updates.
type ConfigOptions struct {
	AnonymizeIP                   bool   `json:"anonymize_ip"`
	AllowGoogleSignals            bool   `json:"allow_google_signals"`
	AllowAdPersonalizationSignals bool   `json:"allow_ad_personalization_signals"`
	PagePath                      string `json:"page_path,omitempty"`
	PageTitle                     string `json:"page_title,omitempty"`
	PageLocation                  string `json:"page_location,omitempty"`
}

type ConsentState string

const (
	ConsentGranted ConsentState = "granted"
	ConsentDenied  ConsentState = "denied"
)

// ConsentOptions is the options object of a "consent" update command.
type ConsentOptions struct {
	AnalyticsStorage ConsentState `json:"analytics_storage"`
	AdStorage        ConsentState `json:"ad_storage"`
}

// Sink is the tracking primitive the client drives.
//
// Load is the equivalent of injecting the tracking script: it must not block
// the caller, and Ready reports false until loading has finished.
type Sink interface {
	Load(measurementID string, at time.Time)
	Ready() bool
	Configure(measurementID string, opts ConfigOptions)
	Event(name string, params Params)
	UpdateConsent(opts ConsentOptions)
}

// Location describes the page a session is currently on.
type Location struct {
	Path  string
	Title string
	URL   string
}

type Locator interface {
	Location() Location
}

type LocatorFunc func() Location

func (f LocatorFunc) Location() Location {
	return f()
}
