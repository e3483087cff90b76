package domain

import "time"

type Command string

const (
	CommandConfig  Command = "config"
	CommandEvent   Command = "event"
	CommandConsent Command = "consent"
)

// Hit is a single tracking command emitted by a visitor session.
type Hit struct {
	ID            string         `json:"id"`
	SessionID     string         `json:"session_id"`
	MeasurementID string         `json:"measurement_id"`
	Command       Command        `json:"command"`
	Name          string         `json:"name"`
	Category      string         `json:"category,omitempty"`
	Params        map[string]any `json:"params,omitempty"`
	IP            string         `json:"ip"`
	UserAgent     string         `json:"user_agent"`
	ServerTime    time.Time      `json:"server_time"`
}

func (h *Hit) EnrichWith(clientIP, userAgent string, serverTime time.Time) {
	h.IP = clientIP
	h.UserAgent = userAgent
	h.ServerTime = serverTime
}

// IsPageView reports whether the hit is a page view configuration update.
func (h Hit) IsPageView() bool {
	if h.Command != CommandConfig {
		return false
	}
	_, ok := h.Params["page_path"]
	return ok
}

type HitBatch struct {
	ID   string `json:"id"`
	Hits []Hit  `json:"hits"`
}
