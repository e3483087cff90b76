package clickhouse

import (
	"encoding/json"
	"time"

	"github.com/leshachaplin/sitetrack/internal/domain"
)

type hit struct {
	ID            string    `ch:"id"`
	SessionID     string    `ch:"session_id"`
	MeasurementID string    `ch:"measurement_id"`
	Command       string    `ch:"command"`
	Name          string    `ch:"name"`
	Category      string    `ch:"category"`
	Params        string    `ch:"params"`
	IP            string    `ch:"ip"`
	UserAgent     string    `ch:"user_agent"`
	ServerTime    time.Time `ch:"server_time"`
}

func hitsFromService(batch domain.HitBatch) ([]hit, error) {
	hits := make([]hit, len(batch.Hits))
	for i, h := range batch.Hits {
		params := []byte("{}")
		if len(h.Params) > 0 {
			var err error
			if params, err = json.Marshal(h.Params); err != nil {
				return nil, err
			}
		}
		hits[i] = hit{
			ID:            h.ID,
			SessionID:     h.SessionID,
			MeasurementID: h.MeasurementID,
			Command:       string(h.Command),
			Name:          h.Name,
			Category:      h.Category,
			Params:        string(params),
			IP:            h.IP,
			UserAgent:     h.UserAgent,
			ServerTime:    h.ServerTime.UTC(),
		}
	}
	return hits, nil
}

func (h hit) toService() (domain.Hit, error) {
	out := domain.Hit{
		ID:            h.ID,
		SessionID:     h.SessionID,
		MeasurementID: h.MeasurementID,
		Command:       domain.Command(h.Command),
		Name:          h.Name,
		Category:      h.Category,
		IP:            h.IP,
		UserAgent:     h.UserAgent,
		ServerTime:    h.ServerTime,
	}
	if h.Params != "" {
		if err := json.Unmarshal([]byte(h.Params), &out.Params); err != nil {
			return out, err
		}
	}
	return out, nil
}
