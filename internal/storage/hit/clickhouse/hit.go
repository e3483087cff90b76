package clickhouse

import (
	"context"

	"github.com/pkg/errors"

	"github.com/leshachaplin/sitetrack/internal/domain"
)

func (c *Clickhouse) StoreHits(ctx context.Context, batch domain.HitBatch) error {
	if len(batch.Hits) == 0 {
		return nil
	}

	rows, err := hitsFromService(batch)
	if err != nil {
		return errors.Wrap(err, "encode hit params")
	}

	b, err := c.conn.PrepareBatch(ctx, `INSERT INTO hits`)
	if err != nil {
		return errors.Wrap(err, "prepare hits batch")
	}
	for i := range rows {
		if errAppend := b.AppendStruct(&rows[i]); errAppend != nil {
			return errors.Wrapf(errAppend, "append hit %s", rows[i].ID)
		}
	}
	return errors.Wrap(b.Send(), "send hits batch")
}

// SessionHits returns the stored hits of a session ordered by server time.
func (c *Clickhouse) SessionHits(ctx context.Context, sessionID string) ([]domain.Hit, error) {
	var rows []hit
	if err := c.conn.Select(ctx, &rows,
		`SELECT id, session_id, measurement_id, command, name, category, params, ip, user_agent, server_time
		FROM hits WHERE session_id = ? ORDER BY server_time`, sessionID); err != nil {
		return nil, errors.Wrap(err, "select session hits")
	}

	out := make([]domain.Hit, 0, len(rows))
	for _, r := range rows {
		h, err := r.toService()
		if err != nil {
			return nil, errors.Wrapf(err, "decode hit %s", r.ID)
		}
		out = append(out, h)
	}
	return out, nil
}
