//go:build integration

package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

func (i *IntegrationTestSuite) newVisitor() *Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxConnsPerHost = 100
	t.MaxIdleConnsPerHost = 100

	c, err := NewClient(i.baseURL, t)
	i.Require().NoError(err)
	return c
}

func hitNames(ctx context.Context, c *Client) map[string]int {
	hits, err := c.Hits(ctx)
	if err != nil {
		return nil
	}
	names := map[string]int{}
	for _, h := range hits {
		names[h.Name]++
	}
	return names
}

func (i *IntegrationTestSuite) TestTrack_ConsentGatesStorage() {
	ctx, cancel := context.WithTimeout(i.ctx, time.Minute)
	defer cancel()

	granted := i.newVisitor()
	i.Require().NoError(granted.Track(ctx, "conversion", map[string]string{"conversion_type": "phone_click"}))
	i.Require().NoError(granted.Consent(ctx, true))
	i.Require().NoError(granted.PageView(ctx, "/pricing", "Pricing"))
	i.Require().NoError(granted.Track(ctx, "conversion", map[string]string{"conversion_type": "phone_click"}))
	i.Require().NoError(granted.Track(ctx, "lead", map[string]string{"lead_source": "referral", "lead_type": "consultation"}))
	i.Require().NoError(granted.Track(ctx, "web-vitals", map[string]float64{"LCP": 1800}))

	denied := i.newVisitor()
	i.Require().NoError(denied.Consent(ctx, false))
	i.Require().NoError(denied.PageView(ctx, "/pricing", "Pricing"))
	i.Require().NoError(denied.Track(ctx, "conversion", map[string]string{"conversion_type": "email_click"}))

	i.Require().Eventually(func() bool {
		names := hitNames(ctx, granted)
		return names["conversion"] == 1 && names["generate_lead"] == 1 && names["LCP"] == 1 && names["page_view"] == 2
	}, 30*time.Second, 200*time.Millisecond)

	hits, err := granted.Hits(ctx)
	i.Require().NoError(err)
	for _, h := range hits {
		i.Equal("G-INTEGRATION", h.MeasurementID)
		i.Equal(granted.SessionID(), h.SessionID)
		i.Equal("sitetrack-integration", h.UserAgent)
		if h.Name == "conversion" {
			i.Equal("conversion", h.Category)
			i.Equal("USD", h.Params["currency"])
			i.NotEmpty(h.Params["timestamp"])
		}
	}

	hits, err = denied.Hits(ctx)
	i.Require().NoError(err)
	i.Empty(hits)

	// revoking consent records the denial and stops tracking
	i.Require().NoError(granted.Consent(ctx, false))
	i.Require().NoError(granted.Track(ctx, "conversion", map[string]string{"conversion_type": "phone_click"}))
	i.Require().Eventually(func() bool {
		return hitNames(ctx, granted)["update"] == 1
	}, 30*time.Second, 200*time.Millisecond)
	i.Equal(1, hitNames(ctx, granted)["conversion"])
}

func (i *IntegrationTestSuite) TestTrack_ManyVisitors() {
	ctx, cancel := context.WithTimeout(i.ctx, time.Minute)
	defer cancel()

	const visitors = 50
	clients := make([]*Client, visitors)
	events := make([]int, visitors)

	wg := &sync.WaitGroup{}
	for k := 0; k < visitors; k++ {
		clients[k] = i.newVisitor()
		events[k] = i.Rand.Intn(20) + 5

		wg.Add(1)
		go func(c *Client, n int) {
			defer wg.Done()
			if err := c.Consent(ctx, true); err != nil {
				log.Err(err).Send()
				return
			}
			for j := 0; j < n; j++ {
				if err := c.Track(ctx, "engagement", map[string]any{"engagement_type": "scroll", "engagement_value": j}); err != nil {
					log.Err(err).Send()
				}
			}
		}(clients[k], events[k])
	}
	wg.Wait()

	for k, c := range clients {
		expected := events[k]
		i.Require().Eventually(func() bool {
			return hitNames(ctx, c)["engagement"] == expected
		}, 30*time.Second, 200*time.Millisecond)
	}
}
