package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leshachaplin/sitetrack/internal/analytics"
	"github.com/leshachaplin/sitetrack/internal/consent"
)

func TestTypedEvents(t *testing.T) {
	cases := map[string]struct {
		track    func(c *analytics.Client)
		name     string
		expected analytics.Params
	}{
		"lead": {
			track: func(c *analytics.Client) { c.TrackLead("referral", analytics.LeadConsultation, "") },
			name:  "generate_lead",
			expected: analytics.Params{
				"lead_source":    "referral",
				"lead_type":      "consultation",
				"event_category": "lead_generation",
				"value":          float64(1),
			},
		},
		"lead with business type": {
			track: func(c *analytics.Client) { c.TrackLead("google", analytics.LeadInquiry, "dental") },
			name:  "generate_lead",
			expected: analytics.Params{
				"lead_source":    "google",
				"lead_type":      "inquiry",
				"business_type":  "dental",
				"event_category": "lead_generation",
				"value":          float64(1),
			},
		},
		"form submission": {
			track: func(c *analytics.Client) {
				c.TrackFormSubmission(analytics.FormHero, "home_hero", analytics.FormDetails{ServiceName: "ppc"})
			},
			name: "form_submit",
			expected: analytics.Params{
				"form_type":      "hero_form",
				"form_location":  "home_hero",
				"service_name":   "ppc",
				"event_category": "form_interaction",
			},
		},
		"conversion overrides": {
			track: func(c *analytics.Client) {
				c.TrackConversion(analytics.ConversionStrategySession, analytics.WithValue(250), analytics.WithCurrency("EUR"))
			},
			name: "conversion",
			expected: analytics.Params{
				"conversion_type": "strategy_session",
				"value":           float64(250),
				"currency":        "EUR",
				"event_category":  "conversion",
			},
		},
		"engagement without value": {
			track: func(c *analytics.Client) { c.TrackEngagement(analytics.EngagementCTAClick) },
			name:  "engagement",
			expected: analytics.Params{
				"engagement_type": "cta_click",
				"event_category":  "engagement",
			},
		},
		"engagement with value": {
			track: func(c *analytics.Client) {
				c.TrackEngagement(analytics.EngagementTimeOnPage, analytics.WithEngagementValue(42))
			},
			name: "engagement",
			expected: analytics.Params{
				"engagement_type":  "time_on_page",
				"engagement_value": float64(42),
				"event_category":   "engagement",
			},
		},
		"industry view": {
			track: func(c *analytics.Client) { c.TrackIndustryView("restaurants", analytics.PageIndustry) },
			name:  "view_industry",
			expected: analytics.Params{
				"industry_name":  "restaurants",
				"page_type":      "industry_page",
				"event_category": "content",
			},
		},
		"service interest": {
			track: func(c *analytics.Client) { c.TrackServiceInterest("web_design", analytics.InteractionPricingView) },
			name:  "service_interest",
			expected: analytics.Params{
				"service_name":     "web_design",
				"interaction_type": "pricing_view",
				"event_category":   "service_interest",
			},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c, rec, _ := newClient(&consent.Preferences{Analytics: true})
			c.Initialize()
			tc.track(c)

			events := rec.Filter("event")
			require.Len(t, events, 1)
			require.Equal(t, tc.name, events[0].Name)

			got := events[0].Params
			require.Contains(t, got, "timestamp")
			delete(got, "timestamp")
			require.Equal(t, tc.expected, got)
		})
	}
}

func TestTrackPerformance(t *testing.T) {
	c, rec, _ := newClient(&consent.Preferences{Analytics: true})
	c.Initialize()

	cls, fid, fcp, lcp, ttfb := 0.05, 12.0, 900.0, 1800.0, 200.0
	c.TrackPerformance(analytics.WebVitals{CLS: &cls, FID: &fid, FCP: &fcp, LCP: &lcp, TTFB: &ttfb})

	events := rec.Filter("event")
	require.Len(t, events, 5)
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.Name)
		require.Equal(t, "web_vitals", e.Params["event_category"])
	}
	require.Equal(t, []string{"CLS", "FID", "FCP", "LCP", "TTFB"}, names)
	require.Equal(t, 1800.0, events[3].Params["value"])

	c.TrackPerformance(analytics.WebVitals{TTFB: &ttfb})
	require.Len(t, rec.Filter("event"), 6)
}

func TestParseEnum(t *testing.T) {
	ct, err := analytics.ParseEnum[analytics.ConversionType]("phone_click")
	require.NoError(t, err)
	require.Equal(t, analytics.ConversionPhoneClick, ct)

	_, err = analytics.ParseEnum[analytics.LeadType]("newsletter")
	require.Error(t, err)

	_, err = analytics.ParseEnum[analytics.FormType]("")
	require.Error(t, err)

	pt, err := analytics.ParseEnum[analytics.PageType]("service_page")
	require.NoError(t, err)
	require.Equal(t, analytics.PageService, pt)
}
