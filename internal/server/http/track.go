package http

import (
	"net/http"

	"github.com/go-chi/chi"

	"github.com/leshachaplin/sitetrack/internal/analytics"
	"github.com/leshachaplin/sitetrack/internal/apierror"
)

type pageViewReq struct {
	Path     string `json:"path"`
	Title    string `json:"title"`
	Location string `json:"location"`
}

type formSubmitReq struct {
	FormType     string `json:"form_type"`
	FormLocation string `json:"form_location"`
	BusinessType string `json:"business_type"`
	ServiceName  string `json:"service_name"`
}

type conversionReq struct {
	ConversionType string   `json:"conversion_type"`
	Value          *float64 `json:"value"`
	Currency       string   `json:"currency"`
}

type leadReq struct {
	LeadSource   string `json:"lead_source"`
	LeadType     string `json:"lead_type"`
	BusinessType string `json:"business_type"`
}

type engagementReq struct {
	EngagementType  string   `json:"engagement_type"`
	EngagementValue *float64 `json:"engagement_value"`
}

type industryViewReq struct {
	IndustryName string `json:"industry_name"`
	PageType     string `json:"page_type"`
}

type serviceInterestReq struct {
	ServiceName     string `json:"service_name"`
	InteractionType string `json:"interaction_type"`
}

// track decodes a beacon and applies it to the session's client. Beacons are
// accepted whether or not they end up being dispatched.
func track[T any](h *Handler, apply func(c *analytics.Client, req T) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeJSONRequest[T](r)
		if err != nil {
			h.error(err, w)
			return
		}
		if err = apply(sessionFrom(r.Context()).Client, req); err != nil {
			h.error(err, w)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func (h *Handler) PageView(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSONRequest[pageViewReq](r)
	if err != nil {
		h.error(err, w)
		return
	}

	s := sessionFrom(r.Context())
	loc := s.Location()
	loc.Path, loc.Title = req.Path, req.Title
	if req.Location != "" {
		loc.URL = req.Location
	} else {
		loc.URL = pageURL(loc.URL, req.Path)
	}
	ip, ua := s.Peer()
	s.Visit(loc, ip, ua, h.now())
	s.Client.DispatchPageView(req.Path, req.Title)

	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) FormSubmit() http.HandlerFunc {
	return track(h, func(c *analytics.Client, req formSubmitReq) error {
		formType, err := parseEnum[analytics.FormType]("form_type", req.FormType)
		if err != nil {
			return err
		}
		c.TrackFormSubmission(formType, req.FormLocation, analytics.FormDetails{
			BusinessType: req.BusinessType,
			ServiceName:  req.ServiceName,
		})
		return nil
	})
}

func (h *Handler) Conversion() http.HandlerFunc {
	return track(h, func(c *analytics.Client, req conversionReq) error {
		conversionType, err := parseEnum[analytics.ConversionType]("conversion_type", req.ConversionType)
		if err != nil {
			return err
		}
		var opts []analytics.EventOption
		if req.Value != nil {
			opts = append(opts, analytics.WithValue(*req.Value))
		}
		if req.Currency != "" {
			opts = append(opts, analytics.WithCurrency(req.Currency))
		}
		c.TrackConversion(conversionType, opts...)
		return nil
	})
}

func (h *Handler) Lead() http.HandlerFunc {
	return track(h, func(c *analytics.Client, req leadReq) error {
		leadType, err := parseEnum[analytics.LeadType]("lead_type", req.LeadType)
		if err != nil {
			return err
		}
		if req.LeadSource == "" {
			return apierror.NewAPIError("lead_source is required", http.StatusBadRequest)
		}
		c.TrackLead(req.LeadSource, leadType, req.BusinessType)
		return nil
	})
}

func (h *Handler) Engagement() http.HandlerFunc {
	return track(h, func(c *analytics.Client, req engagementReq) error {
		engagementType, err := parseEnum[analytics.EngagementType]("engagement_type", req.EngagementType)
		if err != nil {
			return err
		}
		var opts []analytics.EventOption
		if req.EngagementValue != nil {
			opts = append(opts, analytics.WithEngagementValue(*req.EngagementValue))
		}
		c.TrackEngagement(engagementType, opts...)
		return nil
	})
}

func (h *Handler) IndustryView() http.HandlerFunc {
	return track(h, func(c *analytics.Client, req industryViewReq) error {
		pageType, err := parseEnum[analytics.PageType]("page_type", req.PageType)
		if err != nil {
			return err
		}
		c.TrackIndustryView(req.IndustryName, pageType)
		return nil
	})
}

func (h *Handler) ServiceInterest() http.HandlerFunc {
	return track(h, func(c *analytics.Client, req serviceInterestReq) error {
		interactionType, err := parseEnum[analytics.InteractionType]("interaction_type", req.InteractionType)
		if err != nil {
			return err
		}
		c.TrackServiceInterest(req.ServiceName, interactionType)
		return nil
	})
}

func (h *Handler) WebVitals() http.HandlerFunc {
	return track(h, func(c *analytics.Client, req analytics.WebVitals) error {
		c.TrackPerformance(req)
		return nil
	})
}

// SessionHits lists the stored hits of a session.
func (h *Handler) SessionHits(w http.ResponseWriter, r *http.Request) {
	if h.hits == nil {
		h.error(apierror.NewAPIError("hit storage not configured", http.StatusNotFound), w)
		return
	}

	hits, err := h.hits.SessionHits(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.error(err, w)
		return
	}
	if err = encodeJSONResponse(w, http.StatusOK, hits); err != nil {
		h.logger.Error().Err(err).Msg("encode session hits")
	}
}
