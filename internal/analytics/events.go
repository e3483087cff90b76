package analytics

import "fmt"

const (
	EventFormSubmit      = "form_submit"
	EventConversion      = "conversion"
	EventGenerateLead    = "generate_lead"
	EventEngagement      = "engagement"
	EventViewIndustry    = "view_industry"
	EventServiceInterest = "service_interest"
)

const (
	CategoryFormInteraction = "form_interaction"
	CategoryConversion      = "conversion"
	CategoryLeadGeneration  = "lead_generation"
	CategoryEngagement      = "engagement"
	CategoryContent         = "content"
	CategoryServiceInterest = "service_interest"
	CategoryWebVitals       = "web_vitals"
)

const (
	defaultValue    = 1
	defaultCurrency = "USD"
)

type FormType string

const (
	FormContactDialog FormType = "contact_dialog"
	FormHero          FormType = "hero_form"
	FormServices      FormType = "services_form"
	FormCustom        FormType = "custom_form"
)

type ConversionType string

const (
	ConversionContactForm         ConversionType = "contact_form"
	ConversionConsultationRequest ConversionType = "consultation_request"
	ConversionPhoneClick          ConversionType = "phone_click"
	ConversionEmailClick          ConversionType = "email_click"
	ConversionStrategySession     ConversionType = "strategy_session"
)

type LeadType string

const (
	LeadConsultation    LeadType = "consultation"
	LeadContact         LeadType = "contact"
	LeadInquiry         LeadType = "inquiry"
	LeadStrategySession LeadType = "strategy_session"
)

type EngagementType string

const (
	EngagementScroll     EngagementType = "scroll"
	EngagementTimeOnPage EngagementType = "time_on_page"
	EngagementCTAClick   EngagementType = "cta_click"
	EngagementService    EngagementType = "service_view"
)

type PageType string

const (
	PageIndustry PageType = "industry_page"
	PageService  PageType = "service_page"
)

type InteractionType string

const (
	InteractionButtonClick InteractionType = "button_click"
	InteractionFormOpen    InteractionType = "form_open"
	InteractionPricingView InteractionType = "pricing_view"
	InteractionPageView    InteractionType = "page_view"
)

func (t FormType) Valid() bool {
	switch t {
	case FormContactDialog, FormHero, FormServices, FormCustom:
		return true
	}
	return false
}

func (t ConversionType) Valid() bool {
	switch t {
	case ConversionContactForm, ConversionConsultationRequest, ConversionPhoneClick,
		ConversionEmailClick, ConversionStrategySession:
		return true
	}
	return false
}

func (t LeadType) Valid() bool {
	switch t {
	case LeadConsultation, LeadContact, LeadInquiry, LeadStrategySession:
		return true
	}
	return false
}

func (t EngagementType) Valid() bool {
	switch t {
	case EngagementScroll, EngagementTimeOnPage, EngagementCTAClick, EngagementService:
		return true
	}
	return false
}

func (t PageType) Valid() bool {
	return t == PageIndustry || t == PageService
}

func (t InteractionType) Valid() bool {
	switch t {
	case InteractionButtonClick, InteractionFormOpen, InteractionPricingView, InteractionPageView:
		return true
	}
	return false
}

// ParseEnum validates a raw value against one of the enumerations above.
func ParseEnum[T interface {
	~string
	Valid() bool
}](raw string) (T, error) {
	v := T(raw)
	if !v.Valid() {
		return v, fmt.Errorf("unknown value %q", raw)
	}
	return v, nil
}

// EventOption adjusts the parameters of a typed event.
type EventOption func(Params)

func WithValue(v float64) EventOption {
	return func(p Params) { p["value"] = v }
}

func WithCurrency(currency string) EventOption {
	return func(p Params) {
		if currency != "" {
			p["currency"] = currency
		}
	}
}

func WithEngagementValue(v float64) EventOption {
	return func(p Params) { p["engagement_value"] = v }
}

type FormDetails struct {
	BusinessType string
	ServiceName  string
}

func (c *Client) TrackFormSubmission(formType FormType, formLocation string, details FormDetails) {
	p := Params{
		"form_type":      string(formType),
		"form_location":  formLocation,
		"event_category": CategoryFormInteraction,
	}
	setIfNotEmpty(p, "business_type", details.BusinessType)
	setIfNotEmpty(p, "service_name", details.ServiceName)
	c.DispatchEvent(EventFormSubmit, p)
}

// TrackConversion reports a conversion worth 1 USD unless overridden.
func (c *Client) TrackConversion(conversionType ConversionType, opts ...EventOption) {
	p := Params{
		"conversion_type": string(conversionType),
		"value":           float64(defaultValue),
		"currency":        defaultCurrency,
		"event_category":  CategoryConversion,
	}
	apply(p, opts)
	c.DispatchEvent(EventConversion, p)
}

func (c *Client) TrackLead(leadSource string, leadType LeadType, businessType string) {
	p := Params{
		"lead_source":    leadSource,
		"lead_type":      string(leadType),
		"value":          float64(defaultValue),
		"event_category": CategoryLeadGeneration,
	}
	setIfNotEmpty(p, "business_type", businessType)
	c.DispatchEvent(EventGenerateLead, p)
}

func (c *Client) TrackEngagement(engagementType EngagementType, opts ...EventOption) {
	p := Params{
		"engagement_type": string(engagementType),
		"event_category":  CategoryEngagement,
	}
	apply(p, opts)
	c.DispatchEvent(EventEngagement, p)
}

func (c *Client) TrackIndustryView(industryName string, pageType PageType) {
	c.DispatchEvent(EventViewIndustry, Params{
		"industry_name":  industryName,
		"page_type":      string(pageType),
		"event_category": CategoryContent,
	})
}

func (c *Client) TrackServiceInterest(serviceName string, interactionType InteractionType) {
	c.DispatchEvent(EventServiceInterest, Params{
		"service_name":     serviceName,
		"interaction_type": string(interactionType),
		"event_category":   CategoryServiceInterest,
	})
}

// WebVitals holds Core Web Vitals measurements; nil metrics were not sampled.
type WebVitals struct {
	CLS  *float64 `json:"CLS,omitempty"`
	FID  *float64 `json:"FID,omitempty"`
	FCP  *float64 `json:"FCP,omitempty"`
	LCP  *float64 `json:"LCP,omitempty"`
	TTFB *float64 `json:"TTFB,omitempty"`
}

// TrackPerformance sends one event per sampled metric, named after it.
func (c *Client) TrackPerformance(v WebVitals) {
	metrics := []struct {
		name  string
		value *float64
	}{
		{"CLS", v.CLS},
		{"FID", v.FID},
		{"FCP", v.FCP},
		{"LCP", v.LCP},
		{"TTFB", v.TTFB},
	}
	for _, m := range metrics {
		if m.value == nil {
			continue
		}
		c.DispatchEvent(m.name, Params{
			"value":          *m.value,
			"event_category": CategoryWebVitals,
		})
	}
}

func apply(p Params, opts []EventOption) {
	for _, opt := range opts {
		opt(p)
	}
}

func setIfNotEmpty(p Params, key, value string) {
	if value != "" {
		p[key] = value
	}
}
