package http

import (
	"net/http"

	"github.com/leshachaplin/sitetrack/internal/consent"
)

type consentReq struct {
	Analytics  bool `json:"analytics"`
	Marketing  bool `json:"marketing"`
	Functional bool `json:"functional"`
}

// UpdateConsent persists the consent banner decision and hands it to the
// session's analytics client.
func (h *Handler) UpdateConsent(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSONRequest[consentReq](r)
	if err != nil {
		h.error(err, w)
		return
	}

	s := sessionFrom(r.Context())
	prefs := consent.Preferences{
		Analytics:  req.Analytics,
		Marketing:  req.Marketing,
		Functional: req.Functional,
		UpdatedAt:  h.now().UTC(),
	}
	encoded := consent.Encode(prefs)
	h.setConsentCookie(w, encoded)
	s.Consent.Set(encoded)
	s.Client.OnConsentUpdate(prefs.Analytics)

	if err = encodeJSONResponse(w, http.StatusOK, prefs); err != nil {
		h.logger.Error().Err(err).Msg("encode consent response")
	}
}
