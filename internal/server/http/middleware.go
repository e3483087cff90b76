package http

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/leshachaplin/sitetrack/internal/analytics"
	"github.com/leshachaplin/sitetrack/internal/session"
)

const (
	sessionCookie = "st_sid"
	consentCookie = "st_consent"

	consentCookieMaxAge = 365 * 24 * time.Hour
)

type sessionKey struct{}

func sessionFrom(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey{}).(*session.Session)
	return s
}

// withSession resolves the visitor session from its cookie, refreshes the
// consent record from the browser and boots the session's analytics client.
func (h *Handler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(sessionCookie); err == nil {
			id = c.Value
		}

		s, created := h.sessions.Resolve(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    s.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   h.secureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}

		var raw string
		if c, err := r.Cookie(consentCookie); err == nil {
			raw = c.Value
		}
		s.Consent.Set(raw)
		s.Visit(refererLocation(r), getClientIP(r), r.UserAgent(), h.now())
		s.Client.Initialize()

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, s)))
	})
}

func (h *Handler) setConsentCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     consentCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(consentCookieMaxAge.Seconds()),
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func refererLocation(r *http.Request) analytics.Location {
	ref := r.Referer()
	if ref == "" {
		return analytics.Location{}
	}
	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return analytics.Location{}
	}
	return analytics.Location{Path: u.Path, URL: u.String()}
}

// pageURL points the origin of base at path. Without a usable base or path
// base is returned unchanged.
func pageURL(base, path string) string {
	if path == "" {
		return base
	}
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return base
	}
	ref, err := url.Parse(path)
	if err != nil {
		return base
	}
	return u.ResolveReference(ref).String()
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := h.now()
		next.ServeHTTP(ww, r)

		h.logger.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request served")
	})
}
