package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

type Server struct {
	public       *http.Server
	publicRouter *chi.Mux

	handler *Handler
}

func New(handler *Handler) *Server {
	return &Server{
		publicRouter: chi.NewRouter(),

		handler: handler,
	}
}

// Router registers the public routes and returns the router.
func (s *Server) Router(mws ...func(http.Handler) http.Handler) http.Handler {
	s.registerPublicRoutes(mws...)
	return s.publicRouter
}

func (s *Server) ServePublic(addr string, mws ...func(http.Handler) http.Handler) error {
	s.public = &http.Server{
		Addr:         addr,
		Handler:      s.Router(mws...),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	return s.public.ListenAndServe()
}

func (s *Server) ShutdownPublic(ctx context.Context) error {
	if s.public == nil {
		return nil
	}
	if err := s.public.Shutdown(ctx); err != nil {
		return s.public.Close()
	}
	return nil
}

func (s *Server) registerPublicRoutes(middlewares ...func(http.Handler) http.Handler) {
	s.publicRouter.Use(middleware.RequestID, middleware.Recoverer, s.handler.logRequests)
	s.publicRouter.Use(middlewares...)
	s.publicRouter.Get("/_/ready", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})

	s.publicRouter.Route("/v1", func(r chi.Router) {
		r.Get("/debug/sessions/{sessionID}/hits", s.handler.SessionHits)

		r.Group(func(r chi.Router) {
			r.Use(s.handler.withSession)

			r.Post("/consent", s.handler.UpdateConsent)
			r.Post("/pageview", s.handler.PageView)
			r.Route("/events", func(r chi.Router) {
				r.Post("/form-submit", s.handler.FormSubmit())
				r.Post("/conversion", s.handler.Conversion())
				r.Post("/lead", s.handler.Lead())
				r.Post("/engagement", s.handler.Engagement())
				r.Post("/industry-view", s.handler.IndustryView())
				r.Post("/service-interest", s.handler.ServiceInterest())
				r.Post("/web-vitals", s.handler.WebVitals())
			})
		})
	})
}
