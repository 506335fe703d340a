package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parking-system/internal/config"
	"parking-system/internal/logging"
	"parking-system/internal/parking"
)

type Server struct {
	httpServer *http.Server
	handler    *Handler
	hub        *Hub
}

func NewServer(cfg config.ServerConfig, engine *parking.InstrumentedEngine) *Server {
	handler := NewHandler(engine)
	hub := NewHub()
	engine.Subscribe(hub)

	r := chi.NewRouter()

	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(TracingMiddleware)
	r.Use(CORSMiddleware)

	r.Get("/health", handler.HealthCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/ws/events", hub.HandleEvents)

	r.Route("/api/parking", func(r chi.Router) {
		r.Post("/enter", handler.Enter)
		r.Post("/exit", handler.Exit)
		r.Post("/exit-ticket", handler.ExitTicket)
		r.Get("/quote", handler.Quote)
		r.Get("/slots", handler.Availability)
		r.Get("/ticket/{id}", handler.GetTicket)
		r.Get("/tickets", handler.History)
		r.Get("/status", handler.Status)
		r.Post("/rate", handler.AdjustRate)
		r.Post("/withdraw", handler.Withdraw)
	})

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		httpServer: httpServer,
		handler:    handler,
		hub:        hub,
	}
}

// Router exposes the HTTP handler for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	logging.Logger().Info().Str("addr", s.httpServer.Addr).Msg("starting HTTP server")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	logging.Logger().Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
