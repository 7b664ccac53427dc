package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lexiqai/assist-gateway/internal/config"
	"github.com/lexiqai/assist-gateway/internal/observability"
)

// Routes are the handlers mounted by NewRouter. Nil handlers are not mounted.
type Routes struct {
	Summarize       http.Handler
	Translate       http.Handler
	Voice           http.Handler
	ReadinessChecks map[string]observability.HealthCheckFunc
	Metrics         bool
}

// NewRouter builds the HTTP routing tree.
func NewRouter(routes Routes, allowedOrigins []string, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer)

	r.Get("/health", observability.HealthCheckHandler())
	r.Get("/ready", observability.ReadinessHandler(routes.ReadinessChecks))
	if routes.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(CORSWithOrigins(allowedOrigins))
		if routes.Summarize != nil {
			r.Method(http.MethodPost, "/api/summarize", routes.Summarize)
			r.Options("/api/summarize", func(http.ResponseWriter, *http.Request) {})
		}
		if routes.Translate != nil {
			r.Method(http.MethodPost, "/api/translate", routes.Translate)
			r.Options("/api/translate", func(http.ResponseWriter, *http.Request) {})
		}
		r.Get("/api/languages", LanguagesHandler())
	})

	if routes.Voice != nil {
		r.Handle("/streams/voice", routes.Voice)
	}

	return r
}

// Server wraps the HTTP server with the configured timeouts.
type Server struct {
	http *http.Server
	log  zerolog.Logger
}

// NewServer creates the HTTP server for handler.
func NewServer(cfg *config.Config, handler http.Handler, log zerolog.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: log,
	}
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
