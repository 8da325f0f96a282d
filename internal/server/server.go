package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfeidau/genai-devkit/internal/chain"
	"github.com/wolfeidau/genai-devkit/internal/devproxy"
	"github.com/wolfeidau/genai-devkit/internal/logger"
	"github.com/wolfeidau/genai-devkit/internal/telemetry"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// Config describes the chain being served and the identity of the local GenAI API.
type Config struct {
	ChainName   string
	ChainConfig chain.Config

	// ServiceName is GENAI_API_SERVICE_NAME, the tenant of mTLS callers is taken from it.
	ServiceName string

	CORSOrigins []string
	Logger      zerolog.Logger
}

// Server exposes a single chain over HTTP.
type Server struct {
	cfg     Config
	chain   chain.Chain
	service devproxy.ServiceName
	log     zerolog.Logger
	tracer  trace.Tracer
	metrics *telemetry.Metrics
}

// New creates a server for c.
func New(cfg Config, c chain.Chain) (*Server, error) {
	if c == nil {
		return nil, errors.New("chain is required")
	}

	s := &Server{
		cfg:     cfg,
		chain:   c,
		log:     cfg.Logger,
		tracer:  otel.Tracer(telemetry.InstrumentationName),
		metrics: telemetry.GetMetrics(),
	}

	if cfg.ServiceName != "" {
		service, err := devproxy.ParseServiceName(cfg.ServiceName)
		if err != nil {
			return nil, fmt.Errorf("invalid GENAI_API_SERVICE_NAME: %w", err)
		}
		s.service = service
	}

	return s, nil
}

// Handler returns the routed, logged, CORS enabled and compressed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(logger.HTTPRequests(s.log))
	mux.Use(middleware.Recoverer)

	mux.Get("/health", s.handleHealth)
	mux.Get("/chain", s.handleChainInfo)
	mux.Post("/invoke", s.handleInvoke)

	var handler http.Handler = mux
	if len(s.cfg.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins:   s.cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			AllowCredentials: true,
		}).Handler(handler)
	}

	return gzhttp.GzipHandler(handler)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chainInfo struct {
	Name        string       `json:"name"`
	Config      chain.Config `json:"config"`
	ServiceName string       `json:"service_name,omitempty"`
	Tenant      string       `json:"tenant,omitempty"`
}

func (s *Server) handleChainInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, chainInfo{
		Name:        s.cfg.ChainName,
		Config:      s.cfg.ChainConfig,
		ServiceName: s.service.Host,
		Tenant:      s.service.Tenant,
	})
}

type errorResponse struct {
	Error string `json:"error"`
	// RunID lets callers match a failed invocation with the server log.
	RunID string `json:"run_id,omitempty"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
