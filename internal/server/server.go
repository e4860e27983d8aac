// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

// Package server exposes the relay pipelines over HTTP: a JSON
// text-to-speech route, two multipart audio routes, the local media
// route, and the embedded recorder front-end.
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/vocalis-dev/vocalis/internal/relay"
	vocerr "github.com/vocalis-dev/vocalis/pkg/errors"
)

// Relay runs the voice pipelines. Satisfied by *relay.Orchestrator.
type Relay interface {
	Speak(ctx context.Context, text string) relay.Outcome
	Echo(ctx context.Context, audio []byte) relay.Outcome
	Converse(ctx context.Context, sessionID string, audio []byte) relay.Outcome
}

// MediaStore serves locally hosted synthesized audio and spools uploads.
// Satisfied by *media.Store.
type MediaStore interface {
	Open(key string) (io.ReadCloser, string, error)
	SpoolUpload(filename string, r io.Reader) ([]byte, error)
}

// Config holds HTTP server configuration.
type Config struct {
	ListenAddr     string
	CORSOrigins    []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
}

// Server wraps a chi router with huma API and HTTP server.
type Server struct {
	router chi.Router
	api    huma.API
	cfg    Config
	relay  Relay
	media  MediaStore
}

// New creates a Server with chi router, huma API, health endpoint, CORS,
// and all relay routes registered.
func New(cfg Config, rel Relay, store MediaStore) (*Server, error) {
	if cfg.ListenAddr == "" {
		return nil, vocerr.New(vocerr.CodeServerConfigInvalid, "listen address is required")
	}
	if rel == nil {
		return nil, vocerr.New(vocerr.CodeServerConfigInvalid, "relay is required")
	}
	if store == nil {
		return nil, vocerr.New(vocerr.CodeServerConfigInvalid, "media store is required")
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// Synthesis of a long reply can take a while; keep this generous.
		cfg.WriteTimeout = 120 * time.Second
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 25 << 20
	}

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware(cfg.CORSOrigins))

	humaConfig := huma.DefaultConfig("Vocalis Relay", "0.1.0")
	humaConfig.Info.Description = "Voice interaction relay API"
	api := humachi.New(r, humaConfig)

	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*HealthResponse, error) {
		return &HealthResponse{Body: HealthBody{Status: "ok"}}, nil
	})

	srv := &Server{
		router: r,
		api:    api,
		cfg:    cfg,
		relay:  rel,
		media:  store,
	}
	srv.registerRoutes()

	return srv, nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// API returns the huma API for registering additional operations.
func (s *Server) API() huma.API {
	return s.api
}

// Start runs the HTTP server and blocks until the context is cancelled,
// then performs graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return vocerr.Wrapf(err, vocerr.CodeServerStartFailure, "listening on %s", s.cfg.ListenAddr)
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return vocerr.Wrapf(err, vocerr.CodeServerInternalFailure, "shutting down")
	}

	return <-errCh
}

// HealthBody is the JSON body of the health endpoint response.
type HealthBody struct {
	Status string `json:"status" example:"ok" doc:"Health status"`
}

// HealthResponse wraps the health check response.
type HealthResponse struct {
	Body HealthBody
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
