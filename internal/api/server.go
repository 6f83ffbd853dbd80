// Package api exposes the supervisor over HTTP using Huma v2.
package api

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/streamdock/streamdock/internal/devices"
	"github.com/streamdock/streamdock/internal/logging"
	"github.com/streamdock/streamdock/internal/supervisor"
)

// Options wires the server's collaborators.
type Options struct {
	Supervisor *supervisor.Supervisor
	Catalog    *devices.Catalog
	// Save persists the current channel set. Called after every
	// mutation; nil disables persistence.
	Save func() error
	// PrometheusHandler, when set, is mounted at GET /metrics.
	PrometheusHandler http.Handler
	AuthUsername      string
	AuthPassword      string
	Version           string
}

// Server is the Huma v2 API server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	opts       *Options
	logger     *slog.Logger
}

// NewServer creates the API server and registers all routes.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	config := huma.DefaultConfig("StreamDock API", opts.Version)
	config.Info.Description = "Channel supervision and device arbitration for multi-channel HLS encoding"
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	s := &Server{
		api:    humago.New(mux, config),
		mux:    mux,
		opts:   opts,
		logger: logging.GetLogger("api"),
	}

	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		s.api.UseMiddleware(s.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	s.registerRoutes()
	return s
}

// Start serves HTTP on addr. Blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting API server", "addr", addr)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down without waiting for open connections.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// basicAuthMiddleware enforces HTTP basic auth on operations that carry
// a security requirement.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		unauthorized := func(msg string) {
			ctx.SetHeader("WWW-Authenticate", `Basic realm="StreamDock API"`)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, msg)
		}

		authHeader := ctx.Header("Authorization")
		const prefix = "Basic "
		if !strings.HasPrefix(authHeader, prefix) {
			unauthorized("Authentication required")
			return
		}
		decoded, err := base64.StdEncoding.DecodeString(authHeader[len(prefix):])
		if err != nil {
			unauthorized("Invalid credentials format")
			return
		}
		parts := strings.SplitN(string(decoded), ":", 2)
		if len(parts) != 2 || parts[0] != username || parts[1] != password {
			unauthorized("Invalid credentials")
			return
		}

		next(ctx)
	}
}

// registerRoutes sets up all API endpoints.
func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Tags:        []string{"health"},
		Security:    []map[string][]string{},
	}, func(ctx context.Context, input *struct{}) (*HealthResponse, error) {
		resp := &HealthResponse{}
		resp.Body.Status = "ok"
		resp.Body.Version = s.opts.Version
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent application logs",
		Tags:        []string{"logs"},
	}, func(ctx context.Context, input *struct{}) (*LogsResponse, error) {
		resp := &LogsResponse{}
		if buf := logging.GetBuffer(); buf != nil {
			resp.Body.Entries = buf.ReadAll()
		}
		return resp, nil
	})

	s.registerDeviceRoutes()
	s.registerChannelRoutes()
}

// save persists the channel set after a mutation, best effort.
func (s *Server) save() {
	if s.opts.Save == nil {
		return
	}
	if err := s.opts.Save(); err != nil {
		s.logger.Warn("Failed to persist channel configuration", "error", err)
	}
}
