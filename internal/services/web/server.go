// Package web hosts the browser-facing marketplace surface that renders
// experiment-wrapped components and completes enrollment on the client pass.
package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/marketplace/internal/experiment"
	"github.com/louisbranch/marketplace/internal/platform/requestmeta"
	"github.com/louisbranch/marketplace/internal/platform/timeouts"
	"github.com/louisbranch/marketplace/internal/services/web/platform/httpx"
	"github.com/louisbranch/marketplace/internal/tracking"
)

const (
	homePath    = "/"
	syncPath    = "/experiments/sync"
	metricsPath = "/metrics"
	healthPath  = "/healthz"
)

// Config defines startup inputs for the web service.
type Config struct {
	HTTPAddr string
	// HydrationKey signs the pending-state token embedded in server renders.
	HydrationKey        []byte
	TrustForwardedProto bool
	// Experiments are resolved by the client pass, in order.
	Experiments []*experiment.Experiment
	Flags       experiment.Flags
	Tracker     tracking.Tracker
	// Metrics serves /metrics when set.
	Metrics    http.Handler
	Randomizer experiment.Randomizer
	Now        func() time.Time
}

// Server hosts the web HTTP surface and lifecycle.
type Server struct {
	httpAddr   string
	httpServer *http.Server
}

type handlers struct {
	experiments []*experiment.Experiment
	flags       experiment.Flags
	tracker     tracking.Tracker
	randomizer  experiment.Randomizer
	signer      *hydrationSigner
	policy      requestmeta.SchemePolicy
}

// NewHandler builds the root handler.
func NewHandler(cfg Config) (http.Handler, error) {
	signer, err := newHydrationSigner(cfg.HydrationKey, cfg.Now)
	if err != nil {
		return nil, err
	}
	for _, exp := range cfg.Experiments {
		if exp == nil {
			return nil, errors.New("experiments must not contain nil")
		}
	}
	randomizer := cfg.Randomizer
	if randomizer == nil {
		randomizer = experiment.DefaultRandomizer
	}
	tracker := cfg.Tracker
	if tracker == nil {
		tracker = tracking.Discard
	}
	h := &handlers{
		experiments: append([]*experiment.Experiment(nil), cfg.Experiments...),
		flags:       cfg.Flags,
		tracker:     tracker,
		randomizer:  randomizer,
		signer:      signer,
		policy:      requestmeta.SchemePolicy{TrustForwardedProto: cfg.TrustForwardedProto},
	}

	mux := http.NewServeMux()
	mux.Handle(homePath, httpx.RequireMethod(http.MethodGet)(http.HandlerFunc(h.handleHome)))
	mux.Handle(syncPath, httpx.RequireMethod(http.MethodPost)(http.HandlerFunc(h.handleSync)))
	mux.HandleFunc(healthPath, func(w http.ResponseWriter, _ *http.Request) {
		_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		mux.Handle(metricsPath, cfg.Metrics)
	}
	return httpx.Chain(mux,
		httpx.RecoverPanic(),
		httpx.RequestID(),
		httpx.RequestLogger(log.Default()),
	), nil
}

// NewServer validates config and constructs a web server.
func NewServer(_ context.Context, cfg Config) (*Server, error) {
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	handler, err := NewHandler(cfg)
	if err != nil {
		return nil, fmt.Errorf("compose web handler: %w", err)
	}
	return &Server{
		httpAddr: httpAddr,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}, nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.httpAddr
}

// ListenAndServe serves HTTP traffic until context cancellation or server stop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("web server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown web http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve web http: %w", err)
	}
}

// Close closes open server resources.
func (s *Server) Close() {
	if s == nil || s.httpServer == nil {
		return
	}
	_ = s.httpServer.Close()
}
