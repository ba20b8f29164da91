package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/energymatrix/pkg/common"
	"github.com/raterudder/energymatrix/pkg/controller"
	"github.com/raterudder/energymatrix/pkg/display"
	"github.com/raterudder/energymatrix/pkg/ess"
	"github.com/raterudder/energymatrix/pkg/log"
	"github.com/raterudder/energymatrix/pkg/metrics"
	"github.com/raterudder/energymatrix/pkg/mqtt"
	"github.com/raterudder/energymatrix/pkg/types"
	"github.com/raterudder/energymatrix/pkg/utility"
	"github.com/raterudder/energymatrix/pkg/weather"
)

// cycler is satisfied by *controller.Controller.
type cycler interface {
	Cycle(ctx context.Context) (types.Sample, error)
}

// Server runs the poll loop and the status HTTP server. It orchestrates
// interactions between the controller, the display and the MQTT broker.
type Server struct {
	controller cycler
	builder    *display.Builder
	sink       display.Sink
	publisher  mqtt.Publisher
	metrics    *metrics.Metrics

	listenAddr   string
	pollInterval time.Duration
	cycleTimeout time.Duration
	serverName   string
	httpServer   *http.Server

	mu     sync.Mutex
	status status
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(
	system ess.System,
	prices utility.Provider,
	plan *utility.Plan,
	layout *utility.ChartLayout,
	gateway *weather.Gateway,
	sink display.Sink,
	builder *display.Builder,
	publisher *mqtt.RealPublisher,
) *Server {
	srv := &Server{
		builder:    builder,
		sink:       sink,
		metrics:    metrics.New(),
		serverName: "energymatrix/" + common.Version(),
	}

	listenAddr := lflag.String("http-listen", ":8080", "Status HTTP server listen address, empty disables it")
	pollInterval := lflag.Duration("poll-interval", 3*time.Second, "Time to sleep between poll cycles")
	cycleTimeout := lflag.Duration("cycle-timeout", 20*time.Second, "Upper bound for a single poll cycle")
	staleFallback := lflag.Bool("stale-fallback", false, "Show the last cached price/weather when a refresh fails instead of skipping the cycle")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		srv.pollInterval = *pollInterval
		srv.cycleTimeout = *cycleTimeout
		if srv.pollInterval <= 0 {
			log.Ctx(context.Background()).Error("poll-interval must be positive")
			os.Exit(1)
		}
		if srv.cycleTimeout <= 0 {
			log.Ctx(context.Background()).Error("cycle-timeout must be positive")
			os.Exit(1)
		}

		// a nil *Gateway must not end up inside the interface
		var station weather.Station
		if gateway.Enabled() {
			station = gateway
		}
		if publisher.Enabled() {
			srv.publisher = publisher
		}

		srv.controller = controller.New(system, prices, *plan, *layout, station, controller.Options{
			StaleFallback: *staleFallback,
			CacheObserver: srv.metrics.ObserveCache,
		})
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)
	return gziphandler.GzipHandler(s.headersMiddleware(mux))
}

// Run starts the status HTTP server and the poll loop and blocks until the
// context is canceled or the HTTP server fails.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	if c, ok := s.publisher.(interface{ Connect(context.Context) error }); ok {
		if err := c.Connect(ctx); err != nil {
			// the client keeps retrying in the background
			log.Ctx(ctx).WarnContext(ctx, "failed to connect to mqtt broker", slog.Any("error", err))
		}
	}
	defer func() {
		if s.publisher == nil {
			return
		}
		if err := s.publisher.Close(); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to close mqtt publisher", slog.Any("error", err))
		}
	}()

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	if s.listenAddr != "" {
		s.httpServer = &http.Server{
			Addr:         s.listenAddr,
			Handler:      s.setupHandler(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  15 * time.Second,
		}
		go func() {
			defer close(errChan)
			log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
			if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		s.loop(ctx)
	}()

	select {
	case <-ctx.Done():
		<-loopDone
		if s.httpServer == nil {
			return nil
		}
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// headersMiddleware names the server and keeps clients from caching or
// sniffing the live status responses.
func (s *Server) headersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if s.serverName != "" {
			h.Set("Server", s.serverName)
		}
		h.Set("Cache-Control", "no-store")
		h.Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	})
}
