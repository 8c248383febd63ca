package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"fireant/internal/api"
	"fireant/internal/config"
	"fireant/internal/middleware"
)

// ServeOptions tunes Serve. The zero value listens on cfg.ListenAddr.
type ServeOptions struct {
	// Listener overrides cfg.ListenAddr, e.g. with a port-0 listener in tests.
	Listener net.Listener
	// Ready is called with the bound address once the server accepts
	// connections.
	Ready func(addr string)
}

// Serve wires the application and runs the HTTP API until ctx is done, then
// shuts down gracefully.
func Serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ServeOptions) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	a, err := New(ctx, Deps{Cfg: cfg, Logger: logger, Registerer: registry})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("close", "error", err)
		}
	}()

	router, err := a.Router(ctx, cfg, logger, registry)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	ln := opts.Listener
	if ln == nil {
		ln, err = net.Listen("tcp", cfg.ListenAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
		}
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	addr := ln.Addr().String()
	logger.Info("HTTP API listening", "addr", addr, "auth", cfg.AuthEnabled(), "datasets", a.Catalog.Names())
	logger.Info("try: curl http://" + CurlHost(addr) + "/v1/datasets")
	if opts.Ready != nil {
		opts.Ready(addr)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// Router builds the API handler for a. The rate limiter's sweeper runs
// until ctx is done.
func (a *App) Router(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics prometheus.Gatherer) (http.Handler, error) {
	opts := api.RouterOptions{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:            metrics,
	}
	if cfg.AuthEnabled() {
		v, err := middleware.NewHS256Validator(cfg.JWTSecret, "", "")
		if err != nil {
			return nil, err
		}
		opts.Auth = middleware.NewAuthenticator(v, logger)
	}
	if cfg.RateLimitRPS > 0 {
		rl := middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		})
		go rl.Run(ctx, time.Minute, 10*time.Minute)
		opts.RateLimit = rl
	}
	return api.NewRouter(api.NewHandler(a.Catalog, logger), opts), nil
}

// CurlHost turns a listen address into a host:port a local curl can reach.
// Wildcard and empty hosts become localhost.
func CurlHost(listenAddr string) string {
	addr := strings.TrimSpace(listenAddr)
	if addr == "" {
		return "localhost:8080"
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}
