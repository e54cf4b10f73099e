package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/stridelake/stridelake/api/handlers"
	"github.com/stridelake/stridelake/api/metrics"
	"github.com/stridelake/stridelake/internal/app"
	"github.com/stridelake/stridelake/internal/config"
	"github.com/stridelake/stridelake/pkg/logger"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	defaultListenAddr      = "0.0.0.0:8000"
	defaultMetricsAddr     = "0.0.0.0:0"
	defaultShutdownTimeout = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	listenAddrFlag := flag.String("listen-addr", defaultListenAddr, "HTTP server listen address (or set LISTEN_ADDR env var)")
	metricsAddrFlag := flag.String("metrics-addr", defaultMetricsAddr, "Address to listen on for prometheus metrics, empty to disable")
	envFileFlag := flag.String("env-file", ".env", "Path to a .env file loaded before reading the environment")
	migrateFlag := flag.Bool("migrate", true, "apply database migrations on startup")
	flag.Parse()

	if env := os.Getenv("LISTEN_ADDR"); env != "" && !flag.CommandLine.Changed("listen-addr") {
		*listenAddrFlag = env
	}

	log := logger.New(*verboseFlag)

	cfg, err := config.Load(*envFileFlag)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigCh
		log.Info("server: received signal", "signal", sig.String())
		cancel()
	}()

	metricsServerErrCh := make(chan error, 1)
	if *metricsAddrFlag != "" {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		go func() {
			listener, err := net.Listen("tcp", *metricsAddrFlag)
			if err != nil {
				log.Error("failed to start prometheus metrics server listener", "error", err)
				metricsServerErrCh <- err
				return
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.Serve(listener, mux); err != nil {
				log.Error("failed to start prometheus metrics server", "error", err)
				metricsServerErrCh <- err
			}
		}()
	}

	a, err := app.New(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if *migrateFlag {
		if _, err := a.DB.Migrate(ctx); err != nil {
			return err
		}
	}

	hcfg := handlers.Config{
		Logger:             log,
		Chat:               a.Chat,
		DB:                 a.DB,
		AuthResultURL:      cfg.AuthResultURL,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	// Assigned conditionally so the interfaces stay nil when Strava is not configured.
	if a.Syncer != nil {
		hcfg.Sync = a.Syncer
	}
	if a.Strava != nil {
		hcfg.Auth = a.Strava
		hcfg.Athletes = a.DB
	}
	router, err := handlers.NewRouter(hcfg)
	if err != nil {
		return fmt.Errorf("failed to create router: %w", err)
	}

	server := &http.Server{
		Addr:              *listenAddrFlag,
		Handler:           router,
		ReadHeaderTimeout: 30 * time.Second,
		// Chat requests can take several model round trips.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		log.Info("server: api listening", "address", server.Addr, "version", version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("server: shutting down", "reason", ctx.Err())
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
		log.Info("server: stopped gracefully")
		return nil
	case err := <-serverErrCh:
		log.Error("server: server error causing shutdown", "error", err)
		return err
	case err := <-metricsServerErrCh:
		log.Error("server: metrics server error causing shutdown", "error", err)
		return err
	}
}
