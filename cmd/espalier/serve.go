package main

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/adapters/file"
	"github.com/aretw0/espalier/pkg/adapters/httpapi"
	"github.com/aretw0/espalier/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/espalier/pkg/adapters/redis"
	"github.com/aretw0/espalier/pkg/adapters/sqlite"
	"github.com/aretw0/espalier/pkg/adapters/webhook"
	"github.com/aretw0/espalier/pkg/observability"
	"github.com/aretw0/espalier/pkg/persistence/middleware"
	"github.com/aretw0/espalier/pkg/ports"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP intake server",
	Long:  `Starts the Espalier engine in server mode, receiving inbound events over a JSON API and running durable timers.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(cmd); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for session storage (empty: in-memory)")
	serveCmd.Flags().String("redis-password", "", "Redis password")
	serveCmd.Flags().Int("redis-db", 0, "Redis database number")
	serveCmd.Flags().Duration("session-ttl", 72*time.Hour, "Idle session expiration (Redis only)")
	serveCmd.Flags().String("timers", "espalier-timers.db", "SQLite file backing durable delay timers (empty: delays disabled)")
	serveCmd.Flags().StringSlice("mask", nil, "Variable key patterns to mask before persisting (PII)")
}

func runServe(cmd *cobra.Command) error {
	flowsDir, _ := cmd.Flags().GetString("flows")
	addr, _ := cmd.Flags().GetString("addr")
	redisAddr, _ := cmd.Flags().GetString("redis")
	redisPassword, _ := cmd.Flags().GetString("redis-password")
	redisDB, _ := cmd.Flags().GetInt("redis-db")
	sessionTTL, _ := cmd.Flags().GetDuration("session-ttl")
	timersPath, _ := cmd.Flags().GetString("timers")
	maskPatterns, _ := cmd.Flags().GetStringSlice("mask")
	logLevel, _ := cmd.Flags().GetString("log-level")
	logFormat, _ := cmd.Flags().GetString("log-format")

	logger := logging.New(logging.ParseLevel(logLevel), logFormat)
	slog.SetDefault(logger)

	flows, err := file.NewProvider(flowsDir)
	if err != nil {
		return fmt.Errorf("failed to load flows from %s: %w", flowsDir, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	sink := observability.NewMetricsSink(reg)

	opts := []espalier.Option{
		espalier.WithLogger(logger),
		espalier.WithWebhookDispatcher(webhook.NewDispatcher(webhook.WithLogger(logger))),
		espalier.WithEventSink(sink),
	}

	var store ports.SessionStore
	if redisAddr != "" {
		client := backend.NewClient(&backend.Options{
			Addr:     redisAddr,
			Password: redisPassword,
			DB:       redisDB,
		})
		defer client.Close()
		store = redisAdapter.NewFromClient(client, redisAdapter.WithTTL(sessionTTL))
		opts = append(opts, espalier.WithDistributedLocker(redisAdapter.NewLocker(client, "espalier:lock:")))
		logger.Info("using redis session store", "addr", redisAddr)
	} else {
		store = memory.NewStore()
		logger.Info("using in-memory session store")
	}

	var mws []middleware.Middleware
	if len(maskPatterns) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(maskPatterns))
	}
	// ESPALIER_ENCRYPTION_KEY holds a base64 32-byte key; fallbacks for key
	// rotation are comma-separated in ESPALIER_ENCRYPTION_FALLBACK_KEYS.
	if raw := os.Getenv("ESPALIER_ENCRYPTION_KEY"); raw != "" {
		cfg, err := encryptionConfigFromEnv(raw, os.Getenv("ESPALIER_ENCRYPTION_FALLBACK_KEYS"))
		if err != nil {
			return err
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(cfg))
		logger.Info("session encryption at rest enabled")
	}
	opts = append(opts, espalier.WithSessionStore(middleware.Chain(store, mws...)))

	// The facility needs a handler before the engine exists; the closure
	// resolves the engine at fire time.
	var eng *espalier.Engine
	var facility *sqlite.Facility
	if timersPath != "" {
		db, err := sql.Open("sqlite", timersPath)
		if err != nil {
			return fmt.Errorf("failed to open timer database: %w", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(1)

		facility, err = sqlite.NewFacility(db, func(ctx context.Context, t sqlite.FiredTimer) error {
			_, err := eng.Resume(ctx, t.SessionID, t.FlowID, t.ID)
			return err
		}, sqlite.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("failed to init timer facility: %w", err)
		}
		opts = append(opts, espalier.WithTimerFacility(facility))
	} else {
		logger.Warn("durable timers disabled, delay nodes will be skipped")
	}

	eng, err = espalier.New(flows, opts...)
	if err != nil {
		return fmt.Errorf("failed to init engine: %w", err)
	}

	handler := httpapi.NewHandler(eng, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if facility != nil {
		go func() {
			if err := facility.Run(runCtx); err != nil && runCtx.Err() == nil {
				logger.Error("timer facility stopped", "err", err)
			}
		}()
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("starting espalier server", "addr", srv.Addr, "flows", flowsDir)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt or terminate signals.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("starting shutdown", "signal", sig.String())
		cancel()

		// Give outstanding requests a deadline for completion.
		ctx, cancelTimeout := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelTimeout()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown did not complete", "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		logger.Info("espalier server stopped gracefully")
	}
	return nil
}

func encryptionConfigFromEnv(active, fallbacks string) (middleware.EncryptionConfig, error) {
	key, err := base64.StdEncoding.DecodeString(active)
	if err != nil || len(key) != 32 {
		return middleware.EncryptionConfig{}, fmt.Errorf("ESPALIER_ENCRYPTION_KEY must be a base64 32-byte key")
	}
	cfg := middleware.EncryptionConfig{ActiveKey: key}
	for _, raw := range strings.Split(fallbacks, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		fb, err := base64.StdEncoding.DecodeString(raw)
		if err != nil || len(fb) != 32 {
			return middleware.EncryptionConfig{}, fmt.Errorf("ESPALIER_ENCRYPTION_FALLBACK_KEYS entries must be base64 32-byte keys")
		}
		cfg.FallbackKeys = append(cfg.FallbackKeys, fb)
	}
	return cfg, nil
}
