package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpAdapter "github.com/espalierhq/espalier/internal/adapters/http"
	"github.com/espalierhq/espalier/internal/adapters/postgres"
	redisAdapter "github.com/espalierhq/espalier/internal/adapters/redis"
	"github.com/espalierhq/espalier/internal/logging"
	"github.com/espalierhq/espalier/internal/metrics"
	"github.com/espalierhq/espalier/pkg/adapters/memory"
	"github.com/espalierhq/espalier/pkg/persistence/middleware"
	"github.com/espalierhq/espalier/pkg/ports"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the survey HTTP server",
	Long: `Starts the espalier engine in server mode, exposing survey authoring,
activation and response collection as a JSON API over HTTP.

Without --postgres-dsn or --redis-addr everything is held in memory,
which is enough for local authoring and tests.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(cmd); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("postgres-dsn", "", "Postgres DSN for survey definitions (in-memory when empty)")
	serveCmd.Flags().String("redis-addr", "", "Redis address for response state (in-memory when empty)")
	serveCmd.Flags().String("redis-password", "", "Redis password")
	serveCmd.Flags().Int("redis-db", 0, "Redis database number")
	serveCmd.Flags().Duration("response-ttl", 0, "Expiry for abandoned responses (0 keeps them forever)")
	serveCmd.Flags().String("encryption-key", "", "Hex-encoded 32-byte key; encrypts responses at rest when set")
	serveCmd.Flags().StringSlice("redact", nil, "Regex patterns masked out of answer values before persisting")
}

func runServe(cmd *cobra.Command) error {
	port, _ := cmd.Flags().GetString("port")
	level, _ := cmd.Flags().GetString("log-level")
	logger := logging.New(logging.ParseLevel(level))

	surveys, err := buildSurveyStore(cmd)
	if err != nil {
		return err
	}
	responses, err := buildResponseStore(cmd)
	if err != nil {
		return err
	}

	handler := httpAdapter.NewHandler(surveys, responses,
		httpAdapter.WithLogger(logger),
		httpAdapter.WithMetrics(metrics.New()),
	)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return err

	case sig := <-shutdown:
		logger.Info("shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("graceful shutdown did not complete", "err", err)
			return srv.Close()
		}
		logger.Info("server stopped")
		return nil
	}
}

func buildSurveyStore(cmd *cobra.Command) (ports.SurveyStore, error) {
	dsn, _ := cmd.Flags().GetString("postgres-dsn")
	if dsn == "" {
		return memory.NewSurveyStore(), nil
	}

	store, err := postgres.Open(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("preparing schema: %w", err)
	}
	return store, nil
}

func buildResponseStore(cmd *cobra.Command) (ports.ResponseStore, error) {
	addr, _ := cmd.Flags().GetString("redis-addr")

	var store ports.ResponseStore = memory.NewResponseStore()
	if addr != "" {
		password, _ := cmd.Flags().GetString("redis-password")
		db, _ := cmd.Flags().GetInt("redis-db")
		ttl, _ := cmd.Flags().GetDuration("response-ttl")

		opts := []redisAdapter.Option{}
		if ttl > 0 {
			opts = append(opts, redisAdapter.WithTTL(ttl))
		}
		store = redisAdapter.New(addr, password, db, opts...)
	}

	// Redaction goes outermost so values are masked before encryption.
	var mws []middleware.Middleware
	if patterns, _ := cmd.Flags().GetStringSlice("redact"); len(patterns) > 0 {
		mws = append(mws, middleware.NewRedactionMiddleware(patterns))
	}
	if keyHex, _ := cmd.Flags().GetString("encryption-key"); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("decoding encryption key: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	return middleware.Chain(store, mws...), nil
}
