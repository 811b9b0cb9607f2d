// Package main initializes and starts the HeroKeeper HTTP server, setting up
// configuration, logging, tracing, database connections, repositories,
// services, handlers and optional TLS.
package main

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/HeroKeeper/internal/auth"
	"github.com/atinyakov/HeroKeeper/internal/auth/redisstore"
	"github.com/atinyakov/HeroKeeper/internal/blob"
	"github.com/atinyakov/HeroKeeper/internal/config"
	"github.com/atinyakov/HeroKeeper/internal/db"
	"github.com/atinyakov/HeroKeeper/internal/gamesystem"
	"github.com/atinyakov/HeroKeeper/internal/logger"
	"github.com/atinyakov/HeroKeeper/internal/middleware"
	"github.com/atinyakov/HeroKeeper/internal/repository"
	"github.com/atinyakov/HeroKeeper/internal/server/handler/http"
	"github.com/atinyakov/HeroKeeper/internal/service"
	"github.com/atinyakov/HeroKeeper/internal/telemetry"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

// orNA returns s, or "N/A" when s is empty (equivalent to cmp.Or(s, "N/A"),
// which requires Go 1.22).
func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func main() {
	// Parse command-line, config file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", orNA(version))
	fmt.Printf("Build date: %s\n", orNA(buildDate))

	// Initialize structured logging.
	log := logger.New()
	log.Development = !options.Production()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options, zapLogger); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, options *config.Options, zapLogger *zap.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, "herokeeper", options.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			zapLogger.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	// Initialize the database and apply the schema.
	conn, dialect, err := db.Open(ctx, options.DatabaseDriver, options.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer conn.Close()

	store := repository.NewStore(conn, dialect)
	repo := service.NewRepository(store)

	// Select where login sessions live.
	var sessionStore auth.SessionStore = store
	switch options.SessionBackend {
	case "redis":
		rs, err := redisstore.Connect(ctx, options.RedisAddr, options.RedisPassword, options.RedisDB)
		if err != nil {
			return fmt.Errorf("init redis: %w", err)
		}
		defer rs.Close()
		sessionStore = rs
	default:
		db.StartSessionSweeper(ctx, conn, dialect, time.Hour, zapLogger)
	}

	secret := []byte(options.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generate session secret: %w", err)
		}
		zapLogger.Warn("SESSION_SECRET is not set; sessions will not survive a restart")
	}
	signer, err := auth.NewTokenSigner(secret)
	if err != nil {
		return err
	}
	sessions := auth.NewSessions(sessionStore, signer, options.SessionTTL)

	blobs, err := openBlobStore(ctx, options)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}

	catalog, err := gamesystem.Builtin()
	if err != nil {
		return fmt.Errorf("load game systems: %w", err)
	}

	// Create HTTP handlers.
	handlers := http.Handlers{
		Auth: &http.AuthHandler{
			AuthService:   service.NewAuthService(store, sessions),
			Log:           zapLogger,
			SecureCookies: options.Production(),
		},
		Heroes:     &http.HeroHandler{HeroService: service.NewHeroService(repo, catalog, blobs, zapLogger), Log: zapLogger},
		Npcs:       &http.NpcHandler{NpcService: service.NewNpcService(repo), Log: zapLogger},
		Sessions:   &http.SessionLogHandler{SessionLogService: service.NewSessionLogService(repo), Log: zapLogger},
		Quests:     &http.QuestHandler{QuestService: service.NewQuestService(repo), Log: zapLogger},
		Activities: &http.ActivityHandler{Activities: service.NewActivityRecorder(repo), Log: zapLogger},
		Transfer:   &http.TransferHandler{TransferService: service.NewTransferService(repo, blobs, zapLogger), Log: zapLogger},
		Systems:    &http.SystemsHandler{Catalog: catalog},
		Health:     &http.HealthHandler{DB: conn, Log: zapLogger},
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(handlers, sessions, service.NewGuard(repo), middleware.NewMetrics(), zapLogger)

	server := &nethttp.Server{
		Addr:              options.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	tlsEnabled := options.TLSCertFile != ""
	if tlsEnabled {
		server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("starting server",
			zap.String("addr", options.Addr),
			zap.Bool("tls", tlsEnabled),
			zap.String("database", string(dialect)),
			zap.String("sessions", options.SessionBackend),
			zap.String("blobs", options.BlobDriver))
		var err error
		if tlsEnabled {
			err = server.ListenAndServeTLS(options.TLSCertFile, options.TLSKeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	zapLogger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(sctx)
}

func openBlobStore(ctx context.Context, options *config.Options) (blob.Store, error) {
	if options.BlobDriver == "s3" {
		return blob.NewS3Store(ctx, blob.S3Config{
			Bucket:    options.BlobS3Bucket,
			Region:    options.BlobS3Region,
			Endpoint:  options.BlobS3Endpoint,
			PathStyle: options.BlobS3PathStyle,
		})
	}
	return blob.NewFSStore(options.BlobDir)
}
