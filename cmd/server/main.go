package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-live/auth"
	"market-live/domain/event"
	"market-live/internal"
	"market-live/moderation"
	"market-live/observability"
	"market-live/realtime"
	"market-live/realtime/workers"
	"market-live/repositories"
	"market-live/services"
	"market-live/transport/ws"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the HTTP server and background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	censoredChar, err := characterRune(config.ModerationCharReplacement)
	if err != nil {
		return err
	}

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	//  Defer will be executed before run() returned anything to main()
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Realtime core
	stats := observability.NewDeliveryStats()
	dispatcher := realtime.NewDispatcher(log, stats, config.BufferSize)
	registry := realtime.NewRegistry(dispatcher)
	groups := realtime.NewGroups()

	// 4. Moderation
	censoredData, err := moderation.LoadDefault()
	if err != nil {
		return fmt.Errorf("loading censored words: %w", err)
	}
	log.Info("Moderation dictionaries loaded",
		"languages", censoredData.Languages, "words", len(censoredData.Words))
	moderator, err := moderation.NewModerator(censoredData.Words, censoredChar, log)
	if err != nil {
		return err
	}

	// 5. Services
	messageRepository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	notificationRepository := repositories.NewNotificationRepository(db, log)
	liveService := services.NewLiveService(
		log, registry, groups, dispatcher, auth.OpenAuthorizer{}, &moderator,
		messageRepository, notificationRepository,
	)
	tokens := auth.NewTokenManager([]byte(config.JWTSecret), config.JWTIssuer, config.AuthTokenDuration)
	authService := services.NewAuthService(log, repositories.NewUserRepository(db), tokens)

	// 6. Supervised workers
	telemetry := make(chan event.DeliveryEvent, config.BufferSize)
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewFanoutWorker(log, registry, groups, stats, dispatcher.Deliveries(), telemetry, config.SinkTimeout),
		workers.NewTelemetryWorker(log, telemetry, stats),
		workers.NewHeartbeatWorker(log, config.HeartbeatInterval, registry, groups, stats),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sup.Run(ctx)

	// 7. Optional inspector, off the public router
	if config.DebugPort != 0 {
		internal.StartDebugServer(db, config.DebugPort, "/inspect", nil, func() map[string]any {
			users, conns := registry.Counts()
			topics, members := groups.Counts()
			snapshot := stats.Snapshot()
			return map[string]any{
				"OnlineUsers": users,
				"Connections": conns,
				"Topics":      topics,
				"Memberships": members,
				"Delivered":   snapshot.Delivered,
				"Dropped":     snapshot.DroppedDispatch,
			}
		})
		log.Info("Inspector started", "url", fmt.Sprintf("http://localhost:%d/inspect", config.DebugPort))
	}

	// 8. HTTP server
	wsHandler := ws.NewHandler(log, tokens, registry, groups, liveService, config.ConnectionBufferSize)
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler: ws.NewRouter(log, wsHandler, authService),
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting websocket server", "address", server.Addr, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 9. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 10. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}

func characterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf("MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q", str)
	}
	return r[0], nil
}
