package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"coipond/internal/auth"
	"coipond/internal/catalog"
	"coipond/internal/config"
	"coipond/internal/handler"
	"coipond/internal/middleware"
	"coipond/internal/parser"
	authService "coipond/internal/service/auth"
	bpService "coipond/internal/service/blueprint"
	"coipond/internal/session"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, closeLog := newLogger(cfg)
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"store", cfg.StoreBackend,
		"search", cfg.SearchBackend,
		"blobs", cfg.BlobBackend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	indexCatalog, err := catalog.Load()
	if err != nil {
		log.Fatalf("Failed to load index catalog: %v", err)
	}

	b, err := setupBackends(ctx, cfg, indexCatalog, logger)
	if err != nil {
		log.Fatalf("Failed to set up backends: %v", err)
	}
	defer b.Close()

	blueprintParser, err := parser.NewCommand(cfg.ParserCommand, cfg.ParserTimeout, logger)
	if err != nil {
		log.Fatalf("Failed to set up blueprint parser: %v", err)
	}

	// Services
	authorizer := authService.NewOwnerBasedAuthorizer()
	blueprintService := bpService.NewBlueprintService(b.blueprints, b.ledgers, blueprintParser, b.blobs, authorizer, logger)
	contentUpdater := bpService.NewContentUpdater(b.blueprints, b.ledgers, b.txManager, blueprintParser, authorizer, cfg.UpdateMaxAttempts, logger)
	deletionCoordinator := bpService.NewDeletionCoordinator(b.blueprints, b.ledgers, b.txManager, b.blobs, authorizer, logger)
	searcher := bpService.NewIndexSelector(indexCatalog, b.index, logger)

	sessions := session.NewRegistry(cfg.SessionIdleTimeout, cfg.SessionMaxCount, logger)
	defer sessions.Close()

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	defer limiter.Close()

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux,
		handler.NewBlueprintHandler(blueprintService, contentUpdater, deletionCoordinator, logger),
		handler.NewSearchHandler(searcher, logger),
		limiter,
	)

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Session → Routes
	var h http.Handler = mux
	h = middleware.Session(sessions)(h)
	h = middleware.Auth(jwtVerifier, logger)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.SessionHeader},
		ExposedHeaders:   []string{"Location", "Retry-After"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}
