package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopify-app-auth/internal/application"
	"shopify-app-auth/internal/application/webhook_handlers"
	"shopify-app-auth/internal/config"
	apiinfra "shopify-app-auth/internal/infrastructure/api"
	"shopify-app-auth/internal/infrastructure/encryption"
	"shopify-app-auth/internal/infrastructure/metrics"
	"shopify-app-auth/internal/infrastructure/repository"
	"shopify-app-auth/internal/infrastructure/session"
	shopifyinfra "shopify-app-auth/internal/infrastructure/shopify"
	"shopify-app-auth/internal/logging"
	"shopify-app-auth/internal/ports"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("info", false)
		bootLogger.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize logger
	logger := logging.New(cfg.Log.Level, cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())

	db := mongoClient.Database(cfg.Mongo.Database)

	// Access tokens are sealed at rest when a key is configured
	var encryptionService ports.EncryptionService = encryption.Noop{}
	if cfg.TokenEncryptionKey != "" {
		encryptionService, err = encryption.NewService(cfg.TokenEncryptionKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
		}
	} else {
		logger.Warn().Msg("TOKEN_ENC_KEY_B64 not set, access tokens are stored unencrypted")
	}

	// Initialize repositories
	clientRepo := repository.NewMongoClientRepository(db, encryptionService)
	indexCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := clientRepo.EnsureIndexes(indexCtx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create client indexes")
	}
	cancel()

	// Session store: Redis when configured, in-memory otherwise
	var sessionStore ports.SessionStore
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
		}
		sessionStore = session.NewRedisStore(rdb, cfg.Session.TTL)
	} else {
		logger.Warn().Msg("REDIS_ADDR not set, sessions are kept in memory")
		sessionStore = session.NewMemoryStore(cfg.Session.TTL)
	}
	sessions := session.NewManager(sessionStore, session.Options{
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.CookieSecure,
	})

	// Initialize application services
	shopifyClient := shopifyinfra.NewClient(cfg.Shopify.APIKey, cfg.Shopify.APISecret, cfg.Shopify.APIVersion, logger)
	authService := application.NewAuthService(
		clientRepo,
		shopifyClient,
		shopifyinfra.NewQueryVerifier(cfg.Shopify.APISecret),
		application.AuthServiceOptions{
			Scopes:           cfg.Shopify.Scopes,
			FetchShopDetails: cfg.Shopify.FetchShopDetails,
		},
		logger,
	)

	// Initialize webhook dispatcher and register handlers
	webhookDispatcher := application.NewWebhookDispatcher(logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(logger, authService))

	m := metrics.New(cfg.Metrics.Prefix)

	router := apiinfra.NewRouter(
		apiinfra.NewAuthHandlers(authService, sessions, m, logger, cfg.Server.AppURL),
		apiinfra.NewWebhookHandlers(shopifyinfra.NewWebhookVerifier(cfg.Shopify.APISecret), webhookDispatcher, m, logger),
		m,
		logger,
		apiinfra.RouterConfig{AllowedOrigins: cfg.CORS.AllowedOrigins},
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Server.Port).
			Str("app_url", cfg.Server.AppURL).
			Msg("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down API server")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
