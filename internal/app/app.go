package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"tenant-auth-core/internal/config"
	"tenant-auth-core/internal/database"
	"tenant-auth-core/internal/event"
	"tenant-auth-core/internal/handler"
	"tenant-auth-core/internal/keystore"
	"tenant-auth-core/internal/middleware"
	"tenant-auth-core/internal/pii"
	"tenant-auth-core/internal/repository"
	"tenant-auth-core/internal/router"
	"tenant-auth-core/internal/service"
	"tenant-auth-core/internal/token"
)

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

// New loads configuration and key material, connects the stores and builds
// the HTTP server. Missing or malformed key material aborts startup.
func New(cfg *config.Config) (*App, error) {
	material, err := keystore.Load(cfg.KeySource())
	if err != nil {
		return nil, fmt.Errorf("failed to load key material: %w", err)
	}

	cipher, err := pii.NewFieldCipher(material.AESKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize field cipher: %w", err)
	}
	index := pii.NewBlindIndexer(material.HMACKey)
	codec := token.NewCodec(material)

	loc, err := cfg.ActionTokenLocation()
	if err != nil {
		return nil, err
	}

	ctx := context.Background()

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, database.Options{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	cleanup := []func(){db.Close}

	closeAll := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}

	if err := db.EnsureSchema(ctx); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	clientRepo := repository.NewClientRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)
	ratingRepo := repository.NewRatingRepository(pool)
	actionTokenRepo := repository.NewActionTokenRepository(pool)
	slog.Info("database ready")

	var actionTokens service.ActionTokenStore = actionTokenRepo
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = connectRedis(ctx, cfg)
		if err != nil {
			closeAll()
			return nil, err
		}
		cleanup = append(cleanup, func() { _ = redisClient.Close() })
		actionTokens = repository.NewRedisActionTokenStore(redisClient)
	}

	bus := event.NewBus()
	auditCtx, auditCancel := context.WithCancel(context.Background())
	cleanup = append(cleanup, auditCancel)
	go service.NewAuditService(bus, slog.Default()).Run(auditCtx)

	credentials := service.NewCredentialService(userRepo, clientRepo, index)
	sessions := service.NewSessionService(credentials, codec, bus)
	actions := service.NewActionTokenService(actionTokens, loc, bus)
	accounts := service.NewAccountService(userRepo, customerRepo, cipher, index, actions, service.LogMailer{}, bus)
	ratings := service.NewRatingService(ratingRepo, actions, bus)

	if err := service.Bootstrap(ctx, service.BootstrapInput{
		CustomerName:  cfg.BootstrapCustomer,
		AdminEmail:    cfg.BootstrapAdminEmail,
		AdminPassword: cfg.BootstrapAdminPassword,
		ClientID:      cfg.BootstrapClientID,
		ClientSecret:  cfg.BootstrapClientSecret,
	}, userRepo, customerRepo, clientRepo, cipher, index); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to bootstrap accounts: %w", err)
	}

	if redisClient == nil {
		cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
		cleanup = append(cleanup, cleanupCancel)
		go service.StartCleanupTicker(cleanupCtx, actionTokenRepo, cfg.ActionTokenCleanup)
	}

	authMiddleware := middleware.NewAuthMiddleware(codec, bus)
	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth:   handler.NewAuthHandler(sessions, accounts),
		User:   handler.NewUserHandler(accounts),
		Rating: handler.NewRatingHandler(ratings),
		Health: func(ctx context.Context) error {
			if err := db.Health(ctx); err != nil {
				return err
			}
			if redisClient != nil {
				return redisClient.Ping(ctx).Err()
			}
			return nil
		},
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server:       server,
		cleanupFuncs: []func(){closeAll},
	}, nil
}

func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("action tokens stored in redis", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return client, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}
