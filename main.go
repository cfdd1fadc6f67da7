package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"prism-dashboard/access"
	"prism-dashboard/api"
	"prism-dashboard/cache"
	"prism-dashboard/dashboard"
	"prism-dashboard/invalidation"
	"prism-dashboard/storage"
)

const shutdownTimeout = 10 * time.Second

// backend is what the dashboard needs from a project/task store.
type backend interface {
	access.ProjectStore
	dashboard.TaskStore
	api.Pinger
}

func main() {
	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := log.New()
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}
	if cfg.JSONLog {
		logger.SetFormatter(&log.JSONFormatter{})
	}
	log.SetLevel(logger.GetLevel())
	log.SetFormatter(logger.Formatter)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := initTracing(cfg.OTelStdout)
	if err != nil {
		logger.Fatalf("tracing: %v", err)
	}

	if cfg.StorageInit && cfg.StorageConn != "" {
		if err := storage.EnsureTables(ctx, cfg.StorageConn, cfg.ProjectsTable, cfg.MembersTable, cfg.TasksTable); err != nil {
			logger.Fatalf("storage init: %v", err)
		}
		if err := storage.EnsureQueue(ctx, cfg.StorageConn, cfg.ChangesQueue); err != nil {
			logger.Fatalf("storage init: %v", err)
		}
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}

	cacheStore, publisher, closeCache, err := openCache(cfg)
	if err != nil {
		logger.Fatalf("cache: %v", err)
	}
	gw := cache.NewGateway(cacheStore, logger)

	svc := dashboard.NewService(access.NewResolver(store), store, gw, cfg.CacheTTL, logger)
	invalidator := dashboard.NewInvalidator(gw, logger)

	auth, err := newAuth(cfg)
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}

	e := api.NewServer(api.ServerConfig{
		Dashboard: svc,
		Auth:      auth,
		Pingers:   map[string]api.Pinger{"store": store, "cache": cacheStore},
		Logger:    logger,
	})
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	consumerDone := make(chan struct{})
	if cfg.ChangesQueue != "" {
		queue, err := storage.NewChangeQueue(cfg.StorageConn, cfg.ChangesQueue)
		if err != nil {
			logger.Fatalf("changes queue: %v", err)
		}
		opts := []invalidation.Option{invalidation.WithLogger(logger)}
		if publisher != nil && cfg.InvalidationChannel != "" {
			opts = append(opts, invalidation.WithPublisher(publisher, cfg.InvalidationChannel))
		}
		consumer := invalidation.NewConsumer(queue, invalidator, opts...)
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(ctx); err != nil {
				logger.WithError(err).Error("change consumer stopped")
			}
		}()
	} else {
		close(consumerDone)
		logger.Warn("CHANGES_QUEUE not set; cached dashboards expire by TTL only")
	}

	go func() {
		logger.WithField("addr", cfg.ListenAddr).Info("dashboard api listening")
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("http server")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http shutdown")
	}
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		logger.Warn("change consumer did not stop in time")
	}
	if err := closeCache(); err != nil {
		logger.WithError(err).Warn("close cache")
	}
	if err := closeStore(shutdownCtx); err != nil {
		logger.WithError(err).Warn("close store")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.WithError(err).Warn("tracing shutdown")
	}
}

func openStore(ctx context.Context, cfg config) (backend, func(context.Context) error, error) {
	switch cfg.StoreBackend {
	case backendMongo:
		s, err := storage.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		s, err := storage.NewTableStore(cfg.StorageConn, storage.TableNames{
			Projects: cfg.ProjectsTable,
			Members:  cfg.MembersTable,
			Tasks:    cfg.TasksTable,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func(context.Context) error { return nil }, nil
	}
}

type pingableStore interface {
	cache.Store
	api.Pinger
}

func openCache(cfg config) (pingableStore, invalidation.Publisher, func() error, error) {
	if cfg.CacheBackend == backendMemory {
		return cache.NewMemoryStore(), nil, func() error { return nil }, nil
	}
	opts, err := cache.ParseRedisOptions(cfg.RedisConn)
	if err != nil {
		return nil, nil, nil, err
	}
	rc := redis.NewClient(opts)
	rs := cache.NewRedisStore(rc)
	return rs, rs, rc.Close, nil
}

func newAuth(cfg config) (*api.Auth, error) {
	if cfg.TestMode {
		return api.NewAuth(nil, api.AuthConfig{
			Audience:   cfg.Auth0Audience,
			RoleClaim:  cfg.RoleClaim,
			TestSecret: []byte(cfg.TestJWTSecret),
		}), nil
	}
	jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", cfg.Auth0Domain)
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{RefreshInterval: time.Hour})
	if err != nil {
		return nil, fmt.Errorf("jwks: %w", err)
	}
	return api.NewAuth(jwks, api.AuthConfig{
		Audience:    cfg.Auth0Audience,
		Issuer:      "https://" + cfg.Auth0Domain + "/",
		RoleClaim:   cfg.RoleClaim,
		KeyCacheTTL: cfg.JWKSCacheTTL,
	}), nil
}
