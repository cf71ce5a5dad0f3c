package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Config struct {
	HTTPPort        string
	Store           string
	MongoURI        string
	MongoDBName     string
	RedisAddr       string
	RedisPassword   string
	RedisPrefix     string
	Tokens          string
	LogLevel        string
	Env             string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		Store:           getEnv("CART_STORE", "memory"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:     getEnv("MONGO_DB_NAME", "cartdb"),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisPrefix:     getEnv("REDIS_KEY_PREFIX", "cart:"),
		Tokens:          getEnv("CART_API_TOKENS", "dev-token:1"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Env:             getEnv("APP_ENV", "development"),
		RequestTimeout:  getEnvSeconds("REQUEST_TIMEOUT_SECONDS", 30),
		ShutdownTimeout: getEnvSeconds("SHUTDOWN_TIMEOUT_SECONDS", 10),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(defaultSeconds) * time.Second
}

func main() {
	cfg := loadConfig()
	log := logger.New(logger.Options{Service: "cart-api", Env: cfg.Env, Level: cfg.LogLevel})

	ctx := context.Background()

	repo, closeRepo, err := newRepository(ctx, cfg, log)
	if err != nil {
		log.Error("failed to set up cart repository", "store", cfg.Store, "err", err)
		os.Exit(1)
	}
	defer closeRepo()

	cartCache, closeCache, err := newCache(ctx, cfg, log)
	if err != nil {
		log.Error("redis connection failed", "addr", cfg.RedisAddr, "err", err)
		os.Exit(1)
	}
	defer closeCache()

	tokens := h.ParseStaticTokens(cfg.Tokens)
	if len(tokens) == 0 {
		log.Error("no valid tokens in CART_API_TOKENS")
		os.Exit(1)
	}

	products := catalog.NewMemoryCatalog(catalog.DefaultProducts()...)
	cartService := service.NewCartService(repo, cartCache, products, log)
	cartHandler := h.NewCartHandler(cartService, cfg.RequestTimeout, log)
	router := h.NewRouter(cartHandler, tokens, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "cart-api"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("cart api starting", "port", cfg.HTTPPort, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "err", err)
	}

	log.Info("server exited")
}

func newRepository(ctx context.Context, cfg *Config, log *slog.Logger) (repository.CartRepository, func(), error) {
	switch cfg.Store {
	case "memory":
		return repository.NewMemoryRepository(), func() {}, nil
	case "mongo":
		db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewMongoRepository(db)
		if err := repo.CreateIndexes(ctx); err != nil {
			_ = db.Client().Disconnect(ctx)
			return nil, nil, err
		}
		log.Info("connected to MongoDB", "uri", cfg.MongoURI, "db", cfg.MongoDBName)
		return repo, func() { _ = db.Client().Disconnect(context.Background()) }, nil
	default:
		return nil, nil, errors.New("CART_STORE must be memory or mongo")
	}
}

// newCache returns a redis cache when REDIS_ADDR is set and a no-op cache
// otherwise.
func newCache(ctx context.Context, cfg *Config, log *slog.Logger) (cache.CartCache, func(), error) {
	if cfg.RedisAddr == "" {
		return cache.NopCache{}, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	log.Info("redis ping succeeded", "addr", cfg.RedisAddr)
	return cache.NewRedisCache(client, cache.Options{Prefix: cfg.RedisPrefix}), func() { _ = client.Close() }, nil
}
