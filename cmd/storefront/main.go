package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Julien-B-py/online-shop/internal/account"
	"github.com/Julien-B-py/online-shop/internal/cartstore"
	"github.com/Julien-B-py/online-shop/internal/catalog"
	"github.com/Julien-B-py/online-shop/internal/checkout"
	"github.com/Julien-B-py/online-shop/internal/orders"
	"github.com/Julien-B-py/online-shop/internal/payment"
	"github.com/Julien-B-py/online-shop/internal/web"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	HTTPPort      string
	PublicBaseURL string

	CatalogPath string

	RedisAddr     string
	RedisPassword string

	AccountsDBPath      string
	AccountsMigrations  string
	CheckoutMigrations  string
	PostgresHost        string
	PostgresPort        int
	PostgresUser        string
	PostgresPassword    string
	PostgresDB          string
	KafkaBrokers        []string
	MongoURI            string
	MongoDBName         string
	PaymentProviderURL  string
	PaymentProviderKey  string
	RequestTimeout      time.Duration
	ShutdownTimeout     time.Duration
}

func loadConfig() *Config {
	pgPort, err := strconv.Atoi(getEnv("POSTGRES_PORT", "5432"))
	if err != nil {
		log.Fatalf("bad POSTGRES_PORT: %v", err)
	}

	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		PublicBaseURL:      getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		CatalogPath:        getEnv("CATALOG_PATH", "catalog.csv"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		AccountsDBPath:     getEnv("ACCOUNTS_DB_PATH", "accounts.db"),
		AccountsMigrations: getEnv("ACCOUNTS_MIGRATIONS", "migrations/accounts"),
		CheckoutMigrations: getEnv("CHECKOUT_MIGRATIONS", "migrations/checkout"),
		PostgresHost:       getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:       pgPort,
		PostgresUser:       getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword:   getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:         getEnv("POSTGRES_DB", "checkoutdb"),
		KafkaBrokers:       []string{getEnv("KAFKA_BROKER", "localhost:9092")},
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:        getEnv("MONGO_DB_NAME", "shopdb"),
		PaymentProviderURL: getEnv("PAYMENT_PROVIDER_URL", "http://localhost:8081"),
		PaymentProviderKey: getEnv("PAYMENT_PROVIDER_KEY", ""),
		RequestTimeout:     30 * time.Second,
		ShutdownTimeout:    10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// The catalog loads exactly once; a bad source must never serve.
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	log.Printf("Catalog loaded: %d items from %s", cat.Len(), cfg.CatalogPath)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}
	log.Printf("Connected to redis at %s", cfg.RedisAddr)

	accountRepo, err := account.NewRepository(cfg.AccountsDBPath)
	if err != nil {
		log.Fatalf("Failed to open accounts database: %v", err)
	}
	defer accountRepo.Close()
	if err := accountRepo.RunMigrations(cfg.AccountsMigrations); err != nil {
		log.Fatalf("Failed to migrate accounts database: %v", err)
	}

	checkoutCreds := &checkout.Credentials{
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPassword,
		DBName:            cfg.PostgresDB,
		MigrationsDirPath: cfg.CheckoutMigrations,
	}
	checkoutRepo, err := checkout.NewRepository(checkoutCreds)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer checkoutRepo.Close()
	if err := checkoutRepo.RunMigrations(checkoutCreds); err != nil {
		log.Fatalf("Failed to migrate checkout database: %v", err)
	}
	log.Printf("Connected to postgres at %s:%d", cfg.PostgresHost, cfg.PostgresPort)

	mongoDB, err := orders.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Client().Disconnect(ctx)
	orderRepo, err := orders.NewMongoRepository(ctx, mongoDB)
	if err != nil {
		log.Fatalf("Failed to set up order repository: %v", err)
	}
	log.Printf("Connected to MongoDB at %s", cfg.MongoURI)

	// Cart storage: anonymous carts in redis, account carts in sqlite
	// behind a redis read-through cache.
	carts := &cartstore.Split{
		Anon: cartstore.NewRedisStore(redisClient),
		Auth: cartstore.NewCachedStore(
			cartstore.NewAccountStore(accountRepo),
			cartstore.NewRedisCache(redisClient),
		),
	}

	provider := payment.NewClient(cfg.PaymentProviderURL, cfg.PaymentProviderKey)
	checkoutService := checkout.NewService(checkoutRepo, carts, cat, provider, cfg.PublicBaseURL)

	poller := checkout.NewOutboxPoller(checkoutRepo, cfg.KafkaBrokers...)
	go poller.Run(ctx)

	consumer := orders.NewConsumer(orderRepo, cfg.KafkaBrokers...)
	defer consumer.Close()
	go consumer.Run(ctx)

	sessions := web.NewRedisSessions(redisClient)
	router := web.NewRouter(web.RouterConfig{
		Catalog:  web.NewCatalogHandler(cat),
		Cart:     web.NewCartHandler(carts, cat),
		Account:  web.NewAccountHandler(accountRepo, sessions, carts),
		Checkout: web.NewCheckoutHandler(checkoutService),
		Orders:   web.NewOrdersHandler(orderRepo),
		Sessions: sessions,
		Timeout:  cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Storefront listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down storefront...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("storefront stopped")
}
