package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/cache"
	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/catalog"
	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/events"
	h "github.com/NarakCODE/unique-brew-cafe-sub002/internal/http"
	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/repository"
	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/service"
)

type Config struct {
	HTTPPort           string
	MongoURI           string
	MongoDBName        string
	RedisAddr          string
	KafkaBrokers       []string
	CatalogBaseURL     string
	JWTSecret          string
	AppEnv             string
	TaxRate            float64
	SessionTTL         time.Duration
	CancellationWindow time.Duration
	AbandonedCartTTL   time.Duration
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:        getEnv("MONGO_DB_NAME", "brewcafe"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		CatalogBaseURL:     getEnv("CATALOG_BASE_URL", "http://localhost:8081"),
		JWTSecret:          getEnv("JWT_SECRET", "dev-secret"),
		AppEnv:             getEnv("APP_ENV", "development"),
		TaxRate:            getEnvFloat("TAX_RATE", 0.10),
		SessionTTL:         getEnvMinutes("SESSION_TTL_MINUTES", 15),
		CancellationWindow: getEnvMinutes("CANCEL_WINDOW_MINUTES", 5),
		AbandonedCartTTL:   getEnvMinutes("ABANDONED_CART_TTL_MINUTES", 7*24*60),
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("invalid value for %s, using default", key)
	}
	return defaultValue
}

func getEnvMinutes(key string, defaultValue int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if m, err := strconv.Atoi(value); err == nil {
			return time.Duration(m) * time.Minute
		}
		log.Printf("invalid value for %s, using default", key)
	}
	return time.Duration(defaultValue) * time.Minute
}

func main() {
	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := db.Client().Disconnect(context.Background()); err != nil {
			log.Printf("failed to disconnect MongoDB: %v", err)
		}
	}()

	if err := repository.EnsureIndexes(ctx, db, cfg.AbandonedCartTTL); err != nil {
		log.Fatalf("failed to create indexes: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	dispatcher := events.NewDispatcher(cfg.KafkaBrokers...)
	defer dispatcher.Close()

	catalogClient := catalog.NewClient(cfg.CatalogBaseURL)

	cartRepo := repository.NewMongoCartRepository(db)
	sessionRepo := repository.NewMongoSessionRepository(db)
	promoRepo := repository.NewMongoPromoRepository(db)
	orderRepo := repository.NewMongoOrderRepository(db)

	cartCache := cache.NewRedisCache(redisClient)

	cartSvc := service.NewCartService(cartRepo, cartCache, catalogClient, catalogClient, cfg.TaxRate)
	checkoutSvc := service.NewCheckoutService(sessionRepo, cartRepo, promoRepo, orderRepo, cartSvc, catalogClient, dispatcher, service.CheckoutConfig{
		SessionTTL: cfg.SessionTTL,
		TaxRate:    cfg.TaxRate,
	})

	// Real gateway adapter goes here once one exists; every other
	// environment auto-approves.
	var provider service.PaymentProvider = service.ApproveAllProvider{}
	paymentSvc := service.NewPaymentService(orderRepo, provider, dispatcher, cfg.AppEnv)
	orderSvc := service.NewOrderService(orderRepo, dispatcher, cfg.CancellationWindow)

	router := h.NewRouter(
		h.RouterConfig{
			JWTSecret:      cfg.JWTSecret,
			EnableMockPay:  cfg.AppEnv != "production",
			RequestTimeout: cfg.RequestTimeout,
		},
		h.NewCartHandler(cartSvc),
		h.NewCheckoutHandler(checkoutSvc),
		h.NewPaymentHandler(paymentSvc),
		h.NewOrderHandler(orderSvc),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "ordering-api"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("ordering API starting on :%s (env=%s)", cfg.HTTPPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server stopped")
}
