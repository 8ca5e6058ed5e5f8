package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"bookhub/database"
	"bookhub/internal/config"
	"bookhub/internal/http-api/handler"
	"bookhub/internal/http-api/middleware"
	"bookhub/internal/http-api/repository"
	"bookhub/internal/http-api/service"
	"bookhub/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := newLogger(cfg)

	db, err := database.Connect(cfg, logger)
	if err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}

	if err := database.Seed(db, logger); err != nil {
		log.Fatalf("could not seed database: %v", err)
	}
	if cfg.SeedDemoData {
		if err := database.SeedDemoUsers(db, logger); err != nil {
			log.Fatalf("could not seed demo users: %v", err)
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Fatalf("could not connect to redis: %v", err)
	}

	covers, err := storage.NewMinioStore(
		cfg.MinioEndpoint,
		cfg.MinioAccessKey,
		cfg.MinioSecretKey,
		cfg.MinioBucket,
		cfg.MinioUseSSL,
	)
	if err != nil {
		log.Fatalf("could not connect to object storage: %v", err)
	}

	// repositories
	bookRepo := repository.NewBookRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	publisherRepo := repository.NewPublisherRepository(db)
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(redisClient)

	// services
	bookService := service.NewBookService(bookRepo, categoryRepo, publisherRepo, userRepo, covers, logger)
	authService := service.NewAuthService(userRepo, refreshTokenRepo, cfg)

	// handlers
	bookHandler := handler.NewBookHandler(bookService)
	authHandler := handler.NewAuthHandler(authService, cfg.AccessTokenTTL)
	lookupHandler := handler.NewLookupHandler(categoryRepo, publisherRepo, userRepo)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Use(middleware.RateLimit(rate.Limit(5), 10))
	authHandler.RegisterRoutes(authRoutes)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(authService))
	bookHandler.RegisterRoutes(protected.Group("/books"))
	lookupHandler.RegisterRoutes(protected)

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	logger.Info("Starting API server", "addr", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
