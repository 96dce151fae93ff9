package main

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"booklog/internal/auth"
	"booklog/internal/cache"
	"booklog/internal/config"
	"booklog/internal/covers"
	"booklog/internal/db"
	"booklog/internal/handler"
	"booklog/internal/model"
	"booklog/internal/repository"
	"booklog/internal/router"
	"booklog/internal/service"
	"booklog/internal/view"
)

func main() {
	cfg := config.Load()

	e := echo.New()
	e.Use(middleware.RequestID())

	renderer, err := view.NewRenderer()
	if err != nil {
		log.Fatalf("templates: %v", err)
	}
	e.Renderer = renderer

	gormDB, err := db.NewPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	if err := gormDB.AutoMigrate(&model.User{}, &model.Book{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	cacheClient := cache.New(redisClient)

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	bookRepo := repository.NewBookRepository(gormDB)

	// Initialize auth components
	tokenService := auth.NewTokenService(cfg.SessionSecret, cfg.SessionTTL)
	sessionStore := auth.NewSessionStore(redisClient)
	sessions := auth.NewSessionManager(tokenService, sessionStore)
	googleProvider := auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)

	// Initialize services
	coverClient := covers.NewClient(cfg.CoverSearchURL, cfg.CoverTimeout, cacheClient)
	authService := service.NewAuthService(userRepo)
	bookService := service.NewBookService(bookRepo, coverClient)

	// Initialize handlers
	pageHandler := handler.NewPageHandler()
	authHandler := handler.NewAuthHandler(authService, sessions, googleProvider, cfg.SessionTTL)
	bookHandler := handler.NewBookHandler(bookService)

	// Register routes
	router.Register(e, cfg, sessions, pageHandler, authHandler, bookHandler)

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
