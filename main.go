package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/legalclear/backend/config"
	"github.com/legalclear/backend/handler"
	"github.com/legalclear/backend/middleware"
	"github.com/legalclear/backend/pkg/logger"
	"github.com/legalclear/backend/service"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	// Document store: Postgres when configured, in-memory otherwise
	var store service.Store
	if cfg.Database.DSN != "" {
		db, err := service.OpenDatabase(cfg.Database.DSN, cfg.Database.AutoMigrate)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		store = service.NewGormStore(db)
		slog.Info("using postgres document store")
	} else {
		store = service.NewMemoryStore()
		slog.Warn("no database configured, using in-memory store")
	}

	// Object storage for original files, optional
	var minioSvc *service.MinioService
	if cfg.Minio.Endpoint != "" {
		minioSvc, err = service.NewMinioService(&cfg.Minio)
		if err != nil {
			slog.Error("failed to initialize minio service", "error", err)
			os.Exit(1)
		}
		if err := minioSvc.EnsureBucket(context.Background()); err != nil {
			slog.Error("failed to ensure minio bucket", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("no object storage configured, original files will not be retained")
	}

	// Redis chat history cache, optional
	var chatCache *service.ChatCache
	if cfg.Redis.Addr != "" {
		chatCache, err = service.NewChatCache(&cfg.Redis)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer chatCache.Close()
	}

	// Language model collaborator; without an API key the analyzer and chat
	// fall back to heuristics
	var llm service.Collaborator
	if cfg.Gemini.APIKey != "" {
		llm = service.NewGeminiService(&cfg.Gemini)
	} else {
		slog.Warn("no gemini api key configured, analysis will use heuristics only")
	}

	extractor := service.NewExtractor(cfg.MaxUploadBytes())
	analyzer := service.NewAnalyzer(llm)
	lifecycle := service.NewLifecycle(store, extractor, analyzer, minioSvc,
		time.Duration(cfg.Gemini.AnalysisTimeoutSeconds)*time.Second)
	chatSvc := service.NewChatService(store, llm, chatCache)

	authHandler := handler.NewAuthHandler(cfg)
	documentHandler := handler.NewDocumentHandler(lifecycle, chatSvc, cfg.MaxUploadBytes())
	chatHandler := handler.NewChatHandler(chatSvc)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(corsMiddleware(cfg))
	router.Use(middleware.RateLimit(100, time.Minute))

	// Serve the single-page client when a static directory is configured
	if cfg.Server.StaticDir != "" {
		router.Static("/static", cfg.Server.StaticDir)
		router.StaticFile("/", cfg.Server.StaticDir+"/index.html")
	}

	// Liveness probe, outside the /api prefix
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api")
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("/")
	if len(cfg.Users) > 0 {
		protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	}
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)
		protected.POST("/documents/upload", documentHandler.Upload)
		protected.GET("/documents", documentHandler.List)
		protected.GET("/documents/:id", documentHandler.Get)
		protected.GET("/documents/:id/status", documentHandler.GetStatus)
		protected.GET("/documents/:id/analysis", documentHandler.GetAnalysis)
		protected.GET("/documents/:id/download", documentHandler.Download)
		protected.DELETE("/documents/:id", documentHandler.Delete)
		protected.POST("/documents/:id/chat", chatHandler.PostMessage)
		protected.GET("/documents/:id/chat", chatHandler.GetHistory)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsCfg := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.Server.CORSOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	corsCfg.ExposeHeaders = []string{"X-Request-ID"}
	return cors.New(corsCfg)
}
