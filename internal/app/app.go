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

	"go-micropost/internal/config"
	"go-micropost/internal/database"
	"go-micropost/internal/event"
	"go-micropost/internal/handler"
	"go-micropost/internal/middleware"
	"go-micropost/internal/repository"
	"go-micropost/internal/router"
	"go-micropost/internal/service"
	"go-micropost/internal/storage"
	"go-micropost/internal/token"
	"go-micropost/internal/websocket"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	media, err := storage.New(cfg.MediaRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media store: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	micropostRepo := repository.NewMicropostRepository(pool)
	relationshipRepo := repository.NewRelationshipRepository(pool)
	likeRepo := repository.NewLikeRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	slog.Info("database ready")

	tokens, err := token.NewManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize token manager: %w", err)
	}

	bus := event.NewBus()
	hub := websocket.NewHub(bus)
	go hub.Run()

	authService := service.NewAuthService(userRepo, tokens, bus)
	userService := service.NewUserService(userRepo, media)
	micropostService := service.NewMicropostService(micropostRepo, likeRepo, commentRepo, media, bus)
	relationshipService := service.NewRelationshipService(relationshipRepo, userRepo, bus)
	adminService := service.NewAdminService(userRepo, micropostRepo, relationshipRepo, auditRepo)

	guard := middleware.NewAuthMiddleware(tokens, cfg.CookieName)

	appRouter := router.New(cfg, guard, router.Handlers{
		Health:       handler.NewHealthHandler(db),
		Auth:         handler.NewAuthHandler(authService, cfg.CookieName, cfg.Production()),
		User:         handler.NewUserHandler(userService, cfg.MaxUploadSize),
		Micropost:    handler.NewMicropostHandler(micropostService, cfg.MaxUploadSize),
		Relationship: handler.NewRelationshipHandler(relationshipService),
		Admin:        handler.NewAdminHandler(adminService),
		Docs:         handler.NewDocsHandler("./docs/openapi.yaml"),
	}, hub)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			func() {
				db.Close()
			},
		},
	}, nil
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

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
