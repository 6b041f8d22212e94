package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizforge/internal/cache"
	"quizforge/internal/config"
	"quizforge/internal/database"
	"quizforge/internal/domain"
	"quizforge/internal/handler"
	"quizforge/internal/logger"
	"quizforge/internal/middleware"
	"quizforge/internal/repository"
	"quizforge/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get()

	db, err := database.ConnectDatabase(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to connect question database", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	tagService := service.NewTagService(repository.NewTagStore(), nil)
	questionRepo := repository.NewQuestionDatabaseAdapter(db, tagService)
	tagService.SetQuestionRepository(questionRepo)

	tagFile := repository.NewFileTagStore(cfg.Storage.TagsPath)
	persistedTags, err := tagFile.Load()
	if err != nil {
		log.Fatal("Failed to load tag hierarchy", zap.Error(err))
	}
	tagService.ImportTags(persistedTags)
	tagService.SetPersister(tagFile)

	sessionRepo, err := buildSessionRepository(cfg)
	if err != nil {
		log.Fatal("Failed to set up session store", zap.Error(err))
	}

	generator := service.NewGenerator(questionRepo, tagService)
	sessionService, err := service.NewSessionService(sessionRepo, generator, service.NewScorer())
	if err != nil {
		log.Fatal("Failed to restore session state", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorHandler: middleware.ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(requestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")
	handler.NewTagHandler(tagService).RegisterRoutes(api)
	handler.NewQuizHandler(sessionService).RegisterRoutes(api)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Info("Starting server", zap.String("addr", addr))
		return app.Listen(addr)
	})
	g.Go(func() error {
		return runSessionSweeper(ctx, sessionService, cfg.Sweep)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down server")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Fatal("Server terminated", zap.Error(err))
	}
	log.Info("Server stopped")
}

// buildSessionRepository picks the session backend from configuration: the
// JSON file store by default, redis when several instances share state.
func buildSessionRepository(cfg *config.Config) (domain.SessionRepository, error) {
	switch cfg.Storage.Backend {
	case "redis":
		client, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		return repository.NewRedisSessionStore(client), nil
	case "file", "":
		return repository.NewFileSessionStore(cfg.Storage.SessionsPath)
	case "memory":
		return repository.NewMemorySessionStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}

// runSessionSweeper periodically expires abandoned sessions.
func runSessionSweeper(ctx context.Context, sessions *service.SessionService, cfg config.SweepConfig) error {
	if cfg.Interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed, err := sessions.ExpireStaleSessions(cfg.MaxAge)
			if err != nil {
				logger.Get().Warn("Session sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Get().Info("Swept stale sessions", zap.Int("removed", removed))
			}
		}
	}
}

func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Get().Info("Request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)))
		return err
	}
}
