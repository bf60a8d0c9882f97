package container

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hibiken/asynq"

	"grimoire-backend/internal/config"
	bookHandler "grimoire-backend/internal/domains/book/handler"
	bookRepo "grimoire-backend/internal/domains/book/repository"
	bookService "grimoire-backend/internal/domains/book/service"
	userHandler "grimoire-backend/internal/domains/user/handler"
	userRepo "grimoire-backend/internal/domains/user/repository"
	userService "grimoire-backend/internal/domains/user/service"
	infraCache "grimoire-backend/internal/infrastructure/cache"
	"grimoire-backend/internal/infrastructure/database"
	"grimoire-backend/internal/infrastructure/storage"
	"grimoire-backend/pkg/cache"
	"grimoire-backend/pkg/jwt"
	"grimoire-backend/pkg/logger"
)

// Container is the root of the dependency graph. Initialization order is
// config, infrastructure, repositories, services, handlers; each layer only
// sees the one below it.
type Container struct {
	Config      *config.Config
	DB          *database.PostgresDB
	Cache       cache.Cache
	Storage     *storage.MinIOStorage
	AsynqClient *asynq.Client
	JWTManager  *jwt.Manager

	BookRepo bookRepo.RepositoryInterface
	UserRepo userRepo.RepositoryInterface

	BookService bookService.ServiceInterface
	UserService userService.ServiceInterface

	BookHandler *bookHandler.Handler
	UserHandler *userHandler.Handler
}

func NewContainer() (*Container, error) {
	c := &Container{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	c.Config = cfg

	logger.Init(cfg.App.Environment)

	db := database.NewPostgresDB(cfg.Database)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	c.DB = db

	c.Cache = infraCache.NewRedisCache(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := c.Cache.Ping(ctx); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	minioStorage, err := storage.NewMinIOStorage(cfg.MinIO)
	if err != nil {
		return nil, fmt.Errorf("connect minio: %w", err)
	}
	c.Storage = minioStorage

	c.AsynqClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host,
		Password: cfg.Redis.Password,
	})

	c.JWTManager = jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	c.BookRepo = bookRepo.NewPostgresRepository(db.Pool)
	c.UserRepo = userRepo.NewPostgresRepository(db.Pool)

	processor := storage.NewImageProcessor(cfg.Image)
	assets := bookService.NewAssetManager(c.Storage, processor, c.AsynqClient)
	aggregator := bookService.NewRatingAggregator(c.BookRepo, cfg.Rating)

	c.BookService = bookService.NewService(c.BookRepo, assets, aggregator, c.Cache, cfg.App.TopRatedLimit)
	c.UserService = userService.NewService(c.UserRepo, c.JWTManager)

	c.BookHandler = bookHandler.NewHandler(c.BookService)
	c.UserHandler = userHandler.NewHandler(c.UserService)

	logger.Info("container initialized", map[string]interface{}{
		"environment": cfg.App.Environment,
	})
	return c, nil
}

// Cleanup releases external connections in reverse initialization order.
func (c *Container) Cleanup() {
	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			logger.Error("failed to close asynq client", err)
		}
	}
	if closer, ok := c.Cache.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Error("failed to close redis", err)
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
