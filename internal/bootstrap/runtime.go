// Package bootstrap wires configuration, storage and services together.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"chirp/internal/cache"
	"chirp/internal/config"
	"chirp/internal/database"
	"chirp/internal/observability"
	"chirp/internal/repository"
	"chirp/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	ServiceName string
	// ImageHost receives uploads; nil disables image attachments.
	ImageHost service.ImageHost
}

// Services groups the consistency core.
type Services struct {
	Content    *service.ContentService
	Engagement *service.EngagementService
	Graph      *service.GraphService
	Feed       *service.FeedService
	Users      *service.UserService
}

// Runtime is everything a process needs after startup.
type Runtime struct {
	Config   *config.Config
	DB       *gorm.DB
	Redis    *redis.Client
	Services *Services

	shutdownTracing func(context.Context) error
}

// NewServices builds every service on top of db.
func NewServices(db *gorm.DB, images service.ImageHost, cfg *config.Config) *Services {
	posts := repository.NewPostRepository(db)
	comments := repository.NewCommentRepository(db)
	likes := repository.NewLikeRepository(db)
	follows := repository.NewFollowRepository(db)
	claims := repository.NewUsernameClaimRepository(db)
	users := repository.NewUserRepository(db)

	return &Services{
		Content:    service.NewContentService(posts, comments, likes, images, cfg),
		Engagement: service.NewEngagementService(posts, likes),
		Graph:      service.NewGraphService(follows, claims, users, cfg),
		Feed:       service.NewFeedService(posts, cfg),
		Users:      service.NewUserService(users, claims, images, cfg),
	}
}

// InitRuntime sets up logging and tracing, connects to the database and
// Redis, and builds the services. Redis is optional.
func InitRuntime(cfg *config.Config, opts Options) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	observability.InitLogger(cfg.Env, cfg.LogLevel)

	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = "chirp"
	}
	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:  serviceName,
		Environment:  cfg.Env,
		Enabled:      cfg.TracingEnabled,
		Exporter:     cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplerRatio: cfg.TracingSamplerRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		_ = shutdown(context.Background())
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)

	return &Runtime{
		Config:          cfg,
		DB:              db,
		Redis:           cache.GetClient(),
		Services:        NewServices(db, opts.ImageHost, cfg),
		shutdownTracing: shutdown,
	}, nil
}

// Close releases connections and flushes traces.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
		cache.SetClient(nil)
	}
	if replica := database.GetReadDB(); replica != nil {
		if sqlDB, err := replica.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
		database.SetReadDB(nil)
	}
	if r.DB != nil {
		if sqlDB, err := r.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if r.shutdownTracing != nil {
		errs = append(errs, r.shutdownTracing(ctx))
	}
	err := errors.Join(errs...)
	if err != nil {
		observability.Logger.WarnContext(ctx, "runtime shutdown incomplete", slog.String("error", err.Error()))
	}
	return err
}
