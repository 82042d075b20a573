package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/closeio/authalligator/internal/application/account"
	"github.com/closeio/authalligator/internal/infrastructure/auth"
	"github.com/closeio/authalligator/internal/infrastructure/cache"
	"github.com/closeio/authalligator/internal/infrastructure/config"
	"github.com/closeio/authalligator/internal/infrastructure/ratelimit"
	"github.com/closeio/authalligator/internal/infrastructure/repository"
	"github.com/closeio/authalligator/internal/interfaces/http/handlers"
	"github.com/closeio/authalligator/internal/interfaces/http/middleware"
	"github.com/closeio/authalligator/internal/shared/logger"
)

const (
	oauthStatePrefix = "authalligator:oauth:state:"
	rateLimitPrefix  = "authalligator:ratelimit:oauth:"
)

// Container wires the account-link server together and owns the
// connections it was given.
type Container struct {
	db     *gorm.DB
	redis  *redis.Client
	log    logger.Interface
	router *Router

	accountService *account.Service
}

// NewContainer builds repositories, stores, the account service and the
// router. client is usually an *authalligator.Client.
func NewContainer(cfg *config.Config, db *gorm.DB, rdb *redis.Client, client account.AccountClient, log logger.Interface) (*Container, error) {
	accountRepo := repository.NewLinkedAccountRepository(db, log.With("component", "linked_account_repository"))
	if err := accountRepo.AutoMigrate(); err != nil {
		return nil, err
	}

	stateStore := cache.NewRedisStateStore(rdb, oauthStatePrefix, cfg.OAuth.StateTTL())
	urlBuilder := auth.NewAuthURLBuilder(cfg.OAuth, cfg.Server.CallbackURL)
	if configured := urlBuilder.Configured(); len(configured) == 0 {
		log.Warnw("no oauth provider configured, consent redirects are disabled")
	} else {
		log.Infow("oauth providers configured", "providers", configured)
	}

	accountService := account.NewService(client, accountRepo, stateStore, urlBuilder, log.With("component", "account_service"))
	accountHandler := handlers.NewAccountHandler(accountService, log.With("component", "account_handler"))
	apiToken := middleware.NewAPITokenMiddleware(cfg.Server.APIToken, log)
	if cfg.Server.APIToken == "" {
		log.Warnw("server.api_token is empty, /accounts is not protected")
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.Server.OAuthRateLimit > 0 {
		rateLimiter = middleware.NewRateLimiter(
			ratelimit.NewRedisRateLimiter(rdb, rateLimitPrefix),
			cfg.Server.OAuthRateLimit,
			time.Minute,
			log,
		)
	}

	router := NewRouter(accountHandler, apiToken, rateLimiter, log)
	router.SetupRoutes()

	return &Container{
		db:             db,
		redis:          rdb,
		log:            log,
		router:         router,
		accountService: accountService,
	}, nil
}

// Engine returns the configured gin engine.
func (c *Container) Engine() *gin.Engine {
	return c.router.GetEngine()
}

// AccountService exposes the service for callers outside HTTP.
func (c *Container) AccountService() *account.Service {
	return c.accountService
}

// Shutdown closes the Redis client and the database pool.
func (c *Container) Shutdown() error {
	var errs []error

	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}

	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err == nil {
			err = sqlDB.Close()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		c.log.Errorw("shutdown finished with errors", "error", err)
		return err
	}
	c.log.Infow("connections closed")
	return nil
}
