package http

import (
	"github.com/gin-gonic/gin"

	"github.com/closeio/authalligator/internal/interfaces/http/handlers"
	"github.com/closeio/authalligator/internal/interfaces/http/middleware"
	"github.com/closeio/authalligator/internal/interfaces/http/routes"
	"github.com/closeio/authalligator/internal/shared/logger"
)

// Router represents the HTTP router configuration
type Router struct {
	engine             *gin.Engine
	accountHandler     *handlers.AccountHandler
	apiTokenMiddleware *middleware.APITokenMiddleware
	rateLimiter        *middleware.RateLimiter
	logger             logger.Interface
}

func NewRouter(
	accountHandler *handlers.AccountHandler,
	apiToken *middleware.APITokenMiddleware,
	rateLimiter *middleware.RateLimiter,
	log logger.Interface,
) *Router {
	return &Router{
		engine:             gin.New(),
		accountHandler:     accountHandler,
		apiTokenMiddleware: apiToken,
		rateLimiter:        rateLimiter,
		logger:             log,
	}
}

// SetupRoutes configures all HTTP routes
func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Logger(r.logger))
	r.engine.Use(middleware.Recovery(r.logger))

	r.engine.GET("/health", r.accountHandler.HealthCheck)

	routes.SetupOAuthRoutes(r.engine, r.accountHandler, r.rateLimiter)
	routes.SetupAccountRoutes(r.engine, &routes.AccountRouteConfig{
		AccountHandler:     r.accountHandler,
		APITokenMiddleware: r.apiTokenMiddleware,
	})
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
