package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/closeio/authalligator/internal/interfaces/http/handlers"
	"github.com/closeio/authalligator/internal/interfaces/http/middleware"
)

// AccountRouteConfig holds dependencies for the account API.
type AccountRouteConfig struct {
	AccountHandler     *handlers.AccountHandler
	APITokenMiddleware *middleware.APITokenMiddleware
}

// SetupOAuthRoutes configures the browser-facing consent routes.
func SetupOAuthRoutes(engine *gin.Engine, h *handlers.AccountHandler, rateLimiter *middleware.RateLimiter) {
	oauth := engine.Group("/oauth")
	oauth.Use(rateLimiter.Limit())
	{
		oauth.GET("/:provider", h.InitiateOAuth)
		oauth.GET("/:provider/callback", h.HandleOAuthCallback)
	}
}

// SetupAccountRoutes configures the token-protected account API.
func SetupAccountRoutes(engine *gin.Engine, cfg *AccountRouteConfig) {
	accounts := engine.Group("/accounts")
	accounts.Use(cfg.APITokenMiddleware.RequireToken())
	{
		accounts.GET("", cfg.AccountHandler.ListAccounts)
		accounts.GET("/:provider/:username/token", cfg.AccountHandler.GetAccessToken)
		accounts.POST("/:provider/:username/verify", cfg.AccountHandler.VerifyAccount)
		accounts.DELETE("/:provider/:username/keys/others", cfg.AccountHandler.DeleteOtherKeys)
		accounts.DELETE("/:provider/:username/key", cfg.AccountHandler.DeleteAccountKey)
		accounts.DELETE("/:provider/:username", cfg.AccountHandler.DeleteAccount)
	}
}
