package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/closeio/authalligator/internal/application/account"
	"github.com/closeio/authalligator/internal/application/account/dto"
	"github.com/closeio/authalligator/internal/shared/logger"
	"github.com/closeio/authalligator/internal/shared/utils"
)

type accountService interface {
	BeginAuthorization(ctx context.Context, provider string) (*dto.AuthorizationResponse, error)
	CompleteAuthorization(ctx context.Context, req account.CompleteAuthorizationRequest) (*dto.LinkedAccountResponse, error)
	AccessToken(ctx context.Context, provider, username string, scopes ...string) (*dto.AccessTokenResponse, error)
	Verify(ctx context.Context, provider, username string) (*dto.LinkedAccountResponse, error)
	DeleteOtherKeys(ctx context.Context, provider, username string) (*dto.LinkedAccountResponse, error)
	Disconnect(ctx context.Context, provider, username string) error
	DeleteAccount(ctx context.Context, provider, username string) error
	List(ctx context.Context) ([]*dto.LinkedAccountResponse, error)
}

type AccountHandler struct {
	service accountService
	logger  logger.Interface
}

func NewAccountHandler(service accountService, logger logger.Interface) *AccountHandler {
	return &AccountHandler{service: service, logger: logger}
}

// HealthCheck reports that the process is serving.
func (h *AccountHandler) HealthCheck(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "ok", gin.H{"status": "healthy"})
}

// InitiateOAuth redirects the browser to the provider's consent page.
func (h *AccountHandler) InitiateOAuth(c *gin.Context) {
	provider := c.Param("provider")

	result, err := h.service.BeginAuthorization(c.Request.Context(), provider)
	if err != nil {
		h.logger.Warnw("OAuth initiation failed", "error", err, "provider", provider)
		utils.ErrorResponseWithError(c, err)
		return
	}

	c.Redirect(http.StatusFound, result.AuthURL)
}

// HandleOAuthCallback finishes the consent flow started by InitiateOAuth.
func (h *AccountHandler) HandleOAuthCallback(c *gin.Context) {
	req := account.CompleteAuthorizationRequest{
		Provider: c.Param("provider"),
		Code:     c.Query("code"),
		State:    c.Query("state"),
		Error:    c.Query("error"),
	}
	if desc := c.Query("error_description"); req.Error != "" && desc != "" {
		req.Error += ": " + desc
	}

	linked, err := h.service.CompleteAuthorization(c.Request.Context(), req)
	if err != nil {
		h.logger.Warnw("OAuth callback failed", "error", err, "provider", req.Provider)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "account linked", linked)
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.service.List(c.Request.Context())
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", accounts)
}

// GetAccessToken accepts scopes as repeated or comma separated ?scope= values.
func (h *AccountHandler) GetAccessToken(c *gin.Context) {
	var scopes []string
	for _, raw := range c.QueryArray("scope") {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				scopes = append(scopes, s)
			}
		}
	}

	token, err := h.service.AccessToken(c.Request.Context(), c.Param("provider"), c.Param("username"), scopes...)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	utils.SuccessResponse(c, http.StatusOK, "", token)
}

func (h *AccountHandler) VerifyAccount(c *gin.Context) {
	linked, err := h.service.Verify(c.Request.Context(), c.Param("provider"), c.Param("username"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "account verified", linked)
}

func (h *AccountHandler) DeleteOtherKeys(c *gin.Context) {
	linked, err := h.service.DeleteOtherKeys(c.Request.Context(), c.Param("provider"), c.Param("username"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "other account keys deleted", linked)
}

func (h *AccountHandler) DeleteAccountKey(c *gin.Context) {
	if err := h.service.Disconnect(c.Request.Context(), c.Param("provider"), c.Param("username")); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.NoContentResponse(c)
}

func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	if err := h.service.DeleteAccount(c.Request.Context(), c.Param("provider"), c.Param("username")); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.NoContentResponse(c)
}
