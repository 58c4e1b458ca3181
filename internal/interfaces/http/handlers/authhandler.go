package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stratum/internal/infrastructure/auth"
	"stratum/internal/shared/logger"
	"stratum/internal/shared/utils"
)

// AuthHandler exchanges the operator API key for an access/refresh
// token pair and rotates refresh tokens. Tenant-session tokens for the
// data path are minted by the product services sharing the signing
// secret; this surface only serves operators of the admin API.
type AuthHandler struct {
	tokens     tokenIssuer
	verifier   apiKeyVerifier
	apiKeyHash string
	logger     logger.Interface
}

// NewAuthHandler creates an auth handler. An empty apiKeyHash disables
// the token exchange.
func NewAuthHandler(tokens tokenIssuer, verifier apiKeyVerifier, apiKeyHash string, logger logger.Interface) *AuthHandler {
	return &AuthHandler{
		tokens:     tokens,
		verifier:   verifier,
		apiKeyHash: apiKeyHash,
		logger:     logger,
	}
}

type TokenRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Token handles POST /api/v1/auth/token.
func (h *AuthHandler) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if h.apiKeyHash == "" {
		utils.ErrorResponse(c, http.StatusUnauthorized, "api key auth is not configured")
		return
	}

	if err := h.verifier.Verify(req.APIKey, h.apiKeyHash); err != nil {
		h.logger.Warnw("rejected api key exchange", "client_ip", c.ClientIP())
		utils.ErrorResponse(c, http.StatusUnauthorized, "invalid api key")
		return
	}

	pair, err := h.tokens.Generate("operator", "", auth.RoleAdmin)
	if err != nil {
		h.logger.Errorw("failed to issue token pair", "error", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to issue tokens")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", toTokenResponse(pair))
}

// Refresh handles POST /api/v1/auth/refresh. Refresh tokens rotate:
// the returned pair replaces the presented one.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	pair, err := h.tokens.Refresh(req.RefreshToken)
	if err != nil {
		h.logger.Warnw("rejected refresh token", "error", err)
		utils.ErrorResponse(c, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", toTokenResponse(pair))
}

func toTokenResponse(pair *auth.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
	}
}
