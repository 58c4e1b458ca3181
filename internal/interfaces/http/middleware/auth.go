package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"stratum/internal/infrastructure/auth"
	"stratum/internal/shared/constants"
	"stratum/internal/shared/logger"
	"stratum/internal/shared/utils"
)

type AuthMiddleware struct {
	jwtService *auth.JWTService
	hasher     *auth.BcryptKeyHasher
	apiKeyHash string
	logger     logger.Interface
}

func NewAuthMiddleware(jwtService *auth.JWTService, hasher *auth.BcryptKeyHasher, apiKeyHash string, logger logger.Interface) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		hasher:     hasher,
		apiKeyHash: apiKeyHash,
		logger:     logger,
	}
}

// RequireAuth rejects requests without a valid access token or API key.
// The token's tenant binding, when present, becomes the strongest
// routing hint for the request.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey := c.GetHeader("X-API-Key"); apiKey != "" && m.apiKeyHash != "" {
			if err := m.hasher.Verify(apiKey, m.apiKeyHash); err != nil {
				m.logger.Warnw("rejected api key", "client_ip", c.ClientIP())
				utils.ErrorResponse(c, http.StatusUnauthorized, "invalid api key")
				c.Abort()
				return
			}
			c.Set(constants.ContextKeyRole, auth.RoleAdmin)
			c.Next()
			return
		}

		token := bearerToken(c)
		if token == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "missing authorization token")
			c.Abort()
			return
		}

		claims, err := m.jwtService.Verify(token)
		if err != nil {
			m.logger.Warnw("failed to verify token", "error", err)
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		if claims.TokenType != auth.TokenTypeAccess {
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid token type")
			c.Abort()
			return
		}

		m.setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth attaches claims when a valid token is present and lets
// the request through either way. Used on the data path, where an
// unauthenticated caller may still identify a tenant via header or
// subdomain.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}

		claims, err := m.jwtService.Verify(token)
		if err == nil && claims.TokenType == auth.TokenTypeAccess {
			m.setClaims(c, claims)
		}

		c.Next()
	}
}

func (m *AuthMiddleware) setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(constants.ContextKeySubjectSID, claims.SubjectSID)
	c.Set(constants.ContextKeyRole, claims.Role)
	if claims.TenantSID != "" {
		c.Set(constants.ContextKeySessionTenant, claims.TenantSID)
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
