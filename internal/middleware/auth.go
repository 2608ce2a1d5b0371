package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clinicbook/booking-api/internal/model"
	"github.com/clinicbook/booking-api/pkg/auth"
	"github.com/clinicbook/booking-api/pkg/httputil"
)

const ContextClaims = "claims"

type AuthMiddleware struct {
	jwtSvc auth.JWTService
}

func NewAuthMiddleware(jwtSvc auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtSvc: jwtSvc}
}

// Authenticate verifies the bearer token and stores the claims in context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := m.claimsFromHeader(c)
		if !ok {
			c.Abort()
			return
		}
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// OptionalAuthenticate parses the token when present but lets anonymous
// requests through; guest booking shares its route with signed-in patients.
func (m *AuthMiddleware) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		claims, ok := m.claimsFromHeader(c)
		if !ok {
			c.Abort()
			return
		}
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// RequireRole allows only the listed roles past.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFromContext(c)
		if claims == nil {
			c.JSON(http.StatusUnauthorized, httputil.Response{
				Success: false,
				Error:   &httputil.Error{Code: http.StatusUnauthorized, Message: "unauthorized"},
			})
			c.Abort()
			return
		}
		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, httputil.Response{
			Success: false,
			Error:   &httputil.Error{Code: http.StatusForbidden, Message: "insufficient role"},
		})
		c.Abort()
	}
}

func (m *AuthMiddleware) claimsFromHeader(c *gin.Context) (*model.TokenClaims, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		m.unauthorized(c, "missing authorization header")
		return nil, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		m.unauthorized(c, "invalid authorization format")
		return nil, false
	}

	claims, err := m.jwtSvc.ValidateToken(parts[1])
	if err != nil {
		m.unauthorized(c, "invalid token")
		return nil, false
	}
	return claims, true
}

func (m *AuthMiddleware) unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, httputil.Response{
		Success: false,
		Error:   &httputil.Error{Code: http.StatusUnauthorized, Message: msg},
	})
}

// ClaimsFromContext returns the authenticated claims, or nil for anonymous
// requests.
func ClaimsFromContext(c *gin.Context) *model.TokenClaims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, ok := v.(*model.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}
