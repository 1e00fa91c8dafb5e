package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/picpal/chat-gemma/internal/adapter/api/dto"
)

// Context keys set by the auth middleware
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextEmail    = "user_email"
	ContextRole     = "user_role"
)

// JWTAuthMiddleware creates a middleware that validates Bearer tokens.
// EventSource cannot set headers, so a token query parameter is also accepted.
func JWTAuthMiddleware() gin.HandlerFunc {
	jwtService, err := NewJWTService()
	if err != nil {
		return func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse(
				http.StatusInternalServerError,
				"인증 설정 오류",
				"JWT service was not initialized",
			))
		}
	}

	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
				http.StatusUnauthorized,
				"인증이 필요합니다",
				"Authorization header was not provided",
			))
			return
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			message := "유효하지 않은 토큰입니다"
			if err == ErrExpiredToken {
				message = "토큰이 만료되었습니다"
			}

			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
				http.StatusUnauthorized,
				message,
				err.Error(),
			))
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)

		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) == 2 && tokenParts[0] == "Bearer" {
			return tokenParts[1]
		}
		return ""
	}

	return c.Query("token")
}

// RoleAuthMiddleware creates a middleware that restricts access to the given roles
func RoleAuthMiddleware(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRoleVal, exists := c.Get(ContextRole)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
				http.StatusUnauthorized,
				"인증이 필요합니다",
				"",
			))
			return
		}

		userRole, ok := userRoleVal.(string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse(
				http.StatusInternalServerError,
				"권한 확인 오류",
				"failed to read user role",
			))
			return
		}

		authorized := false
		for _, r := range roles {
			if userRole == r {
				authorized = true
				break
			}
		}

		if !authorized {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(
				http.StatusForbidden,
				"접근 권한이 없습니다",
				"",
			))
			return
		}

		c.Next()
	}
}

// CurrentUserID returns the authenticated user id from the request context
func CurrentUserID(c *gin.Context) string {
	userID, _ := c.Get(ContextUserID)
	userIDStr, _ := userID.(string)
	return userIDStr
}

// CurrentUsername returns the authenticated username from the request context
func CurrentUsername(c *gin.Context) string {
	username, _ := c.Get(ContextUsername)
	usernameStr, _ := username.(string)
	return usernameStr
}
