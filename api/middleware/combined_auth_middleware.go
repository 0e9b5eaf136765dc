// api/middleware/combined_auth_middleware.go
package middleware

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/benmann/supabase/config"
	"github.com/benmann/supabase/internal/auth"
	"github.com/benmann/supabase/internal/logger"
	"github.com/benmann/supabase/internal/storage"
)

var customLog = logger.NewLogger()

// CombinedAuthMiddleware authenticates requests using either scheme the
// Authorization header may carry: "Bearer {jwt}" for interactive dashboard
// sessions, or "ApiKey {key}" for service keys issued against the local
// store. Both resolve to an account ID in the context.
func CombinedAuthMiddleware(db *sql.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			err := errors.New("authorization header required")
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 {
			err := errors.New("authorization header format must be 'Bearer {token}' or 'ApiKey {key}'")
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		scheme := strings.ToLower(parts[0])
		credentials := parts[1]

		var userID int64

		switch scheme {
		case "apikey":
			if !strings.HasPrefix(credentials, storage.APIKeyPrefix) {
				_ = c.Error(fmt.Errorf("%w: invalid key prefix", auth.ErrTokenMalformed))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
				return
			}

			ownerID, err := storage.FindUserIDByAPIKey(c.Request.Context(), db, credentials)
			if err != nil {
				if !errors.Is(err, storage.ErrAPIKeyNotFound) {
					customLog.Warnf("CombinedAuthMiddleware: DB error looking up ApiKey: %v", err)
				}
				_ = c.Error(auth.ErrUnauthorized)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
				return
			}
			userID = ownerID

		case "bearer":
			jwtUserID, err := auth.ValidateJWT(credentials, cfg.JWTSecret)
			if err != nil {
				customLog.Printf("CombinedAuthMiddleware: Token validation failed: %v", err)
				errMsg := "Invalid token"
				switch {
				case errors.Is(err, auth.ErrTokenMalformed):
					errMsg = err.Error()
				case errors.Is(err, auth.ErrTokenExpired):
					errMsg = err.Error()
				}

				_ = c.Error(err)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMsg})
				return
			}
			userID = jwtUserID

		default:
			err := fmt.Errorf("%w: unsupported scheme '%s'", auth.ErrTokenMalformed, parts[0])
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unsupported authorization scheme"})
			return
		}

		c.Set("userId", userID)
		c.Set("authScheme", scheme)
		c.Next()
	}
}
