// api/handlers/auth_handler.go
package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/benmann/supabase/api/models"
	"github.com/benmann/supabase/config"
	"github.com/benmann/supabase/internal/auth"
	"github.com/benmann/supabase/internal/logger"
	"github.com/benmann/supabase/internal/storage"
)

var customLog = logger.NewLogger()

// AuthHandler holds dependencies for dashboard account handlers.
type AuthHandler struct {
	LocalDB *sql.DB
	Cfg     *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(localDB *sql.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		LocalDB: localDB,
		Cfg:     cfg,
	}
}

// Signup registers a new dashboard account.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	userID, err := storage.CreateUser(c.Request.Context(), h.LocalDB, req.Email, passwordHash)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	customLog.Printf("Auth: Registered dashboard account %s (ID %d)", req.Email, userID)
	c.JSON(http.StatusCreated, gin.H{"message": "Account created successfully.", "user_id": userID})
}

// Login authenticates a dashboard account and returns a JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	user, err := storage.FindUserByEmail(c.Request.Context(), h.LocalDB, req.Email)
	if err != nil {
		// Do not reveal whether the account exists.
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password."})
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password."})
		return
	}

	token, err := auth.GenerateJWT(user.ID, h.Cfg.JWTSecret, h.Cfg.JWTExpiration)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{Message: "Login successful.", Token: token})
}

// CreateKey issues a new service key for the authenticated account. Runs
// behind the combined auth middleware; the key is returned exactly once.
func (h *AuthHandler) CreateKey(c *gin.Context) {
	userID := c.MustGet("userId").(int64)

	key, err := storage.StoreAPIKey(c.Request.Context(), h.LocalDB, userID)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	customLog.Printf("Auth: Issued service key for account %d", userID)
	c.JSON(http.StatusCreated, models.CreateKeyResponse{
		Message: "Service key created. It will not be shown again.",
		APIKey:  key,
	})
}

// RevokeKey deletes one of the authenticated account's service keys.
func (h *AuthHandler) RevokeKey(c *gin.Context) {
	userID := c.MustGet("userId").(int64)

	var req models.RevokeKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	if err := storage.DeleteAPIKey(c.Request.Context(), h.LocalDB, userID, req.Key); err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Service key revoked."})
}
