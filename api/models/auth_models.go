// api/models/auth_models.go
package models

// --- Auth Request/Response Structs ---

// SignupRequest defines the structure for the signup request body
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest defines the structure for the login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse defines the structure for the login response body
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// CreateKeyResponse carries a freshly issued service key. The key is only
// ever returned here; store it on receipt.
type CreateKeyResponse struct {
	Message string `json:"message"`
	APIKey  string `json:"api_key"`
}

// RevokeKeyRequest identifies the service key to revoke
type RevokeKeyRequest struct {
	Key string `json:"key" binding:"required"`
}
