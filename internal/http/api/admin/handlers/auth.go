package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/config"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/security"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuthHandler manages admin session issuance.
type AuthHandler struct {
	db     *gorm.DB // Database handle for admin accounts.
	jwtCfg config.JWTConfig
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg}
}

// loginRequest captures the payload for a login attempt.
type loginRequest struct {
	Username string `json:"username"`  // Admin login name.
	Password string `json:"password"`  // Plaintext password.
	TOTPCode string `json:"totp_code"` // Second factor, required when enrolled.
}

// Login verifies credentials and issues a session token. Accounts with a
// TOTP secret enrolled must supply a valid code.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	username := strings.TrimSpace(body.Username)
	if username == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	var admin models.Admin
	errFind := h.db.WithContext(c.Request.Context()).
		Where("username = ?", username).
		First(&admin).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	if !admin.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "account disabled"})
		return
	}
	if !security.CheckPassword(admin.Password, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if admin.TOTPSecret != "" {
		if strings.TrimSpace(body.TOTPCode) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "totp code required", "mfa_required": true})
			return
		}
		if !security.ValidateTOTP(admin.TOTPSecret, body.TOTPCode) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid totp code"})
			return
		}
	}

	token, errSign := security.SignAdminToken(h.jwtCfg.Secret, admin.ID, admin.Username, h.jwtCfg.Expiry)
	if errSign != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int64(h.jwtCfg.Expiry.Seconds()),
		"username":   admin.Username,
	})
}
