package handlers

import (
	"net/http"
	"strings"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/security"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// totpIssuer names this service in authenticator apps.
const totpIssuer = "subscription-manager"

// MFAHandler manages TOTP enrollment for the authenticated admin.
type MFAHandler struct {
	db *gorm.DB // Database handle for admin accounts.
}

// NewMFAHandler constructs an MFA handler.
func NewMFAHandler(db *gorm.DB) *MFAHandler {
	return &MFAHandler{db: db}
}

func (h *MFAHandler) currentAdmin(c *gin.Context) (*models.Admin, bool) {
	adminID, ok := c.Get("adminID")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).First(&admin, adminID).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return nil, false
	}
	return &admin, true
}

// Status reports whether the admin has TOTP enrolled.
func (h *MFAHandler) Status(c *gin.Context) {
	admin, ok := h.currentAdmin(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"totp_enabled": admin.TOTPSecret != ""})
}

// PrepareTOTP generates a fresh secret for enrollment. The secret is not
// stored until confirmed with a valid code.
func (h *MFAHandler) PrepareTOTP(c *gin.Context) {
	admin, ok := h.currentAdmin(c)
	if !ok {
		return
	}
	if admin.TOTPSecret != "" {
		c.JSON(http.StatusConflict, gin.H{"error": "totp already enabled"})
		return
	}
	secret, url, errGenerate := security.GenerateTOTPSecret(totpIssuer, admin.Username)
	if errGenerate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate totp secret failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"secret": secret, "url": url})
}

// confirmTOTPRequest captures the payload for confirming TOTP enrollment.
type confirmTOTPRequest struct {
	Secret string `json:"secret"` // Secret from the prepare step.
	Code   string `json:"code"`   // Current code from the authenticator.
}

// ConfirmTOTP verifies the code against the pending secret and stores it.
func (h *MFAHandler) ConfirmTOTP(c *gin.Context) {
	admin, ok := h.currentAdmin(c)
	if !ok {
		return
	}
	var body confirmTOTPRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	secret := strings.TrimSpace(body.Secret)
	if secret == "" || !security.ValidateTOTP(secret, body.Code) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid code"})
		return
	}
	if errSave := h.db.WithContext(c.Request.Context()).
		Model(&models.Admin{}).
		Where("id = ?", admin.ID).
		Update("totp_secret", secret).Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save totp secret failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// disableTOTPRequest captures the payload for disabling TOTP.
type disableTOTPRequest struct {
	Code string `json:"code"` // Current code from the authenticator.
}

// DisableTOTP removes the stored secret after verifying a current code.
func (h *MFAHandler) DisableTOTP(c *gin.Context) {
	admin, ok := h.currentAdmin(c)
	if !ok {
		return
	}
	if admin.TOTPSecret == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "totp not enabled"})
		return
	}
	var body disableTOTPRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !security.ValidateTOTP(admin.TOTPSecret, body.Code) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid code"})
		return
	}
	if errSave := h.db.WithContext(c.Request.Context()).
		Model(&models.Admin{}).
		Where("id = ?", admin.ID).
		Update("totp_secret", "").Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "disable totp failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
