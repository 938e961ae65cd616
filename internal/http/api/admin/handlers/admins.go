package handlers

import (
	"net/http"
	"strconv"
	"strings"

	dbutil "github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/db"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/security"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AdminAccountHandler manages owner accounts.
type AdminAccountHandler struct {
	db *gorm.DB // Database handle for admin accounts.
}

// NewAdminAccountHandler constructs an admin account handler.
func NewAdminAccountHandler(db *gorm.DB) *AdminAccountHandler {
	return &AdminAccountHandler{db: db}
}

// createAdminRequest captures the payload for creating an owner account.
type createAdminRequest struct {
	Username string `json:"username"` // Unique login name.
	Password string `json:"password"` // Plaintext password, hashed before storage.
}

// Create registers a new owner account.
func (h *AdminAccountHandler) Create(c *gin.Context) {
	var body createAdminRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" || len(body.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and a password of at least 8 characters are required"})
		return
	}

	hash, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}
	admin := models.Admin{Username: username, Password: hash, Active: true}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&admin).Error; errCreate != nil {
		if dbutil.IsUniqueViolation(errCreate) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create admin failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": admin.ID, "username": admin.Username, "active": admin.Active})
}

// List returns all owner accounts.
func (h *AdminAccountHandler) List(c *gin.Context) {
	var rows []models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).Order("id ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list admins failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":           row.ID,
			"username":     row.Username,
			"active":       row.Active,
			"totp_enabled": row.TOTPSecret != "",
			"created_at":   row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"admins": out})
}

// setActive toggles an account, refusing to disable the last active one.
func (h *AdminAccountHandler) setActive(c *gin.Context, active bool) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if !active {
		var remaining int64
		if errCount := h.db.WithContext(c.Request.Context()).
			Model(&models.Admin{}).
			Where("active = ? AND id <> ?", true, id).
			Count(&remaining).Error; errCount != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		if remaining == 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "cannot disable the last active admin"})
			return
		}
	}

	res := h.db.WithContext(c.Request.Context()).
		Model(&models.Admin{}).
		Where("id = ?", id).
		Update("active", active)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Disable deactivates an owner account.
func (h *AdminAccountHandler) Disable(c *gin.Context) { h.setActive(c, false) }

// Enable reactivates an owner account.
func (h *AdminAccountHandler) Enable(c *gin.Context) { h.setActive(c, true) }

// changePasswordRequest captures the payload for a password change.
type changePasswordRequest struct {
	Password string `json:"password"` // New plaintext password.
}

// ChangePassword replaces an account password.
func (h *AdminAccountHandler) ChangePassword(c *gin.Context) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body changePasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(body.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
		return
	}
	hash, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).
		Model(&models.Admin{}).
		Where("id = ?", id).
		Update("password", hash)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
