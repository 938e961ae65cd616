package admin

import (
	"net/http"
	"strings"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/config"
	handlers "github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/http/api/admin/handlers"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/plans"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/security"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/settle"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/stats"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/tokens"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterAdminRoutes registers admin routes, middleware, and handlers.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, planReg *plans.Registry, tokenReg *tokens.Registry, engine *settle.Engine) {
	if r == nil || db == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	versionHandler := handlers.NewVersionHandler()
	r.GET("/v0/version", versionHandler.GetVersion)

	adminGroup := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(db, jwtCfg)
	adminGroup.POST("/login", authHandler.Login)

	authed := adminGroup.Group("")
	authed.Use(adminAuthMiddleware(db, jwtCfg))

	mfaHandler := handlers.NewMFAHandler(db)
	authed.GET("/mfa/status", mfaHandler.Status)
	authed.POST("/mfa/totp/prepare", mfaHandler.PrepareTOTP)
	authed.POST("/mfa/totp/confirm", mfaHandler.ConfirmTOTP)
	authed.POST("/mfa/totp/disable", mfaHandler.DisableTOTP)

	planHandler := handlers.NewPlanHandler(planReg)
	authed.POST("/plans", planHandler.Create)
	authed.GET("/plans", planHandler.List)
	authed.GET("/plans/:id", planHandler.Get)
	authed.PUT("/plans/:id", planHandler.Update)
	authed.POST("/plans/:id/enable", planHandler.Enable)
	authed.POST("/plans/:id/disable", planHandler.Disable)

	tokenHandler := handlers.NewTokenHandler(tokenReg)
	authed.POST("/tokens", tokenHandler.Set)
	authed.GET("/tokens", tokenHandler.List)

	paymentHandler := handlers.NewPaymentHandler(db)
	authed.GET("/payments", paymentHandler.List)
	authed.GET("/transfers", paymentHandler.Transfers)

	quoteHandler := handlers.NewQuoteBreakdownHandler(engine)
	authed.GET("/quote-breakdown", quoteHandler.Get)

	statsHandler := handlers.NewStatsHandler(stats.NewService(db))
	authed.GET("/stats", statsHandler.Summary)

	adminAccountHandler := handlers.NewAdminAccountHandler(db)
	authed.POST("/admins", adminAccountHandler.Create)
	authed.GET("/admins", adminAccountHandler.List)
	authed.POST("/admins/:id/disable", adminAccountHandler.Disable)
	authed.POST("/admins/:id/enable", adminAccountHandler.Enable)
	authed.PUT("/admins/:id/password", adminAccountHandler.ChangePassword)

	settingHandler := handlers.NewSettingHandler(db)
	authed.POST("/settings", settingHandler.Create)
	authed.GET("/settings", settingHandler.List)
	authed.GET("/settings/:key", settingHandler.Get)
	authed.PUT("/settings/:key", settingHandler.Update)
	authed.DELETE("/settings/:key", settingHandler.Delete)
}

// adminAuthMiddleware validates admin JWTs and loads admin context.
func adminAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var admin models.Admin
		if errFind := db.WithContext(c.Request.Context()).First(&admin, claims.AdminID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}
		if !admin.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin disabled"})
			return
		}

		c.Set("adminID", admin.ID)
		c.Set("adminUsername", admin.Username)
		c.Next()
	}
}
