// Package front exposes the public subscription API: plan discovery,
// quoting, payment, and subscription inspection.
package front

import (
	handlers "github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/http/api/front/handlers"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/invoices"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/ledger"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/plans"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/ratelimit"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/settle"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/tokens"
	"github.com/gin-gonic/gin"
)

// Deps bundles the services the public API depends on.
type Deps struct {
	Plans    *plans.Registry
	Tokens   *tokens.Registry
	Ledger   *ledger.Ledger
	Engine   *settle.Engine
	Invoices *invoices.Tracker
	Limiter  *ratelimit.Manager
}

// RegisterFrontRoutes registers public routes and handlers.
func RegisterFrontRoutes(r *gin.Engine, deps Deps) {
	if r == nil {
		return
	}
	group := r.Group("/v0")

	planHandler := handlers.NewPlanFrontHandler(deps.Plans)
	group.GET("/plans", planHandler.List)
	group.GET("/plans/:id", planHandler.Get)
	group.GET("/plans/:id/active", planHandler.Active)

	tokenHandler := handlers.NewTokenFrontHandler(deps.Tokens)
	group.GET("/tokens", tokenHandler.List)
	group.GET("/tokens/:address", tokenHandler.Get)

	quoteHandler := handlers.NewQuoteFrontHandler(deps.Engine)
	group.GET("/quote", quoteHandler.Get)

	subHandler := handlers.NewSubscriptionFrontHandler(deps.Ledger)
	group.GET("/subscriptions/:user/:plan_id", subHandler.Get)

	invoiceHandler := handlers.NewInvoiceFrontHandler(deps.Invoices)
	group.GET("/invoices/:user/:plan_id/:invoice_id", invoiceHandler.Status)

	metaHandler := handlers.NewMetaFrontHandler(deps.Plans, deps.Tokens, deps.Ledger, deps.Engine)
	group.GET("/meta", metaHandler.Meta)
	group.GET("/inspect", metaHandler.Inspect)

	payHandler := handlers.NewPayFrontHandler(deps.Engine, deps.Limiter)
	group.POST("/pay/native", payHandler.PayNative)
	group.POST("/pay/token", payHandler.PayToken)
	group.GET("/payments/:user", payHandler.History)
}
