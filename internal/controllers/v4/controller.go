// Package v4 implements the HTTP API of the budget engine.
package v4

import (
	"github.com/envelope-zero/budget-engine/internal/engine"
	"github.com/gin-gonic/gin"
)

// Controller serves the HTTP API. Budgets, categories and transactions are
// read and written directly, everything concerning periods and envelopes
// goes through the engine.
type Controller struct {
	Engine *engine.Engine
}

// RegisterRoutes registers all v4 routes with the RouterGroup that is passed.
func (co Controller) RegisterRoutes(r *gin.RouterGroup) {
	RegisterRootRoutes(r.Group(""))
	co.RegisterBudgetRoutes(r.Group("/budgets"))
	RegisterCategoryRoutes(r.Group("/categories"))
	RegisterTransactionRoutes(r.Group("/transactions"))
	co.RegisterTemplateRoutes(r.Group("/period-templates"))
	co.RegisterPeriodRoutes(r.Group("/periods"))
	co.RegisterEnvelopeRoutes(r.Group("/envelopes"))
	co.RegisterTransferRoutes(r.Group("/transfers"))
}
