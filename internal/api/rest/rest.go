package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/galleryprotocol/nft-ledger/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Read endpoints (public)
		v1.GET("/tokens", handler.ListTokens)
		v1.GET("/tokens/:id", handler.GetToken)
		v1.GET("/tokens/:id/metadata", handler.GetMetadata)
		v1.GET("/tokens/:id/payout", handler.GetPayout)
		v1.GET("/tokens/:id/journal", handler.GetJournal)
		v1.GET("/owners/:id/tokens", handler.ListOwnerTokens)
		v1.GET("/owners/:id/supply", handler.GetOwnerSupply)
		v1.GET("/supply", handler.GetSupply)

		// Mutation endpoints (require authentication)
		auth := middleware.Auth(authCfg)
		v1.POST("/tokens", auth, handler.Mint)
		v1.POST("/tokens/:id/approvals", auth, handler.Approve)
		v1.DELETE("/tokens/:id/approvals/:delegate", auth, handler.Revoke)
		v1.DELETE("/tokens/:id/approvals", auth, handler.RevokeAll)
		v1.POST("/tokens/:id/transfer", auth, handler.Transfer)
		v1.POST("/tokens/:id/transfer-payout", auth, handler.TransferPayout)
		v1.POST("/tokens/:id/burn", auth, handler.Burn)
	}
}
