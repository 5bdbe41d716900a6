package routes

import (
	"net/http"

	"github.com/clinicpay/terminal-bridge/internal/handlers"
	"github.com/clinicpay/terminal-bridge/internal/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRoutes wires all route groups onto the router
func SetupRoutes(
	router *gin.Engine,
	webhookHandler *handlers.PaystackWebhookHandler,
	terminalHandler *handlers.TerminalHandler,
) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")

	SetupWebhookRoutes(api, webhookHandler)

	terminalGroup := api.Group("/terminal")
	terminalGroup.Use(middleware.AuthMiddleware())
	{
		terminalGroup.POST("/payments", terminalHandler.ProcessPayment)
	}
}
