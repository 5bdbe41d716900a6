package routes

import (
	"github.com/clinicpay/terminal-bridge/internal/handlers"
	"github.com/clinicpay/terminal-bridge/internal/middleware"
	"github.com/gin-gonic/gin"
)

// SetupWebhookRoutes registers the Paystack webhook endpoint. The route
// is rate limited but unauthenticated: Paystack proves itself with the
// signature header, which the handler verifies.
func SetupWebhookRoutes(api *gin.RouterGroup, webhookHandler *handlers.PaystackWebhookHandler) {
	limiter := middleware.NewRateLimiter(10, 30)

	webhooks := api.Group("/webhooks")
	webhooks.Use(limiter.Middleware())
	{
		webhooks.POST("/paystack", webhookHandler.HandleWebhook)
	}
}
