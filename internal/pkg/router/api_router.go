package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/BenKrueger/DealerDesk/app/controllers"
)

// ApiRouter holds the internal API surface: provider webhooks and health.
type ApiRouter struct {
	webhooks *controllers.PaymentWebhookController
}

func NewApiRouter(webhooks *controllers.PaymentWebhookController) *ApiRouter {
	return &ApiRouter{webhooks: webhooks}
}

func (r *ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api/internal")
	api.Post("/webhooks/payments", r.webhooks.HandleProviderWebhook)
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
