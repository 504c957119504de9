package routes

import (
	handlers "pll.link/handlers/api"
	"pll.link/services"

	"github.com/gofiber/fiber/v2"
)

// registerHookRoutes hesap durum kaynağının değişiklik bildirimlerini alır.
func registerHookRoutes(router fiber.Router, service services.IStatusHookService) {
	h := handlers.NewHookHandler(service)

	hooks := router.Group("/hooks")
	hooks.Post("/payment-cards/:id", h.PaymentCardChanged)
	hooks.Post("/loyalty-entries/:user_id/:loyalty_account_id", h.LoyaltyEntryChanged)
}
