package routes

import (
	handlers "pll.link/handlers/api"
	"pll.link/services"

	"github.com/gofiber/fiber/v2"
)

func registerWalletRoutes(router fiber.Router, service services.IWalletService) {
	h := handlers.NewWalletHandler(service)

	wallets := router.Group("/wallets/:user_id")
	wallets.Post("/payment-cards", h.AddPaymentCard)
	wallets.Delete("/payment-cards/:id", h.RemovePaymentCard)
	wallets.Post("/loyalty-cards", h.AddLoyaltyCard)
	wallets.Delete("/loyalty-cards/:id", h.RemoveLoyaltyCard)
	wallets.Put("/loyalty-cards/:id/status", h.SetLoyaltyEntryStatus)
	wallets.Post("/links", h.LinkPair)

	router.Delete("/wallets/:user_id", h.DeleteUser)

	// Cüzdandan bağımsız, hesap düzeyindeki işlemler
	router.Put("/payment-cards/:id/status", h.SetPaymentCardStatus)
	router.Delete("/payment-cards/:id", h.DeletePaymentCardAccount)
	router.Delete("/loyalty-accounts/:id", h.DeleteLoyaltyAccount)
}
