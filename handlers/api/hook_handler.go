package handlers

import (
	"pll.link/configs/configslog"
	"pll.link/models"
	"pll.link/services"

	"github.com/gofiber/fiber/v2"
)

// changeNotification hesap durum kaynağından gelen bildirimin gövdesi.
// Fields boşsa kaydın tamamı değişmiş sayılır.
type changeNotification struct {
	Fields []string `json:"fields"`
}

type HookHandler struct {
	service services.IStatusHookService
}

func NewHookHandler(service services.IStatusHookService) *HookHandler {
	return &HookHandler{service: service}
}

func (h *HookHandler) readNotification(c *fiber.Ctx) (changeNotification, error) {
	var body changeNotification
	if len(c.Body()) == 0 {
		return body, nil
	}
	if err := c.BodyParser(&body); err != nil {
		return body, services.ErrInvalidInput
	}
	return body, nil
}

// PaymentCardChanged POST /internal/hooks/payment-cards/:id
func (h *HookHandler) PaymentCardChanged(c *fiber.Ctx) error {
	cardID, err := paramID(c, "id")
	if err != nil {
		return handleServiceError(c, "PaymentCardChanged", err)
	}
	body, err := h.readNotification(c)
	if err != nil {
		return handleServiceError(c, "PaymentCardChanged", err)
	}
	attr, err := attribution(c, 0)
	if err != nil {
		return handleServiceError(c, "PaymentCardChanged", err)
	}
	if attr.ChannelSlug == "" {
		attr = models.SystemAttribution("hook")
	}
	ids, err := h.service.PaymentCardChanged(c.UserContext(), attr, cardID, body.Fields)
	if err != nil {
		return handleServiceError(c, "PaymentCardChanged", err)
	}
	configslog.SLog.Debugf("Ödeme kartı %d bildirimi işlendi, etkilenen link: %v", cardID, ids)
	return respondAffected(c, fiber.StatusOK, ids)
}

// LoyaltyEntryChanged POST /internal/hooks/loyalty-entries/:user_id/:loyalty_account_id
func (h *HookHandler) LoyaltyEntryChanged(c *fiber.Ctx) error {
	userID, err := paramID(c, "user_id")
	if err != nil {
		return handleServiceError(c, "LoyaltyEntryChanged", err)
	}
	accountID, err := paramID(c, "loyalty_account_id")
	if err != nil {
		return handleServiceError(c, "LoyaltyEntryChanged", err)
	}
	body, err := h.readNotification(c)
	if err != nil {
		return handleServiceError(c, "LoyaltyEntryChanged", err)
	}
	attr, err := attribution(c, userID)
	if err != nil {
		return handleServiceError(c, "LoyaltyEntryChanged", err)
	}
	ids, err := h.service.LoyaltyEntryChanged(c.UserContext(), attr, userID, accountID, body.Fields)
	if err != nil {
		return handleServiceError(c, "LoyaltyEntryChanged", err)
	}
	return respondAffected(c, fiber.StatusOK, ids)
}
