package handlers

import (
	"strings"

	"pll.link/configs/configslog"
	"pll.link/models"
	"pll.link/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type addPaymentCardRequest struct {
	PaymentCardAccountID uint `json:"payment_card_account_id"`
}

type addLoyaltyCardRequest struct {
	LoyaltyAccountID uint   `json:"loyalty_account_id"`
	LinkStatus       string `json:"link_status"`
	Authorised       bool   `json:"authorised"`
}

type linkPairRequest struct {
	PaymentCardAccountID uint `json:"payment_card_account_id"`
	LoyaltyAccountID     uint `json:"loyalty_account_id"`
}

type paymentCardStatusRequest struct {
	Status string `json:"status"`
}

type loyaltyEntryStatusRequest struct {
	LinkStatus string `json:"link_status"`
	Authorised bool   `json:"authorised"`
}

var (
	validPaymentCardStatuses = map[models.PaymentCardStatus]bool{
		models.PaymentCardStatusPending: true,
		models.PaymentCardStatusActive:  true,
		models.PaymentCardStatusFailed:  true,
		models.PaymentCardStatusExpired: true,
		models.PaymentCardStatusUnknown: true,
	}
	validLinkStatuses = map[models.LinkStatus]bool{
		models.LinkStatusPending:            true,
		models.LinkStatusActive:             true,
		models.LinkStatusAuthFailed:         true,
		models.LinkStatusJoinFailed:         true,
		models.LinkStatusInvalidCredentials: true,
		models.LinkStatusUnknownError:       true,
	}
)

func parseLinkStatus(raw string, allowEmpty bool) (models.LinkStatus, bool) {
	st := models.LinkStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if st == "" {
		return st, allowEmpty
	}
	return st, validLinkStatuses[st]
}

// WalletHandler cüzdan yazma yolunu HTTP üzerinden sunar.
type WalletHandler struct {
	service services.IWalletService
}

func NewWalletHandler(service services.IWalletService) *WalletHandler {
	return &WalletHandler{service: service}
}

// userScope :user_id parametresini ve kanal bilgisini okur.
func (h *WalletHandler) userScope(c *fiber.Ctx) (uint, models.Attribution, error) {
	userID, err := paramID(c, "user_id")
	if err != nil {
		return 0, models.Attribution{}, err
	}
	attr, err := attribution(c, userID)
	return userID, attr, err
}

func (h *WalletHandler) AddPaymentCard(c *fiber.Ctx) error {
	userID, attr, err := h.userScope(c)
	if err != nil {
		return handleServiceError(c, "AddPaymentCard", err)
	}
	var req addPaymentCardRequest
	if err := c.BodyParser(&req); err != nil || req.PaymentCardAccountID == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "payment_card_account_id gerekli")
	}
	ids, err := h.service.AddPaymentCard(c.UserContext(), attr, userID, req.PaymentCardAccountID)
	if err != nil {
		return handleServiceError(c, "AddPaymentCard", err)
	}
	return respondAffected(c, fiber.StatusCreated, ids)
}

func (h *WalletHandler) AddLoyaltyCard(c *fiber.Ctx) error {
	userID, attr, err := h.userScope(c)
	if err != nil {
		return handleServiceError(c, "AddLoyaltyCard", err)
	}
	var req addLoyaltyCardRequest
	if err := c.BodyParser(&req); err != nil || req.LoyaltyAccountID == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "loyalty_account_id gerekli")
	}
	status, ok := parseLinkStatus(req.LinkStatus, true)
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "Geçersiz link_status: "+req.LinkStatus)
	}
	ids, err := h.service.AddLoyaltyCard(c.UserContext(), attr, userID, services.LoyaltyCardInput{
		LoyaltyAccountID: req.LoyaltyAccountID,
		LinkStatus:       status,
		Authorised:       req.Authorised,
		Channel:          attr.Channel,
	})
	if err != nil {
		return handleServiceError(c, "AddLoyaltyCard", err)
	}
	return respondAffected(c, fiber.StatusCreated, ids)
}

func (h *WalletHandler) LinkPair(c *fiber.Ctx) error {
	userID, attr, err := h.userScope(c)
	if err != nil {
		return handleServiceError(c, "LinkPair", err)
	}
	var req linkPairRequest
	if err := c.BodyParser(&req); err != nil || req.PaymentCardAccountID == 0 || req.LoyaltyAccountID == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "payment_card_account_id ve loyalty_account_id gerekli")
	}
	ids, err := h.service.LinkPair(c.UserContext(), attr, userID, req.PaymentCardAccountID, req.LoyaltyAccountID)
	if err != nil {
		return handleServiceError(c, "LinkPair", err)
	}
	return respondAffected(c, fiber.StatusCreated, ids)
}

func (h *WalletHandler) SetLoyaltyEntryStatus(c *fiber.Ctx) error {
	userID, attr, err := h.userScope(c)
	if err != nil {
		return handleServiceError(c, "SetLoyaltyEntryStatus", err)
	}
	accountID, err := paramID(c, "id")
	if err != nil {
		return handleServiceError(c, "SetLoyaltyEntryStatus", err)
	}
	var req loyaltyEntryStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Geçersiz istek gövdesi")
	}
	status, ok := parseLinkStatus(req.LinkStatus, false)
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "Geçersiz link_status: "+req.LinkStatus)
	}
	ids, err := h.service.SetLoyaltyEntryStatus(c.UserContext(), attr, userID, accountID, status, req.Authorised)
	if err != nil {
		return handleServiceError(c, "SetLoyaltyEntryStatus", err)
	}
	return respondAffected(c, fiber.StatusOK, ids)
}

func (h *WalletHandler) RemovePaymentCard(c *fiber.Ctx) error {
	userID, attr, err := h.userScope(c)
	if err != nil {
		return handleServiceError(c, "RemovePaymentCard", err)
	}
	cardID, err := paramID(c, "id")
	if err != nil {
		return handleServiceError(c, "RemovePaymentCard", err)
	}
	ids, err := h.service.RemovePaymentCard(c.UserContext(), attr, userID, cardID)
	if err != nil {
		return handleServiceError(c, "RemovePaymentCard", err)
	}
	return respondAffected(c, fiber.StatusOK, ids)
}

func (h *WalletHandler) RemoveLoyaltyCard(c *fiber.Ctx) error {
	userID, attr, err := h.userScope(c)
	if err != nil {
		return handleServiceError(c, "RemoveLoyaltyCard", err)
	}
	accountID, err := paramID(c, "id")
	if err != nil {
		return handleServiceError(c, "RemoveLoyaltyCard", err)
	}
	ids, err := h.service.RemoveLoyaltyCard(c.UserContext(), attr, userID, accountID)
	if err != nil {
		return handleServiceError(c, "RemoveLoyaltyCard", err)
	}
	return respondAffected(c, fiber.StatusOK, ids)
}

func (h *WalletHandler) DeleteUser(c *fiber.Ctx) error {
	userID, attr, err := h.userScope(c)
	if err != nil {
		return handleServiceError(c, "DeleteUser", err)
	}
	ids, err := h.service.DeleteUser(c.UserContext(), attr, userID)
	if err != nil {
		return handleServiceError(c, "DeleteUser", err)
	}
	configslog.Log.Info("Kullanıcı silindi", zap.Uint("user_id", userID), zap.Int("affected", len(ids)))
	return respondAffected(c, fiber.StatusOK, ids)
}

// SetPaymentCardStatus PUT /internal/payment-cards/:id/status
func (h *WalletHandler) SetPaymentCardStatus(c *fiber.Ctx) error {
	cardID, err := paramID(c, "id")
	if err != nil {
		return handleServiceError(c, "SetPaymentCardStatus", err)
	}
	attr, err := attribution(c, 0)
	if err != nil {
		return handleServiceError(c, "SetPaymentCardStatus", err)
	}
	var req paymentCardStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Geçersiz istek gövdesi")
	}
	status := models.PaymentCardStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !validPaymentCardStatuses[status] {
		return errorJSON(c, fiber.StatusBadRequest, "Geçersiz status: "+req.Status)
	}
	ids, err := h.service.SetPaymentCardStatus(c.UserContext(), attr, cardID, status)
	if err != nil {
		return handleServiceError(c, "SetPaymentCardStatus", err)
	}
	return respondAffected(c, fiber.StatusOK, ids)
}

// DeletePaymentCardAccount DELETE /internal/payment-cards/:id
func (h *WalletHandler) DeletePaymentCardAccount(c *fiber.Ctx) error {
	cardID, err := paramID(c, "id")
	if err != nil {
		return handleServiceError(c, "DeletePaymentCardAccount", err)
	}
	attr, err := attribution(c, 0)
	if err != nil {
		return handleServiceError(c, "DeletePaymentCardAccount", err)
	}
	ids, err := h.service.DeletePaymentCardAccount(c.UserContext(), attr, cardID)
	if err != nil {
		return handleServiceError(c, "DeletePaymentCardAccount", err)
	}
	return respondAffected(c, fiber.StatusOK, ids)
}

// DeleteLoyaltyAccount DELETE /internal/loyalty-accounts/:id
func (h *WalletHandler) DeleteLoyaltyAccount(c *fiber.Ctx) error {
	accountID, err := paramID(c, "id")
	if err != nil {
		return handleServiceError(c, "DeleteLoyaltyAccount", err)
	}
	attr, err := attribution(c, 0)
	if err != nil {
		return handleServiceError(c, "DeleteLoyaltyAccount", err)
	}
	ids, err := h.service.DeleteLoyaltyAccount(c.UserContext(), attr, accountID)
	if err != nil {
		return handleServiceError(c, "DeleteLoyaltyAccount", err)
	}
	return respondAffected(c, fiber.StatusOK, ids)
}
