package handlers

import (
	"errors"
	"strconv"
	"strings"

	"pll.link/configs/configslog"
	"pll.link/models"
	"pll.link/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	headerChannel     = "X-Channel"
	headerChannelKind = "X-Channel-Kind"
	headerUserID      = "X-User-ID"
)

// affectedResponse tüm yazma uçlarının ortak cevabı.
type affectedResponse struct {
	AffectedBaseLinkIDs []uint `json:"affected_base_link_ids"`
}

func respondAffected(c *fiber.Ctx, status int, ids []uint) error {
	if ids == nil {
		ids = []uint{}
	}
	return c.Status(status).JSON(affectedResponse{AffectedBaseLinkIDs: ids})
}

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// attribution isteğin hangi kanaldan geldiğini başlıklardan okur.
// Kanal türü belirtilmemişse GENERAL kabul edilir.
func attribution(c *fiber.Ctx, userID uint) (models.Attribution, error) {
	attr := models.Attribution{
		UserID:      userID,
		Channel:     models.ChannelGeneral,
		ChannelSlug: strings.TrimSpace(c.Get(headerChannel)),
	}
	switch kind := models.ChannelKind(strings.ToUpper(strings.TrimSpace(c.Get(headerChannelKind)))); kind {
	case "":
	case models.ChannelGeneral, models.ChannelTrusted:
		attr.Channel = kind
	default:
		return attr, services.ErrInvalidInput
	}
	if attr.UserID == 0 {
		if raw := c.Get(headerUserID); raw != "" {
			id, err := parseID(raw)
			if err != nil {
				return attr, err
			}
			attr.UserID = id
		}
	}
	return attr, nil
}

// paramID pozitif bir route parametresi okur.
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, services.ErrInvalidInput
	}
	return uint(id), nil
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, services.ErrInvalidInput
	}
	return uint(id), nil
}

// handleServiceError servis hatasını HTTP durum koduna çevirir.
func handleServiceError(c *fiber.Ctx, op string, err error) error {
	var werr services.WalletServiceError
	if errors.As(err, &werr) {
		switch werr {
		case services.ErrInvalidInput:
			return errorJSON(c, fiber.StatusBadRequest, err.Error())
		case services.ErrUserNotFound, services.ErrPaymentCardNotFound,
			services.ErrLoyaltyAccountNotFound, services.ErrNotInWallet:
			return errorJSON(c, fiber.StatusNotFound, err.Error())
		case services.ErrSchemeAlreadyLinked, services.ErrAccountDeleted:
			return errorJSON(c, fiber.StatusConflict, err.Error())
		}
	}
	configslog.Log.Error(op+" hatası", zap.String("path", c.Path()), zap.Error(err))
	return errorJSON(c, fiber.StatusInternalServerError, "İşlem sırasında beklenmeyen bir hata oluştu")
}
