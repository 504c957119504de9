package services

import (
	"context"

	"pll.link/configs/configslog"
	"pll.link/models"
	"pll.link/repositories"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Yeniden hesaplamayı tetikleyen alanlar. Diğer alanlardaki değişiklikler yok sayılır.
var (
	paymentCardRelevantFields  = map[string]bool{"status": true, "is_deleted": true}
	loyaltyEntryRelevantFields = map[string]bool{"link_status": true, "authorised": true}
)

// IStatusHookService hesap durum kaynağından gelen değişiklik bildirimlerinin giriş noktası.
type IStatusHookService interface {
	PaymentCardChanged(ctx context.Context, attr models.Attribution, cardID uint, fields []string) ([]uint, error)
	LoyaltyEntryChanged(ctx context.Context, attr models.Attribution, userID, accountID uint, fields []string) ([]uint, error)
}

// StatusHookService IStatusHookService arayüzünü uygular.
type StatusHookService struct {
	db    *gorm.DB
	store IBaseLinkStore
}

// NewStatusHookService yeni bir StatusHookService oluşturur.
func NewStatusHookService(db *gorm.DB, store IBaseLinkStore) *StatusHookService {
	return &StatusHookService{db: db, store: store}
}

// relevant alan listesi boşsa (tam kayıt) ya da ilgili bir alan içeriyorsa true döner.
func relevant(fields []string, set map[string]bool) bool {
	if len(fields) == 0 {
		return true
	}
	for _, f := range fields {
		if set[f] {
			return true
		}
	}
	return false
}

// PaymentCardChanged ödeme kartının status/is_deleted alanı değiştiğinde kartın link grubunu yeniden çözer.
func (s *StatusHookService) PaymentCardChanged(ctx context.Context, attr models.Attribution, cardID uint, fields []string) ([]uint, error) {
	if !relevant(fields, paymentCardRelevantFields) {
		configslog.SLog.Debugf("Ödeme kartı %d değişikliği link durumunu etkilemiyor: %v", cardID, fields)
		return nil, nil
	}
	var affected []uint
	err := repositories.RunInTx(ctx, s.db, func(txCtx context.Context) error {
		var err error
		affected, err = s.store.RecomputePaymentCard(txCtx, attr, cardID)
		return err
	})
	if err != nil {
		configslog.Log.Error("Ödeme kartı bildirimi işlenemedi", zap.Uint("payment_card_account_id", cardID), zap.Error(err))
		return nil, err
	}
	return affected, nil
}

// LoyaltyEntryChanged üyeliğin link_status/authorised alanı değiştiğinde hesabın tüm kart gruplarını yeniden çözer.
func (s *StatusHookService) LoyaltyEntryChanged(ctx context.Context, attr models.Attribution, userID, accountID uint, fields []string) ([]uint, error) {
	if !relevant(fields, loyaltyEntryRelevantFields) {
		configslog.SLog.Debugf("Kullanıcı %d, hesap %d üyelik değişikliği link durumunu etkilemiyor: %v", userID, accountID, fields)
		return nil, nil
	}
	var affected []uint
	err := repositories.RunInTx(ctx, s.db, func(txCtx context.Context) error {
		var err error
		affected, err = s.store.RecomputeLoyaltyAccount(txCtx, attr, accountID)
		return err
	})
	if err != nil {
		configslog.Log.Error("Sadakat üyeliği bildirimi işlenemedi",
			zap.Uint("user_id", userID), zap.Uint("loyalty_account_id", accountID), zap.Error(err))
		return nil, err
	}
	return affected, nil
}

var _ IStatusHookService = (*StatusHookService)(nil)
