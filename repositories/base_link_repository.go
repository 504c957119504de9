package repositories

import (
	"context"
	"errors"

	"pll.link/configs/configslog"
	"pll.link/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IBaseLinkRepository cüzdandan bağımsız link kayıtları için arayüz.
type IBaseLinkRepository interface {
	GetOrCreate(ctx context.Context, cardID, accountID uint) (*models.BaseLink, bool, error)
	FindByID(ctx context.Context, id uint) (*models.BaseLink, error)
	FindByPair(ctx context.Context, cardID, accountID uint) (*models.BaseLink, error)
	ListByPaymentCard(ctx context.Context, cardID uint) ([]models.BaseLink, error)
	ListByLoyaltyAccount(ctx context.Context, accountID uint) ([]models.BaseLink, error)
	ListByIDs(ctx context.Context, ids []uint) ([]models.BaseLink, error)
	UpdateFlags(ctx context.Context, id uint, active, suppressed bool) error
	DeleteByID(ctx context.Context, id uint) error
	DeleteIfUnreferenced(ctx context.Context, id uint) (bool, error)
	FindActiveForCardScheme(ctx context.Context, cardID, schemeID uint) (*models.BaseLink, error)
}

// BaseLinkRepository IBaseLinkRepository arayüzünü uygular.
type BaseLinkRepository struct {
	*BaseRepository[models.BaseLink]
	db *gorm.DB
}

// NewBaseLinkRepository yeni bir BaseLinkRepository örneği oluşturur.
func NewBaseLinkRepository(db *gorm.DB) IBaseLinkRepository {
	return &BaseLinkRepository{BaseRepository: NewBaseRepository[models.BaseLink](db), db: db}
}

// GetOrCreate (kart, hesap) çifti için tek BaseLink'i döndürür, yoksa oluşturur.
// Eşzamanlı iki cüzdan aynı çifti bağlarsa kaybeden insert no-op sayılır ve kazanan satır okunur.
func (r *BaseLinkRepository) GetOrCreate(ctx context.Context, cardID, accountID uint) (*models.BaseLink, bool, error) {
	if cardID == 0 || accountID == 0 {
		return nil, false, errors.New("geçersiz BaseLink çifti")
	}
	existing, err := r.FindByPair(ctx, cardID, accountID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	link := &models.BaseLink{PaymentCardAccountID: cardID, LoyaltyAccountID: accountID}
	created, err := createIgnoringDuplicate(DB(ctx, r.db), link)
	if err != nil {
		configslog.Log.Error("BaseLink oluşturulamadı", zap.Uint("payment_card_account_id", cardID), zap.Uint("loyalty_account_id", accountID), zap.Error(err))
		return nil, false, err
	}
	if created {
		return link, true, nil
	}
	configslog.Log.Info("BaseLink eşzamanlı oluşturuldu, kazanan satır kullanılıyor",
		zap.Uint("payment_card_account_id", cardID), zap.Uint("loyalty_account_id", accountID))
	winner, err := r.FindByPair(ctx, cardID, accountID)
	return winner, false, err
}

// FindByPair çift ile BaseLink'i bulur.
func (r *BaseLinkRepository) FindByPair(ctx context.Context, cardID, accountID uint) (*models.BaseLink, error) {
	var link models.BaseLink
	err := DB(ctx, r.db).Where("payment_card_account_id = ? AND loyalty_account_id = ?", cardID, accountID).First(&link).Error
	if err != nil {
		return nil, translate(err)
	}
	return &link, nil
}

// ListByPaymentCard kartın tüm BaseLink'lerini sadakat hesabıyla birlikte döndürür.
func (r *BaseLinkRepository) ListByPaymentCard(ctx context.Context, cardID uint) ([]models.BaseLink, error) {
	var links []models.BaseLink
	err := DB(ctx, r.db).Preload("LoyaltyAccount").Where("payment_card_account_id = ?", cardID).Order("id").Find(&links).Error
	return links, translate(err)
}

// ListByLoyaltyAccount hesabın tüm BaseLink'lerini döndürür.
func (r *BaseLinkRepository) ListByLoyaltyAccount(ctx context.Context, accountID uint) ([]models.BaseLink, error) {
	var links []models.BaseLink
	err := DB(ctx, r.db).Where("loyalty_account_id = ?", accountID).Order("id").Find(&links).Error
	return links, translate(err)
}

// ListByIDs ID listesindeki BaseLink'leri döndürür.
func (r *BaseLinkRepository) ListByIDs(ctx context.Context, ids []uint) ([]models.BaseLink, error) {
	var links []models.BaseLink
	if len(ids) == 0 {
		return links, nil
	}
	err := DB(ctx, r.db).Preload("LoyaltyAccount").Where("id IN ?", ids).Order("id").Find(&links).Error
	return links, translate(err)
}

// UpdateFlags yeniden hesaplanan active/suppressed değerlerini yazar.
func (r *BaseLinkRepository) UpdateFlags(ctx context.Context, id uint, active, suppressed bool) error {
	result := DB(ctx, r.db).Model(&models.BaseLink{}).Where("id = ?", id).
		Updates(map[string]interface{}{"active": active, "suppressed": suppressed})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteIfUnreferenced hiçbir UserLinkView tarafından referans edilmiyorsa BaseLink'i siler.
func (r *BaseLinkRepository) DeleteIfUnreferenced(ctx context.Context, id uint) (bool, error) {
	result := DB(ctx, r.db).
		Where("id = ? AND NOT EXISTS (SELECT 1 FROM user_link_views WHERE user_link_views.base_link_id = base_links.id)", id).
		Delete(&models.BaseLink{})
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// FindActiveForCardScheme kart ve şema için aktif bir BaseLink varsa döndürür (last-man-standing).
func (r *BaseLinkRepository) FindActiveForCardScheme(ctx context.Context, cardID, schemeID uint) (*models.BaseLink, error) {
	var link models.BaseLink
	err := DB(ctx, r.db).Model(&models.BaseLink{}).
		Select("base_links.*").
		Joins("JOIN loyalty_accounts ON loyalty_accounts.id = base_links.loyalty_account_id").
		Where("base_links.payment_card_account_id = ? AND loyalty_accounts.scheme_id = ? AND base_links.active = ?", cardID, schemeID, true).
		Order("base_links.id").
		First(&link).Error
	if err != nil {
		return nil, translate(err)
	}
	return &link, nil
}

var _ IBaseLinkRepository = (*BaseLinkRepository)(nil)
