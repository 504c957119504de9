package repositories

import (
	"context"
	"errors"

	"pll.link/configs/configslog"
	"pll.link/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IUserLinkViewRepository kullanıcıya özel link görünümleri için arayüz.
type IUserLinkViewRepository interface {
	GetOrCreate(ctx context.Context, userID, baseLinkID uint) (*models.UserLinkView, bool, error)
	ListByBaseLinkIDs(ctx context.Context, baseLinkIDs []uint) ([]models.UserLinkView, error)
	ListByUser(ctx context.Context, userID uint) ([]models.UserLinkView, error)
	ListByUserAndPaymentCard(ctx context.Context, userID, cardID uint) ([]models.UserLinkView, error)
	ListByUserAndLoyaltyAccount(ctx context.Context, userID, accountID uint) ([]models.UserLinkView, error)
	ListByPaymentCard(ctx context.Context, cardID uint) ([]models.UserLinkView, error)
	ListByLoyaltyAccount(ctx context.Context, accountID uint) ([]models.UserLinkView, error)
	UpdateState(ctx context.Context, id uint, state models.LinkState, slug string) error
	DeleteByIDs(ctx context.Context, ids []uint) error
}

// UserLinkViewRepository IUserLinkViewRepository arayüzünü uygular.
type UserLinkViewRepository struct {
	db *gorm.DB
}

// NewUserLinkViewRepository yeni bir UserLinkViewRepository örneği oluşturur.
func NewUserLinkViewRepository(db *gorm.DB) IUserLinkViewRepository {
	return &UserLinkViewRepository{db: db}
}

func (r *UserLinkViewRepository) getDB(ctx context.Context) *gorm.DB {
	return DB(ctx, r.db)
}

// withBaseLink base_links tablosuna JOIN yapar ve BaseLink'i preload eder.
func (r *UserLinkViewRepository) withBaseLink(ctx context.Context) *gorm.DB {
	return r.getDB(ctx).Model(&models.UserLinkView{}).
		Select("user_link_views.*").
		Joins("JOIN base_links ON base_links.id = user_link_views.base_link_id").
		Preload("BaseLink")
}

// GetOrCreate kullanıcının BaseLink üzerindeki görünümünü döndürür, yoksa PENDING olarak oluşturur.
func (r *UserLinkViewRepository) GetOrCreate(ctx context.Context, userID, baseLinkID uint) (*models.UserLinkView, bool, error) {
	if userID == 0 || baseLinkID == 0 {
		return nil, false, errors.New("geçersiz UserLinkView anahtarı")
	}
	var view models.UserLinkView
	err := r.getDB(ctx).Where("user_id = ? AND base_link_id = ?", userID, baseLinkID).First(&view).Error
	if err == nil {
		return &view, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, translate(err)
	}

	view = models.UserLinkView{UserID: userID, BaseLinkID: baseLinkID, State: models.LinkStatePending, Slug: models.SlugHealthy}
	created, err := createIgnoringDuplicate(r.getDB(ctx), &view)
	if err != nil {
		configslog.Log.Error("UserLinkView oluşturulamadı", zap.Uint("user_id", userID), zap.Uint("base_link_id", baseLinkID), zap.Error(err))
		return nil, false, err
	}
	if created {
		return &view, true, nil
	}
	var winner models.UserLinkView
	err = r.getDB(ctx).Where("user_id = ? AND base_link_id = ?", userID, baseLinkID).First(&winner).Error
	return &winner, false, translate(err)
}

// ListByBaseLinkIDs verilen BaseLink'leri referans eden tüm görünümler.
func (r *UserLinkViewRepository) ListByBaseLinkIDs(ctx context.Context, baseLinkIDs []uint) ([]models.UserLinkView, error) {
	var views []models.UserLinkView
	if len(baseLinkIDs) == 0 {
		return views, nil
	}
	err := r.getDB(ctx).Where("base_link_id IN ?", baseLinkIDs).Order("id").Find(&views).Error
	return views, translate(err)
}

// ListByUser kullanıcının tüm görünümleri.
func (r *UserLinkViewRepository) ListByUser(ctx context.Context, userID uint) ([]models.UserLinkView, error) {
	var views []models.UserLinkView
	err := r.withBaseLink(ctx).Where("user_link_views.user_id = ?", userID).Order("user_link_views.id").Find(&views).Error
	return views, translate(err)
}

// ListByUserAndPaymentCard kullanıcının belirli karttaki görünümleri.
func (r *UserLinkViewRepository) ListByUserAndPaymentCard(ctx context.Context, userID, cardID uint) ([]models.UserLinkView, error) {
	var views []models.UserLinkView
	err := r.withBaseLink(ctx).
		Where("user_link_views.user_id = ? AND base_links.payment_card_account_id = ?", userID, cardID).
		Order("user_link_views.id").Find(&views).Error
	return views, translate(err)
}

// ListByUserAndLoyaltyAccount kullanıcının belirli sadakat hesabındaki görünümleri.
func (r *UserLinkViewRepository) ListByUserAndLoyaltyAccount(ctx context.Context, userID, accountID uint) ([]models.UserLinkView, error) {
	var views []models.UserLinkView
	err := r.withBaseLink(ctx).
		Where("user_link_views.user_id = ? AND base_links.loyalty_account_id = ?", userID, accountID).
		Order("user_link_views.id").Find(&views).Error
	return views, translate(err)
}

// ListByPaymentCard kartı kullanan tüm cüzdanların görünümleri.
func (r *UserLinkViewRepository) ListByPaymentCard(ctx context.Context, cardID uint) ([]models.UserLinkView, error) {
	var views []models.UserLinkView
	err := r.withBaseLink(ctx).Where("base_links.payment_card_account_id = ?", cardID).Order("user_link_views.id").Find(&views).Error
	return views, translate(err)
}

// ListByLoyaltyAccount sadakat hesabını kullanan tüm cüzdanların görünümleri.
func (r *UserLinkViewRepository) ListByLoyaltyAccount(ctx context.Context, accountID uint) ([]models.UserLinkView, error) {
	var views []models.UserLinkView
	err := r.withBaseLink(ctx).Where("base_links.loyalty_account_id = ?", accountID).Order("user_link_views.id").Find(&views).Error
	return views, translate(err)
}

// UpdateState görünümün durum ve slug'ını yazar.
func (r *UserLinkViewRepository) UpdateState(ctx context.Context, id uint, state models.LinkState, slug string) error {
	result := r.getDB(ctx).Model(&models.UserLinkView{}).Where("id = ?", id).
		Updates(map[string]interface{}{"state": state, "slug": slug})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByIDs görünümleri kalıcı olarak siler.
func (r *UserLinkViewRepository) DeleteByIDs(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return translate(r.getDB(ctx).Where("id IN ?", ids).Delete(&models.UserLinkView{}).Error)
}

var _ IUserLinkViewRepository = (*UserLinkViewRepository)(nil)
