package repositories

import (
	"context"

	"pll.link/configs/configslog"
	"pll.link/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IPaymentCardRepository ödeme kartı hesapları ve cüzdan üyelikleri için arayüz.
type IPaymentCardRepository interface {
	FindByID(ctx context.Context, id uint) (*models.PaymentCardAccount, error)
	LockByID(ctx context.Context, id uint) (*models.PaymentCardAccount, error)
	Create(ctx context.Context, card *models.PaymentCardAccount) error
	UpdateStatus(ctx context.Context, id uint, status models.PaymentCardStatus) error
	MarkDeleted(ctx context.Context, id uint) error

	AddEntry(ctx context.Context, userID, cardID uint) (bool, error)
	DeleteEntry(ctx context.Context, userID, cardID uint) error
	CountEntries(ctx context.Context, cardID uint) (int64, error)
	ListEntriesByUser(ctx context.Context, userID uint) ([]models.PaymentCardEntry, error)
	ListEntriesByCard(ctx context.Context, cardID uint) ([]models.PaymentCardEntry, error)
}

// PaymentCardRepository IPaymentCardRepository arayüzünü uygular.
type PaymentCardRepository struct {
	*BaseRepository[models.PaymentCardAccount]
	db *gorm.DB
}

// NewPaymentCardRepository yeni bir PaymentCardRepository örneği oluşturur.
func NewPaymentCardRepository(db *gorm.DB) IPaymentCardRepository {
	return &PaymentCardRepository{BaseRepository: NewBaseRepository[models.PaymentCardAccount](db), db: db}
}

// LockByID kartı FOR UPDATE ile okur. Aynı kartın link grubunu yeniden hesaplayan
// transaction'lar böylece sıraya girer; sqlite bu kilidi yok sayar.
func (r *PaymentCardRepository) LockByID(ctx context.Context, id uint) (*models.PaymentCardAccount, error) {
	var card models.PaymentCardAccount
	err := DB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&card, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &card, nil
}

func (r *PaymentCardRepository) updateColumn(ctx context.Context, id uint, column string, value any) error {
	result := DB(ctx, r.db).Model(&models.PaymentCardAccount{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		configslog.Log.Error("PaymentCardRepository: güncelleme hatası", zap.Uint("id", id), zap.String("column", column), zap.Error(result.Error))
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := DB(ctx, r.db).Model(&models.PaymentCardAccount{}).Where("id = ?", id).Count(&count).Error; err == nil && count == 0 {
			return ErrNotFound
		}
	}
	return nil
}

// UpdateStatus kartın sağlayıcı durumunu günceller.
func (r *PaymentCardRepository) UpdateStatus(ctx context.Context, id uint, status models.PaymentCardStatus) error {
	return r.updateColumn(ctx, id, "status", status)
}

// MarkDeleted kartı silinmiş olarak işaretler.
func (r *PaymentCardRepository) MarkDeleted(ctx context.Context, id uint) error {
	return r.updateColumn(ctx, id, "is_deleted", true)
}

// AddEntry kartı kullanıcının cüzdanına ekler. Üyelik zaten varsa created=false döner.
func (r *PaymentCardRepository) AddEntry(ctx context.Context, userID, cardID uint) (bool, error) {
	entry := &models.PaymentCardEntry{UserID: userID, PaymentCardAccountID: cardID}
	return createIgnoringDuplicate(DB(ctx, r.db), entry)
}

// DeleteEntry kullanıcının kart üyeliğini siler.
func (r *PaymentCardRepository) DeleteEntry(ctx context.Context, userID, cardID uint) error {
	result := DB(ctx, r.db).Where("user_id = ? AND payment_card_account_id = ?", userID, cardID).Delete(&models.PaymentCardEntry{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountEntries kartı cüzdanında tutan kullanıcı sayısı.
func (r *PaymentCardRepository) CountEntries(ctx context.Context, cardID uint) (int64, error) {
	var count int64
	err := DB(ctx, r.db).Model(&models.PaymentCardEntry{}).Where("payment_card_account_id = ?", cardID).Count(&count).Error
	return count, translate(err)
}

// ListEntriesByUser kullanıcının cüzdanındaki kartlar (hesap bilgisiyle).
func (r *PaymentCardRepository) ListEntriesByUser(ctx context.Context, userID uint) ([]models.PaymentCardEntry, error) {
	var entries []models.PaymentCardEntry
	err := DB(ctx, r.db).Preload("PaymentCardAccount").Where("user_id = ?", userID).Order("id").Find(&entries).Error
	return entries, translate(err)
}

// ListEntriesByCard kartı tutan tüm cüzdan üyelikleri.
func (r *PaymentCardRepository) ListEntriesByCard(ctx context.Context, cardID uint) ([]models.PaymentCardEntry, error) {
	var entries []models.PaymentCardEntry
	err := DB(ctx, r.db).Where("payment_card_account_id = ?", cardID).Order("id").Find(&entries).Error
	return entries, translate(err)
}

var _ IPaymentCardRepository = (*PaymentCardRepository)(nil)
