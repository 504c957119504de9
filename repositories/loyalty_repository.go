package repositories

import (
	"context"
	"errors"

	"pll.link/configs/configslog"
	"pll.link/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ILoyaltyRepository sadakat hesapları ve kullanıcı üyelikleri için arayüz.
type ILoyaltyRepository interface {
	FindAccountByID(ctx context.Context, id uint) (*models.LoyaltyAccount, error)
	FindAccountsByIDs(ctx context.Context, ids []uint) ([]models.LoyaltyAccount, error)
	CreateAccount(ctx context.Context, account *models.LoyaltyAccount) error
	MarkAccountDeleted(ctx context.Context, id uint) error

	AddEntry(ctx context.Context, entry *models.LoyaltyEntry) (bool, error)
	FindEntry(ctx context.Context, userID, accountID uint) (*models.LoyaltyEntry, error)
	UpdateEntry(ctx context.Context, userID, accountID uint, data map[string]interface{}) error
	DeleteEntry(ctx context.Context, userID, accountID uint) error
	ListEntriesByAccounts(ctx context.Context, accountIDs []uint) ([]models.LoyaltyEntry, error)
	ListEntriesByUser(ctx context.Context, userID uint) ([]models.LoyaltyEntry, error)
	CountEntriesInChannel(ctx context.Context, accountID uint, channel models.ChannelKind, excludeUserID uint) (int64, error)
}

// LoyaltyRepository ILoyaltyRepository arayüzünü uygular.
type LoyaltyRepository struct {
	db *gorm.DB
}

// NewLoyaltyRepository yeni bir LoyaltyRepository örneği oluşturur.
func NewLoyaltyRepository(db *gorm.DB) ILoyaltyRepository {
	return &LoyaltyRepository{db: db}
}

func (r *LoyaltyRepository) getDB(ctx context.Context) *gorm.DB {
	return DB(ctx, r.db)
}

// FindAccountByID sadakat hesabını şemasıyla birlikte bulur.
func (r *LoyaltyRepository) FindAccountByID(ctx context.Context, id uint) (*models.LoyaltyAccount, error) {
	if id == 0 {
		return nil, ErrNotFound
	}
	var account models.LoyaltyAccount
	if err := r.getDB(ctx).Preload("Scheme").First(&account, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			configslog.Log.Error("LoyaltyRepository.FindAccountByID: DB error", zap.Uint("id", id), zap.Error(err))
		}
		return nil, translate(err)
	}
	return &account, nil
}

// FindAccountsByIDs birden fazla hesabı ID sırasıyla döndürür.
func (r *LoyaltyRepository) FindAccountsByIDs(ctx context.Context, ids []uint) ([]models.LoyaltyAccount, error) {
	var accounts []models.LoyaltyAccount
	if len(ids) == 0 {
		return accounts, nil
	}
	err := r.getDB(ctx).Where("id IN ?", ids).Order("id").Find(&accounts).Error
	return accounts, translate(err)
}

// CreateAccount yeni sadakat hesabı oluşturur.
func (r *LoyaltyRepository) CreateAccount(ctx context.Context, account *models.LoyaltyAccount) error {
	if account == nil || account.SchemeID == 0 {
		return errors.New("geçersiz sadakat hesabı (şema eksik)")
	}
	return translate(r.getDB(ctx).Create(account).Error)
}

// MarkAccountDeleted hesabı silinmiş olarak işaretler.
func (r *LoyaltyRepository) MarkAccountDeleted(ctx context.Context, id uint) error {
	result := r.getDB(ctx).Model(&models.LoyaltyAccount{}).Where("id = ?", id).Update("is_deleted", true)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddEntry kullanıcıyı hesaba üye yapar. Üyelik zaten varsa created=false döner.
func (r *LoyaltyRepository) AddEntry(ctx context.Context, entry *models.LoyaltyEntry) (bool, error) {
	if entry == nil || entry.UserID == 0 || entry.LoyaltyAccountID == 0 {
		return false, errors.New("geçersiz üyelik verisi (UserID veya LoyaltyAccountID eksik)")
	}
	if entry.Channel == "" {
		entry.Channel = models.ChannelGeneral
	}
	return createIgnoringDuplicate(r.getDB(ctx), entry)
}

// FindEntry kullanıcının hesaptaki üyeliğini bulur.
func (r *LoyaltyRepository) FindEntry(ctx context.Context, userID, accountID uint) (*models.LoyaltyEntry, error) {
	var entry models.LoyaltyEntry
	err := r.getDB(ctx).Where("user_id = ? AND loyalty_account_id = ?", userID, accountID).First(&entry).Error
	if err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

// UpdateEntry üyeliğin link_status / authorised alanlarını günceller.
func (r *LoyaltyRepository) UpdateEntry(ctx context.Context, userID, accountID uint, data map[string]interface{}) error {
	if len(data) == 0 {
		return errors.New("güncellenecek veri boş olamaz")
	}
	result := r.getDB(ctx).Model(&models.LoyaltyEntry{}).
		Where("user_id = ? AND loyalty_account_id = ?", userID, accountID).
		Updates(data)
	if result.Error != nil {
		configslog.Log.Error("LoyaltyRepository.UpdateEntry: DB error", zap.Uint("user_id", userID), zap.Uint("loyalty_account_id", accountID), zap.Error(result.Error))
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEntry üyeliği siler.
func (r *LoyaltyRepository) DeleteEntry(ctx context.Context, userID, accountID uint) error {
	result := r.getDB(ctx).Where("user_id = ? AND loyalty_account_id = ?", userID, accountID).Delete(&models.LoyaltyEntry{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListEntriesByAccounts verilen hesapların tüm üyeliklerini döndürür.
func (r *LoyaltyRepository) ListEntriesByAccounts(ctx context.Context, accountIDs []uint) ([]models.LoyaltyEntry, error) {
	var entries []models.LoyaltyEntry
	if len(accountIDs) == 0 {
		return entries, nil
	}
	err := r.getDB(ctx).Where("loyalty_account_id IN ?", accountIDs).Order("id").Find(&entries).Error
	return entries, translate(err)
}

// ListEntriesByUser kullanıcının üyeliklerini hesap (ve şema) bilgisiyle döndürür.
func (r *LoyaltyRepository) ListEntriesByUser(ctx context.Context, userID uint) ([]models.LoyaltyEntry, error) {
	var entries []models.LoyaltyEntry
	err := r.getDB(ctx).Preload("LoyaltyAccount").Where("user_id = ?", userID).Order("id").Find(&entries).Error
	return entries, translate(err)
}

// CountEntriesInChannel hesabı belirtilen kanal türünde tutan diğer kullanıcıların sayısı.
func (r *LoyaltyRepository) CountEntriesInChannel(ctx context.Context, accountID uint, channel models.ChannelKind, excludeUserID uint) (int64, error) {
	var count int64
	err := r.getDB(ctx).Model(&models.LoyaltyEntry{}).
		Where("loyalty_account_id = ? AND channel = ? AND user_id <> ?", accountID, channel, excludeUserID).
		Count(&count).Error
	return count, translate(err)
}

var _ ILoyaltyRepository = (*LoyaltyRepository)(nil)
