package repositories

import (
	"context"
	"errors"
	"time"

	"pll.link/configs/configslog"
	"pll.link/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IActivationRepository kart ağı aktivasyon kayıtları için arayüz.
type IActivationRepository interface {
	GetOrCreate(ctx context.Context, cardID, schemeID uint) (*models.ActivationRecord, bool, error)
	FindByID(ctx context.Context, id uint) (*models.ActivationRecord, error)
	FindByPair(ctx context.Context, cardID, schemeID uint) (*models.ActivationRecord, error)
	ListByPaymentCard(ctx context.Context, cardID uint) ([]models.ActivationRecord, error)
	CountByPair(ctx context.Context, cardID, schemeID uint) (int64, error)
	Transition(ctx context.Context, id uint, from []models.ActivationStatus, to models.ActivationStatus) (bool, error)
	MarkActivated(ctx context.Context, id uint, activationID string, associationID, schemeAccountID uint) (bool, error)
	DeleteByID(ctx context.Context, id uint) error
	ListStuck(ctx context.Context, updatedBefore time.Time) ([]models.ActivationRecord, error)
}

// ActivationRepository IActivationRepository arayüzünü uygular.
type ActivationRepository struct {
	*BaseRepository[models.ActivationRecord]
	db *gorm.DB
}

// NewActivationRepository yeni bir ActivationRepository örneği oluşturur.
func NewActivationRepository(db *gorm.DB) IActivationRepository {
	return &ActivationRepository{BaseRepository: NewBaseRepository[models.ActivationRecord](db), db: db}
}

// GetOrCreate (kart, şema) için kaydı ACTIVATING olarak oluşturur ya da mevcut kaydı döndürür.
// Eşzamanlı bir oluşturma yakalanırsa loglanır ve tekrar denenmez; created=false döner.
func (r *ActivationRepository) GetOrCreate(ctx context.Context, cardID, schemeID uint) (*models.ActivationRecord, bool, error) {
	existing, err := r.FindByPair(ctx, cardID, schemeID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	record := &models.ActivationRecord{
		PaymentCardAccountID: cardID,
		SchemeID:             schemeID,
		Status:               models.ActivationStatusActivating,
	}
	created, err := createIgnoringDuplicate(DB(ctx, r.db), record)
	if err != nil {
		return nil, false, err
	}
	if created {
		return record, true, nil
	}
	configslog.Log.Info("Aktivasyon kaydı eşzamanlı oluşturuldu, çift kayıt bırakıldı",
		zap.Uint("payment_card_account_id", cardID), zap.Uint("scheme_id", schemeID))
	winner, err := r.FindByPair(ctx, cardID, schemeID)
	return winner, false, err
}

// FindByPair kart ve şema ile kaydı bulur.
func (r *ActivationRepository) FindByPair(ctx context.Context, cardID, schemeID uint) (*models.ActivationRecord, error) {
	var record models.ActivationRecord
	err := DB(ctx, r.db).Where("payment_card_account_id = ? AND scheme_id = ?", cardID, schemeID).First(&record).Error
	if err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

// ListByPaymentCard kartın tüm aktivasyon kayıtları.
func (r *ActivationRepository) ListByPaymentCard(ctx context.Context, cardID uint) ([]models.ActivationRecord, error) {
	var records []models.ActivationRecord
	err := DB(ctx, r.db).Where("payment_card_account_id = ?", cardID).Order("id").Find(&records).Error
	return records, translate(err)
}

// CountByPair çift için kayıt sayısı (benzersizlik kontrolü ve testler için).
func (r *ActivationRepository) CountByPair(ctx context.Context, cardID, schemeID uint) (int64, error) {
	var count int64
	err := DB(ctx, r.db).Model(&models.ActivationRecord{}).
		Where("payment_card_account_id = ? AND scheme_id = ?", cardID, schemeID).Count(&count).Error
	return count, translate(err)
}

// Transition kaydı yalnızca mevcut durumu from içindeyse to durumuna geçirir.
// Geçiş yapıldıysa true döner; bu koşullu güncelleme tekrar eden teslimatları zararsız kılar.
func (r *ActivationRepository) Transition(ctx context.Context, id uint, from []models.ActivationStatus, to models.ActivationStatus) (bool, error) {
	result := DB(ctx, r.db).Model(&models.ActivationRecord{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MarkActivated ACTIVATING kaydı ağ referansıyla birlikte ACTIVATED yapar. Aktivasyonda gönderilen
// link ve hesap da saklanır; deaktivasyon aynı gövdeyi link silinmiş olsa bile gönderebilmeli.
func (r *ActivationRepository) MarkActivated(ctx context.Context, id uint, activationID string, associationID, schemeAccountID uint) (bool, error) {
	result := DB(ctx, r.db).Model(&models.ActivationRecord{}).
		Where("id = ? AND status = ?", id, models.ActivationStatusActivating).
		Updates(map[string]interface{}{
			"status":            models.ActivationStatusActivated,
			"activation_id":     activationID,
			"association_id":    associationID,
			"scheme_account_id": schemeAccountID,
		})
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListStuck updatedBefore'dan beri ACTIVATING veya DEACTIVATING kalan kayıtlar.
func (r *ActivationRepository) ListStuck(ctx context.Context, updatedBefore time.Time) ([]models.ActivationRecord, error) {
	var records []models.ActivationRecord
	err := DB(ctx, r.db).
		Where("status IN ? AND updated_at < ?", []models.ActivationStatus{models.ActivationStatusActivating, models.ActivationStatusDeactivating}, updatedBefore).
		Order("id").Find(&records).Error
	return records, translate(err)
}

var _ IActivationRepository = (*ActivationRepository)(nil)
