package repositories

import (
	"context"

	"pll.link/models"

	"gorm.io/gorm"
)

// IUserRepository kullanıcı (cüzdan sahibi) işlemleri için arayüz.
type IUserRepository interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error)
	Create(ctx context.Context, user *models.User) error
	MarkDeleted(ctx context.Context, id uint) error
}

// UserRepository IUserRepository arayüzünü uygular.
type UserRepository struct {
	*BaseRepository[models.User]
	db *gorm.DB
}

// NewUserRepository yeni bir UserRepository örneği oluşturur.
func NewUserRepository(db *gorm.DB) IUserRepository {
	return &UserRepository{BaseRepository: NewBaseRepository[models.User](db), db: db}
}

// FindByIDs kullanıcıları ID -> User haritası olarak döndürür.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error) {
	out := make(map[uint]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := DB(ctx, r.db).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, translate(err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// MarkDeleted kullanıcıyı silinmiş olarak işaretler.
func (r *UserRepository) MarkDeleted(ctx context.Context, id uint) error {
	result := DB(ctx, r.db).Model(&models.User{}).Where("id = ?", id).Update("is_deleted", true)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

var _ IUserRepository = (*UserRepository)(nil)
