package repositories

import (
	"context"
	"errors"

	"pll.link/models"

	"gorm.io/gorm"
)

// ISchemeRepository sadakat şemaları için arayüz.
type ISchemeRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Scheme, error)
	FindBySlug(ctx context.Context, slug string) (*models.Scheme, error)
	Create(ctx context.Context, scheme *models.Scheme) error
}

// SchemeRepository ISchemeRepository arayüzünü uygular.
type SchemeRepository struct {
	*BaseRepository[models.Scheme]
	db *gorm.DB
}

// NewSchemeRepository yeni bir SchemeRepository örneği oluşturur.
func NewSchemeRepository(db *gorm.DB) ISchemeRepository {
	return &SchemeRepository{BaseRepository: NewBaseRepository[models.Scheme](db), db: db}
}

// FindBySlug slug ile şemayı bulur.
func (r *SchemeRepository) FindBySlug(ctx context.Context, slug string) (*models.Scheme, error) {
	if slug == "" {
		return nil, errors.New("aranacak şema slug'ı boş olamaz")
	}
	var scheme models.Scheme
	if err := DB(ctx, r.db).Where("slug = ?", slug).First(&scheme).Error; err != nil {
		return nil, translate(err)
	}
	return &scheme, nil
}

var _ ISchemeRepository = (*SchemeRepository)(nil)
