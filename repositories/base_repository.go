package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pll.link/configs/configslog"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNotFound kayıt bulunamadığında döner (gorm.ErrRecordNotFound yerine).
	ErrNotFound = errors.New("kayıt bulunamadı")
	// ErrDuplicate benzersizlik kısıtı ihlal edildiğinde döner.
	ErrDuplicate = errors.New("kayıt zaten mevcut")
)

type txKey struct{}

// ContextWithTx transaction'ı context'e yerleştirir; repository'ler bunu otomatik kullanır.
func ContextWithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext context'te transaction varsa döndürür.
func TxFromContext(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok && tx != nil
}

// DB context'te transaction varsa onu, yoksa verilen bağlantıyı context ile döndürür.
func DB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// RunInTx fn'i bir transaction içinde çalıştırır. Context'te zaten transaction varsa
// savepoint açılır; böylece iç adımın hatası dış işlemi bozmadan geri alınabilir.
func RunInTx(ctx context.Context, db *gorm.DB, fn func(ctx context.Context) error) error {
	return DB(ctx, db).Transaction(func(tx *gorm.DB) error {
		return fn(ContextWithTx(ctx, tx))
	})
}

// IsDuplicateKeyError postgres ve sqlite için benzersizlik ihlalini tanır.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrDuplicate) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// translate gorm hatalarını repository hatalarına çevirir.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return err
	}
}

// createIgnoringDuplicate kaydı savepoint içinde oluşturur. Benzersizlik ihlali
// eşzamanlı bir yazarın kazandığı anlamına gelir; created=false ve nil hata döner.
func createIgnoringDuplicate(db *gorm.DB, value any) (bool, error) {
	err := db.Transaction(func(sp *gorm.DB) error {
		return sp.Create(value).Error
	})
	if err == nil {
		return true, nil
	}
	if IsDuplicateKeyError(err) {
		configslog.SLog.Debugf("Eşzamanlı oluşturma yakalandı, mevcut kayıt kullanılacak: %T", value)
		return false, nil
	}
	return false, err
}

// IBaseRepository tek tablo üzerindeki temel işlemler.
type IBaseRepository[T any] interface {
	FindByID(ctx context.Context, id uint) (*T, error)
	Create(ctx context.Context, entity *T) error
	DeleteByID(ctx context.Context, id uint) error
}

// BaseRepository IBaseRepository'nin generik uygulaması.
type BaseRepository[T any] struct {
	db *gorm.DB
}

// NewBaseRepository yeni bir generik repository oluşturur.
func NewBaseRepository[T any](db *gorm.DB) *BaseRepository[T] {
	return &BaseRepository[T]{db: db}
}

func (r *BaseRepository[T]) getDB(ctx context.Context) *gorm.DB {
	return DB(ctx, r.db)
}

// FindByID ID ile kaydı bulur.
func (r *BaseRepository[T]) FindByID(ctx context.Context, id uint) (*T, error) {
	if id == 0 {
		return nil, ErrNotFound
	}
	var entity T
	if err := r.getDB(ctx).First(&entity, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			configslog.Log.Error("BaseRepository.FindByID: DB error", zap.String("type", typeName[T]()), zap.Uint("id", id), zap.Error(err))
		}
		return nil, translate(err)
	}
	return &entity, nil
}

// Create yeni kayıt oluşturur.
func (r *BaseRepository[T]) Create(ctx context.Context, entity *T) error {
	if entity == nil {
		return errors.New("oluşturulacak kayıt nil olamaz")
	}
	return translate(r.getDB(ctx).Create(entity).Error)
}

// DeleteByID kaydı kalıcı olarak siler. Kayıt yoksa ErrNotFound döner.
func (r *BaseRepository[T]) DeleteByID(ctx context.Context, id uint) error {
	var entity T
	result := r.getDB(ctx).Delete(&entity, id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func typeName[T any]() string {
	var zero T
	return strings.TrimPrefix(fmt.Sprintf("%T", zero), "models.")
}
