package seeders

import (
	"errors"

	"pll.link/configs/configslog"
	"pll.link/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultSchemes geliştirme ortamı için varsayılan merchant sadakat programları.
var DefaultSchemes = []models.Scheme{
	{Slug: "iceland-bonus-card", Name: "Iceland Bonus Card"},
	{Slug: "wasabi-club", Name: "Wasabi Club"},
	{Slug: "harvey-nichols", Name: "Harvey Nichols Rewards"},
	{Slug: "squaremeal", Name: "SquareMeal"},
}

func SeedSchemes(db *gorm.DB, schemes []models.Scheme) error {
	var createdCount int64 = 0
	var errorOccurred bool = false

	configslog.SLog.Info("Şema seed işlemi başlıyor...")

	for _, schemeToSeed := range schemes {
		var existing models.Scheme
		result := db.Where("slug = ?", schemeToSeed.Slug).First(&existing)

		if result.Error == nil {
			configslog.SLog.Debugf("Şema '%s' zaten mevcut, oluşturma atlanıyor.", schemeToSeed.Slug)
			continue
		} else if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			configslog.Log.Error("Şema kontrol edilirken veritabanı hatası",
				zap.String("slug", schemeToSeed.Slug),
				zap.Error(result.Error),
			)
			errorOccurred = true
			continue
		}

		configslog.SLog.Infof("Şema '%s' oluşturuluyor...", schemeToSeed.Slug)

		if err := db.Create(&schemeToSeed).Error; err != nil {
			configslog.Log.Error("Şema oluşturulamadı",
				zap.String("slug", schemeToSeed.Slug),
				zap.Error(err),
			)
			errorOccurred = true
			continue
		}

		configslog.SLog.Infof("Şema '%s' başarıyla oluşturuldu (ID: %d).", schemeToSeed.Slug, schemeToSeed.ID)
		createdCount++
	}

	if createdCount > 0 {
		configslog.SLog.Infof("%d adet yeni şema başarıyla seed edildi.", createdCount)
	} else if !errorOccurred {
		configslog.SLog.Info("Tüm şemalar zaten mevcut, yeni ekleme yapılmadı.")
	}

	if errorOccurred {
		return errors.New("şemalar seed edilirken en az bir hata oluştu")
	}
	return nil
}
