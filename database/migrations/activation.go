package migrations

import (
	"pll.link/configs/configslog"
	"pll.link/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func MigrateActivationTable(db *gorm.DB) error {
	configslog.SLog.Info("Activation records tablosu migrate ediliyor...")
	if err := db.AutoMigrate(&models.ActivationRecord{}); err != nil {
		configslog.Log.Error("Activation records tablosu migrate edilemedi", zap.Error(err))
		return err
	}
	configslog.SLog.Info("Activation records tablosu migrate işlemi tamamlandı.")
	return nil
}
