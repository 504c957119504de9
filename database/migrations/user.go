package migrations

import (
	"pll.link/configs/configslog"
	"pll.link/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func MigrateUsersTable(db *gorm.DB) error {
	configslog.SLog.Info("Users tablosu migrate ediliyor...")
	if err := db.AutoMigrate(&models.User{}); err != nil {
		configslog.Log.Error("Users tablosu migrate edilemedi", zap.Error(err))
		return err
	}
	configslog.SLog.Info("Users tablosu migrate işlemi tamamlandı.")
	return nil
}
