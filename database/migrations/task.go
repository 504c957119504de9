package migrations

import (
	"pll.link/configs/configslog"
	"pll.link/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func MigrateTasksTable(db *gorm.DB) error {
	configslog.SLog.Info("Tasks tablosu migrate ediliyor...")
	if err := db.AutoMigrate(&models.Task{}); err != nil {
		configslog.Log.Error("Tasks tablosu migrate edilemedi", zap.Error(err))
		return err
	}
	configslog.SLog.Info("Tasks tablosu migrate işlemi tamamlandı.")
	return nil
}
