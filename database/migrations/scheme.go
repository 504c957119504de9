package migrations

import (
	"errors"

	"pll.link/configs/configslog"
	"pll.link/models"

	"gorm.io/gorm"
)

func MigrateSchemesTable(db *gorm.DB) error {
	configslog.SLog.Info("Scheme tablosu migrate ediliyor...")

	if err := db.AutoMigrate(&models.Scheme{}); err != nil {
		errMsg := "Scheme tablosu migrate edilemedi: " + err.Error()
		configslog.Log.Error(errMsg)
		return errors.New(errMsg)
	}

	configslog.SLog.Info("Scheme tablosu migrate işlemi tamamlandı.")
	return nil
}
