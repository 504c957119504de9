package migrations

import (
	"pll.link/configs/configslog"
	"pll.link/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MigrateLoyaltyTables sadakat hesaplarını ve kullanıcı üyeliklerini oluşturur. Scheme tablosundan sonra çalışmalı.
func MigrateLoyaltyTables(db *gorm.DB) error {
	configslog.SLog.Info("Loyalty tabloları migrate ediliyor...")
	if err := db.AutoMigrate(&models.LoyaltyAccount{}, &models.LoyaltyEntry{}); err != nil {
		configslog.Log.Error("Loyalty tabloları migrate edilemedi", zap.Error(err))
		return err
	}
	configslog.SLog.Info("Loyalty tabloları migrate işlemi tamamlandı.")
	return nil
}
