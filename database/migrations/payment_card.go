package migrations

import (
	"pll.link/configs/configslog"
	"pll.link/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MigratePaymentCardTables ödeme kartı hesaplarını ve cüzdan üyeliklerini oluşturur.
func MigratePaymentCardTables(db *gorm.DB) error {
	configslog.SLog.Info("Payment card tabloları migrate ediliyor...")
	if err := db.AutoMigrate(&models.PaymentCardAccount{}, &models.PaymentCardEntry{}); err != nil {
		configslog.Log.Error("Payment card tabloları migrate edilemedi", zap.Error(err))
		return err
	}
	configslog.SLog.Info("Payment card tabloları migrate işlemi tamamlandı.")
	return nil
}
