package migrations

import (
	"pll.link/configs/configslog"
	"pll.link/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func MigrateLinkTables(db *gorm.DB) error {
	configslog.SLog.Info("Migrating base_links and user_link_views tables...")
	err := db.AutoMigrate(&models.BaseLink{}, &models.UserLinkView{})
	if err != nil {
		configslog.Log.Error("Failed to migrate link tables", zap.Error(err))
		return err
	}
	configslog.SLog.Info("Link tables migrated successfully")
	return nil
}
