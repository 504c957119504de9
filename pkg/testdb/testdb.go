// Package testdb testler için üretim migrasyonlarıyla kurulmuş geçici bir sqlite veritabanı açar.
package testdb

import (
	"fmt"
	"path/filepath"
	"testing"

	"pll.link/database"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open t.TempDir altında yeni bir veritabanı açar ve test bitince kapatır.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", filepath.Join(t.TempDir(), "test.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("sqlite açılamadı: %v", err)
	}
	if err := database.RunMigrationsInOrder(db); err != nil {
		t.Fatalf("migrasyon başarısız: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
