package configsdatabase

import (
	"fmt"
	"time"

	"pll.link/configs/configsenv"
	"pll.link/configs/configslog"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// InitDB postgres bağlantısını açar ve global olarak saklar.
// Bağlantı kurulamazsa uygulama başlatılamaz.
func InitDB(cfg configsenv.Config) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode, cfg.DBTimeZone)

	logLevel := logger.Warn
	if cfg.AppEnv != "production" {
		logLevel = logger.Info
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true, // unique ihlalleri gorm.ErrDuplicatedKey olarak gelsin
	})
	if err != nil {
		configslog.Log.Fatal("Veritabanına bağlanılamadı",
			zap.String("host", cfg.DBHost),
			zap.String("db", cfg.DBName),
			zap.Error(err),
		)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		configslog.Log.Fatal("Veritabanı bağlantı havuzu alınamadı", zap.Error(err))
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	db = conn
	configslog.SLog.Infof("Veritabanı bağlantısı kuruldu: %s@%s/%s", cfg.DBUser, cfg.DBHost, cfg.DBName)
}

// GetDB InitDB ile açılmış bağlantıyı döndürür.
func GetDB() *gorm.DB {
	if db == nil {
		configslog.Log.Fatal("Veritabanı başlatılmadan GetDB çağrıldı")
	}
	return db
}

// CloseDB bağlantı havuzunu kapatır.
func CloseDB() {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		configslog.Log.Error("Veritabanı bağlantısı kapatılırken hata", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		configslog.Log.Error("Veritabanı bağlantısı kapatılamadı", zap.Error(err))
		return
	}
	configslog.SLog.Info("Veritabanı bağlantısı kapatıldı.")
}
