package configsenv

import (
	"os"
	"strconv"
	"time"

	"pll.link/configs/configslog"

	"github.com/joho/godotenv"
)

// Config uygulamanın ortam değişkenlerinden okunan ayarlarıdır.
type Config struct {
	AppEnv  string
	AppPort string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBTimeZone string

	NetworkConfigPath string
	EventsURL         string
	UserRefSalt       string

	WorkerConcurrency  int
	WorkerPollInterval time.Duration
	TaskMaxAttempts    int
}

// Load .env dosyasını (varsa) yükler ve Config'i doldurur.
// Dosyanın olmaması hata değildir; değerler doğrudan ortamdan da gelebilir.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		configslog.SLog.Debug(".env dosyası bulunamadı, yalnızca ortam değişkenleri kullanılacak.")
	}

	return Config{
		AppEnv:  GetEnvWithDefault("APP_ENV", "development"),
		AppPort: GetEnvWithDefault("APP_PORT", "3000"),

		DBHost:     GetEnvWithDefault("DB_HOST", "localhost"),
		DBPort:     GetEnvWithDefault("DB_PORT", "5432"),
		DBUser:     GetEnvWithDefault("DB_USER", "postgres"),
		DBPassword: GetEnvWithDefault("DB_PASSWORD", ""),
		DBName:     GetEnvWithDefault("DB_NAME", "pll"),
		DBSSLMode:  GetEnvWithDefault("DB_SSLMODE", "disable"),
		DBTimeZone: GetEnvWithDefault("DB_TIMEZONE", "UTC"),

		NetworkConfigPath: GetEnvWithDefault("NETWORK_CONFIG", "networks.yaml"),
		EventsURL:         os.Getenv("EVENTS_URL"),
		UserRefSalt:       os.Getenv("USER_REF_SALT"),

		WorkerConcurrency:  GetEnvAsInt("WORKER_CONCURRENCY", 4),
		WorkerPollInterval: GetEnvAsDuration("WORKER_POLL_INTERVAL", time.Second),
		TaskMaxAttempts:    GetEnvAsInt("TASK_MAX_ATTEMPTS", 10),
	}
}

// GetEnvWithDefault ortam değişkenini okur, boşsa varsayılanı döndürür.
func GetEnvWithDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvAsInt tamsayı ortam değişkeni okur; geçersizse uyarı loglar ve varsayılanı kullanır.
func GetEnvAsInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		configslog.SLog.Warnf("%s geçersiz tamsayı (%q), varsayılan %d kullanılıyor", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

// GetEnvAsDuration "500ms", "2s" gibi süre değerlerini okur.
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		configslog.SLog.Warnf("%s geçersiz süre (%q), varsayılan %s kullanılıyor", key, raw, defaultValue)
		return defaultValue
	}
	return v
}
