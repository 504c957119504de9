package configsnetwork

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"pll.link/configs/configslog"

	"gopkg.in/yaml.v3"
)

// Config kart ağı (Visa VOP vb.) aktivasyon servisinin ayarlarıdır.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	// Retries HTTP çağrısının görev içinde senkron olarak kaç kez tekrar deneneceği.
	Retries int `yaml:"retries"`
	// ActivationSchemes açık merchant aktivasyonu isteyen ödeme şemaları (örn. "visa").
	ActivationSchemes []string `yaml:"activation_schemes"`
}

// Default yapılandırma dosyası yoksa kullanılan değerler.
func Default() Config {
	return Config{
		BaseURL:           "http://localhost:8001",
		Timeout:           10 * time.Second,
		Retries:           3,
		ActivationSchemes: []string{"visa"},
	}
}

// Load YAML dosyasını okur. Dosya yoksa Default döner.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			configslog.SLog.Infof("Kart ağı yapılandırması bulunamadı (%s), varsayılanlar kullanılıyor.", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("kart ağı yapılandırması okunamadı: %w", err)
	}
	return Parse(raw)
}

// Parse ham YAML içeriğini varsayılanların üzerine uygular.
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("kart ağı yapılandırması çözümlenemedi: %w", err)
	}
	if cfg.Retries < 1 {
		cfg.Retries = 1
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg, nil
}

// RequiresActivation ödeme şemasının açık aktivasyon isteyip istemediğini söyler.
func (c Config) RequiresActivation(paymentScheme string) bool {
	for _, s := range c.ActivationSchemes {
		if strings.EqualFold(s, paymentScheme) {
			return true
		}
	}
	return false
}
