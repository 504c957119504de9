package configsnetwork

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
base_url: https://vop.example.com/
timeout: 3s
retries: 0
activation_schemes: [visa, mastercard]
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseURL != "https://vop.example.com" {
		t.Errorf("base url = %q, trailing slash must be trimmed", cfg.BaseURL)
	}
	if cfg.Timeout != 3*time.Second {
		t.Errorf("timeout = %s", cfg.Timeout)
	}
	if cfg.Retries != 1 {
		t.Errorf("retries = %d, want at least 1", cfg.Retries)
	}
	if !cfg.RequiresActivation("VISA") || !cfg.RequiresActivation("mastercard") || cfg.RequiresActivation("amex") {
		t.Errorf("activation schemes = %v", cfg.ActivationSchemes)
	}
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`timeout: 1s`))
	if err != nil {
		t.Fatal(err)
	}
	def := Default()
	if cfg.BaseURL != def.BaseURL || cfg.Retries != def.Retries || len(cfg.ActivationSchemes) != 1 {
		t.Errorf("cfg = %+v, want defaults for omitted keys", cfg)
	}
	if _, err := Parse([]byte("retries: [")); err == nil {
		t.Error("malformed yaml must fail")
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil || cfg.BaseURL != Default().BaseURL {
		t.Fatalf("missing file = (%+v, %v), want defaults", cfg, err)
	}

	path := filepath.Join(t.TempDir(), "networks.yaml")
	if err := os.WriteFile(path, []byte("retries: 5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(path)
	if err != nil || cfg.Retries != 5 {
		t.Errorf("Load = (%+v, %v)", cfg, err)
	}
}
