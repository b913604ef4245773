package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLoadDefaults(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg, err := Load("", logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Coinbase.BaseURL != "https://api.exchange.coinbase.com" {
		t.Errorf("expected production base URL default, got %s", cfg.Coinbase.BaseURL)
	}
	if cfg.Coinbase.AuthType != "legacy" {
		t.Errorf("expected legacy auth default, got %s", cfg.Coinbase.AuthType)
	}
	if cfg.Webhook.Secret != "" {
		t.Error("webhook secret must not ship with a default")
	}
	if cfg.Webhook.AllowUnauthenticated {
		t.Error("unauthenticated mode must be opt-in")
	}
	if cfg.Trading.MaxOrderSize != 0 {
		t.Errorf("expected cap disabled by default, got %f", cfg.Trading.MaxOrderSize)
	}
	if cfg.Trading.TestMode {
		t.Error("test mode must be off by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("COINBASE_API_KEY", "env-key")
	t.Setenv("COINBASE_API_SECRET", "env-secret")
	t.Setenv("COINBASE_API_PASSPHRASE", "env-pass")
	t.Setenv("COINBASE_URL", "https://api-public.sandbox.exchange.coinbase.com")
	t.Setenv("WEBHOOK_SECRET", "env-webhook")
	t.Setenv("MAX_ORDER_SIZE", "2.5")
	t.Setenv("TEST_MODE", "true")
	t.Setenv("PORT", "9000")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Coinbase.APIKey != "env-key" {
		t.Errorf("expected env-key, got %s", cfg.Coinbase.APIKey)
	}
	if cfg.Coinbase.Passphrase != "env-pass" {
		t.Errorf("expected env-pass, got %s", cfg.Coinbase.Passphrase)
	}
	if cfg.Coinbase.BaseURL != "https://api-public.sandbox.exchange.coinbase.com" {
		t.Errorf("expected sandbox base URL, got %s", cfg.Coinbase.BaseURL)
	}
	if cfg.Webhook.Secret != "env-webhook" {
		t.Errorf("expected env-webhook, got %s", cfg.Webhook.Secret)
	}
	if cfg.Trading.MaxOrderSize != 2.5 {
		t.Errorf("expected cap 2.5, got %f", cfg.Trading.MaxOrderSize)
	}
	if !cfg.Trading.TestMode {
		t.Error("expected test mode enabled")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
server:
  port: 3000
webhook:
  secret: file-secret
trading:
  max_order_size: 1.5
logging:
  level: debug
  log_payloads: true
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("expected port 3000, got %d", cfg.Server.Port)
	}
	if cfg.Webhook.Secret != "file-secret" {
		t.Errorf("expected file-secret, got %s", cfg.Webhook.Secret)
	}
	if cfg.Trading.MaxOrderSize != 1.5 {
		t.Errorf("expected cap 1.5, got %f", cfg.Trading.MaxOrderSize)
	}
	if !cfg.Logging.LogPayloads {
		t.Error("expected payload logging enabled")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("PORT", "99999")
	if _, err := Load("", nil); err == nil {
		t.Error("expected error for out-of-range port")
	}
}

func TestLoadRejectsUnknownAuthType(t *testing.T) {
	t.Setenv("COINBASE_AUTH_TYPE", "oauth")
	if _, err := Load("", nil); err == nil {
		t.Error("expected error for unknown auth type")
	}
}
