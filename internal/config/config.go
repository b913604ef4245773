package config

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/bubio989-sudo/coinbasenov22/pkg/secrets"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Coinbase CoinbaseConfig `mapstructure:"coinbase"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	GCP      GCPConfig      `mapstructure:"gcp"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type CoinbaseConfig struct {
	APIKey     string `mapstructure:"api_key"`
	APISecret  string `mapstructure:"api_secret"` // base64-encoded; PEM key when auth_type is "jwt"
	Passphrase string `mapstructure:"passphrase"`
	BaseURL    string `mapstructure:"base_url"`
	AuthType   string `mapstructure:"auth_type"` // "legacy" or "jwt"
}

type WebhookConfig struct {
	// Secret is the shared token signal sources must present. It ships with
	// no default; leaving it empty refuses all webhook calls unless
	// allow_unauthenticated is explicitly set.
	Secret               string `mapstructure:"secret"`
	AllowUnauthenticated bool   `mapstructure:"allow_unauthenticated"`
}

type TradingConfig struct {
	MaxOrderSize float64 `mapstructure:"max_order_size"` // 0 disables the cap
	TestMode     bool    `mapstructure:"test_mode"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	LogPayloads bool   `mapstructure:"log_payloads"`
}

type GCPConfig struct {
	ProjectID       string              `mapstructure:"project_id"`
	UseSecrets      bool                `mapstructure:"use_secrets"`
	CredentialsFile string              `mapstructure:"credentials_file"`
	SecretNames     secrets.SecretNames `mapstructure:"secret_names"`
}

func Load(configPath string, logger *logrus.Logger) (*Config, error) {
	if logger == nil {
		logger = logrus.New()
	}

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/signal-relay")
	}

	// Read environment variables
	v.SetEnvPrefix("RELAY")
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Override with environment variables if set
	overrideFromEnv(&config)

	// Load secrets from GCP if enabled
	if config.GCP.UseSecrets && config.GCP.ProjectID != "" {
		ctx := context.Background()
		if err := loadSecretsFromGCP(ctx, &config, logger); err != nil {
			return nil, fmt.Errorf("error loading secrets from GCP: %w", err)
		}
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)

	// Coinbase defaults
	v.SetDefault("coinbase.base_url", "https://api.exchange.coinbase.com")
	v.SetDefault("coinbase.auth_type", "legacy")

	// Webhook defaults: authenticated, no shipped secret
	v.SetDefault("webhook.allow_unauthenticated", false)

	// Trading defaults
	v.SetDefault("trading.max_order_size", 0.0)
	v.SetDefault("trading.test_mode", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.log_payloads", false)

	// GCP defaults
	v.SetDefault("gcp.use_secrets", false)
	v.SetDefault("gcp.project_id", "")

	// Secret name defaults
	secretNames := secrets.DefaultSecretNames()
	v.SetDefault("gcp.secret_names.api_key", secretNames.APIKey)
	v.SetDefault("gcp.secret_names.api_secret", secretNames.APISecret)
	v.SetDefault("gcp.secret_names.passphrase", secretNames.Passphrase)
	v.SetDefault("gcp.secret_names.webhook_secret", secretNames.WebhookSecret)
}

func overrideFromEnv(config *Config) {
	// Coinbase credentials from environment
	if apiKey := os.Getenv("COINBASE_API_KEY"); apiKey != "" {
		config.Coinbase.APIKey = apiKey
	}
	if apiSecret := os.Getenv("COINBASE_API_SECRET"); apiSecret != "" {
		config.Coinbase.APISecret = apiSecret
	}
	if passphrase := os.Getenv("COINBASE_API_PASSPHRASE"); passphrase != "" {
		config.Coinbase.Passphrase = passphrase
	}
	if baseURL := os.Getenv("COINBASE_URL"); baseURL != "" {
		config.Coinbase.BaseURL = baseURL
	}
	if authType := os.Getenv("COINBASE_AUTH_TYPE"); authType != "" {
		config.Coinbase.AuthType = authType
	}

	// Webhook settings from environment
	if secret := os.Getenv("WEBHOOK_SECRET"); secret != "" {
		config.Webhook.Secret = secret
	}

	// Trading settings from environment
	if maxSize := os.Getenv("MAX_ORDER_SIZE"); maxSize != "" {
		if parsed, err := strconv.ParseFloat(maxSize, 64); err == nil {
			config.Trading.MaxOrderSize = parsed
		}
	}
	if testMode := os.Getenv("TEST_MODE"); testMode == "true" || testMode == "1" {
		config.Trading.TestMode = true
	}

	// Server settings from environment
	if port := os.Getenv("PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			config.Server.Port = parsed
		}
	}

	// GCP configuration from environment
	if projectID := os.Getenv("GCP_PROJECT_ID"); projectID != "" {
		config.GCP.ProjectID = projectID
	}
	if useSecrets := os.Getenv("GCP_USE_SECRETS"); useSecrets == "true" {
		config.GCP.UseSecrets = true
	}
}

func validate(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", config.Server.Port)
	}
	if config.Trading.MaxOrderSize < 0 {
		return fmt.Errorf("max order size must not be negative")
	}
	switch config.Coinbase.AuthType {
	case "legacy", "jwt":
	default:
		return fmt.Errorf("unknown coinbase auth type %q", config.Coinbase.AuthType)
	}
	return nil
}

func loadSecretsFromGCP(ctx context.Context, config *Config, logger *logrus.Logger) error {
	secretManager, err := secrets.NewGCPSecretManager(ctx, config.GCP.ProjectID, config.GCP.CredentialsFile, logger)
	if err != nil {
		return fmt.Errorf("failed to create secret manager: %w", err)
	}
	defer secretManager.Close()

	// Only load secrets if they're not already set
	if config.Coinbase.APIKey == "" {
		config.Coinbase.APIKey = secretManager.GetSecretWithDefault(ctx,
			config.GCP.SecretNames.APIKey, "")
	}
	if config.Coinbase.APISecret == "" {
		config.Coinbase.APISecret = secretManager.GetSecretWithDefault(ctx,
			config.GCP.SecretNames.APISecret, "")
	}
	if config.Coinbase.Passphrase == "" {
		config.Coinbase.Passphrase = secretManager.GetSecretWithDefault(ctx,
			config.GCP.SecretNames.Passphrase, "")
	}
	if config.Webhook.Secret == "" {
		config.Webhook.Secret = secretManager.GetSecretWithDefault(ctx,
			config.GCP.SecretNames.WebhookSecret, "")
	}

	logger.Info("Successfully loaded secrets from GCP Secret Manager")
	return nil
}
