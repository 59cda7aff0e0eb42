package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

// Config holds all configuration
type Config struct {
	MySQL        MySQLConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Migrate      bool
	HTTPAddr     string
	Provider     ProviderConfig
	Billing      BillingConfig
	Records      RecordsConfig
	Verification VerificationConfig
}

// MySQLConfig holds MySQL configuration
type MySQLConfig struct {
	DSN string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret        string
	ExpireMinutes int
	Issuer        string
}

// ProviderConfig holds the DNS provider gateway credentials. All provider
// access is explicit: the gateway URL and token come from here, never from
// ambient environment lookups inside the client.
type ProviderConfig struct {
	GatewayURL   string
	APIToken     string
	ParentDomain string
	TimeoutSec   int
}

// BillingConfig holds the billing service endpoint
type BillingConfig struct {
	BaseURL    string
	APIToken   string
	TimeoutSec int
}

// RecordsConfig holds the fixed record targets new registrations point at
type RecordsConfig struct {
	HostingIP    string
	VerifyTarget string
	MXPrimary    string
	MXSecondary  string
	SPFText      string
}

// VerificationConfig tunes the propagation polling loop
type VerificationConfig struct {
	MaxRetries    int
	RetryDelaySec int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		MySQL: MySQLConfig{
			DSN: getEnv("MYSQL_DSN", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASS", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:        os.Getenv("JWT_SECRET"),
			ExpireMinutes: getEnvInt("JWT_EXPIRE_MINUTES", 1440),
			Issuer:        getEnv("JWT_ISSUER", "freedomains"),
		},
		Migrate:  getEnv("MIGRATE", "0") == "1",
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		Provider: ProviderConfig{
			GatewayURL:   getEnv("PROVIDER_GATEWAY_URL", ""),
			APIToken:     getEnv("PROVIDER_API_TOKEN", ""),
			ParentDomain: getEnv("PARENT_DOMAIN", ""),
			TimeoutSec:   getEnvInt("PROVIDER_TIMEOUT_SEC", 15),
		},
		Billing: BillingConfig{
			BaseURL:    getEnv("BILLING_BASE_URL", ""),
			APIToken:   getEnv("BILLING_API_TOKEN", ""),
			TimeoutSec: getEnvInt("BILLING_TIMEOUT_SEC", 10),
		},
		Records: RecordsConfig{
			HostingIP:    getEnv("HOSTING_IP", "76.76.21.21"),
			VerifyTarget: getEnv("VERIFY_TARGET", "cname.vercel-dns.com"),
			MXPrimary:    getEnv("MX_PRIMARY", ""),
			MXSecondary:  getEnv("MX_SECONDARY", ""),
			SPFText:      getEnv("SPF_TEXT", ""),
		},
		Verification: VerificationConfig{
			MaxRetries:    getEnvInt("VERIFY_MAX_RETRIES", 10),
			RetryDelaySec: getEnvInt("VERIFY_RETRY_DELAY_SEC", 15),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.MySQL.DSN == "" {
		return fmt.Errorf("MYSQL_DSN is required")
	}
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Provider.GatewayURL == "" {
		return fmt.Errorf("PROVIDER_GATEWAY_URL is required")
	}
	if cfg.Provider.APIToken == "" {
		return fmt.Errorf("PROVIDER_API_TOKEN is required")
	}
	if cfg.Provider.ParentDomain == "" {
		return fmt.Errorf("PARENT_DOMAIN is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// LoadFromINI loads configuration from INI file with environment variable override
func LoadFromINI(iniPath string) (*Config, error) {
	cfgFile, err := ini.Load(iniPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load INI file: %w", err)
	}

	// Priority: ENV > INI > default
	getValue := func(envKey, iniSection, iniKey, defaultValue string) string {
		if value := os.Getenv(envKey); value != "" {
			return value
		}
		if value := cfgFile.Section(iniSection).Key(iniKey).String(); value != "" {
			return value
		}
		return defaultValue
	}

	getValueInt := func(envKey, iniSection, iniKey string, defaultValue int) int {
		if value := os.Getenv(envKey); value != "" {
			if intValue, err := strconv.Atoi(value); err == nil {
				return intValue
			}
		}
		if cfgFile.Section(iniSection).HasKey(iniKey) {
			if value, err := cfgFile.Section(iniSection).Key(iniKey).Int(); err == nil {
				return value
			}
		}
		return defaultValue
	}

	getValueBool := func(envKey, iniSection, iniKey string, defaultValue bool) bool {
		if value := os.Getenv(envKey); value != "" {
			return value == "1" || value == "true"
		}
		if value, err := cfgFile.Section(iniSection).Key(iniKey).Bool(); err == nil {
			return value
		}
		return defaultValue
	}

	cfg := &Config{
		MySQL: MySQLConfig{
			DSN: getValue("MYSQL_DSN", "mysql", "dsn", ""),
		},
		Redis: RedisConfig{
			Addr:     getValue("REDIS_ADDR", "redis", "addr", "localhost:6379"),
			Password: getValue("REDIS_PASS", "redis", "pass", ""),
			DB:       getValueInt("REDIS_DB", "redis", "db", 0),
		},
		JWT: JWTConfig{
			Secret:        getValue("JWT_SECRET", "jwt", "secret", ""),
			ExpireMinutes: getValueInt("JWT_EXPIRE_MINUTES", "jwt", "expire_seconds", 86400) / 60,
			Issuer:        getValue("JWT_ISSUER", "jwt", "issuer", "freedomains"),
		},
		Migrate:  getValueBool("MIGRATE", "app", "migrate", false),
		HTTPAddr: getValue("HTTP_ADDR", "http", "addr", ":8080"),
		Provider: ProviderConfig{
			GatewayURL:   getValue("PROVIDER_GATEWAY_URL", "provider", "gateway_url", ""),
			APIToken:     getValue("PROVIDER_API_TOKEN", "provider", "api_token", ""),
			ParentDomain: getValue("PARENT_DOMAIN", "provider", "parent_domain", ""),
			TimeoutSec:   getValueInt("PROVIDER_TIMEOUT_SEC", "provider", "timeout_sec", 15),
		},
		Billing: BillingConfig{
			BaseURL:    getValue("BILLING_BASE_URL", "billing", "base_url", ""),
			APIToken:   getValue("BILLING_API_TOKEN", "billing", "api_token", ""),
			TimeoutSec: getValueInt("BILLING_TIMEOUT_SEC", "billing", "timeout_sec", 10),
		},
		Records: RecordsConfig{
			HostingIP:    getValue("HOSTING_IP", "records", "hosting_ip", "76.76.21.21"),
			VerifyTarget: getValue("VERIFY_TARGET", "records", "verify_target", "cname.vercel-dns.com"),
			MXPrimary:    getValue("MX_PRIMARY", "records", "mx_primary", ""),
			MXSecondary:  getValue("MX_SECONDARY", "records", "mx_secondary", ""),
			SPFText:      getValue("SPF_TEXT", "records", "spf_text", ""),
		},
		Verification: VerificationConfig{
			MaxRetries:    getValueInt("VERIFY_MAX_RETRIES", "verification", "max_retries", 10),
			RetryDelaySec: getValueInt("VERIFY_RETRY_DELAY_SEC", "verification", "retry_delay_sec", 15),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
