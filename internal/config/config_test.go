package config

import (
	"os"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MYSQL_DSN", "user:pass@tcp(localhost:3306)/test")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PROVIDER_GATEWAY_URL", "https://dns-gateway.example.net")
	t.Setenv("PROVIDER_API_TOKEN", "gw-token")
	t.Setenv("PARENT_DOMAIN", "example.com")
}

func TestLoad(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.MySQL.DSN == "" {
		t.Error("MySQL DSN should not be empty")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("Expected HTTPAddr :8080, got %s", cfg.HTTPAddr)
	}
	if cfg.Provider.TimeoutSec != 15 {
		t.Errorf("Expected provider timeout 15, got %d", cfg.Provider.TimeoutSec)
	}
	if cfg.Records.HostingIP != "76.76.21.21" {
		t.Errorf("Expected default hosting IP, got %s", cfg.Records.HostingIP)
	}
	if cfg.Records.VerifyTarget != "cname.vercel-dns.com" {
		t.Errorf("Expected default verify target, got %s", cfg.Records.VerifyTarget)
	}
	if cfg.Verification.MaxRetries != 10 || cfg.Verification.RetryDelaySec != 15 {
		t.Errorf("Expected verification defaults 10/15, got %d/%d",
			cfg.Verification.MaxRetries, cfg.Verification.RetryDelaySec)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []string{
		"MYSQL_DSN",
		"JWT_SECRET",
		"PROVIDER_GATEWAY_URL",
		"PROVIDER_API_TOKEN",
		"PARENT_DOMAIN",
	}
	for _, missing := range tests {
		t.Run(missing, func(t *testing.T) {
			setRequiredEnv(t)
			os.Unsetenv(missing)

			if _, err := Load(); err == nil {
				t.Errorf("Expected error when %s is missing", missing)
			}
		})
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REDIS_ADDR", "redis.example.com:6379")
	t.Setenv("REDIS_PASS", "secret")
	t.Setenv("REDIS_DB", "5")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("VERIFY_MAX_RETRIES", "20")
	t.Setenv("MX_PRIMARY", "mx1.mail.example.net")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Redis.Addr != "redis.example.com:6379" {
		t.Errorf("Expected custom Redis addr, got %s", cfg.Redis.Addr)
	}
	if cfg.Redis.Password != "secret" {
		t.Errorf("Expected Redis password 'secret', got %s", cfg.Redis.Password)
	}
	if cfg.Redis.DB != 5 {
		t.Errorf("Expected Redis DB 5, got %d", cfg.Redis.DB)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("Expected HTTPAddr :9090, got %s", cfg.HTTPAddr)
	}
	if cfg.Verification.MaxRetries != 20 {
		t.Errorf("Expected max retries 20, got %d", cfg.Verification.MaxRetries)
	}
	if cfg.Records.MXPrimary != "mx1.mail.example.net" {
		t.Errorf("Expected MX primary, got %s", cfg.Records.MXPrimary)
	}
}
