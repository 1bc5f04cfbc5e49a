package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "APP_ENV", "TOKEN_TTL_HOURS", "CART_TTL_HOURS", "CART_SWEEP_AT", "MAIL_TO", "DATABASE_URL", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.Port != "8080" || cfg.AppEnv != "dev" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Fatalf("token ttl = %v", cfg.TokenTTL)
	}
	if cfg.CartTTL != 24*time.Hour {
		t.Fatalf("cart ttl = %v", cfg.CartTTL)
	}
	if cfg.SweepHour != 0 || cfg.SweepMinute != 0 {
		t.Fatalf("sweep at %02d:%02d", cfg.SweepHour, cfg.SweepMinute)
	}
	if cfg.MailTo != "management@example.com" {
		t.Fatalf("mail to = %q", cfg.MailTo)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("cors origins = %v", cfg.CORSOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CART_SWEEP_AT", "03:30")
	t.Setenv("TOKEN_TTL_HOURS", "2")
	t.Setenv("CART_TTL_HOURS", "48")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/shop")

	cfg := Load()
	if cfg.SweepHour != 3 || cfg.SweepMinute != 30 {
		t.Fatalf("sweep at %02d:%02d", cfg.SweepHour, cfg.SweepMinute)
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Fatalf("token ttl = %v", cfg.TokenTTL)
	}
	if cfg.CartTTL != 48*time.Hour {
		t.Fatalf("cart ttl = %v", cfg.CartTTL)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors origins = %v", cfg.CORSOrigins)
	}
	if cfg.DSN() != "postgres://u:p@db:5432/shop" {
		t.Fatalf("dsn = %q", cfg.DSN())
	}
}

func TestDSNFromParts(t *testing.T) {
	cfg := Config{DBHost: "h", DBUser: "u", DBPassword: "p", DBName: "n", DBPort: "1"}
	want := "host=h user=u password=p dbname=n port=1 sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Fatalf("got %q", got)
	}
}

func TestParseClockMalformed(t *testing.T) {
	h, m := parseClock("25:99")
	if h != 0 || m != 0 {
		t.Fatalf("got %d:%d", h, m)
	}
}
