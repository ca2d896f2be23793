package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MENU_SECURITY_SIGNUP_SECRET", "signup-secret")
	t.Setenv("MENU_SESSION_SECRET", "session-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.RateLimit.LoginIP.Limit != 10 || cfg.RateLimit.LoginIP.Window != time.Minute {
		t.Fatalf("unexpected login_ip policy: %+v", cfg.RateLimit.LoginIP)
	}
	if cfg.RateLimit.LoginEmail.Limit != 5 || cfg.RateLimit.LoginEmail.Window != 15*time.Minute {
		t.Fatalf("unexpected login_email policy: %+v", cfg.RateLimit.LoginEmail)
	}
	if cfg.RateLimit.StoreTimeout != 250*time.Millisecond {
		t.Fatalf("unexpected store timeout: %v", cfg.RateLimit.StoreTimeout)
	}
	if cfg.Security.SignupTokenTTL != 15*time.Minute {
		t.Fatalf("unexpected signup token ttl: %v", cfg.Security.SignupTokenTTL)
	}
	if cfg.Session.CookieName != "session" || cfg.Session.TTL != 24*time.Hour {
		t.Fatalf("unexpected session settings: %+v", cfg.Session)
	}
	if plans := cfg.Payment.Plans(); len(plans) != 2 || plans[0] != "gold" || plans[1] != "silver" {
		t.Fatalf("unexpected plans: %v", plans)
	}
	if cfg.App.IsProduction() {
		t.Fatal("expected development environment by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MENU_SECURITY_SIGNUP_SECRET", "signup-secret")
	t.Setenv("MENU_SESSION_SECRET", "session-secret")
	t.Setenv("MENU_RATE_LIMIT_LOGIN_EMAIL_LIMIT", "3")
	t.Setenv("MENU_PAYMENT_PRICES_SILVER", "price_live_silver")
	t.Setenv("MENU_APP_BASE_URL", "https://menu.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.RateLimit.LoginEmail.Limit != 3 {
		t.Fatalf("expected env override, got %d", cfg.RateLimit.LoginEmail.Limit)
	}
	if cfg.Payment.Prices["silver"] != "price_live_silver" {
		t.Fatalf("expected price override, got %v", cfg.Payment.Prices)
	}
	if cfg.App.BaseURL != "https://menu.example" {
		t.Fatalf("unexpected base url: %s", cfg.App.BaseURL)
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	_, err := Load()
	if err == nil {
		t.Fatal("expected missing secrets to fail validation")
	}
	if !strings.Contains(err.Error(), "security.signup_secret") {
		t.Fatalf("expected signup secret error, got %v", err)
	}
}

func TestValidateProductionRequiresPaymentAndMail(t *testing.T) {
	cfg := AppConfig{
		App:      AppSettings{Env: "production"},
		Security: SecuritySettings{SignupSecret: "s"},
		Session:  SessionSettings{Secret: "s"},
		Payment:  PaymentSettings{Prices: map[string]string{"silver": "price"}},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected production config without payment and mail to be rejected")
	}
}

func TestValidateRejectsEmptyPriceAndAdminWithoutPassword(t *testing.T) {
	cfg := AppConfig{
		Security: SecuritySettings{SignupSecret: "s"},
		Session:  SessionSettings{Secret: "s"},
		Payment:  PaymentSettings{Prices: map[string]string{"silver": "price", "gold": " "}},
		Admin:    AdminSettings{Email: "ops@menu.dev"},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected invalid config")
	}
	for _, want := range []string{"payment.prices.gold", "admin.password"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
	if strings.Contains(err.Error(), "payment.prices.silver") {
		t.Fatalf("silver has a price, got %v", err)
	}
}

func TestLoadAdminFromEnv(t *testing.T) {
	t.Setenv("MENU_SECURITY_SIGNUP_SECRET", "signup-secret")
	t.Setenv("MENU_SESSION_SECRET", "session-secret")
	t.Setenv("MENU_ADMIN_EMAIL", "ops@menu.dev")
	t.Setenv("MENU_ADMIN_PASSWORD", "Aa123456")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.Admin.Enabled() || cfg.Admin.Email != "ops@menu.dev" || cfg.Admin.Password != "Aa123456" {
		t.Fatalf("unexpected admin settings: %+v", cfg.Admin)
	}
}
