package payment

import "testing"

func TestConfigValidate(t *testing.T) {
	cfg := testConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "unknown provider", mutate: func(c *Config) { c.Provider = "paypal" }},
		{name: "unknown environment", mutate: func(c *Config) { c.Environment = "staging" }},
		{name: "missing frontend URL", mutate: func(c *Config) { c.FrontendBaseURL = "" }},
		{name: "missing active API key", mutate: func(c *Config) { c.Stripe.APIKey = "" }},
		{name: "missing active webhook secret", mutate: func(c *Config) { c.Stripe.WebhookSecret = "" }},
	}

	for _, tt := range tests {
		cfg := testConfig()
		tt.mutate(&cfg)
		if err := cfg.Validate(); !IsKind(err, KindConfiguration) {
			t.Fatalf("%s: expected configuration error, got %v", tt.name, err)
		}
	}
}

func TestConfigValidate_InactiveGatewayMayBeEmpty(t *testing.T) {
	cfg := testConfig()
	cfg.Dodo = GatewayConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty inactive gateway rejected: %v", err)
	}
	if err := cfg.ValidateGateway(ProviderDodo); !IsKind(err, KindConfiguration) {
		t.Fatalf("expected configuration error when validating the empty gateway, got %v", err)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PAYMENT_PROVIDER", "Dodo")
	t.Setenv("PAYMENT_ENVIRONMENT", "PRODUCTION")
	t.Setenv("FRONTEND_BASE_URL", "https://app.example.com/")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_env")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_env")
	t.Setenv("STRIPE_PRICE_PROFESSIONAL_MONTHLY", "price_env_pro_m")
	t.Setenv("DODO_API_KEY", "dodo_env_key")
	t.Setenv("DODO_WEBHOOK_SECRET", "whsec_dodo_env")
	t.Setenv("DODO_PRODUCT_ENTERPRISE_ANNUALLY", "prod_env_ent_a")

	cfg := LoadConfigFromEnv()
	if cfg.Provider != ProviderDodo {
		t.Fatalf("provider = %q, want dodo", cfg.Provider)
	}
	if cfg.Environment != "production" {
		t.Fatalf("environment = %q, want production", cfg.Environment)
	}
	if cfg.FrontendBaseURL != "https://app.example.com" {
		t.Fatalf("frontend URL = %q, want trailing slash trimmed", cfg.FrontendBaseURL)
	}
	if got := cfg.Stripe.Prices[PriceKey(PlanProfessional, PeriodMonthly)]; got != "price_env_pro_m" {
		t.Fatalf("stripe price = %q", got)
	}
	if got := cfg.Dodo.Prices[PriceKey(PlanEnterprise, PeriodAnnually)]; got != "prod_env_ent_a" {
		t.Fatalf("dodo product = %q", got)
	}
	if _, ok := cfg.Stripe.Prices[PriceKey(PlanEnterprise, PeriodAnnually)]; ok {
		t.Fatalf("unset price vars must not appear in the table")
	}
}

func TestPriceKeyRoundTrip(t *testing.T) {
	key := PriceKey(PlanEnterprise, PeriodAnnually)
	plan, period, ok := splitPriceKey(key)
	if !ok || plan != PlanEnterprise || period != PeriodAnnually {
		t.Fatalf("splitPriceKey(%q) = %q/%q/%v", key, plan, period, ok)
	}
	if _, _, ok := splitPriceKey("malformed"); ok {
		t.Fatalf("expected malformed key to be rejected")
	}
}
