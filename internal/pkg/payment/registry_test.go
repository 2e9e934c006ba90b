package payment

import (
	"sync"
	"testing"
)

func testConfig() Config {
	return Config{
		Provider:        ProviderStripe,
		Environment:     "sandbox",
		FrontendBaseURL: "https://app.example.com",
		Stripe: GatewayConfig{
			APIKey:        "sk_test_123",
			WebhookSecret: "whsec_stripe_test",
			Prices: map[string]string{
				PriceKey(PlanProfessional, PeriodMonthly): "price_pro_monthly",
			},
		},
		Dodo: GatewayConfig{
			APIKey:        "dodo_test_key",
			WebhookSecret: "whsec_dodo_test",
			Prices: map[string]string{
				PriceKey(PlanProfessional, PeriodMonthly): "prod_pro_monthly",
			},
		},
	}
}

func TestRegistryProvider_LazyBuild(t *testing.T) {
	r := NewRegistry(testConfig())

	if r.ProviderType() != ProviderStripe {
		t.Fatalf("provider type = %q, want stripe", r.ProviderType())
	}

	p1, err := r.Provider()
	if err != nil {
		t.Fatalf("Provider: %v", err)
	}
	if p1.Name() != "stripe" {
		t.Fatalf("provider name = %q, want stripe", p1.Name())
	}

	p2, err := r.Provider()
	if err != nil {
		t.Fatalf("Provider: %v", err)
	}
	if p1 != p2 {
		t.Fatalf("expected the same adapter instance on repeated calls")
	}
}

func TestRegistrySwitchProvider(t *testing.T) {
	r := NewRegistry(testConfig())

	if err := r.SwitchProvider(ProviderDodo); err != nil {
		t.Fatalf("SwitchProvider: %v", err)
	}
	if r.ProviderType() != ProviderDodo {
		t.Fatalf("provider type = %q, want dodo", r.ProviderType())
	}

	p, err := r.Provider()
	if err != nil {
		t.Fatalf("Provider: %v", err)
	}
	if p.Name() != "dodo" {
		t.Fatalf("provider name = %q, want dodo", p.Name())
	}
}

func TestRegistrySwitchProvider_MisconfiguredTargetKeepsActive(t *testing.T) {
	cfg := testConfig()
	cfg.Dodo = GatewayConfig{} // no credentials
	r := NewRegistry(cfg)

	before, err := r.Provider()
	if err != nil {
		t.Fatalf("Provider: %v", err)
	}

	if err := r.SwitchProvider(ProviderDodo); !IsKind(err, KindConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if r.ProviderType() != ProviderStripe {
		t.Fatalf("provider type = %q, want unchanged stripe", r.ProviderType())
	}

	after, err := r.Provider()
	if err != nil {
		t.Fatalf("Provider: %v", err)
	}
	if before != after {
		t.Fatalf("failed switch must not replace the active adapter")
	}
}

func TestRegistrySwitchProvider_UnknownGateway(t *testing.T) {
	r := NewRegistry(testConfig())
	if err := r.SwitchProvider("paypal"); !IsKind(err, KindConfiguration) {
		t.Fatalf("expected configuration error for unknown gateway, got %v", err)
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry(testConfig())

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%8 == 0 {
				target := ProviderDodo
				if i%16 == 0 {
					target = ProviderStripe
				}
				if err := r.SwitchProvider(target); err != nil {
					t.Errorf("SwitchProvider: %v", err)
				}
				return
			}
			p, err := r.Provider()
			if err != nil {
				t.Errorf("Provider: %v", err)
				return
			}
			if name := p.Name(); name != "stripe" && name != "dodo" {
				t.Errorf("unexpected provider %q", name)
			}
		}(i)
	}
	wg.Wait()
}
