package payment

import (
	"strings"

	"github.com/FelixBruckner/StackPay/internal/pkg/env"
	"github.com/go-playground/validator/v10"
)

// ProviderType names a supported payment gateway.
type ProviderType string

const (
	ProviderStripe ProviderType = "stripe"
	ProviderDodo   ProviderType = "dodo"
)

// GatewayConfig holds one gateway's credentials and its price mapping from
// internal plan/period pairs to the gateway's native price identifiers.
// Prices is keyed by PriceKey(plan, period).
type GatewayConfig struct {
	APIKey        string
	WebhookSecret string
	Prices        map[string]string
}

// Config is the explicit payment configuration, read once at startup and
// passed into adapter constructors. Missing configuration fails at this
// single point instead of lazily on first use.
type Config struct {
	Provider        ProviderType `validate:"required,oneof=stripe dodo"`
	Environment     string       `validate:"required,oneof=sandbox production"`
	FrontendBaseURL string       `validate:"required,url"`
	Stripe          GatewayConfig
	Dodo            GatewayConfig
}

var validate = validator.New()

// LoadConfigFromEnv builds the payment configuration from environment
// variables. Call Validate before using it.
func LoadConfigFromEnv() Config {
	return Config{
		Provider:        ProviderType(strings.ToLower(strings.TrimSpace(env.GetEnv("PAYMENT_PROVIDER", "stripe")))),
		Environment:     strings.ToLower(strings.TrimSpace(env.GetEnv("PAYMENT_ENVIRONMENT", "sandbox"))),
		FrontendBaseURL: strings.TrimRight(strings.TrimSpace(env.GetEnv("FRONTEND_BASE_URL", "")), "/"),
		Stripe: GatewayConfig{
			APIKey:        strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
			WebhookSecret: strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
			Prices:        priceTableFromEnv("STRIPE_PRICE"),
		},
		Dodo: GatewayConfig{
			APIKey:        strings.TrimSpace(env.GetEnv("DODO_API_KEY", "")),
			WebhookSecret: strings.TrimSpace(env.GetEnv("DODO_WEBHOOK_SECRET", "")),
			Prices:        priceTableFromEnv("DODO_PRODUCT"),
		},
	}
}

func priceTableFromEnv(prefix string) map[string]string {
	table := make(map[string]string, 4)
	for _, plan := range []PlanID{PlanProfessional, PlanEnterprise} {
		for _, period := range []BillingPeriod{PeriodMonthly, PeriodAnnually} {
			key := prefix + "_" + strings.ToUpper(string(plan)) + "_" + strings.ToUpper(string(period))
			if v := strings.TrimSpace(env.GetEnv(key, "")); v != "" {
				table[PriceKey(plan, period)] = v
			}
		}
	}
	return table
}

// Validate checks the configuration shape and the credentials of the active
// gateway. Price mapping gaps are reported later, per call, so partially
// configured catalogs still allow the mapped plans to check out.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return E(KindConfiguration, "config.validate", "", err)
	}
	return c.ValidateGateway(c.Provider)
}

// ValidateGateway checks that credentials for the given gateway are present.
func (c Config) ValidateGateway(t ProviderType) error {
	gw, err := c.Gateway(t)
	if err != nil {
		return err
	}
	if gw.APIKey == "" {
		return Errorf(KindConfiguration, "config.validate", string(t), "missing API key for gateway %q", t)
	}
	if gw.WebhookSecret == "" {
		return Errorf(KindConfiguration, "config.validate", string(t), "missing webhook secret for gateway %q", t)
	}
	return nil
}

// Gateway returns the config block for the given gateway type.
func (c Config) Gateway(t ProviderType) (GatewayConfig, error) {
	switch t {
	case ProviderStripe:
		return c.Stripe, nil
	case ProviderDodo:
		return c.Dodo, nil
	default:
		return GatewayConfig{}, Errorf(KindConfiguration, "config.gateway", string(t), "unsupported gateway type %q", t)
	}
}
