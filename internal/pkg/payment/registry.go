package payment

import (
	"sync"
)

// Registry holds the single active payment provider for the process. It is
// constructed explicitly and passed to the HTTP handlers; there is no hidden
// global. The adapter is built lazily on first access and replaced atomically
// by SwitchProvider, so in-flight requests observe either the old or the new
// adapter, never a partially constructed one.
type Registry struct {
	mu         sync.RWMutex
	cfg        Config
	active     Provider
	activeType ProviderType
}

// NewRegistry creates a registry for the given configuration. The
// configuration should already be validated; construction of the adapter is
// deferred to the first Provider call.
func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg, activeType: cfg.Provider}
}

// Provider returns the active adapter, constructing it on first use.
func (r *Registry) Provider() (Provider, error) {
	r.mu.RLock()
	if r.active != nil {
		p := r.active
		r.mu.RUnlock()
		return p, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		p, err := r.build(r.activeType)
		if err != nil {
			return nil, err
		}
		r.active = p
	}
	return r.active, nil
}

// ProviderType returns the configured gateway name.
func (r *Registry) ProviderType() ProviderType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeType
}

// SwitchProvider reconstructs the active adapter for the given gateway type.
// Intended for operational failover or staged rollout, not per-request
// routing. Fails fast without touching the current adapter when the target
// gateway is misconfigured; there is never a silent fallback.
func (r *Registry) SwitchProvider(t ProviderType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.build(t)
	if err != nil {
		return err
	}
	r.active = p
	r.activeType = t
	return nil
}

func (r *Registry) build(t ProviderType) (Provider, error) {
	if err := r.cfg.ValidateGateway(t); err != nil {
		return nil, err
	}
	gw, err := r.cfg.Gateway(t)
	if err != nil {
		return nil, err
	}
	switch t {
	case ProviderStripe:
		return NewStripeProvider(gw, r.cfg.FrontendBaseURL)
	default:
		return NewDodoProvider(gw, r.cfg.FrontendBaseURL, r.cfg.Environment)
	}
}

// GatewayFeatures describes a gateway's capabilities for operator-facing
// comparison when choosing or switching providers.
type GatewayFeatures struct {
	MerchantOfRecord   bool     `json:"merchant_of_record"`
	CustomerPortal     bool     `json:"customer_portal"`
	PartialRefunds     bool     `json:"partial_refunds"`
	TaxHandling        string   `json:"tax_handling"`
	CheckoutType       string   `json:"checkout_type"`
	SupportedIntervals []string `json:"supported_intervals"`
}

// GatewayPricing describes a gateway's fee structure. Informational only.
type GatewayPricing struct {
	PercentageFee float64 `json:"percentage_fee"`
	FixedFeeCents int64   `json:"fixed_fee_cents"`
	Notes         string  `json:"notes"`
}

// Features returns the static capability comparison table.
func Features() map[ProviderType]GatewayFeatures {
	return map[ProviderType]GatewayFeatures{
		ProviderStripe: {
			MerchantOfRecord:   false,
			CustomerPortal:     true,
			PartialRefunds:     true,
			TaxHandling:        "separate product (Stripe Tax)",
			CheckoutType:       "hosted checkout session",
			SupportedIntervals: []string{string(PeriodMonthly), string(PeriodAnnually)},
		},
		ProviderDodo: {
			MerchantOfRecord:   true,
			CustomerPortal:     true,
			PartialRefunds:     true,
			TaxHandling:        "included (merchant of record)",
			CheckoutType:       "hosted payment link",
			SupportedIntervals: []string{string(PeriodMonthly), string(PeriodAnnually)},
		},
	}
}

// Pricing returns the static fee comparison table.
func Pricing() map[ProviderType]GatewayPricing {
	return map[ProviderType]GatewayPricing{
		ProviderStripe: {
			PercentageFee: 2.9,
			FixedFeeCents: 30,
			Notes:         "plus billing add-on fees; tax handling billed separately",
		},
		ProviderDodo: {
			PercentageFee: 4.0,
			FixedFeeCents: 40,
			Notes:         "merchant of record pricing, global tax remittance included",
		},
	}
}
