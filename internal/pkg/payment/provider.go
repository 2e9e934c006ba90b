package payment

import (
	"context"
	"fmt"
)

// Provider is the contract every payment gateway adapter satisfies. The rest
// of the system talks to this interface only and never learns which gateway
// is active.
//
// Adapters translate canonical requests into gateway API calls and gateway
// responses and events back into canonical types. Their mapping tables are
// total functions: unrecognized gateway statuses degrade to StatusIncomplete
// and unrecognized event types to EventUnknown, never an error.
type Provider interface {
	// Name returns the gateway identifier ("stripe", "dodo").
	Name() string

	// CreateCheckoutSession creates a gateway-hosted checkout for the given
	// plan and period. Fails with KindConfiguration before any network call
	// when no price mapping exists for the pair.
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSessionResult, error)

	// VerifyWebhook authenticates a raw webhook body against the signature
	// header and returns the normalized event. Verification happens before
	// any payload parsing; on mismatch the payload must not be trusted and
	// the error carries KindSignature.
	VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error)

	// GetSubscription fetches current subscription state from the gateway.
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)

	// CancelSubscription cancels now (immediately=true) or schedules the
	// cancellation at period end, which stays reversible until then.
	CancelSubscription(ctx context.Context, subscriptionID string, immediately bool) error

	// CreatePortalSession returns a redirect URL to the gateway's
	// self-service portal for the given customer.
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)

	// RefundPayment refunds a charge. A nil amount means full refund.
	RefundPayment(ctx context.Context, paymentID string, amount *int64) (*Refund, error)
}

// PriceKey builds the lookup key for the per-gateway price mapping tables.
func PriceKey(plan PlanID, period BillingPeriod) string {
	return fmt.Sprintf("%s:%s", plan, period)
}
