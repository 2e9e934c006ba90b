package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v83"
	portalsession "github.com/stripe/stripe-go/v83/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v83/checkout/session"
	"github.com/stripe/stripe-go/v83/refund"
	"github.com/stripe/stripe-go/v83/subscription"
	"github.com/stripe/stripe-go/v83/webhook"
)

// StripeProvider implements Provider on top of the official Stripe SDK.
// Webhook authenticity is delegated to the SDK's signed-event constructor.
type StripeProvider struct {
	webhookSecret string
	frontendURL   string
	prices        map[string]string
	plans         map[string]planRef
}

type planRef struct {
	plan   PlanID
	period BillingPeriod
}

// NewStripeProvider validates Stripe credentials and builds the price
// mapping tables. The reverse table resolves gateway price IDs back to
// internal plans when normalizing subscriptions.
func NewStripeProvider(cfg GatewayConfig, frontendBaseURL string) (*StripeProvider, error) {
	if cfg.APIKey == "" {
		return nil, Errorf(KindConfiguration, "stripe.new", "stripe", "missing STRIPE_SECRET_KEY")
	}
	if cfg.WebhookSecret == "" {
		return nil, Errorf(KindConfiguration, "stripe.new", "stripe", "missing STRIPE_WEBHOOK_SECRET")
	}

	stripe.Key = cfg.APIKey

	plans := make(map[string]planRef, len(cfg.Prices))
	for key, priceID := range cfg.Prices {
		if plan, period, ok := splitPriceKey(key); ok {
			plans[priceID] = planRef{plan: plan, period: period}
		}
	}

	return &StripeProvider{
		webhookSecret: cfg.WebhookSecret,
		frontendURL:   strings.TrimRight(frontendBaseURL, "/"),
		prices:        cfg.Prices,
		plans:         plans,
	}, nil
}

func (p *StripeProvider) Name() string { return string(ProviderStripe) }

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSessionResult, error) {
	const op = "stripe.create_checkout_session"

	req.Normalize()
	if err := validate.Struct(req); err != nil {
		return nil, E(KindValidation, op, "stripe", err)
	}

	priceID, ok := p.prices[PriceKey(req.PlanID, req.BillingPeriod)]
	if !ok {
		return nil, Errorf(KindConfiguration, op, "stripe", "no price configured for plan %q period %q", req.PlanID, req.BillingPeriod)
	}

	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
		Mode:   stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(p.frontendURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(p.frontendURL + "/billing/cancel"),
		ClientReferenceID: stripe.String(req.UserID),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"user_id": req.UserID},
		},
	}
	if req.UserEmail != "" {
		params.CustomerEmail = stripe.String(req.UserEmail)
	}
	params.AddMetadata("user_id", req.UserID)

	sess, err := checkoutsession.New(params)
	if err != nil {
		return nil, p.wrapErr(op, err)
	}

	return &CheckoutSessionResult{SessionID: sess.ID, CheckoutURL: sess.URL}, nil
}

func (p *StripeProvider) VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	const op = "stripe.verify_webhook"

	// IgnoreAPIVersionMismatch keeps verification working when Stripe sends
	// events pinned to a different API version than the SDK's.
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, E(KindSignature, op, "stripe", err)
	}

	ev := &WebhookEvent{
		Type:          StripeEventToCanonical(string(event.Type)),
		EventID:       event.ID,
		ProviderEvent: string(event.Type),
		Payload:       event.Data.Raw,
	}

	switch ev.Type {
	case EventCheckoutCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, E(KindProvider, op, "stripe", err)
		}
		ev.UserID = cs.ClientReferenceID
		ev.UserEmail = cs.CustomerEmail
		if ev.UserEmail == "" && cs.CustomerDetails != nil {
			ev.UserEmail = cs.CustomerDetails.Email
		}
		if cs.Customer != nil {
			ev.CustomerID = cs.Customer.ID
		}
		if cs.Subscription != nil {
			ev.SubscriptionID = cs.Subscription.ID
		}
		ev.Status = StatusActive
	case EventSubscriptionUpdated, EventSubscriptionCanceled:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, E(KindProvider, op, "stripe", err)
		}
		ev.SubscriptionID = sub.ID
		if sub.Customer != nil {
			ev.CustomerID = sub.Customer.ID
		}
		ev.UserID = sub.Metadata["user_id"]
		ev.Status = StripeStatusToCanonical(string(sub.Status))
		ev.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
		ev.PeriodEnd = stripePeriodEnd(&sub)
	case EventPaymentSucceeded, EventPaymentFailed:
		// Invoices carry expandable refs as plain ID strings on the wire;
		// a minimal shape avoids depending on the SDK's invoice struct.
		var inv struct {
			Customer      string `json:"customer"`
			Subscription  string `json:"subscription"`
			CustomerEmail string `json:"customer_email"`
		}
		if err := json.Unmarshal(event.Data.Raw, &inv); err == nil {
			ev.CustomerID = inv.Customer
			ev.SubscriptionID = inv.Subscription
			ev.UserEmail = inv.CustomerEmail
		}
	}

	return ev, nil
}

func (p *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	const op = "stripe.get_subscription"

	sub, err := subscription.Get(subscriptionID, &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, p.wrapErr(op, err)
	}

	out := &Subscription{
		ID:                sub.ID,
		Status:            StripeStatusToCanonical(string(sub.Status)),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		CurrentPeriodEnd:  stripePeriodEnd(sub),
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		if ref, ok := p.plans[sub.Items.Data[0].Price.ID]; ok {
			out.PlanID = ref.plan
			out.BillingPeriod = ref.period
		}
	}
	return out, nil
}

func (p *StripeProvider) CancelSubscription(ctx context.Context, subscriptionID string, immediately bool) error {
	const op = "stripe.cancel_subscription"

	if immediately {
		if _, err := subscription.Cancel(subscriptionID, &stripe.SubscriptionCancelParams{
			Params: stripe.Params{Context: ctx},
		}); err != nil {
			return p.wrapErr(op, err)
		}
		return nil
	}

	if _, err := subscription.Update(subscriptionID, &stripe.SubscriptionParams{
		Params:            stripe.Params{Context: ctx},
		CancelAtPeriodEnd: stripe.Bool(true),
	}); err != nil {
		return p.wrapErr(op, err)
	}
	return nil
}

func (p *StripeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	const op = "stripe.create_portal_session"

	sess, err := portalsession.New(&stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil {
		return "", p.wrapErr(op, err)
	}
	return sess.URL, nil
}

func (p *StripeProvider) RefundPayment(ctx context.Context, paymentID string, amount *int64) (*Refund, error) {
	const op = "stripe.refund_payment"

	params := &stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(paymentID),
	}
	if amount != nil {
		params.Amount = stripe.Int64(*amount)
	}

	r, err := refund.New(params)
	if err != nil {
		return nil, p.wrapErr(op, err)
	}
	return &Refund{RefundID: r.ID, Status: string(r.Status)}, nil
}

func (p *StripeProvider) wrapErr(op string, err error) error {
	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		if sErr.HTTPStatusCode == http.StatusNotFound || sErr.Code == stripe.ErrorCodeResourceMissing {
			return E(KindNotFound, op, "stripe", err)
		}
	}
	return E(KindProvider, op, "stripe", err)
}

func stripePeriodEnd(sub *stripe.Subscription) time.Time {
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return time.Time{}
	}
	if end := sub.Items.Data[0].CurrentPeriodEnd; end > 0 {
		return time.Unix(end, 0).UTC()
	}
	return time.Time{}
}

var stripeEventTypes = map[string]EventType{
	"checkout.session.completed":    EventCheckoutCompleted,
	"customer.subscription.created": EventSubscriptionUpdated,
	"customer.subscription.updated": EventSubscriptionUpdated,
	"customer.subscription.deleted": EventSubscriptionCanceled,
	"invoice.payment_succeeded":     EventPaymentSucceeded,
	"invoice.paid":                  EventPaymentSucceeded,
	"invoice.payment_failed":        EventPaymentFailed,
}

// StripeEventToCanonical maps a Stripe event name to the canonical
// vocabulary. Unmapped types degrade to EventUnknown.
func StripeEventToCanonical(eventType string) EventType {
	if t, ok := stripeEventTypes[strings.TrimSpace(eventType)]; ok {
		return t
	}
	return EventUnknown
}

// StripeStatusToCanonical maps a Stripe subscription status to the canonical
// four-state enum. Unknown statuses degrade to incomplete.
func StripeStatusToCanonical(status string) SubscriptionStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing":
		return StatusActive
	case "past_due", "unpaid":
		return StatusPastDue
	case "canceled", "incomplete_expired":
		return StatusCanceled
	default:
		return StatusIncomplete
	}
}

func splitPriceKey(key string) (PlanID, BillingPeriod, bool) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return PlanID(parts[0]), BillingPeriod(parts[1]), true
}
