package payment

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func testStripeProvider(t *testing.T, prices map[string]string) *StripeProvider {
	t.Helper()
	p, err := NewStripeProvider(GatewayConfig{
		APIKey:        "sk_test_123",
		WebhookSecret: "whsec_stripe_test",
		Prices:        prices,
	}, "https://app.example.com")
	if err != nil {
		t.Fatalf("NewStripeProvider: %v", err)
	}
	return p
}

func stripeSignatureHeader(payload []byte, secret string) string {
	ts := time.Now().Unix()
	signed := fmt.Sprintf("%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, SignPayload([]byte(signed), secret))
}

func TestNewStripeProvider_MissingCredentials(t *testing.T) {
	if _, err := NewStripeProvider(GatewayConfig{WebhookSecret: "whsec_x"}, ""); !IsKind(err, KindConfiguration) {
		t.Fatalf("expected configuration error for missing API key, got %v", err)
	}
	if _, err := NewStripeProvider(GatewayConfig{APIKey: "sk_x"}, ""); !IsKind(err, KindConfiguration) {
		t.Fatalf("expected configuration error for missing webhook secret, got %v", err)
	}
}

func TestStripeCreateCheckoutSession_UnmappedPlanPeriod(t *testing.T) {
	p := testStripeProvider(t, map[string]string{
		PriceKey(PlanProfessional, PeriodMonthly): "price_pro_monthly",
	})

	_, err := p.CreateCheckoutSession(context.Background(), CheckoutSessionRequest{
		PlanID:        PlanEnterprise,
		BillingPeriod: PeriodAnnually,
		UserID:        "user-1",
	})
	if !IsKind(err, KindConfiguration) {
		t.Fatalf("expected configuration error for unmapped plan/period, got %v", err)
	}
}

func TestStripeCreateCheckoutSession_InvalidRequest(t *testing.T) {
	p := testStripeProvider(t, map[string]string{
		PriceKey(PlanProfessional, PeriodMonthly): "price_pro_monthly",
	})

	tests := []struct {
		name string
		req  CheckoutSessionRequest
	}{
		{name: "unknown plan", req: CheckoutSessionRequest{PlanID: "ultimate", BillingPeriod: PeriodMonthly, UserID: "u1"}},
		{name: "unknown period", req: CheckoutSessionRequest{PlanID: PlanProfessional, BillingPeriod: "weekly", UserID: "u1"}},
		{name: "missing user", req: CheckoutSessionRequest{PlanID: PlanProfessional, BillingPeriod: PeriodMonthly}},
		{name: "bad email", req: CheckoutSessionRequest{PlanID: PlanProfessional, BillingPeriod: PeriodMonthly, UserID: "u1", UserEmail: "not-an-email"}},
	}

	for _, tt := range tests {
		if _, err := p.CreateCheckoutSession(context.Background(), tt.req); !IsKind(err, KindValidation) {
			t.Fatalf("%s: expected validation error, got %v", tt.name, err)
		}
	}
}

func TestStripeVerifyWebhook_ValidSignature(t *testing.T) {
	p := testStripeProvider(t, nil)

	payload := []byte(`{
		"id": "evt_test_1",
		"object": "event",
		"api_version": "2025-03-31.basil",
		"type": "customer.subscription.updated",
		"data": {
			"object": {
				"id": "sub_123",
				"object": "subscription",
				"status": "past_due",
				"cancel_at_period_end": true,
				"customer": "cus_123",
				"metadata": {"user_id": "user-42"}
			}
		}
	}`)

	ev, err := p.VerifyWebhook(payload, stripeSignatureHeader(payload, "whsec_stripe_test"))
	if err != nil {
		t.Fatalf("VerifyWebhook: %v", err)
	}
	if ev.Type != EventSubscriptionUpdated {
		t.Fatalf("type = %q, want %q", ev.Type, EventSubscriptionUpdated)
	}
	if ev.EventID != "evt_test_1" {
		t.Fatalf("event id = %q, want evt_test_1", ev.EventID)
	}
	if ev.SubscriptionID != "sub_123" {
		t.Fatalf("subscription id = %q, want sub_123", ev.SubscriptionID)
	}
	if ev.CustomerID != "cus_123" {
		t.Fatalf("customer id = %q, want cus_123", ev.CustomerID)
	}
	if ev.UserID != "user-42" {
		t.Fatalf("user id = %q, want user-42", ev.UserID)
	}
	if ev.Status != StatusPastDue {
		t.Fatalf("status = %q, want %q", ev.Status, StatusPastDue)
	}
	if !ev.CancelAtPeriodEnd {
		t.Fatalf("expected cancel_at_period_end to carry through")
	}
}

func TestStripeVerifyWebhook_TamperedPayload(t *testing.T) {
	p := testStripeProvider(t, nil)

	payload := []byte(`{"id":"evt_test_2","object":"event","type":"invoice.paid","data":{"object":{"amount_due":100}}}`)
	header := stripeSignatureHeader(payload, "whsec_stripe_test")

	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-4] = '9'

	if _, err := p.VerifyWebhook(tampered, header); !IsKind(err, KindSignature) {
		t.Fatalf("expected signature error for tampered payload, got %v", err)
	}
	if _, err := p.VerifyWebhook(payload, "t=123,v1=deadbeef"); !IsKind(err, KindSignature) {
		t.Fatalf("expected signature error for forged header, got %v", err)
	}
}

func TestStripeVerifyWebhook_UnknownEventType(t *testing.T) {
	p := testStripeProvider(t, nil)

	payload := []byte(`{"id":"evt_test_3","object":"event","type":"charge.dispute.created","data":{"object":{}}}`)
	ev, err := p.VerifyWebhook(payload, stripeSignatureHeader(payload, "whsec_stripe_test"))
	if err != nil {
		t.Fatalf("VerifyWebhook: %v", err)
	}
	if ev.Type != EventUnknown {
		t.Fatalf("type = %q, want %q", ev.Type, EventUnknown)
	}
	if ev.ProviderEvent != "charge.dispute.created" {
		t.Fatalf("provider event = %q, want charge.dispute.created", ev.ProviderEvent)
	}
}

func TestStripeEventToCanonical(t *testing.T) {
	tests := []struct {
		in   string
		want EventType
	}{
		{in: "checkout.session.completed", want: EventCheckoutCompleted},
		{in: "customer.subscription.created", want: EventSubscriptionUpdated},
		{in: "customer.subscription.updated", want: EventSubscriptionUpdated},
		{in: "customer.subscription.deleted", want: EventSubscriptionCanceled},
		{in: "invoice.payment_succeeded", want: EventPaymentSucceeded},
		{in: "invoice.paid", want: EventPaymentSucceeded},
		{in: "invoice.payment_failed", want: EventPaymentFailed},
		{in: "payment_intent.created", want: EventUnknown},
		{in: "", want: EventUnknown},
	}

	for _, tt := range tests {
		if got := StripeEventToCanonical(tt.in); got != tt.want {
			t.Fatalf("StripeEventToCanonical(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStripeStatusToCanonical(t *testing.T) {
	tests := []struct {
		in   string
		want SubscriptionStatus
	}{
		{in: "active", want: StatusActive},
		{in: "trialing", want: StatusActive},
		{in: "past_due", want: StatusPastDue},
		{in: "unpaid", want: StatusPastDue},
		{in: "canceled", want: StatusCanceled},
		{in: "incomplete_expired", want: StatusCanceled},
		{in: "incomplete", want: StatusIncomplete},
		{in: "paused", want: StatusIncomplete},
		{in: "something_new", want: StatusIncomplete},
		{in: "", want: StatusIncomplete},
	}

	for _, tt := range tests {
		if got := StripeStatusToCanonical(tt.in); got != tt.want {
			t.Fatalf("StripeStatusToCanonical(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
