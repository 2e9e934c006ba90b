package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultDodoLiveAPIBaseURL = "https://live.dodopayments.com"
	defaultDodoTestAPIBaseURL = "https://test.dodopayments.com"
)

// DodoProvider implements Provider against the Dodo Payments REST API.
// Dodo has no Go SDK, so the client is hand-built and webhooks are verified
// manually: HMAC-SHA256 over the raw body, hex-encoded, constant-time
// compared against the signature header.
type DodoProvider struct {
	apiKey        string
	webhookSecret string
	apiBaseURL    string
	frontendURL   string
	prices        map[string]string
	plans         map[string]planRef

	HTTPClient *http.Client
}

// NewDodoProvider validates Dodo credentials and builds the price mapping
// tables. The sandbox environment talks to Dodo's test-mode host.
func NewDodoProvider(cfg GatewayConfig, frontendBaseURL, environment string) (*DodoProvider, error) {
	if cfg.APIKey == "" {
		return nil, Errorf(KindConfiguration, "dodo.new", "dodo", "missing DODO_API_KEY")
	}
	if cfg.WebhookSecret == "" {
		return nil, Errorf(KindConfiguration, "dodo.new", "dodo", "missing DODO_WEBHOOK_SECRET")
	}

	baseURL := defaultDodoTestAPIBaseURL
	if environment == "production" {
		baseURL = defaultDodoLiveAPIBaseURL
	}

	plans := make(map[string]planRef, len(cfg.Prices))
	for key, productID := range cfg.Prices {
		if plan, period, ok := splitPriceKey(key); ok {
			plans[productID] = planRef{plan: plan, period: period}
		}
	}

	return &DodoProvider{
		apiKey:        cfg.APIKey,
		webhookSecret: cfg.WebhookSecret,
		apiBaseURL:    baseURL,
		frontendURL:   strings.TrimRight(frontendBaseURL, "/"),
		prices:        cfg.Prices,
		plans:         plans,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

func (p *DodoProvider) Name() string { return string(ProviderDodo) }

func (p *DodoProvider) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSessionResult, error) {
	const op = "dodo.create_checkout_session"

	req.Normalize()
	if err := validate.Struct(req); err != nil {
		return nil, E(KindValidation, op, "dodo", err)
	}

	productID, ok := p.prices[PriceKey(req.PlanID, req.BillingPeriod)]
	if !ok {
		return nil, Errorf(KindConfiguration, op, "dodo", "no product configured for plan %q period %q", req.PlanID, req.BillingPeriod)
	}

	body := map[string]interface{}{
		"product_cart": []map[string]interface{}{
			{"product_id": productID, "quantity": 1},
		},
		"return_url": p.frontendURL + "/billing/success",
		"metadata":   map[string]string{"user_id": req.UserID},
	}
	if req.UserEmail != "" {
		body["customer"] = map[string]string{"email": req.UserEmail}
	}

	var out struct {
		SessionID   string `json:"session_id"`
		CheckoutURL string `json:"checkout_url"`
	}
	if err := p.doJSON(ctx, http.MethodPost, "/checkouts", body, &out); err != nil {
		return nil, p.classify(op, err)
	}
	if out.CheckoutURL == "" {
		return nil, Errorf(KindProvider, op, "dodo", "checkout response missing checkout_url")
	}

	return &CheckoutSessionResult{SessionID: out.SessionID, CheckoutURL: out.CheckoutURL}, nil
}

func (p *DodoProvider) VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	const op = "dodo.verify_webhook"

	// Authenticate before parsing anything out of the body.
	if !VerifyHMACSignature(payload, signature, p.webhookSecret) {
		return nil, Errorf(KindSignature, op, "dodo", "webhook signature mismatch")
	}

	var envelope struct {
		EventID   string          `json:"event_id"`
		Type      string          `json:"type"`
		Timestamp string          `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, E(KindProvider, op, "dodo", err)
	}

	ev := &WebhookEvent{
		Type:          DodoEventToCanonical(envelope.Type),
		EventID:       strings.TrimSpace(envelope.EventID),
		ProviderEvent: strings.TrimSpace(envelope.Type),
		Payload:       envelope.Data,
	}

	var data struct {
		SubscriptionID string `json:"subscription_id"`
		PaymentID      string `json:"payment_id"`
		Status         string `json:"status"`
		Customer       struct {
			CustomerID string `json:"customer_id"`
			Email      string `json:"email"`
		} `json:"customer"`
		Metadata struct {
			UserID string `json:"user_id"`
		} `json:"metadata"`
		NextBillingDate         string `json:"next_billing_date"`
		CancelAtNextBillingDate bool   `json:"cancel_at_next_billing_date"`
	}
	if err := json.Unmarshal(envelope.Data, &data); err == nil {
		ev.SubscriptionID = data.SubscriptionID
		ev.CustomerID = data.Customer.CustomerID
		ev.UserEmail = data.Customer.Email
		ev.UserID = data.Metadata.UserID
		ev.CancelAtPeriodEnd = data.CancelAtNextBillingDate
		switch ev.Type {
		case EventCheckoutCompleted:
			ev.Status = StatusActive
		case EventSubscriptionUpdated, EventSubscriptionCanceled:
			ev.Status = DodoStatusToCanonical(data.Status)
		}
		if ts, err := time.Parse(time.RFC3339, data.NextBillingDate); err == nil {
			ev.PeriodEnd = ts.UTC()
		}
	}

	return ev, nil
}

func (p *DodoProvider) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	const op = "dodo.get_subscription"

	var out struct {
		SubscriptionID string `json:"subscription_id"`
		Status         string `json:"status"`
		ProductID      string `json:"product_id"`
		Customer       struct {
			CustomerID string `json:"customer_id"`
		} `json:"customer"`
		NextBillingDate         string `json:"next_billing_date"`
		CancelAtNextBillingDate bool   `json:"cancel_at_next_billing_date"`
	}
	if err := p.doJSON(ctx, http.MethodGet, "/subscriptions/"+subscriptionID, nil, &out); err != nil {
		return nil, p.classify(op, err)
	}

	sub := &Subscription{
		ID:                out.SubscriptionID,
		CustomerID:        out.Customer.CustomerID,
		Status:            DodoStatusToCanonical(out.Status),
		CancelAtPeriodEnd: out.CancelAtNextBillingDate,
	}
	if ref, ok := p.plans[out.ProductID]; ok {
		sub.PlanID = ref.plan
		sub.BillingPeriod = ref.period
	}
	if ts, err := time.Parse(time.RFC3339, out.NextBillingDate); err == nil {
		sub.CurrentPeriodEnd = ts.UTC()
	}
	return sub, nil
}

func (p *DodoProvider) CancelSubscription(ctx context.Context, subscriptionID string, immediately bool) error {
	const op = "dodo.cancel_subscription"

	body := map[string]interface{}{"cancel_at_next_billing_date": true}
	if immediately {
		body = map[string]interface{}{"status": "cancelled"}
	}
	if err := p.doJSON(ctx, http.MethodPatch, "/subscriptions/"+subscriptionID, body, nil); err != nil {
		return p.classify(op, err)
	}
	return nil
}

func (p *DodoProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	const op = "dodo.create_portal_session"

	_ = returnURL // Dodo's portal handles its own return navigation.

	var out struct {
		Link string `json:"link"`
	}
	if err := p.doJSON(ctx, http.MethodPost, "/customers/"+customerID+"/customer-portal/session", nil, &out); err != nil {
		return "", p.classify(op, err)
	}
	if out.Link == "" {
		return "", Errorf(KindProvider, op, "dodo", "portal session response missing link")
	}
	return out.Link, nil
}

func (p *DodoProvider) RefundPayment(ctx context.Context, paymentID string, amount *int64) (*Refund, error) {
	const op = "dodo.refund_payment"

	body := map[string]interface{}{"payment_id": paymentID}
	if amount != nil {
		body["amount"] = *amount
	}

	var out struct {
		RefundID string `json:"refund_id"`
		Status   string `json:"status"`
	}
	if err := p.doJSON(ctx, http.MethodPost, "/refunds", body, &out); err != nil {
		return nil, p.classify(op, err)
	}
	return &Refund{RefundID: out.RefundID, Status: out.Status}, nil
}

// apiError carries the gateway HTTP status so classify can distinguish
// missing resources from transport failures.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("dodo api request failed: status=%d body=%s", e.status, e.body)
}

func (p *DodoProvider) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.apiBaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		// Dodo replays the original response when a retried request
		// carries the same idempotency key.
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apiError{status: resp.StatusCode, body: string(respBody)}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

func (p *DodoProvider) classify(op string, err error) error {
	if apiErr, ok := err.(*apiError); ok && apiErr.status == http.StatusNotFound {
		return E(KindNotFound, op, "dodo", err)
	}
	return E(KindProvider, op, "dodo", err)
}

var dodoEventTypes = map[string]EventType{
	"subscription.active":       EventCheckoutCompleted,
	"subscription.renewed":      EventSubscriptionUpdated,
	"subscription.on_hold":      EventSubscriptionUpdated,
	"subscription.plan_changed": EventSubscriptionUpdated,
	"subscription.updated":      EventSubscriptionUpdated,
	"subscription.cancelled":    EventSubscriptionCanceled,
	"subscription.expired":      EventSubscriptionCanceled,
	"payment.succeeded":         EventPaymentSucceeded,
	"payment.failed":            EventPaymentFailed,
}

// DodoEventToCanonical maps a Dodo event name to the canonical vocabulary.
// Unmapped types degrade to EventUnknown.
func DodoEventToCanonical(eventType string) EventType {
	if t, ok := dodoEventTypes[strings.ToLower(strings.TrimSpace(eventType))]; ok {
		return t
	}
	return EventUnknown
}

// DodoStatusToCanonical maps a Dodo subscription status to the canonical
// four-state enum. Unknown statuses degrade to incomplete.
func DodoStatusToCanonical(status string) SubscriptionStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active":
		return StatusActive
	case "on_hold", "failed":
		return StatusPastDue
	case "cancelled", "expired":
		return StatusCanceled
	default:
		return StatusIncomplete
	}
}
