package payment

import (
	"encoding/json"
	"strings"
	"time"
)

// PlanID identifies an internal subscription plan.
type PlanID string

const (
	PlanProfessional PlanID = "professional"
	PlanEnterprise   PlanID = "enterprise"
)

// BillingPeriod is the billing cycle of a plan.
type BillingPeriod string

const (
	PeriodMonthly  BillingPeriod = "monthly"
	PeriodAnnually BillingPeriod = "annually"
)

// SubscriptionStatus is the canonical four-state subscription status every
// gateway-native status string is mapped into.
type SubscriptionStatus string

const (
	StatusActive     SubscriptionStatus = "active"
	StatusPastDue    SubscriptionStatus = "past_due"
	StatusCanceled   SubscriptionStatus = "canceled"
	StatusIncomplete SubscriptionStatus = "incomplete"
)

// EventType is the canonical webhook event vocabulary. Gateways add event
// types over time without notice, so anything unmapped becomes EventUnknown
// and must be ignored for state purposes.
type EventType string

const (
	EventCheckoutCompleted    EventType = "checkout_completed"
	EventSubscriptionUpdated  EventType = "subscription_updated"
	EventSubscriptionCanceled EventType = "subscription_canceled"
	EventPaymentSucceeded     EventType = "payment_succeeded"
	EventPaymentFailed        EventType = "payment_failed"
	EventUnknown              EventType = "unknown"
)

// CheckoutSessionRequest describes a hosted checkout to create for a user.
// PriceAmount is in major currency units and purely informational for the
// gateways here; the configured price mapping is authoritative.
type CheckoutSessionRequest struct {
	PlanID        PlanID        `json:"plan_id" validate:"required,oneof=professional enterprise"`
	BillingPeriod BillingPeriod `json:"billing_period" validate:"required,oneof=monthly annually"`
	UserID        string        `json:"user_id" validate:"required"`
	UserEmail     string        `json:"user_email" validate:"omitempty,email"`
	PriceAmount   int64         `json:"price_amount" validate:"omitempty,gt=0"`
	Currency      string        `json:"currency"`
}

// Normalize trims and lowercases free-form fields and applies defaults.
func (r *CheckoutSessionRequest) Normalize() {
	r.PlanID = PlanID(strings.ToLower(strings.TrimSpace(string(r.PlanID))))
	r.BillingPeriod = BillingPeriod(strings.ToLower(strings.TrimSpace(string(r.BillingPeriod))))
	r.UserID = strings.TrimSpace(r.UserID)
	r.UserEmail = strings.TrimSpace(r.UserEmail)
	r.Currency = strings.ToLower(strings.TrimSpace(r.Currency))
	if r.Currency == "" {
		r.Currency = "usd"
	}
}

// CheckoutSessionResult is the gateway-hosted checkout created for a request.
type CheckoutSessionResult struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// Subscription is the provider-agnostic view of a gateway subscription.
// Persistence of this data is owned by the repository layer.
type Subscription struct {
	ID                string             `json:"id"`
	CustomerID        string             `json:"customer_id"`
	Status            SubscriptionStatus `json:"status"`
	PlanID            PlanID             `json:"plan_id"`
	BillingPeriod     BillingPeriod      `json:"billing_period"`
	CurrentPeriodEnd  time.Time          `json:"current_period_end"`
	CancelAtPeriodEnd bool               `json:"cancel_at_period_end"`
}

// WebhookEvent is a verified, normalized gateway webhook. Payload carries the
// raw gateway object untouched for handlers that need provider detail.
type WebhookEvent struct {
	Type              EventType          `json:"type"`
	EventID           string             `json:"event_id"`
	ProviderEvent     string             `json:"provider_event"`
	SubscriptionID    string             `json:"subscription_id"`
	CustomerID        string             `json:"customer_id"`
	UserID            string             `json:"user_id"`
	UserEmail         string             `json:"user_email"`
	Status            SubscriptionStatus `json:"status"`
	PeriodEnd         time.Time          `json:"period_end"`
	CancelAtPeriodEnd bool               `json:"cancel_at_period_end"`
	Payload           json.RawMessage    `json:"payload"`
}

// Refund is the result of a refund request against a gateway payment.
type Refund struct {
	RefundID string `json:"refund_id"`
	Status   string `json:"status"`
}
