package models

import "time"

const (
	BillingPeriodMonthly  = "monthly"
	BillingPeriodAnnually = "annually"
	BillingPeriodUnknown  = "unknown"
)

const (
	SubscriptionStatusActive     = "active"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusCanceled   = "canceled"
	SubscriptionStatusIncomplete = "incomplete"
)

// Gateway constants used across payment-related models.
const (
	GatewayStripe = "stripe"
	GatewayDodo   = "dodo"
)

// Subscription mirrors a gateway subscription and the plan it entitles a
// user to. State is only advanced by verified, deduplicated webhook events.
type Subscription struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	UserID                 string     `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Provider               string     `gorm:"type:varchar(20);not null;index:idx_subscriptions_provider_status,priority:1;index:ux_subscriptions_provider_subid,unique,priority:1" json:"provider"`
	ProviderSubscriptionID string     `gorm:"type:varchar(191);not null;index:ux_subscriptions_provider_subid,unique,priority:2" json:"provider_subscription_id"`
	CustomerID             string     `gorm:"type:varchar(191);not null;index" json:"customer_id"`
	PlanID                 string     `gorm:"type:varchar(50);not null;default:'professional';index" json:"plan_id"`
	BillingPeriod          string     `gorm:"type:varchar(16);not null;default:'unknown'" json:"billing_period"`
	Status                 string     `gorm:"type:varchar(32);not null;default:'incomplete';index:idx_subscriptions_provider_status,priority:2" json:"status"`
	CurrentPeriodEnd       *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd      bool       `gorm:"default:false" json:"cancel_at_period_end"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
