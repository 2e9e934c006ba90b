package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/FelixBruckner/StackPay/app/models"
	"github.com/gofiber/fiber/v2/log"
)

// dedupeTTL bounds the redis fast-path entries; the durable event table
// keeps deduplicating after expiry.
const dedupeTTL = 48 * time.Hour

// Notification describes a side effect to dispatch for a processed event.
type Notification struct {
	Kind           NotificationKind
	Provider       string
	SubscriptionID string
	UserID         string
	UserEmail      string
}

// Notifier dispatches user-facing side effects (receipts, dunning mail).
// Implementations must tolerate being called from a background goroutine.
type Notifier interface {
	Notify(n Notification)
}

// DedupeCache is a best-effort fast path in front of the durable webhook
// event table. Cache failures are ignored; the unique index stays
// authoritative.
type DedupeCache interface {
	Seen(key string) bool
	Mark(key string, ttl time.Duration)
}

// ProcessResult reports what a webhook event did to subscription state.
type ProcessResult struct {
	Duplicate    bool               `json:"duplicate"`
	StateChanged bool               `json:"state_changed"`
	Status       SubscriptionStatus `json:"status,omitempty"`
	Notify       NotificationKind   `json:"-"`
}

// Service consumes verified canonical webhook events, persists them
// idempotently and applies lifecycle transitions through the repository.
type Service struct {
	repo     Repository
	notifier Notifier
	dedupe   DedupeCache

	// notifyAsync keeps slow notification work off the webhook response
	// path; gateways enforce short response timeouts and retry on timeout.
	notifyAsync bool
}

// NewService creates a webhook processing service. notifier and dedupe may
// be nil.
func NewService(repo Repository, notifier Notifier, dedupe DedupeCache) *Service {
	return &Service{repo: repo, notifier: notifier, dedupe: dedupe, notifyAsync: true}
}

// ProcessWebhookEvent applies one verified event. Processing the same event
// id twice is a safe no-op: the first delivery wins, later ones report
// Duplicate and change nothing. Errors from persistence are returned
// unclassified so the HTTP handler answers 5xx and the gateway retries.
func (s *Service) ProcessWebhookEvent(ctx context.Context, providerName string, ev *WebhookEvent) (*ProcessResult, error) {
	const op = "payment.process_webhook_event"

	if ev == nil {
		return nil, Errorf(KindValidation, op, providerName, "nil event")
	}

	eventID := ev.EventID
	if eventID == "" {
		// Some gateways omit an event id on legacy payloads; fall back to a
		// payload hash so replays still deduplicate.
		sum := sha256.Sum256(ev.Payload)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}
	dedupeKey := providerName + ":" + eventID

	if s.dedupe != nil && s.dedupe.Seen(dedupeKey) {
		return &ProcessResult{Duplicate: true}, nil
	}

	record := &models.WebhookEvent{
		Provider:        providerName,
		ProviderEventID: eventID,
		EventType:       ev.ProviderEvent,
		PayloadJSON:     string(ev.Payload),
		SignatureValid:  true,
	}
	created, stored, err := s.repo.InsertEventIfNew(record)
	if err != nil {
		return nil, fmt.Errorf("persist webhook event: %w", err)
	}
	if !created {
		// Gateways retry on 5xx. A stored row with a recorded processing
		// error is such a retry and gets reprocessed; everything else is a
		// true duplicate and is acknowledged without side effects.
		if stored.ProcessingError == "" {
			if s.dedupe != nil {
				s.dedupe.Mark(dedupeKey, dedupeTTL)
			}
			return &ProcessResult{Duplicate: true}, nil
		}
	}

	result := &ProcessResult{}
	var processingErr error
	switch {
	case ev.Type == EventUnknown:
		log.Infof("[Payment] ignoring unmapped %s event %q (id=%s)", providerName, ev.ProviderEvent, eventID)
	case ev.SubscriptionID == "":
		log.Warnf("[Payment] %s event %q carries no subscription id, skipping", providerName, ev.ProviderEvent)
	default:
		processingErr = s.applyTransition(providerName, ev, result)
	}

	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	if err := s.repo.MarkEventProcessed(stored.ID, errMsg); err != nil {
		log.Errorf("[Payment] failed to mark event %d processed: %v", stored.ID, err)
	}
	if processingErr != nil {
		return nil, processingErr
	}
	if s.dedupe != nil {
		s.dedupe.Mark(dedupeKey, dedupeTTL)
	}

	if result.Notify != NotifyNone && s.notifier != nil {
		n := Notification{
			Kind:           result.Notify,
			Provider:       providerName,
			SubscriptionID: ev.SubscriptionID,
			UserID:         ev.UserID,
			UserEmail:      ev.UserEmail,
		}
		if s.notifyAsync {
			go s.notifier.Notify(n)
		} else {
			s.notifier.Notify(n)
		}
	}

	return result, nil
}

func (s *Service) applyTransition(providerName string, ev *WebhookEvent, result *ProcessResult) error {
	current := StatusIncomplete
	existing, err := s.repo.GetSubscriptionByProviderID(providerName, ev.SubscriptionID)
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("load subscription: %w", err)
	}
	if existing != nil {
		current = SubscriptionStatus(existing.Status)
	}

	tr := NextStatus(current, ev)
	result.Status = tr.Status
	result.StateChanged = tr.Changed
	result.Notify = tr.Notify

	// Canceled is terminal; replays and late updates must not write.
	if current == StatusCanceled {
		return nil
	}

	writes := tr.Changed ||
		existing == nil ||
		ev.Type == EventSubscriptionUpdated // period end / cancel flag may move without a status change
	if !writes || ev.Type == EventPaymentSucceeded || ev.Type == EventPaymentFailed || ev.Type == EventUnknown {
		return nil
	}

	sub := &models.Subscription{
		Provider:               providerName,
		ProviderSubscriptionID: ev.SubscriptionID,
		Status:                 string(tr.Status),
		CancelAtPeriodEnd:      ev.CancelAtPeriodEnd,
	}
	if existing != nil {
		sub.UserID = existing.UserID
		sub.CustomerID = existing.CustomerID
		sub.PlanID = existing.PlanID
		sub.BillingPeriod = existing.BillingPeriod
		sub.CurrentPeriodEnd = existing.CurrentPeriodEnd
	}
	if ev.UserID != "" {
		sub.UserID = ev.UserID
	}
	if ev.CustomerID != "" {
		sub.CustomerID = ev.CustomerID
	}
	if !ev.PeriodEnd.IsZero() {
		t := ev.PeriodEnd
		sub.CurrentPeriodEnd = &t
	}
	if err := s.repo.UpsertSubscription(sub); err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}

	if ev.CustomerID != "" && sub.UserID != "" {
		profile := &models.BillingProfile{
			UserID:             sub.UserID,
			Provider:           providerName,
			ProviderCustomerID: ev.CustomerID,
			Email:              ev.UserEmail,
		}
		if err := s.repo.UpsertBillingProfile(profile); err != nil {
			return fmt.Errorf("upsert billing profile: %w", err)
		}
	}
	return nil
}

// RefreshSubscription re-reads a user's subscription from the gateway and
// syncs the stored row. Used by the read API so scheduled cancellations
// show up without waiting for the next webhook.
func (s *Service) RefreshSubscription(ctx context.Context, provider Provider, userID string) (*models.Subscription, error) {
	stored, err := s.repo.GetSubscriptionByUser(userID)
	if err != nil {
		if IsNotFound(err) {
			return nil, Errorf(KindNotFound, "payment.refresh_subscription", provider.Name(), "no subscription for user %q", userID)
		}
		return nil, fmt.Errorf("load subscription: %w", err)
	}

	remote, err := provider.GetSubscription(ctx, stored.ProviderSubscriptionID)
	if err != nil {
		return nil, err
	}

	stored.Status = string(remote.Status)
	stored.CancelAtPeriodEnd = remote.CancelAtPeriodEnd
	if remote.PlanID != "" {
		stored.PlanID = string(remote.PlanID)
	}
	if remote.BillingPeriod != "" {
		stored.BillingPeriod = string(remote.BillingPeriod)
	}
	if !remote.CurrentPeriodEnd.IsZero() {
		t := remote.CurrentPeriodEnd
		stored.CurrentPeriodEnd = &t
	}
	if err := s.repo.UpsertSubscription(stored); err != nil {
		return nil, fmt.Errorf("upsert subscription: %w", err)
	}
	return stored, nil
}
