package counter

import (
	"context"

	"github.com/FelixBruckner/StackPay/internal/pkg/cache"
)

const (
	webhookEventsKey  = "payment:counters:webhooks"
	notificationsKey  = "payment:counters:notifications"
	duplicateEventKey = "payment:counters:duplicates"
)

// AddWebhookEvent increments the processed-webhook counter for a
// provider/event pair in Redis. Best effort; callers ignore the error.
func AddWebhookEvent(provider, eventType string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhookEventsKey, provider+":"+eventType, 1).Err()
}

// AddDuplicateEvent increments the acknowledged-duplicate counter for a
// provider.
func AddDuplicateEvent(provider string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, duplicateEventKey, provider, 1).Err()
}

// AddNotification increments the dispatched-notification counter for a
// notification kind.
func AddNotification(kind string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, notificationsKey, kind, 1).Err()
}

// Snapshot returns the current webhook, duplicate and notification counters.
func Snapshot() (webhooks, duplicates, notifications map[string]string, err error) {
	ctx := context.Background()
	rdb := cache.GetClient()

	if webhooks, err = rdb.HGetAll(ctx, webhookEventsKey).Result(); err != nil {
		return nil, nil, nil, err
	}
	if duplicates, err = rdb.HGetAll(ctx, duplicateEventKey).Result(); err != nil {
		return nil, nil, nil, err
	}
	if notifications, err = rdb.HGetAll(ctx, notificationsKey).Result(); err != nil {
		return nil, nil, nil, err
	}
	return webhooks, duplicates, notifications, nil
}
