package payment

import (
	"time"

	"github.com/FelixBruckner/StackPay/internal/pkg/cache"
)

// redisDedupe implements DedupeCache on the shared Redis client. Every
// failure is treated as "not seen" so a cache outage only costs the fast
// path, never correctness.
type redisDedupe struct{}

// NewRedisDedupe returns a DedupeCache backed by the process Redis client.
func NewRedisDedupe() DedupeCache {
	return redisDedupe{}
}

func (redisDedupe) Seen(key string) bool {
	seen, err := cache.Exists("webhook:seen:" + key)
	if err != nil {
		return false
	}
	return seen
}

func (redisDedupe) Mark(key string, ttl time.Duration) {
	_ = cache.Set("webhook:seen:"+key, "1", ttl)
}
