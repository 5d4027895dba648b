package services

import (
	"context"
	"fmt"
	"time"

	"school_transport_echo/internal/models"
)

const paymentsGenerationKey = "transport:payments:gen"

// paymentCache caches payment listings per filter. Every ledger write bumps a
// generation counter, which moves all listing keys to a fresh namespace.
type paymentCache struct {
	cache Cache
	ttl   time.Duration
}

func (c *paymentCache) enabled() bool {
	return c != nil && c.cache != nil
}

func (c *paymentCache) key(ctx context.Context, filter models.PaymentFilter) string {
	var gen int64
	_ = c.cache.Get(ctx, paymentsGenerationKey, &gen)
	return fmt.Sprintf("transport:payments:v%d:%s|%d|%s|%s", gen, filter.Term, filter.Year, filter.StudentID, filter.RouteID)
}

// list serves from cache unless reload is set, in which case it refreshes the entry
func (c *paymentCache) list(ctx context.Context, filter models.PaymentFilter, reload bool, load func() ([]models.TransportPayment, error)) ([]models.TransportPayment, error) {
	if !c.enabled() {
		return load()
	}
	key := c.key(ctx, filter)
	if reload {
		_ = c.cache.Delete(ctx, key)
	}
	return GetOrSet(c.cache, ctx, key, c.ttl, load)
}

func (c *paymentCache) invalidate(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	_, err := c.cache.Increment(ctx, paymentsGenerationKey)
	return err
}
