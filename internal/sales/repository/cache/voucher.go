package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/log"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/domain"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var voucherLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sales_voucher_cache_lookups_total",
	Help: "voucher lookups by cache outcome",
}, []string{"outcome"})

// Source is a repository that can also read the eligibility state of a
// voucher on its own.
type Source interface {
	domain.Repository
	VoucherState(ctx context.Context, code string) (domain.VoucherState, error)
}

// Vouchers caches the definition of vouchers (id, code, discount) returned by
// the wrapped repository. Active, Used, Quantity and ExpiresAt are read from
// the repository on every lookup, so eligibility never runs on stale state.
// Misses are not cached, so a voucher created later is found on the next
// lookup. Discount edits become visible once the entry expires or is
// invalidated.
type Vouchers struct {
	Source
	lru *expirable.LRU[string, domain.Voucher]
	log *log.Logger
}

func NewVouchers(size int, ttl time.Duration, logger *log.Logger) *Vouchers {
	return &Vouchers{
		lru: expirable.NewLRU[string, domain.Voucher](size, nil, ttl),
		log: log.OrNop(logger),
	}
}

// Wrap returns a copy of the cache that serves lookups for repo. Wrapped
// copies share the cached entries.
func (c *Vouchers) Wrap(repo Source) *Vouchers {
	return &Vouchers{Source: repo, lru: c.lru, log: c.log}
}

func (c *Vouchers) VoucherByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	if v, ok := c.lru.Get(code); ok {
		st, err := c.Source.VoucherState(ctx, code)
		if errors.Is(err, domain.ErrVoucherNotFound) {
			voucherLookups.WithLabelValues("gone").Inc()
			c.Invalidate(code)
			return nil, err
		}
		if err != nil {
			return nil, fmt.Errorf("voucher state %s: %w", code, err)
		}
		voucherLookups.WithLabelValues("hit").Inc()

		v = v.WithState(st)
		return &v, nil
	}
	voucherLookups.WithLabelValues("miss").Inc()

	v, err := c.Source.VoucherByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	c.lru.Add(code, *v)
	c.log.Debug("voucher cached", log.Str("code", code))

	return v, nil
}

// Invalidate drops code so the next lookup reaches the repository.
func (c *Vouchers) Invalidate(code string) {
	c.lru.Remove(code)
}

func (c *Vouchers) Len() int { return c.lru.Len() }
