package rates

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/fx-rates-proxy/pkg/cache"
	"github.com/Sternrassler/fx-rates-proxy/pkg/store"
	"github.com/Sternrassler/fx-rates-proxy/pkg/store/memory"
	"github.com/Sternrassler/fx-rates-proxy/pkg/upstream"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeProvider quotes from a fixed table and counts calls.
type fakeProvider struct {
	mu         sync.Mutex
	rates      map[string]map[string]float64
	currencies []string
	listErr    error
	latestErr  error
	delay      time.Duration

	latestCalls atomic.Int32
	listCalls   atomic.Int32
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{rates: make(map[string]map[string]float64)}
}

func (p *fakeProvider) set(base, target string, rate float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rates[base] == nil {
		p.rates[base] = make(map[string]float64)
	}
	p.rates[base][target] = rate
}

func (p *fakeProvider) FetchLatest(ctx context.Context, base string, symbols []string) (map[string]float64, error) {
	p.latestCalls.Add(1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.latestErr != nil {
		return nil, p.latestErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		rate, ok := p.rates[base][s]
		if !ok {
			return nil, &upstream.Error{Operation: upstream.OperationLatest, Class: upstream.ErrorClassNotFound, Message: "no rate for " + s}
		}
		out[s] = rate
	}
	return out, nil
}

func (p *fakeProvider) FetchCurrencyList(ctx context.Context) ([]string, error) {
	p.listCalls.Add(1)
	if p.listErr != nil {
		return nil, p.listErr
	}
	return append([]string(nil), p.currencies...), nil
}

// countingRepo wraps a memory store, counting calls and injecting errors.
type countingRepo struct {
	*memory.Store

	gets    atomic.Int32
	upserts atomic.Int32

	getErr    error
	upsertErr error
}

func newCountingRepo() *countingRepo {
	return &countingRepo{Store: memory.New()}
}

func (r *countingRepo) GetRate(ctx context.Context, base, target string) (store.RateEntry, error) {
	r.gets.Add(1)
	if r.getErr != nil {
		return store.RateEntry{}, r.getErr
	}
	return r.Store.GetRate(ctx, base, target)
}

func (r *countingRepo) UpsertRate(ctx context.Context, entry store.RateEntry) error {
	r.upserts.Add(1)
	if r.upsertErr != nil {
		return r.upsertErr
	}
	return r.Store.UpsertRate(ctx, entry)
}

func (r *countingRepo) calls() int32 {
	return r.gets.Load() + r.upserts.Load()
}

var errStoreDown = errors.New("store down")

// harness wires a Resolver over fakes sharing one clock.
type harness struct {
	clock    *fakeClock
	provider *fakeProvider
	repo     *countingRepo
	local    *cache.Local[*Result]
	durable  *DurableCache
	list     *CurrencyList
	resolver *Resolver
}

func newHarness(cfg ResolverConfig) *harness {
	h := &harness{
		clock:    newFakeClock(),
		provider: newFakeProvider(),
		repo:     newCountingRepo(),
	}
	logger := zerolog.Nop()
	cfg.Logger = logger

	h.local = cache.NewLocal[*Result](cache.LocalConfig{Clock: h.clock.Now, Logger: logger})
	h.durable = NewDurableCache(h.repo, DurableConfig{Clock: h.clock.Now, Logger: logger})
	h.list = NewCurrencyList(h.provider, CurrencyListConfig{Clock: h.clock.Now, Logger: logger})
	h.resolver = NewResolver(h.local, h.durable, h.list, h.provider, cfg)
	return h
}
