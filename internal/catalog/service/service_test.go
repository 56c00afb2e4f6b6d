package service

import (
	"context"
	"testing"
	"time"

	"cleanbroker/internal/catalog/repository"
	"cleanbroker/internal/catalog/transport"
	"cleanbroker/platform/apperr"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeStore struct {
	prices map[string]int64
	reads  int
}

func (f *fakeStore) ActivePrices(_ context.Context) (map[string]int64, error) {
	f.reads++
	out := make(map[string]int64, len(f.prices))
	for k, v := range f.prices {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) List(_ context.Context) ([]repository.Item, error) {
	return nil, nil
}

func (f *fakeStore) GetByKey(_ context.Context, serviceKey string) (*repository.Item, error) {
	if _, ok := f.prices[serviceKey]; !ok {
		return nil, apperr.NotFound("catalog item not found")
	}
	return &repository.Item{ServiceKey: serviceKey, PriceCents: f.prices[serviceKey], Active: true}, nil
}

func (f *fakeStore) Upsert(_ context.Context, serviceKey, displayName string, priceCents int64) (*repository.Item, error) {
	f.prices[serviceKey] = priceCents
	return &repository.Item{ServiceKey: serviceKey, DisplayName: displayName, PriceCents: priceCents, Active: true}, nil
}

func (f *fakeStore) SetActive(_ context.Context, serviceKey string, active bool) error {
	if _, ok := f.prices[serviceKey]; !ok {
		return apperr.NotFound("catalog item not found")
	}
	if !active {
		delete(f.prices, serviceKey)
	}
	return nil
}

type fakeConfig struct{ ttl time.Duration }

func (f fakeConfig) GetCatalogCacheTTL() time.Duration { return f.ttl }

func newCachedService(t *testing.T) (*Service, *fakeStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := &fakeStore{prices: map[string]int64{
		"window_cleaning": 4000,
		"fridge_cleaning": 2500,
	}}
	return New(store, client, fakeConfig{ttl: time.Minute}, nil), store, mr
}

func TestActivePricesReadsThroughCache(t *testing.T) {
	svc, store, _ := newCachedService(t)
	ctx := context.Background()

	first, err := svc.ActivePrices(ctx)
	if err != nil {
		t.Fatalf("ActivePrices: %v", err)
	}
	if first["window_cleaning"] != 4000 {
		t.Fatalf("expected 4000, got %d", first["window_cleaning"])
	}

	second, err := svc.ActivePrices(ctx)
	if err != nil {
		t.Fatalf("ActivePrices (cached): %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("expected 2 prices from cache, got %d", len(second))
	}
	if store.reads != 1 {
		t.Fatalf("expected 1 database read, got %d", store.reads)
	}
}

func TestUpsertInvalidatesCache(t *testing.T) {
	svc, store, _ := newCachedService(t)
	ctx := context.Background()

	if _, err := svc.ActivePrices(ctx); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	if _, err := svc.Upsert(ctx, "oven_cleaning", transport.UpsertItemRequest{
		DisplayName: "Oven Cleaning",
		PriceCents:  3500,
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	prices, err := svc.ActivePrices(ctx)
	if err != nil {
		t.Fatalf("ActivePrices after upsert: %v", err)
	}
	if prices["oven_cleaning"] != 3500 {
		t.Fatalf("expected repriced catalog, got %v", prices)
	}
	if store.reads != 2 {
		t.Fatalf("expected a fresh database read after invalidation, got %d", store.reads)
	}
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	svc, store, mr := newCachedService(t)
	ctx := context.Background()

	if _, err := svc.ActivePrices(ctx); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := svc.ActivePrices(ctx); err != nil {
		t.Fatalf("ActivePrices after expiry: %v", err)
	}
	if store.reads != 2 {
		t.Fatalf("expected a database read after expiry, got %d", store.reads)
	}
}

func TestActivePricesWorksWithoutCache(t *testing.T) {
	store := &fakeStore{prices: map[string]int64{"window_cleaning": 4000}}
	svc := New(store, nil, fakeConfig{ttl: time.Minute}, nil)

	prices, err := svc.ActivePrices(context.Background())
	if err != nil {
		t.Fatalf("ActivePrices: %v", err)
	}
	if prices["window_cleaning"] != 4000 {
		t.Fatalf("expected 4000, got %d", prices["window_cleaning"])
	}
}
