// Package service maintains the additional-service catalog and its cache.
package service

import (
	"context"
	"encoding/json"
	"time"

	"cleanbroker/internal/catalog/repository"
	"cleanbroker/internal/catalog/transport"
	"cleanbroker/platform/config"
	"cleanbroker/platform/logger"

	"github.com/redis/go-redis/v9"
)

// activePricesKey caches the active price map. One key for the whole
// catalog; writes invalidate rather than patch.
const activePricesKey = "catalog:active_prices"

// Store is the persistence surface the catalog service needs.
type Store interface {
	ActivePrices(ctx context.Context) (map[string]int64, error)
	List(ctx context.Context) ([]repository.Item, error)
	GetByKey(ctx context.Context, serviceKey string) (*repository.Item, error)
	Upsert(ctx context.Context, serviceKey, displayName string, priceCents int64) (*repository.Item, error)
	SetActive(ctx context.Context, serviceKey string, active bool) error
}

// Service provides catalog reads with a Redis read-through cache.
// The cache is best effort: Redis being down degrades to database reads.
type Service struct {
	store Store
	cache *redis.Client
	ttl   time.Duration
	log   *logger.Logger
}

// New creates a new catalog service. cache may be nil to disable caching.
func New(store Store, cache *redis.Client, cfg config.CatalogConfig, log *logger.Logger) *Service {
	return &Service{
		store: store,
		cache: cache,
		ttl:   cfg.GetCatalogCacheTTL(),
		log:   log,
	}
}

// ActivePrices returns the price of every active catalog item keyed by
// service key. This is the pricing calculator's lookup table.
func (s *Service) ActivePrices(ctx context.Context) (map[string]int64, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, activePricesKey).Bytes()
		if err == nil {
			var prices map[string]int64
			if err := json.Unmarshal(cached, &prices); err == nil {
				return prices, nil
			}
		} else if err != redis.Nil && s.log != nil {
			s.log.Warn("catalog cache read failed", "error", err)
		}
	}

	prices, err := s.store.ActivePrices(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(prices); err == nil {
			if err := s.cache.Set(ctx, activePricesKey, payload, s.ttl).Err(); err != nil && s.log != nil {
				s.log.Warn("catalog cache write failed", "error", err)
			}
		}
	}
	return prices, nil
}

// List returns all catalog items including inactive ones.
func (s *Service) List(ctx context.Context) ([]transport.ItemResponse, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]transport.ItemResponse, len(items))
	for i, item := range items {
		responses[i] = toResponse(&item)
	}
	return responses, nil
}

// Upsert creates or reprices an item and reactivates it.
func (s *Service) Upsert(ctx context.Context, serviceKey string, req transport.UpsertItemRequest) (*transport.ItemResponse, error) {
	item, err := s.store.Upsert(ctx, serviceKey, req.DisplayName, req.PriceCents)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	resp := toResponse(item)
	return &resp, nil
}

// Activate makes an item purchasable again.
func (s *Service) Activate(ctx context.Context, serviceKey string) error {
	if err := s.store.SetActive(ctx, serviceKey, true); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Deactivate withdraws an item from sale. Existing quote selections keep
// their recorded price; only new selections are affected.
func (s *Service) Deactivate(ctx context.Context, serviceKey string) error {
	if err := s.store.SetActive(ctx, serviceKey, false); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, activePricesKey).Err(); err != nil && s.log != nil {
		s.log.Warn("catalog cache invalidation failed", "error", err)
	}
}

func toResponse(item *repository.Item) transport.ItemResponse {
	return transport.ItemResponse{
		ID:          item.ID,
		ServiceKey:  item.ServiceKey,
		DisplayName: item.DisplayName,
		PriceCents:  item.PriceCents,
		Active:      item.Active,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}
