package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Faraz011/virasat-backend/internal/domain"
	"github.com/Faraz011/virasat-backend/internal/repository"
)

const slugKeyPrefix = "product:slug:"

// ProductCache wraps a ProductRepository with a read-through Redis cache for
// slug lookups, the hottest path on product detail pages. Writes invalidate
// the cached entry; cache failures fall back to the database.
type ProductCache struct {
	repository.ProductRepository

	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewProductCache creates a caching decorator around the given repository.
func NewProductCache(inner repository.ProductRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *ProductCache {
	return &ProductCache{
		ProductRepository: inner,
		client:            client,
		ttl:               ttl,
		logger:            logger,
	}
}

// GetBySlug retrieves a product by slug, consulting the cache first.
func (c *ProductCache) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	key := slugKeyPrefix + slug

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var p domain.Product
		if err := json.Unmarshal(data, &p); err == nil {
			return &p, nil
		}
		c.logger.WarnContext(ctx, "corrupt product cache entry, falling through",
			slog.String("slug", slug),
		)
	} else if err != redis.Nil {
		c.logger.WarnContext(ctx, "product cache read failed",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
	}

	p, err := c.ProductRepository.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "product cache write failed",
				slog.String("slug", slug),
				slog.String("error", err.Error()),
			)
		}
	}

	return p, nil
}

// Update modifies the product and invalidates its cached entry.
func (c *ProductCache) Update(ctx context.Context, p *domain.Product) error {
	if err := c.ProductRepository.Update(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx, p.Slug)
	return nil
}

// Delete removes the product and invalidates its cached entry.
func (c *ProductCache) Delete(ctx context.Context, id string) error {
	p, err := c.ProductRepository.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := c.ProductRepository.Delete(ctx, id); err != nil {
		return err
	}

	c.invalidate(ctx, p.Slug)
	return nil
}

func (c *ProductCache) invalidate(ctx context.Context, slug string) {
	if err := c.client.Del(ctx, slugKeyPrefix+slug).Err(); err != nil {
		c.logger.WarnContext(ctx, "product cache invalidation failed",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
	}
}

var _ repository.ProductRepository = (*ProductCache)(nil)
