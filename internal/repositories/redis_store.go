package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	guestCartKeyPrefix     = "storefront:cart:"
	guestWishlistKeyPrefix = "storefront:wishlist:"
)

// RedisCartStore keeps guest carts as JSON documents that expire after ttl of inactivity.
// Versions are checked under WATCH so concurrent saves of one cart cannot interleave.
type RedisCartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCartStore creates a RedisCartStore.
func NewRedisCartStore(client *redis.Client, ttl time.Duration) *RedisCartStore {
	return &RedisCartStore{client: client, ttl: ttl}
}

// Get returns the stored cart, or an empty one when the key is missing or expired.
func (s *RedisCartStore) Get(ctx context.Context, ownerID string) (*models.Cart, error) {
	cart, err := redisGet[models.Cart](ctx, s.client, guestCartKeyPrefix+ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart of %s: %w", ownerID, err)
	}
	if cart == nil {
		return &models.Cart{OwnerID: ownerID}, nil
	}
	return cart, nil
}

// Save writes cart if the stored version still matches and refreshes the TTL.
func (s *RedisCartStore) Save(ctx context.Context, cart *models.Cart) error {
	next := *cart
	next.Version = cart.Version + 1
	next.UpdatedAt = time.Now()

	err := redisUpdate(ctx, s.client, guestCartKeyPrefix+cart.OwnerID, s.ttl, func(current *models.Cart) (*models.Cart, error) {
		if versionOf(current) != cart.Version {
			return nil, ErrVersionConflict
		}
		return &next, nil
	})
	if err != nil {
		return err
	}
	cart.Version = next.Version
	cart.UpdatedAt = next.UpdatedAt
	return nil
}

// Clear empties the cart and bumps its version.
func (s *RedisCartStore) Clear(ctx context.Context, ownerID string) error {
	return redisUpdate(ctx, s.client, guestCartKeyPrefix+ownerID, s.ttl, func(current *models.Cart) (*models.Cart, error) {
		if current == nil {
			return nil, nil
		}
		current.Items = nil
		current.Version++
		current.UpdatedAt = time.Now()
		return current, nil
	})
}

// Delete removes the cart key.
func (s *RedisCartStore) Delete(ctx context.Context, ownerID string) error {
	if err := s.client.Del(ctx, guestCartKeyPrefix+ownerID).Err(); err != nil {
		return fmt.Errorf("failed to delete cart of %s: %w", ownerID, err)
	}
	return nil
}

// RedisWishlistStore keeps guest wishlists like RedisCartStore keeps carts.
type RedisWishlistStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisWishlistStore creates a RedisWishlistStore.
func NewRedisWishlistStore(client *redis.Client, ttl time.Duration) *RedisWishlistStore {
	return &RedisWishlistStore{client: client, ttl: ttl}
}

// Get returns the stored wishlist, or an empty one.
func (s *RedisWishlistStore) Get(ctx context.Context, ownerID string) (*models.Wishlist, error) {
	wishlist, err := redisGet[models.Wishlist](ctx, s.client, guestWishlistKeyPrefix+ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wishlist of %s: %w", ownerID, err)
	}
	if wishlist == nil {
		return &models.Wishlist{OwnerID: ownerID}, nil
	}
	return wishlist, nil
}

// Save writes wishlist if the stored version still matches.
func (s *RedisWishlistStore) Save(ctx context.Context, wishlist *models.Wishlist) error {
	next := *wishlist
	next.Version = wishlist.Version + 1
	next.UpdatedAt = time.Now()

	err := redisUpdate(ctx, s.client, guestWishlistKeyPrefix+wishlist.OwnerID, s.ttl, func(current *models.Wishlist) (*models.Wishlist, error) {
		if wishlistVersionOf(current) != wishlist.Version {
			return nil, ErrVersionConflict
		}
		return &next, nil
	})
	if err != nil {
		return err
	}
	wishlist.Version = next.Version
	wishlist.UpdatedAt = next.UpdatedAt
	return nil
}

// Clear empties the wishlist.
func (s *RedisWishlistStore) Clear(ctx context.Context, ownerID string) error {
	return redisUpdate(ctx, s.client, guestWishlistKeyPrefix+ownerID, s.ttl, func(current *models.Wishlist) (*models.Wishlist, error) {
		if current == nil {
			return nil, nil
		}
		current.Items = nil
		current.Version++
		current.UpdatedAt = time.Now()
		return current, nil
	})
}

// Delete removes the wishlist key.
func (s *RedisWishlistStore) Delete(ctx context.Context, ownerID string) error {
	if err := s.client.Del(ctx, guestWishlistKeyPrefix+ownerID).Err(); err != nil {
		return fmt.Errorf("failed to delete wishlist of %s: %w", ownerID, err)
	}
	return nil
}

func versionOf(c *models.Cart) int64 {
	if c == nil {
		return 0
	}
	return c.Version
}

func wishlistVersionOf(w *models.Wishlist) int64 {
	if w == nil {
		return 0
	}
	return w.Version
}

type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// redisGet decodes the JSON document at key. A missing key yields nil.
func redisGet[T any](ctx context.Context, client redisGetter, key string) (*T, error) {
	raw, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc T
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return &doc, nil
}

// redisUpdate reads the document at key under WATCH, lets mutate compute the
// replacement and writes it in a MULTI block with a fresh ttl. A nil
// replacement leaves the key alone. A write racing ours aborts the
// transaction and is reported as ErrVersionConflict.
func redisUpdate[T any](ctx context.Context, client *redis.Client, key string, ttl time.Duration, mutate func(*T) (*T, error)) error {
	err := client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := redisGet[T](ctx, tx, key)
		if err != nil {
			return err
		}
		next, err := mutate(current)
		if err != nil || next == nil {
			return err
		}
		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrVersionConflict
	}
	return err
}
