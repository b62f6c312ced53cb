package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

// Store loads and saves carts.
type Store interface {
	Load(ctx context.Context, scope Scope) (*Cart, error)
	Save(ctx context.Context, scope Scope, cart *Cart) error
	Delete(ctx context.Context, scope Scope) error
}

type kv interface {
	GetTouch(ctx context.Context, key string, ttl time.Duration) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(scope string) string
}

// RedisStore keeps each cart as a JSON blob with a sliding TTL.
type RedisStore struct {
	kv  kv
	ttl time.Duration
}

// NewRedisStore builds a store over the shop redis client.
func NewRedisStore(client kv, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisStore{kv: client, ttl: ttl}, nil
}

func (s *RedisStore) Load(ctx context.Context, scope Scope) (*Cart, error) {
	raw, err := s.kv.GetTouch(ctx, s.kv.CartKey(scope.SessionKey), s.ttl)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return &Cart{}, nil
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	var cart Cart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &cart, nil
}

func (s *RedisStore) Save(ctx context.Context, scope Scope, cart *Cart) error {
	if cart.IsEmpty() {
		return s.Delete(ctx, scope)
	}
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.kv.Set(ctx, s.kv.CartKey(scope.SessionKey), string(payload), s.ttl); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, scope Scope) error {
	if err := s.kv.Del(ctx, s.kv.CartKey(scope.SessionKey)); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
