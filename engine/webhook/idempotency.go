package webhook

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/tidwall/gjson"
)

const (
	HeaderIdempotencyKey = "X-Idempotency-Key"

	DefaultIdempotencyField = "id"
	DefaultIdempotencyTTL   = 24 * time.Hour
	defaultMemoryKeys       = 10_000
)

// Service records idempotency keys. CheckAndSet returns ErrDuplicate when the
// key was already seen within its TTL.
type Service interface {
	CheckAndSet(ctx context.Context, key string, ttl time.Duration) error
}

// RedisClient is the subset of go-redis used for idempotency.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

type redisService struct {
	client RedisClient
}

func NewRedisService(client RedisClient) Service {
	return &redisService{client: client}
}

func (s *redisService) CheckAndSet(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := s.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicate
	}
	return nil
}

// memoryService keeps keys in a bounded expiring LRU. Its TTL is fixed at
// construction and the per-call ttl is ignored.
type memoryService struct {
	mu   sync.Mutex
	seen *expirable.LRU[string, struct{}]
}

func NewMemoryService(size int, ttl time.Duration) Service {
	if size <= 0 {
		size = defaultMemoryKeys
	}
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &memoryService{seen: expirable.NewLRU[string, struct{}](size, nil, ttl)}
}

func (s *memoryService) CheckAndSet(_ context.Context, key string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen.Get(key); ok {
		return ErrDuplicate
	}
	s.seen.Add(key, struct{}{})
	return nil
}

// DeriveKey returns the idempotency key for a delivery, or "" when neither the
// header nor the body field carries one.
func DeriveKey(h http.Header, body []byte, field string) string {
	if v := strings.TrimSpace(h.Get(HeaderIdempotencyKey)); v != "" {
		return v
	}
	if field == "" {
		field = DefaultIdempotencyField
	}
	res := gjson.GetBytes(body, field)
	if !res.Exists() || res.Type == gjson.Null {
		return ""
	}
	return strings.TrimSpace(res.String())
}

func KeyWithNamespace(namespace, key string) string {
	return "idempotency:webhook:" + namespace + ":" + key
}
