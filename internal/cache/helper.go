package cache

import (
	"encoding/json"

	"github.com/drivekit/billing/internal/config"
	"github.com/drivekit/billing/internal/logger"
	"github.com/drivekit/billing/internal/types"
)

// NewCache picks the configured cache backend
func NewCache(cfg *config.Configuration, log *logger.Logger) Cache {
	if cfg.Cache.Backend == types.CacheBackendRedis {
		return NewRedisCache(cfg, log)
	}
	return NewInMemoryCache(cfg)
}

// UnmarshalValue recovers a typed value out of a cache hit. In-memory
// backends hand the stored value back as-is; the Redis backend hands back
// the serialized JSON payload.
func UnmarshalValue[T any](value interface{}) (T, bool) {
	var zero T

	switch v := value.(type) {
	case T:
		return v, true
	case []byte:
		var out T
		if err := json.Unmarshal(v, &out); err != nil {
			return zero, false
		}
		return out, true
	case string:
		var out T
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return zero, false
		}
		return out, true
	default:
		return zero, false
	}
}
