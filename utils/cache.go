package utils

import (
	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	rstore "github.com/eko/gocache/store/ristretto/v4"
)

type CacheConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		NumCounters: 1000000,
		MaxCost:     1 << 26,
		BufferItems: 64,
	}
}

// NewCache builds a byte cache whose cost is the value length.
func NewCache(cfg CacheConfig) (*cache.Cache[[]byte], error) {
	rcache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Cost: func(value interface{}) int64 {
			if b, ok := value.([]byte); ok {
				return int64(len(b))
			}
			return 1
		},
	})
	if err != nil {
		return nil, err
	}

	store_ := rstore.NewRistretto(rcache)
	manager := cache.New[[]byte](store_)
	return manager, nil
}
