package cache

import (
	"context"
	"errors"
	"time"

	pkgcache "TradePulse/pkg/cache"
)

// ServiceBytes adapts a pkg/cache Service to the BytesCache interface used
// by the candle cache and handlers. Values round-trip as strings so the
// memory and Redis layers agree on the stored representation.
type ServiceBytes struct {
	svc pkgcache.Service
}

var _ BytesCache = (*ServiceBytes)(nil)

func NewServiceBytes(svc pkgcache.Service) *ServiceBytes {
	return &ServiceBytes{svc: svc}
}

func (s *ServiceBytes) GetBytes(key string) ([]byte, bool, error) {
	var raw string
	err := s.svc.Get(context.Background(), key, &raw)
	if err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(raw), true, nil
}

func (s *ServiceBytes) SetBytes(key string, value []byte, ttl time.Duration) error {
	return s.svc.Set(context.Background(), key, string(value), ttl)
}
