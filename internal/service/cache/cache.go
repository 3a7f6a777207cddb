package cache

import "time"

// BytesCache stores serialized API responses with a TTL. The analysis
// endpoints cache through it because the statistical battery re-reads
// and re-fits on every call.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
