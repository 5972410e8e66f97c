package ports

import "context"

type CacheKind string

const (
	CacheGeocode    CacheKind = "geocode"
	CacheDirections CacheKind = "directions"
	CacheMatrix     CacheKind = "matrix"
)

// Memoizing store in front of the oracle. Each kind has its own expiry,
// chosen by the implementation. A miss is (nil, false, nil).
type OracleCache interface {
	Get(ctx context.Context, kind CacheKind, key string) ([]byte, bool, error)
	Set(ctx context.Context, kind CacheKind, key string, payload []byte) error
}
