package distance

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"vrp-route-service/internal/domain"
	"vrp-route-service/internal/platform/obs"
	"vrp-route-service/internal/ports"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const sharedCallTimeout = 30 * time.Second

// CachedOracle memoizes an oracle behind a ports.OracleCache. Keys are
// content hashes of coordinates rounded to five decimals. Cache failures are
// logged and the call falls through to the wrapped oracle, so a hit and a
// fresh call always return the same shape.
//
// Concurrent misses for the same key share one upstream call. The shared call
// runs detached from any single caller, bounded by sharedCallTimeout; each
// caller still returns as soon as its own context is done.
type CachedOracle struct {
	next     ports.DistanceOracle
	geocoder ports.Geocoder
	cache    ports.OracleCache
	group    singleflight.Group
}

// NewCachedOracle wraps next. When next also implements ports.Geocoder,
// geocoding is cached too.
func NewCachedOracle(next ports.DistanceOracle, cache ports.OracleCache) *CachedOracle {
	c := &CachedOracle{next: next, cache: cache}
	if g, ok := next.(ports.Geocoder); ok {
		c.geocoder = g
	}
	return c
}

func (c *CachedOracle) DistanceMatrix(ctx context.Context, locations []domain.Coordinates) (ports.Matrix, error) {
	key := coordinatesKey(locations)
	return cached(ctx, c, ports.CacheMatrix, key, func(ctx context.Context) (ports.Matrix, error) {
		return c.next.DistanceMatrix(ctx, locations)
	})
}

func (c *CachedOracle) Directions(
	ctx context.Context,
	origin, destination domain.Coordinates,
	waypoints []domain.Coordinates,
) (ports.Directions, error) {
	path := make([]domain.Coordinates, 0, len(waypoints)+2)
	path = append(path, origin, destination)
	path = append(path, waypoints...)

	key := coordinatesKey(path)
	return cached(ctx, c, ports.CacheDirections, key, func(ctx context.Context) (ports.Directions, error) {
		return c.next.Directions(ctx, origin, destination, waypoints)
	})
}

func (c *CachedOracle) Geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	if c.geocoder == nil {
		return domain.Coordinates{}, errors.New("geocode: wrapped oracle does not geocode")
	}
	key := hashKey(strings.ToLower(normalize(address)))
	return cached(ctx, c, ports.CacheGeocode, key, func(ctx context.Context) (domain.Coordinates, error) {
		return c.geocoder.Geocode(ctx, address)
	})
}

func cached[T any](
	ctx context.Context,
	c *CachedOracle,
	kind ports.CacheKind,
	key string,
	fetch func(context.Context) (T, error),
) (T, error) {
	log := obs.Logger(ctx).WithFields(logrus.Fields{"cache_kind": kind, "cache_key": key[:12]})

	if b, ok, err := c.cache.Get(ctx, kind, key); err != nil {
		log.WithError(err).Warn("oracle cache read failed")
	} else if ok {
		var v T
		if err := json.Unmarshal(b, &v); err == nil {
			log.Debug("oracle cache hit")
			return v, nil
		}
		log.Warn("oracle cache entry undecodable, refetching")
	}

	ch := c.group.DoChan(string(kind)+":"+key, func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedCallTimeout)
		defer cancel()

		v, err := fetch(sctx)
		if err != nil {
			return v, err
		}

		b, err := json.Marshal(v)
		if err != nil {
			log.WithError(err).Warn("oracle cache encode failed")
			return v, nil
		}
		if err := c.cache.Set(sctx, kind, key, b); err != nil {
			log.WithError(err).Warn("oracle cache write failed")
		}
		return v, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// coordinatesKey hashes an ordered coordinate list.
func coordinatesKey(locs []domain.Coordinates) string {
	parts := make([]string, len(locs))
	for i, l := range locs {
		parts[i] = l.Key()
	}
	return hashKey(strings.Join(parts, ";"))
}

func hashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
