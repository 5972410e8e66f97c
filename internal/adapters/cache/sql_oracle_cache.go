package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"vrp-route-service/internal/platform/db"
	"vrp-route-service/internal/platform/obs"
	"vrp-route-service/internal/ports"
)

// SQLOracleCache stores oracle responses in the oracle_cache table. Works
// against SQLite and Postgres; expired rows read as misses until Purge
// removes them.
type SQLOracleCache struct {
	DB     *sql.DB
	driver string
	ttls   TTLs
	now    func() time.Time
}

func NewSQLOracleCache(conn *sql.DB, driver string, ttls TTLs) *SQLOracleCache {
	return &SQLOracleCache{DB: conn, driver: driver, ttls: ttls, now: time.Now}
}

func (s *SQLOracleCache) Get(ctx context.Context, kind ports.CacheKind, key string) (_ []byte, _ bool, err error) {
	defer obs.Time(ctx, "cache.sql.Get")(&err)

	if s.DB == nil {
		return nil, false, errors.New("oracle cache: db is nil")
	}

	q := db.Rebind(s.driver, `
	SELECT payload
	FROM oracle_cache
	WHERE kind = ? AND cache_key = ? AND expires_at > ?;
	`)

	var payload string
	err = s.DB.QueryRowContext(ctx, q, string(kind), key, s.now().Unix()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get oracle cache %s: %w", kind, err)
	}
	return []byte(payload), true, nil
}

func (s *SQLOracleCache) Set(ctx context.Context, kind ports.CacheKind, key string, payload []byte) (err error) {
	defer obs.Time(ctx, "cache.sql.Set")(&err)

	if s.DB == nil {
		return errors.New("oracle cache: db is nil")
	}
	if key == "" {
		return errors.New("insert oracle cache: empty key")
	}

	q := db.Rebind(s.driver, `
	INSERT INTO oracle_cache (kind, cache_key, payload, expires_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (kind, cache_key) DO UPDATE
	SET payload = EXCLUDED.payload,
		expires_at = EXCLUDED.expires_at;
	`)

	expires := s.now().Add(s.ttls.For(kind)).Unix()
	if _, err := s.DB.ExecContext(ctx, q, string(kind), key, string(payload), expires); err != nil {
		return fmt.Errorf("insert oracle cache %s: %w", kind, err)
	}
	return nil
}

// Purge deletes expired entries and reports how many were removed.
func (s *SQLOracleCache) Purge(ctx context.Context) (int64, error) {
	q := db.Rebind(s.driver, `DELETE FROM oracle_cache WHERE expires_at <= ?;`)

	res, err := s.DB.ExecContext(ctx, q, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("purge oracle cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge oracle cache: rows affected: %w", err)
	}
	return n, nil
}
