package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"vrp-route-service/internal/adapters/cache"
	"vrp-route-service/internal/adapters/distance"
	"vrp-route-service/internal/adapters/repositories"
	"vrp-route-service/internal/api"
	"vrp-route-service/internal/config"
	"vrp-route-service/internal/domain"
	"vrp-route-service/internal/platform/db"
	"vrp-route-service/internal/platform/obs"
	"vrp-route-service/internal/ports"
	"vrp-route-service/internal/services"

	"github.com/sirupsen/logrus"
)

// main is the application composition root.
// It wires concrete adapters (SQL store, ORS, cache) behind ports and starts the HTTP server.
func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	if err := obs.Configure(os.Stderr, cfg.LogLevel, cfg.LogFormat); err != nil {
		logrus.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		logrus.Fatal(err)
	}
	defer conn.Close()

	// Initialize schema and seed demo data on startup for local runs.
	if err := initAndSeed(ctx, conn, cfg); err != nil {
		logrus.Fatal(err)
	}

	oracleCache, closeCache, err := openCache(ctx, conn, cfg)
	if err != nil {
		logrus.Fatal(err)
	}
	defer closeCache()

	ors, err := distance.NewORSOracle(cfg.ORSAPIKey, distance.WithBaseURL(cfg.ORSBaseURL))
	if err != nil {
		logrus.Fatal(err)
	}
	oracle := distance.NewCachedOracle(ors, oracleCache)

	depot, err := resolveDepot(ctx, cfg, oracle)
	if err != nil {
		logrus.Fatal(err)
	}

	svc := services.NewRouteService(
		repositories.NewSQLRouteStore(conn, cfg.DBDriver),
		repositories.NewSQLOrderRepository(conn, cfg.DBDriver),
		repositories.NewSQLVehicleRepository(conn),
		oracle,
		services.RouteServiceOptions{
			OracleTimeout: cfg.OracleTimeout,
			Timezone:      cfg.Timezone,
			Policy:        cfg.CapacityPolicy,
		},
	)

	// Timeouts are tuned for cold-cache optimization runs (external API latency).
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(svc, depot),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logrus.WithField("addr", srv.Addr).Info("server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	case <-ctx.Done():
		logrus.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("graceful shutdown failed")
		}
	}
}

func initAndSeed(ctx context.Context, conn *sql.DB, cfg config.Config) error {
	if err := repositories.InitSchema(conn); err != nil {
		return err
	}
	if cfg.SeedPath == "" {
		return nil
	}
	return repositories.SeedFromJSON(ctx, conn, cfg.DBDriver, cfg.SeedPath)
}

// openCache prefers Redis when REDIS_URL is set and falls back to the
// oracle_cache table otherwise.
func openCache(ctx context.Context, conn *sql.DB, cfg config.Config) (ports.OracleCache, func(), error) {
	ttls := cache.TTLs{
		Geocode:    cfg.CacheTTLGeocode,
		Directions: cfg.CacheTTLDirections,
		Matrix:     cfg.CacheTTLMatrix,
	}

	if cfg.RedisURL == "" {
		logrus.Info("oracle cache: sql")
		return cache.NewSQLOracleCache(conn, cfg.DBDriver, ttls), func() {}, nil
	}

	client, err := cache.OpenRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logrus.Info("oracle cache: redis")
	return cache.NewRedisOracleCache(client, ttls), func() { _ = client.Close() }, nil
}

func resolveDepot(ctx context.Context, cfg config.Config, geocoder ports.Geocoder) (domain.Coordinates, error) {
	if c, ok := cfg.Depot.Get(); ok {
		return c, nil
	}

	gctx, cancel := context.WithTimeout(ctx, cfg.OracleTimeout)
	defer cancel()

	c, err := geocoder.Geocode(gctx, cfg.DepotAddress)
	if err != nil {
		return domain.Coordinates{}, err
	}
	logrus.WithFields(logrus.Fields{"address": cfg.DepotAddress, "lon": c.Lon, "lat": c.Lat}).Info("depot geocoded")
	return c, nil
}
