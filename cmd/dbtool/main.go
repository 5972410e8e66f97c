package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"
	"vrp-route-service/internal/adapters/cache"
	"vrp-route-service/internal/adapters/repositories"
	"vrp-route-service/internal/config"
	"vrp-route-service/internal/platform/db"

	"github.com/sirupsen/logrus"
)

const usage = `usage: dbtool <command>

commands:
  init          create tables
  seed [path]   create tables and load orders and vehicles (default SEED_PATH)
  purge-cache   delete expired oracle cache rows`

func main() {
	config.LoadDotEnv()

	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	driver := config.Get("DB_DRIVER", db.DriverSQLite)
	conn, err := db.Open(driver, config.Get("DATABASE_URL", "data/app.db"))
	if err != nil {
		logrus.Fatal(err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch flag.Arg(0) {
	case "init":
		logrus.Info("Initializing database schema...")
		if err := repositories.InitSchema(conn); err != nil {
			logrus.Fatalf("schema initialization failed: %v", err)
		}
		logrus.Info("Schema ready.")

	case "seed":
		seedPath := config.Get("SEED_PATH", "data/seeds/seed.json")
		if flag.NArg() > 1 {
			seedPath = flag.Arg(1)
		}
		if err := repositories.InitSchema(conn); err != nil {
			logrus.Fatalf("schema initialization failed: %v", err)
		}
		logrus.WithField("path", seedPath).Info("Seeding database...")
		if err := repositories.SeedFromJSON(ctx, conn, driver, seedPath); err != nil {
			logrus.Fatalf("seeding failed: %v", err)
		}
		logrus.Info("Seeding complete.")

	case "purge-cache":
		n, err := cache.NewSQLOracleCache(conn, driver, cache.DefaultTTLs()).Purge(ctx)
		if err != nil {
			logrus.Fatalf("purge failed: %v", err)
		}
		logrus.WithField("rows", n).Info("Expired cache entries removed.")

	default:
		flag.Usage()
		os.Exit(2)
	}
}
