// seed inserts development location history for local testing. Run via go run ./cmd/seed.
// Idempotent: records are upserted by (device_id, ts), so re-running only refreshes payloads.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"location-history/internal/config"
	"location-history/internal/db"
	"location-history/internal/location/repository"
	"location-history/internal/location/sample"
)

func main() {
	count := flag.Int("count", 25, "Number of location records per device")
	interval := flag.Duration("interval", time.Minute, "Time between consecutive records")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL " +
			"(without a database, run cmd/server with SEED_MEMORY_STORE=true instead)")
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	repo, err := repository.NewPostgresRepository(conn, cfg.LocationTable)
	if err != nil {
		log.Fatalf("location repository: %v", err)
	}

	n, err := sample.Load(ctx, repo, sample.Anchor(time.Now(), *count, *interval), *count, *interval)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}

	log.Printf("Seed completed successfully (%d records).", n)
	fmt.Printf("Try: curl 'http://localhost%s/devices/%s/locations?limit=5&page=1'\n", cfg.HTTPAddr, sample.DeviceIDs[0])
}
