package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"location-history/internal/config"
	"location-history/internal/db"
	healthhandler "location-history/internal/health/handler"
	"location-history/internal/location/repository"
	"location-history/internal/location/sample"
	"location-history/internal/location/service"
	"location-history/internal/server"
	"location-history/internal/telemetry"
	telemetryotel "location-history/internal/telemetry/otel"
	"location-history/internal/telemetry/producer"
)

// sampleCount is the number of records per device loaded when SEED_MEMORY_STORE is set.
const sampleCount = 25

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	var (
		store  repository.Store
		pinger healthhandler.Pinger
	)
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer conn.Close()
		repo, err := repository.NewPostgresRepository(conn, cfg.LocationTable)
		if err != nil {
			log.Fatalf("location repository: %v", err)
		}
		store, pinger = repo, repo
	} else {
		mem := repository.NewMemoryStore()
		if cfg.SeedMemoryStore {
			n, err := sample.Load(ctx, mem, sample.Anchor(time.Now(), sampleCount, time.Minute), sampleCount, time.Minute)
			if err != nil {
				log.Fatalf("seed memory store: %v", err)
			}
			log.Printf("DATABASE_URL not set; serving %d sample records from an in-memory location store", n)
		} else {
			log.Println("DATABASE_URL not set; serving from an empty in-memory location store (set SEED_MEMORY_STORE=true for sample data)")
		}
		store = mem
	}

	emitters := []telemetry.EventEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	eventProducer, err := newEventProducer(cfg)
	if err != nil {
		log.Fatalf("telemetry producer: %v", err)
	}
	if eventProducer != nil {
		defer eventProducer.Close()
		emitters = append(emitters, eventProducer)
		log.Printf("telemetry: publishing request events to kafka topic %s", cfg.TelemetryKafkaTopic)
	}

	handler := server.NewHandler(server.Deps{
		Locations:    service.NewQueryService(store, cfg.DefaultPageSize, cfg.MaxPageSize),
		HealthPinger: pinger,
		Emitter:      telemetry.Multi(emitters...),
	})
	srv := server.NewHTTPServer(cfg.HTTPAddr, handler, cfg.ReadTimeout(), cfg.WriteTimeout())

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.WriteTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown: %v", err)
	}

	// Let in-flight async telemetry emits finish before the exporters go away.
	time.Sleep(telemetry.ShutdownDrainDuration)
	otelCtx, otelCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer otelCancel()
	if err := providers.Shutdown(otelCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}

// newEventProducer returns the Kafka telemetry producer, or nil when KAFKA_BROKERS is unset.
func newEventProducer(cfg *config.Config) (producer.Producer, error) {
	p, err := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if err != nil || p == nil {
		return nil, err
	}
	return p, nil
}
