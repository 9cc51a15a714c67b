package main

import (
	"context"
	"net/http"
	"time"
	"warehouse-allocation-service/internal/adapters/cache"
	"warehouse-allocation-service/internal/adapters/repositories"
	"warehouse-allocation-service/internal/api"
	"warehouse-allocation-service/internal/config"
	"warehouse-allocation-service/internal/domain"
	"warehouse-allocation-service/internal/platform/db"
	"warehouse-allocation-service/internal/platform/metrics"
	"warehouse-allocation-service/internal/platform/obs"
	"warehouse-allocation-service/internal/ports"
	"warehouse-allocation-service/internal/services"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// main is the application composition root.
// It wires concrete adapters (SQLite or Postgres, Redis) behind ports,
// rebuilds the engine from the shipment log and starts the HTTP server.
func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	if err := obs.SetupLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		logrus.Fatal(err)
	}
	if envErr != nil {
		logrus.Info("No .env file found (using environment variables)")
	}

	conn, dialect, err := db.OpenFor(cfg.DatabaseURL, cfg.DBPath)
	if err != nil {
		logrus.Fatal(err)
	}
	defer conn.Close()

	stores, err := repositories.NewStores(conn, dialect)
	if err != nil {
		logrus.Fatal(err)
	}

	m := metrics.New("warehouse")
	engine := services.NewAllocationEngine(services.EngineConfig{
		TruckCapacity: cfg.TruckCapacity,
		MaxCandidates: cfg.MaxCandidates,
	}, stores.Events, services.WithMetrics(m))

	ctx := context.Background()
	replayed, err := services.Restore(ctx, engine, stores.Events, stores.Bins, func() ([]domain.BinSpec, error) {
		return defaultLayout(cfg)
	})
	if err != nil {
		logrus.Fatal(err)
	}
	st := engine.Status()
	logrus.WithFields(logrus.Fields{
		"dialect":  dialect,
		"replayed": replayed,
		"bins":     st.BinCount,
		"queue":    st.QueueLength,
		"manifest": st.ManifestSize,
	}).Info("engine ready")

	var idem ports.IdempotencyStore
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logrus.WithError(err).Fatal("redis ping failed")
		}
		idem = cache.NewRedisIdempotencyStore(client, cfg.IdempotencyTTL)
	}

	router := api.NewRouter(api.Deps{
		Engine:      engine,
		Bins:        stores.Bins,
		Idempotency: idem,
		Metrics:     m,
		DefaultLayout: func() []domain.BinSpec {
			return repositories.DefaultBinGrid(cfg.BinGridSeed)
		},
	})

	logrus.Infof("Server listening addr=:%s", cfg.Port)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	logrus.Fatal(srv.ListenAndServe())
}

// defaultLayout reads BIN_LAYOUT_PATH when set, else generates the demo grid.
func defaultLayout(cfg *config.Config) ([]domain.BinSpec, error) {
	if cfg.BinLayoutPath != "" {
		return repositories.LoadBinLayout(cfg.BinLayoutPath)
	}
	return repositories.DefaultBinGrid(cfg.BinGridSeed), nil
}
