package api

import (
	"net/http"
	"warehouse-allocation-service/internal/api/handlers"
	"warehouse-allocation-service/internal/domain"
	"warehouse-allocation-service/internal/platform/metrics"
	"warehouse-allocation-service/internal/ports"
	"warehouse-allocation-service/internal/services"
)

// Deps are the collaborators the HTTP layer is wired with.
// Only Engine is required.
type Deps struct {
	Engine        *services.AllocationEngine
	Bins          ports.BinRepository
	Idempotency   ports.IdempotencyStore
	Metrics       *metrics.Metrics
	DefaultLayout func() []domain.BinSpec
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	pkgHandler := &handlers.PackageHandler{Engine: d.Engine}
	queueHandler := &handlers.QueueHandler{Engine: d.Engine}
	truckHandler := &handlers.TruckHandler{Engine: d.Engine}
	statusHandler := &handlers.StatusHandler{Engine: d.Engine}
	binHandler := &handlers.BinHandler{
		Engine:        d.Engine,
		Repo:          d.Bins,
		DefaultLayout: d.DefaultLayout,
	}

	mux.HandleFunc("/health", handlers.Health)
	mux.Handle("/packages", idempotencyMiddleware(d.Idempotency, http.HandlerFunc(pkgHandler.Collection)))
	mux.HandleFunc("/packages/{tracking_id}", pkgHandler.Get)
	mux.HandleFunc("/queue/process", queueHandler.Process)
	mux.HandleFunc("/backlog/requeue", queueHandler.Requeue)
	mux.HandleFunc("/truck/optimize", truckHandler.Optimize)
	mux.HandleFunc("/truck/load", truckHandler.Load)
	mux.HandleFunc("/truck/unload", truckHandler.Unload)
	mux.HandleFunc("/truck/dispatch", truckHandler.Dispatch)
	mux.HandleFunc("/status", statusHandler.Status)
	mux.HandleFunc("/bins", binHandler.List)
	mux.HandleFunc("/bins/reset", binHandler.Reset)
	if d.Metrics != nil {
		mux.Handle("/metrics", d.Metrics.Handler())
	}

	return requestIDMiddleware(loggingMiddleware(d.Metrics, mux))
}
