package handlers

import (
	"net/http"
	"strings"
	"warehouse-allocation-service/internal/api/dto"
	"warehouse-allocation-service/internal/services"
)

// TruckHandler drives the loading dock: optimization, manual loads,
// unloads with rollback, and dispatch.
type TruckHandler struct {
	Engine *services.AllocationEngine
}

func (h *TruckHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req dto.OptimizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Capacity <= 0 {
		writeError(w, r, http.StatusBadRequest, "capacity must be positive")
		return
	}

	out, err := h.Engine.OptimizeLoad(r.Context(), req.Capacity)
	if err != nil {
		writeEngineError(w, r, "optimize load", err)
		return
	}

	res := dto.OptimizeResponse{
		TruckCapacity:     out.CapacityLimit,
		FilledSize:        out.FilledSize,
		OptimizedPackages: make([]dto.LoadedPackageResponse, 0, len(out.Selection)),
		SpaceUtilization:  out.Utilization,
		FragileIncluded:   out.FragileIncluded,
		NodesVisited:      out.NodesVisited,
		ExecutionLogs:     out.ExecutionLogs,
	}
	for _, it := range out.Selection {
		res.OptimizedPackages = append(res.OptimizedPackages, toLoadedResponse(it))
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *TruckHandler) Load(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	id, ok := decodeTrackingID(w, r)
	if !ok {
		return
	}

	item, err := h.Engine.LoadPackage(r.Context(), id)
	if err != nil {
		writeEngineError(w, r, "load package", err)
		return
	}

	writeJSON(w, r, http.StatusOK, toLoadedResponse(item))
}

// Unload ships one package. Displaced packages that could not be re-binned
// are listed in errors; the unload itself still succeeds.
func (h *TruckHandler) Unload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	id, ok := decodeTrackingID(w, r)
	if !ok {
		return
	}

	rep, err := h.Engine.Unload(r.Context(), id)
	if err != nil {
		writeEngineError(w, r, "unload package", err)
		return
	}

	res := dto.UnloadResponse{
		Shipped:  toPackageResponse(rep.Shipped),
		Returned: make([]dto.ReturnedPackageResponse, 0, len(rep.Returned)),
		Orphaned: rep.Orphaned,
		Errors:   make([]string, 0, len(rep.Errors)),
	}
	for _, it := range rep.Returned {
		res.Returned = append(res.Returned, dto.ReturnedPackageResponse{
			TrackingID:   it.TrackingID,
			BinID:        it.BinID,
			LocationCode: it.LocationCode,
		})
	}
	for _, e := range rep.Errors {
		res.Errors = append(res.Errors, e.Error())
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *TruckHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	shipped, err := h.Engine.DispatchTruck(r.Context())
	if err != nil {
		writeEngineError(w, r, "dispatch truck", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.DispatchResponse{Shipped: shipped})
}

func decodeTrackingID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req dto.TrackingIDRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return "", false
	}

	id := strings.TrimSpace(req.TrackingID)
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "tracking_id is required")
		return "", false
	}
	return id, true
}

func toLoadedResponse(it services.LoadedItem) dto.LoadedPackageResponse {
	return dto.LoadedPackageResponse{
		TrackingID:   it.TrackingID,
		Size:         it.Size,
		IsFragile:    it.IsFragile,
		BinID:        it.BinID,
		LocationCode: it.LocationCode,
	}
}
