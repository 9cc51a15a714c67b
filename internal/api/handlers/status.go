package handlers

import (
	"net/http"
	"warehouse-allocation-service/internal/api/dto"
	"warehouse-allocation-service/internal/services"
)

type StatusHandler struct {
	Engine *services.AllocationEngine
}

func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	snap := h.Engine.Snapshot()
	writeJSON(w, r, http.StatusOK, dto.StatusResponse{
		QueueLength:   snap.QueueLength,
		BacklogLength: snap.BacklogLength,
		ManifestSize:  snap.ManifestSize,
		ManifestUsed:  snap.ManifestUsed,
		ManifestLimit: snap.ManifestLimit,
		FreeBins:      snap.FreeBinCount,
		TotalBins:     snap.BinCount,
		Queue:         toPackageResponses(snap.Queue),
		Backlog:       toPackageResponses(snap.Backlog),
		Manifest:      toPackageResponses(snap.Manifest),
	})
}
