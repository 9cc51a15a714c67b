package handlers

import (
	"errors"
	"net/http"
	"warehouse-allocation-service/internal/api/dto"
	"warehouse-allocation-service/internal/domain"
	"warehouse-allocation-service/internal/ports"
	"warehouse-allocation-service/internal/services"

	"github.com/sirupsen/logrus"
)

// BinHandler lists bins and replaces the layout.
type BinHandler struct {
	Engine *services.AllocationEngine
	// Repo persists the layout for the next bootstrap. Optional.
	Repo ports.BinRepository
	// DefaultLayout is used when a reset request carries no bins.
	DefaultLayout func() []domain.BinSpec
}

func (h *BinHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	bins := h.Engine.Bins()
	res := dto.ListBinsResponse{Bins: make([]dto.BinResponse, 0, len(bins))}
	for _, b := range bins {
		res.Bins = append(res.Bins, dto.BinResponse{
			BinID:        b.BinID,
			LocationCode: b.LocationCode,
			Capacity:     b.Capacity,
			Occupant:     b.Occupant,
			OccupantSize: b.OccupantSize,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}

// Reset replaces the bin layout and clears every package. An empty body or
// an empty bins list regenerates the default grid.
func (h *BinHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req dto.ResetBinsRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	layout := make([]domain.BinSpec, 0, len(req.Bins))
	for _, b := range req.Bins {
		layout = append(layout, domain.BinSpec{LocationCode: b.LocationCode, Capacity: b.Capacity})
	}
	if len(layout) == 0 {
		if h.DefaultLayout == nil {
			writeError(w, r, http.StatusBadRequest, "bins are required")
			return
		}
		layout = h.DefaultLayout()
	}

	if err := h.Engine.ResetBins(r.Context(), layout); err != nil {
		writeEngineError(w, r, "reset bins", err)
		return
	}

	if h.Repo != nil {
		if err := h.Repo.ReplaceBins(r.Context(), layout); err != nil {
			logrus.WithError(err).Error("persist bin layout failed")
		}
	}

	writeJSON(w, r, http.StatusOK, dto.ResetBinsResponse{Bins: len(layout)})
}
