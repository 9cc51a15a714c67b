package handlers

import (
	"net/http"
	"strconv"
	"warehouse-allocation-service/internal/api/dto"
	"warehouse-allocation-service/internal/services"
)

const maxBatchSteps = 1000

type QueueHandler struct {
	Engine *services.AllocationEngine
}

// Process runs one conveyor step, or ?count=N steps.
func (h *QueueHandler) Process(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	count := 1
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxBatchSteps {
			writeError(w, r, http.StatusBadRequest, "count must be between 1 and "+strconv.Itoa(maxBatchSteps))
			return
		}
		count = n
	}

	reports, err := h.Engine.ProcessBatch(r.Context(), count)
	if err != nil {
		writeEngineError(w, r, "process queue", err)
		return
	}

	res := dto.ProcessQueueResponse{Steps: make([]dto.ProcessStepResponse, 0, len(reports))}
	for _, rep := range reports {
		res.Steps = append(res.Steps, dto.ProcessStepResponse{
			Outcome:      string(rep.Outcome),
			TrackingID:   rep.TrackingID,
			BinID:        rep.BinID,
			LocationCode: rep.LocationCode,
		})
	}
	st := h.Engine.Status()
	res.QueueLength = st.QueueLength
	res.BacklogLength = st.BacklogLength

	writeJSON(w, r, http.StatusOK, res)
}

// Requeue moves the backlog back onto the conveyor.
func (h *QueueHandler) Requeue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	n, err := h.Engine.RequeueBacklog(r.Context())
	if err != nil {
		writeEngineError(w, r, "requeue backlog", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.RequeueResponse{Requeued: n, QueueLength: h.Engine.Status().QueueLength})
}
