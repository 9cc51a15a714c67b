package handlers

import (
	"net/http"
	"strings"
	"warehouse-allocation-service/internal/api/dto"
	"warehouse-allocation-service/internal/services"
)

// PackageHandler exposes package ingestion and lookup.
type PackageHandler struct {
	Engine *services.AllocationEngine
}

// Collection serves GET (list) and POST (ingest) on /packages.
func (h *PackageHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.ingest(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet+", "+http.MethodPost)
	}
}

func (h *PackageHandler) list(w http.ResponseWriter, r *http.Request) {
	pkgs := h.Engine.Packages()
	writeJSON(w, r, http.StatusOK, dto.ListPackagesResponse{Packages: toPackageResponses(pkgs)})
}

func (h *PackageHandler) ingest(w http.ResponseWriter, r *http.Request) {
	var req dto.IngestPackageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	pkg, err := h.Engine.Ingest(r.Context(), services.IngestRequest{
		Size:        req.Size,
		Destination: req.Destination,
		IsFragile:   req.IsFragile,
	})
	if err != nil {
		writeEngineError(w, r, "ingest package", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, toPackageResponse(pkg))
}

// Get serves GET /packages/{tracking_id}.
func (h *PackageHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	id := strings.TrimSpace(r.PathValue("tracking_id"))
	pkg, ok := h.Engine.Package(id)
	if !ok {
		writeError(w, r, http.StatusNotFound, "package not found")
		return
	}
	writeJSON(w, r, http.StatusOK, toPackageResponse(pkg))
}
