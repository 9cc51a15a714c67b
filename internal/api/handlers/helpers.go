package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"warehouse-allocation-service/internal/api/dto"
	"warehouse-allocation-service/internal/domain"

	"github.com/sirupsen/logrus"
)

var errEmptyBody = errors.New("empty body")

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).WithError(err).Error("encode failed")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

// decodeJSON reads exactly one JSON object and rejects unknown fields.
// An empty body is reported as errEmptyBody.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return errors.New("invalid json body")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain only one JSON object")
	}
	return nil
}

// writeEngineError maps allocation errors onto HTTP status codes.
func writeEngineError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidPackage),
		errors.Is(err, domain.ErrInvalidCapacity),
		errors.Is(err, domain.ErrInvalidBinLayout):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrBinNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNoFitFound),
		errors.Is(err, domain.ErrBinOccupied),
		errors.Is(err, domain.ErrBinEmpty),
		errors.Is(err, domain.ErrCapacityExceeded),
		errors.Is(err, domain.ErrDuplicateTrackingID),
		errors.Is(err, domain.ErrPackageNotBinned):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrTooManyCandidates):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).WithError(err).Error(op + " failed")
		writeError(w, r, status, "internal server error")
		return
	}
	writeError(w, r, status, err.Error())
}

func toPackageResponse(p domain.Package) dto.PackageResponse {
	return dto.PackageResponse{
		TrackingID:  p.TrackingID,
		Size:        p.Size,
		Destination: p.Destination,
		IsFragile:   p.IsFragile,
		Status:      string(p.Status),
		BinID:       p.BinID,
	}
}

func toPackageResponses(pkgs []domain.Package) []dto.PackageResponse {
	out := make([]dto.PackageResponse, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, toPackageResponse(p))
	}
	return out
}
