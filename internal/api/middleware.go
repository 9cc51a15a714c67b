package api

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
	"warehouse-allocation-service/internal/platform/metrics"
	"warehouse-allocation-service/internal/platform/obs"
	"warehouse-allocation-service/internal/ports"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	requestIDHeader   = "X-Request-ID"
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"

	maxIdempotentBody = 1 << 20
)

// statusWriter captures the final HTTP status code and number of bytes written.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Record implicit 200 responses when handlers write without calling WriteHeader.
func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// requestIDMiddleware propagates X-Request-ID, generating one when absent.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(obs.WithRequestID(r.Context(), id)))
	})
}

// loggingMiddleware logs end-to-end request duration and response size and
// records request metrics.
func loggingMiddleware(m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		dur := time.Since(start)
		// Route pattern, not the raw path, to keep label cardinality bounded.
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequest(r.Method, route, sw.status, dur)

		logrus.WithFields(logrus.Fields{
			"req_id": obs.RequestID(r.Context()),
			"method": r.Method,
			"path":   r.URL.RequestURI(),
			"status": sw.status,
			"bytes":  sw.bytes,
			"dur_ms": dur.Milliseconds(),
		}).Info("request")
	})
}

// captureWriter buffers the response body so it can be stored for replay.
type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *captureWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// idempotencyMiddleware replays the stored response for a repeated
// Idempotency-Key on POST. Requests without the header, and every request
// when store is nil, pass straight through. Server errors are not stored.
// Reusing a key with a different body is rejected with 422.
func idempotencyMiddleware(store ports.IdempotencyStore, next http.Handler) http.Handler {
	if store == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
		if r.Method != http.MethodPost || key == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		entry := logrus.WithFields(logrus.Fields{"req_id": obs.RequestID(ctx), "idempotency_key": key})

		body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentBody+1))
		if err != nil {
			rejectRequest(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		if len(body) > maxIdempotentBody {
			rejectRequest(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		hash := requestHash(body)

		existing, reserved, err := store.Reserve(ctx, key)
		switch {
		case errors.Is(err, ports.ErrIdempotencyInFlight):
			rejectRequest(w, http.StatusConflict, "request with this idempotency key is in progress")
			return
		case err != nil:
			entry.WithError(err).Warn("idempotency store unavailable, processing without it")
			next.ServeHTTP(w, r)
			return
		case !reserved && existing.RequestHash != "" && existing.RequestHash != hash:
			entry.WithFields(logrus.Fields{"original_hash": existing.RequestHash, "request_hash": hash}).
				Warn("idempotency key reused with a different body")
			rejectRequest(w, http.StatusUnprocessableEntity, "request body differs from the original request with this idempotency key")
			return
		case !reserved:
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set(replayedHeader, "true")
			w.WriteHeader(existing.Status)
			_, _ = w.Write(existing.Body)
			return
		}

		cw := &captureWriter{ResponseWriter: w}
		next.ServeHTTP(cw, r)

		if cw.status >= http.StatusInternalServerError || cw.status == 0 {
			if err := store.Release(ctx, key); err != nil {
				entry.WithError(err).Warn("release idempotency key failed")
			}
			return
		}
		resp := ports.IdempotentResponse{Status: cw.status, Body: cw.body.Bytes(), RequestHash: hash}
		if err := store.Complete(ctx, key, resp); err != nil {
			entry.WithError(err).Warn("store idempotent response failed")
		}
	})
}

func requestHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func rejectRequest(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
