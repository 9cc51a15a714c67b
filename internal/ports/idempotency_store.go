package ports

import "context"

// Stored outcome of a request made with an Idempotency-Key.
// RequestHash fingerprints the request body that produced the response.
type IdempotentResponse struct {
	Status      int    `json:"status"`
	Body        []byte `json:"body"`
	RequestHash string `json:"request_hash,omitempty"`
}

// Contract for remembering responses to idempotent requests.
type IdempotencyStore interface {
	// Reserve claims key. When the key was already completed, the stored
	// response is returned with reserved=false. A key that is claimed but
	// not completed yet is reported through ErrIdempotencyInFlight.
	Reserve(ctx context.Context, key string) (existing *IdempotentResponse, reserved bool, err error)
	// Complete stores the response for a reserved key.
	Complete(ctx context.Context, key string, resp IdempotentResponse) error
	// Release drops a reservation so the request can be retried.
	Release(ctx context.Context, key string) error
}
