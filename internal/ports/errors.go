package ports

import "errors"

var ErrIdempotencyInFlight = errors.New("request with this idempotency key is in progress")
