package services

import (
	"strings"

	"github.com/google/uuid"
)

// NewTrackingID returns an id like PKG-1A2B3C4D built from a random UUID.
func NewTrackingID() string {
	return "PKG-" + strings.ToUpper(uuid.NewString()[:8])
}
