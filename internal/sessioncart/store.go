package sessioncart

import (
	"context"
	"errors"
	"time"

	"github.com/sasusavage/perfumeshop/internal/domain"
)

// DefaultTTL replaces a non-positive session TTL.
const DefaultTTL = 24 * time.Hour

var ErrSessionNotFound = errors.New("session cart not found")

// Store persists one cart per session.
type Store interface {
	// Get returns ErrSessionNotFound when the session has no cart.
	Get(ctx context.Context, sessionID string) (domain.Cart, error)
	Set(ctx context.Context, sessionID string, cart domain.Cart) error
	Delete(ctx context.Context, sessionID string) error
}

func sessionTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
