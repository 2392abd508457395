// Package identity wraps the external identity provider. The app does
// not own authentication: principals arrive on session tokens the
// provider issued, and the only outbound call is pushing the resolved
// role into the provider's per-user metadata so its session claims
// stay in sync with ours.
package identity

import (
	"context"

	"github.com/plurahq/agencyhub/internal/models"
)

// Provider is the outbound surface this core consumes. Failure of
// SetUserMetadata must never corrupt local state — callers commit
// locally first and treat a metadata failure as retryable drift.
type Provider interface {
	// SetUserMetadata records the user's application role in the
	// provider's private metadata store.
	SetUserMetadata(ctx context.Context, userID string, role models.Role) error
}

// Noop satisfies Provider without any outbound call. Used when no API
// key is configured (local development, tests).
type Noop struct{}

func (Noop) SetUserMetadata(context.Context, string, models.Role) error { return nil }
