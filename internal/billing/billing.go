// Package billing wraps the subscription provider (RevenueCat). The rest
// of the app talks to the Client interface and the update Feed; the
// provider's REST surface stays behind this boundary.
package billing

import (
	"context"
	"errors"

	"github.com/caban7m/GymRat/internal/domain"
)

// --- Error Definitions ---
var (
	ErrProviderUnavailable = errors.New("billing provider unreachable")
	ErrSubscriberNotFound  = errors.New("subscriber not found")
)

// Client is the billing SDK boundary. app_user_id must be the same user
// identity the webhook receives, or entitlement records end up orphaned.
type Client interface {
	// LogIn identifies the user with the provider. Best-effort for the
	// reconciler: a failure is logged, not fatal, since entitlement can
	// still be read from the store directly.
	LogIn(ctx context.Context, appUserID string) error
	// LogOut clears the provider-side identity on session end.
	LogOut(ctx context.Context, appUserID string) error
	// GetCustomerInfo returns the provider's current view of a subscriber.
	GetCustomerInfo(ctx context.Context, appUserID string) (*domain.CustomerInfo, error)
	// RestorePurchases re-syncs prior purchases and returns the resulting
	// customer info.
	RestorePurchases(ctx context.Context, appUserID string) (*domain.CustomerInfo, error)
	// GetOfferings lists the paywall offerings for a user.
	GetOfferings(ctx context.Context, appUserID string) ([]domain.Offering, error)
}
