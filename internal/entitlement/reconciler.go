// Package entitlement maintains the per-session answer to "is this user
// entitled". It merges the server-stored record, the optimistic
// billing-update callback, and explicit refresh-after-purchase into one
// boolean. The stored record is the only truth that survives
// restarts; the optimistic signal is a same-session accelerant that is
// always followed by a verification fetch.
package entitlement

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/caban7m/GymRat/internal/billing"
	"github.com/caban7m/GymRat/internal/domain"
	"github.com/caban7m/GymRat/internal/repository"
)

// verifyTimeout bounds the background re-verification fetch that follows
// an optimistic grant.
const verifyTimeout = 10 * time.Second

// State is the session-local entitlement view. Never persisted;
// recomputed every session.
type State struct {
	IsActive bool `json:"isActive"`
	Loading  bool `json:"loading"`
}

// Reconciler owns entitlement state for one signed-in session.
// Lifecycle: NewReconciler → Start → (updates, Refresh) → Teardown.
type Reconciler struct {
	userID        primitive.ObjectID
	appUserID     string
	entitlementID string
	store         repository.EntitlementRepository
	client        billing.Client
	feed          *billing.Feed

	mu         sync.Mutex
	isActive   bool
	loading    bool
	generation int
	cancelSub  func()
	torndown   bool
}

// NewReconciler creates a reconciler for one user session. Start must be
// called before the state is meaningful.
func NewReconciler(
	userID primitive.ObjectID,
	entitlementID string,
	store repository.EntitlementRepository,
	client billing.Client,
	feed *billing.Feed,
) *Reconciler {
	return &Reconciler{
		userID:        userID,
		appUserID:     userID.Hex(),
		entitlementID: entitlementID,
		store:         store,
		client:        client,
		feed:          feed,
		loading:       true,
	}
}

// Start identifies the session with the billing provider, performs the
// initial authoritative fetch, and begins draining billing updates.
func (r *Reconciler) Start(ctx context.Context) {
	// Identify with the provider. Best-effort: entitlement can still be
	// read from the store if this fails.
	if err := r.client.LogIn(ctx, r.appUserID); err != nil {
		log.Printf("WARN: billing login failed for user %s: %v", r.appUserID, err)
	}

	r.mu.Lock()
	if r.torndown {
		r.mu.Unlock()
		return
	}
	gen := r.generation
	updates, cancel := r.feed.Subscribe()
	r.cancelSub = cancel
	r.mu.Unlock()

	r.fetchAuthoritative(ctx, gen)

	r.mu.Lock()
	if gen == r.generation && !r.torndown {
		r.loading = false
	}
	r.mu.Unlock()

	go r.drain(updates, gen)
}

// drain consumes billing updates for the lifetime of the session. The
// channel is closed by Teardown's unsubscribe, which ends the loop.
func (r *Reconciler) drain(updates <-chan domain.CustomerInfo, gen int) {
	for info := range updates {
		if info.AppUserID != "" && info.AppUserID != r.appUserID {
			continue
		}
		if !info.HasEntitlement(r.entitlementID) {
			continue
		}

		// Optimistic: open the gate immediately so the user is not locked
		// out between a successful purchase and the webhook landing.
		r.mu.Lock()
		if gen != r.generation || r.torndown {
			r.mu.Unlock()
			return
		}
		r.isActive = true
		r.mu.Unlock()

		// Then re-verify against the stored record; the verified answer
		// unconditionally wins.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
			defer cancel()
			r.fetchAuthoritative(ctx, gen)
		}()
	}
}

// Refresh re-runs the authoritative fetch synchronously. Called right
// after a purchase or restore completes, before the caller proceeds into
// gated content.
func (r *Reconciler) Refresh(ctx context.Context) {
	r.mu.Lock()
	gen := r.generation
	r.mu.Unlock()
	r.fetchAuthoritative(ctx, gen)
}

// fetchAuthoritative reads the stored record and applies it, unless the
// session has been superseded in the meantime. A fetch error leaves the
// previous state unchanged: no forced lock, no free access.
func (r *Reconciler) fetchAuthoritative(ctx context.Context, gen int) {
	rec, err := r.store.GetByUserID(ctx, r.userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Printf("WARN: entitlement fetch failed for user %s: %v", r.appUserID, err)
		return
	}
	// Missing record = never subscribed.
	active := rec.Entitled(time.Now())

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation || r.torndown {
		// Result belongs to a superseded session; discard.
		return
	}
	r.isActive = active
}

// Teardown ends the session: unsubscribes from billing updates, bumps the
// generation so stale in-flight fetches are discarded, and clears the
// provider identity. Safe to call more than once.
func (r *Reconciler) Teardown() {
	r.mu.Lock()
	if r.torndown {
		r.mu.Unlock()
		return
	}
	r.torndown = true
	r.generation++
	r.isActive = false
	r.loading = false
	cancel := r.cancelSub
	r.cancelSub = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	ctx, cancelCtx := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancelCtx()
	if err := r.client.LogOut(ctx, r.appUserID); err != nil {
		log.Printf("WARN: billing logout failed for user %s: %v", r.appUserID, err)
	}
}

// Snapshot returns the current session-local view.
func (r *Reconciler) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State{IsActive: r.isActive, Loading: r.loading}
}
