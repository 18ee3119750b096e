package entitlement

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/caban7m/GymRat/internal/billing"
	"github.com/caban7m/GymRat/internal/repository"
)

// SessionManager tracks one reconciler per signed-in user. Sessions are
// created at login and torn down at logout; a second login for the same
// user replaces (and tears down) the previous session.
type SessionManager struct {
	entitlementID string
	store         repository.EntitlementRepository
	client        billing.Client
	feed          *billing.Feed

	mu       sync.Mutex
	sessions map[primitive.ObjectID]*Reconciler
}

// NewSessionManager creates an empty session registry.
func NewSessionManager(
	entitlementID string,
	store repository.EntitlementRepository,
	client billing.Client,
	feed *billing.Feed,
) *SessionManager {
	return &SessionManager{
		entitlementID: entitlementID,
		store:         store,
		client:        client,
		feed:          feed,
		sessions:      make(map[primitive.ObjectID]*Reconciler),
	}
}

// Begin starts an entitlement session for the user, replacing any
// existing one.
func (m *SessionManager) Begin(ctx context.Context, userID primitive.ObjectID) *Reconciler {
	m.mu.Lock()
	prev := m.sessions[userID]
	rec := NewReconciler(userID, m.entitlementID, m.store, m.client, m.feed)
	m.sessions[userID] = rec
	m.mu.Unlock()

	if prev != nil {
		prev.Teardown()
	}
	rec.Start(ctx)
	return rec
}

// Get returns the user's active reconciler, or nil if no session exists.
func (m *SessionManager) Get(userID primitive.ObjectID) *Reconciler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID]
}

// End tears down the user's session. No-op when no session exists.
func (m *SessionManager) End(userID primitive.ObjectID) {
	m.mu.Lock()
	rec := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if rec != nil {
		rec.Teardown()
	}
}
