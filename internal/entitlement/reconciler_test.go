package entitlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/caban7m/GymRat/internal/billing"
	"github.com/caban7m/GymRat/internal/domain"
	"github.com/caban7m/GymRat/internal/repository"
)

const testEntitlementID = "pro"

// mockEntitlementStore implements repository.EntitlementRepository.
// When gate is set, reads block until it is closed, which lets tests pin
// down the ordering of the optimistic grant and its verification fetch.
type mockEntitlementStore struct {
	mu     sync.Mutex
	record *domain.EntitlementRecord
	err    error
	gate   chan struct{}
	gets   int
}

func (m *mockEntitlementStore) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.EntitlementRecord, error) {
	m.mu.Lock()
	gate := m.gate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.err != nil {
		return nil, m.err
	}
	if m.record == nil {
		return nil, repository.ErrNotFound
	}
	rec := *m.record
	return &rec, nil
}

func (m *mockEntitlementStore) setGate(gate chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate = gate
}

func (m *mockEntitlementStore) Upsert(ctx context.Context, rec *domain.EntitlementRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = rec
	return nil
}

func (m *mockEntitlementStore) set(rec *domain.EntitlementRecord, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = rec
	m.err = err
}

// mockBillingClient implements billing.Client.
type mockBillingClient struct {
	mu         sync.Mutex
	loginErr   error
	logins     []string
	logouts    []string
	customerID string
}

func (m *mockBillingClient) LogIn(ctx context.Context, appUserID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins = append(m.logins, appUserID)
	return m.loginErr
}

func (m *mockBillingClient) LogOut(ctx context.Context, appUserID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logouts = append(m.logouts, appUserID)
	return nil
}

func (m *mockBillingClient) GetCustomerInfo(ctx context.Context, appUserID string) (*domain.CustomerInfo, error) {
	return &domain.CustomerInfo{AppUserID: appUserID}, nil
}

func (m *mockBillingClient) RestorePurchases(ctx context.Context, appUserID string) (*domain.CustomerInfo, error) {
	return &domain.CustomerInfo{AppUserID: appUserID}, nil
}

func (m *mockBillingClient) GetOfferings(ctx context.Context, appUserID string) ([]domain.Offering, error) {
	return nil, nil
}

func (m *mockBillingClient) logoutCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logouts)
}

func activeInfo(appUserID string) domain.CustomerInfo {
	return domain.CustomerInfo{
		AppUserID: appUserID,
		Entitlements: domain.Entitlements{
			Active: map[string]domain.EntitlementGrant{
				testEntitlementID: {ProductID: "gymrat_pro_monthly"},
			},
		},
	}
}

func newTestReconciler(store *mockEntitlementStore, client *mockBillingClient) (*Reconciler, *billing.Feed, primitive.ObjectID) {
	userID := primitive.NewObjectID()
	feed := billing.NewFeed()
	rec := NewReconciler(userID, testEntitlementID, store, client, feed)
	return rec, feed, userID
}

func TestStartWithActiveRecord(t *testing.T) {
	store := &mockEntitlementStore{}
	client := &mockBillingClient{}
	rec, _, userID := newTestReconciler(store, client)
	store.set(&domain.EntitlementRecord{UserID: userID, IsActive: true}, nil)

	rec.Start(context.Background())
	defer rec.Teardown()

	state := rec.Snapshot()
	assert.True(t, state.IsActive)
	assert.False(t, state.Loading)
	require.Len(t, client.logins, 1)
	assert.Equal(t, userID.Hex(), client.logins[0])
}

func TestExpiredRecordIsInactive(t *testing.T) {
	store := &mockEntitlementStore{}
	client := &mockBillingClient{}
	rec, _, userID := newTestReconciler(store, client)

	// Record still says active but expired one second ago.
	expired := time.Now().Add(-time.Second)
	store.set(&domain.EntitlementRecord{
		UserID:         userID,
		IsActive:       true,
		ExpirationDate: &expired,
	}, nil)

	rec.Start(context.Background())
	defer rec.Teardown()

	assert.False(t, rec.Snapshot().IsActive)
}

func TestNoRecordIsInactive(t *testing.T) {
	store := &mockEntitlementStore{}
	client := &mockBillingClient{}
	rec, _, _ := newTestReconciler(store, client)

	rec.Start(context.Background())
	defer rec.Teardown()

	state := rec.Snapshot()
	assert.False(t, state.IsActive)
	assert.False(t, state.Loading)
}

func TestLoginFailureIsNotFatal(t *testing.T) {
	store := &mockEntitlementStore{}
	client := &mockBillingClient{loginErr: errors.New("provider down")}
	rec, _, userID := newTestReconciler(store, client)
	store.set(&domain.EntitlementRecord{UserID: userID, IsActive: true}, nil)

	rec.Start(context.Background())
	defer rec.Teardown()

	// Entitlement was still read from the store.
	assert.True(t, rec.Snapshot().IsActive)
}

func TestOptimisticGrantThenAuthoritativeOverride(t *testing.T) {
	store := &mockEntitlementStore{}
	client := &mockBillingClient{}
	rec, feed, userID := newTestReconciler(store, client)

	// Server has no record yet: the webhook has not landed.
	rec.Start(context.Background())
	defer rec.Teardown()
	require.False(t, rec.Snapshot().IsActive)

	// Hold the verification fetch back so the optimistic window is
	// observable.
	gate := make(chan struct{})
	store.setGate(gate)

	// Purchase callback fires: the gate must open immediately.
	feed.Publish(activeInfo(userID.Hex()))
	assert.Eventually(t, func() bool {
		return rec.Snapshot().IsActive
	}, time.Second, 5*time.Millisecond, "optimistic grant never applied")

	// Release the verification; the store still disagrees, so the
	// optimistic grant is overridden back to inactive.
	close(gate)
	assert.Eventually(t, func() bool {
		return !rec.Snapshot().IsActive
	}, time.Second, 5*time.Millisecond, "authoritative record did not win")
}

func TestOptimisticGrantConfirmedByRecord(t *testing.T) {
	store := &mockEntitlementStore{}
	client := &mockBillingClient{}
	rec, feed, userID := newTestReconciler(store, client)

	rec.Start(context.Background())
	defer rec.Teardown()

	// Webhook lands just before the callback.
	store.set(&domain.EntitlementRecord{UserID: userID, IsActive: true}, nil)
	feed.Publish(activeInfo(userID.Hex()))

	assert.Eventually(t, func() bool {
		return rec.Snapshot().IsActive
	}, time.Second, 5*time.Millisecond)
	// Stays active once verified.
	time.Sleep(50 * time.Millisecond)
	assert.True(t, rec.Snapshot().IsActive)
}

func TestUpdateForOtherUserIsIgnored(t *testing.T) {
	store := &mockEntitlementStore{}
	client := &mockBillingClient{}
	rec, feed, _ := newTestReconciler(store, client)

	rec.Start(context.Background())
	defer rec.Teardown()

	feed.Publish(activeInfo(primitive.NewObjectID().Hex()))
	time.Sleep(50 * time.Millisecond)
	assert.False(t, rec.Snapshot().IsActive)
}

func TestFetchErrorPreservesState(t *testing.T) {
	store := &mockEntitlementStore{}
	client := &mockBillingClient{}
	rec, _, userID := newTestReconciler(store, client)
	store.set(&domain.EntitlementRecord{UserID: userID, IsActive: true}, nil)

	rec.Start(context.Background())
	defer rec.Teardown()
	require.True(t, rec.Snapshot().IsActive)

	// Store starts failing; a refresh must not lock the user out.
	store.set(nil, errors.New("connection reset"))
	rec.Refresh(context.Background())
	assert.True(t, rec.Snapshot().IsActive)
}

func TestRefreshPicksUpNewRecord(t *testing.T) {
	store := &mockEntitlementStore{}
	client := &mockBillingClient{}
	rec, _, userID := newTestReconciler(store, client)

	rec.Start(context.Background())
	defer rec.Teardown()
	require.False(t, rec.Snapshot().IsActive)

	store.set(&domain.EntitlementRecord{UserID: userID, IsActive: true}, nil)
	rec.Refresh(context.Background())
	assert.True(t, rec.Snapshot().IsActive)
}

func TestTeardownDiscardsStaleResults(t *testing.T) {
	store := &mockEntitlementStore{}
	client := &mockBillingClient{}
	rec, feed, userID := newTestReconciler(store, client)
	store.set(&domain.EntitlementRecord{UserID: userID, IsActive: true}, nil)

	rec.Start(context.Background())
	rec.Teardown()

	state := rec.Snapshot()
	assert.False(t, state.IsActive)
	assert.False(t, state.Loading)
	assert.Equal(t, 1, client.logoutCount())

	// A refresh racing the teardown resolves late; its result is discarded.
	rec.Refresh(context.Background())
	assert.False(t, rec.Snapshot().IsActive)

	// Publishing after teardown must not resurrect the session.
	feed.Publish(activeInfo(userID.Hex()))
	time.Sleep(50 * time.Millisecond)
	assert.False(t, rec.Snapshot().IsActive)
}

func TestTeardownIsIdempotent(t *testing.T) {
	store := &mockEntitlementStore{}
	client := &mockBillingClient{}
	rec, _, _ := newTestReconciler(store, client)

	rec.Start(context.Background())
	rec.Teardown()
	rec.Teardown()
	assert.Equal(t, 1, client.logoutCount())
}

func TestSessionManagerReplacesExistingSession(t *testing.T) {
	store := &mockEntitlementStore{}
	client := &mockBillingClient{}
	feed := billing.NewFeed()
	mgr := NewSessionManager(testEntitlementID, store, client, feed)
	userID := primitive.NewObjectID()

	first := mgr.Begin(context.Background(), userID)
	second := mgr.Begin(context.Background(), userID)
	defer mgr.End(userID)

	assert.NotSame(t, first, second)
	// The first session was torn down when the second began.
	assert.False(t, first.Snapshot().IsActive)
	assert.Equal(t, 1, client.logoutCount())
	assert.Same(t, second, mgr.Get(userID))
}

func TestSessionManagerEnd(t *testing.T) {
	store := &mockEntitlementStore{}
	client := &mockBillingClient{}
	feed := billing.NewFeed()
	mgr := NewSessionManager(testEntitlementID, store, client, feed)
	userID := primitive.NewObjectID()

	mgr.Begin(context.Background(), userID)
	mgr.End(userID)

	assert.Nil(t, mgr.Get(userID))
	assert.Equal(t, 1, client.logoutCount())
	// Ending again is a no-op.
	mgr.End(userID)
	assert.Equal(t, 1, client.logoutCount())
}
