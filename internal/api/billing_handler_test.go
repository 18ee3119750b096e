package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/caban7m/GymRat/internal/billing"
	"github.com/caban7m/GymRat/internal/domain"
	"github.com/caban7m/GymRat/internal/entitlement"
)

const testEntitlementID = "pro"

type mockBillingClient struct {
	mu           sync.Mutex
	customerInfo *domain.CustomerInfo
	infoErr      error
	offerings    []domain.Offering
	offeringsErr error
}

func (m *mockBillingClient) LogIn(context.Context, string) error  { return nil }
func (m *mockBillingClient) LogOut(context.Context, string) error { return nil }

func (m *mockBillingClient) GetCustomerInfo(_ context.Context, appUserID string) (*domain.CustomerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.infoErr != nil {
		return nil, m.infoErr
	}
	if m.customerInfo != nil {
		return m.customerInfo, nil
	}
	return &domain.CustomerInfo{AppUserID: appUserID}, nil
}

func (m *mockBillingClient) RestorePurchases(ctx context.Context, appUserID string) (*domain.CustomerInfo, error) {
	return m.GetCustomerInfo(ctx, appUserID)
}

func (m *mockBillingClient) GetOfferings(context.Context, string) ([]domain.Offering, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offerings, m.offeringsErr
}

// billingTestEnv wires a BillingHandler behind a stub auth middleware
// that injects the given user identity.
func billingTestEnv(userID primitive.ObjectID, store *mockWebhookStore, client billing.Client) (*gin.Engine, *billing.Feed, *entitlement.SessionManager) {
	gin.SetMode(gin.TestMode)
	feed := billing.NewFeed()
	sessions := entitlement.NewSessionManager(testEntitlementID, store, client, feed)
	h := NewBillingHandler(client, feed, sessions, store)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextUserIDKey, userID.Hex())
		c.Next()
	})
	router.GET("/billing/offerings", h.GetOfferings)
	router.POST("/billing/purchase", h.PurchaseCompleted)
	router.POST("/billing/restore", h.RestoreCompleted)
	router.GET("/entitlement", h.GetEntitlement)
	router.POST("/entitlement/refresh", h.RefreshEntitlement)
	return router, feed, sessions
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) entitlement.State {
	t.Helper()
	var state entitlement.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	return state
}

func activeRecord(userID primitive.ObjectID) *domain.EntitlementRecord {
	exp := time.Now().Add(30 * 24 * time.Hour)
	return &domain.EntitlementRecord{
		UserID:         userID,
		IsActive:       true,
		ProductID:      "gymrat_pro_monthly",
		ExpirationDate: &exp,
		UpdatedAt:      time.Now(),
	}
}

func TestGetEntitlementWithoutSessionReadsStore(t *testing.T) {
	userID := primitive.NewObjectID()
	store := newMockWebhookStore()
	store.records[userID] = activeRecord(userID)
	router, _, _ := billingTestEnv(userID, store, &mockBillingClient{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/entitlement", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeState(t, w).IsActive)
}

func TestGetEntitlementWithoutSessionOrRecordIsInactive(t *testing.T) {
	userID := primitive.NewObjectID()
	router, _, _ := billingTestEnv(userID, newMockWebhookStore(), &mockBillingClient{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/entitlement", nil))
	require.Equal(t, http.StatusOK, w.Code)
	state := decodeState(t, w)
	assert.False(t, state.IsActive)
	assert.False(t, state.Loading)
}

func TestGetEntitlementUsesLiveSession(t *testing.T) {
	userID := primitive.NewObjectID()
	store := newMockWebhookStore()
	store.records[userID] = activeRecord(userID)
	router, _, sessions := billingTestEnv(userID, store, &mockBillingClient{})

	sessions.Begin(context.Background(), userID)
	defer sessions.End(userID)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/entitlement", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeState(t, w).IsActive)
}

func TestPurchaseCompletedRefreshesSessionSynchronously(t *testing.T) {
	userID := primitive.NewObjectID()
	store := newMockWebhookStore()
	client := &mockBillingClient{
		customerInfo: &domain.CustomerInfo{
			AppUserID: userID.Hex(),
			Entitlements: domain.Entitlements{
				Active: map[string]domain.EntitlementGrant{testEntitlementID: {ProductID: "gymrat_pro_monthly"}},
			},
		},
	}
	router, _, sessions := billingTestEnv(userID, store, client)

	sessions.Begin(context.Background(), userID)
	defer sessions.End(userID)

	// Webhook landed before the app's purchase notification: the
	// authoritative record already exists.
	store.set(activeRecord(userID))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/billing/purchase", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeState(t, w).IsActive, "state must reflect the record before responding")
}

func TestPurchaseSyncFailureIsRetryable(t *testing.T) {
	userID := primitive.NewObjectID()
	client := &mockBillingClient{infoErr: billing.ErrProviderUnavailable}
	router, _, _ := billingTestEnv(userID, newMockWebhookStore(), client)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/billing/purchase", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestRefreshEntitlementPicksUpNewRecord(t *testing.T) {
	userID := primitive.NewObjectID()
	store := newMockWebhookStore()
	router, _, sessions := billingTestEnv(userID, store, &mockBillingClient{})

	sessions.Begin(context.Background(), userID)
	defer sessions.End(userID)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/entitlement", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.False(t, decodeState(t, w).IsActive)

	store.set(activeRecord(userID))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/entitlement/refresh", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeState(t, w).IsActive)
}

func TestGetOfferingsSurfacesProviderFailure(t *testing.T) {
	userID := primitive.NewObjectID()
	client := &mockBillingClient{offeringsErr: billing.ErrProviderUnavailable}
	router, _, _ := billingTestEnv(userID, newMockWebhookStore(), client)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/billing/offerings", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGetOfferings(t *testing.T) {
	userID := primitive.NewObjectID()
	client := &mockBillingClient{offerings: []domain.Offering{{Identifier: "default"}}}
	router, _, _ := billingTestEnv(userID, newMockWebhookStore(), client)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/billing/offerings", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Offerings []domain.Offering `json:"offerings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Offerings, 1)
	assert.Equal(t, "default", body.Offerings[0].Identifier)
}
