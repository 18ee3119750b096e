package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/caban7m/GymRat/internal/billing"
	"github.com/caban7m/GymRat/internal/domain"
	"github.com/caban7m/GymRat/internal/entitlement"
	"github.com/caban7m/GymRat/internal/repository"
)

// BillingHandler serves the paywall endpoints and the session-local
// entitlement view.
type BillingHandler struct {
	client   billing.Client
	feed     *billing.Feed
	sessions *entitlement.SessionManager
	store    repository.EntitlementRepository
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(
	client billing.Client,
	feed *billing.Feed,
	sessions *entitlement.SessionManager,
	store repository.EntitlementRepository,
) *BillingHandler {
	return &BillingHandler{client: client, feed: feed, sessions: sessions, store: store}
}

// GetOfferings lists the paywall offerings for the caller.
func (h *BillingHandler) GetOfferings(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	offerings, err := h.client.GetOfferings(c.Request.Context(), userID.Hex())
	if err != nil {
		abortWithError(c, http.StatusBadGateway, "Could not load offerings, please try again")
		return
	}
	c.JSON(http.StatusOK, gin.H{"offerings": offerings})
}

// PurchaseCompleted is called by the app right after an on-device
// purchase succeeds. It publishes the optimistic grant signal and then
// refreshes the session synchronously so the caller never navigates into
// a locked screen after paying.
func (h *BillingHandler) PurchaseCompleted(c *gin.Context) {
	h.syncAfterBillingEvent(c, false)
}

// RestoreCompleted mirrors PurchaseCompleted for the restore flow.
func (h *BillingHandler) RestoreCompleted(c *gin.Context) {
	h.syncAfterBillingEvent(c, true)
}

func (h *BillingHandler) syncAfterBillingEvent(c *gin.Context, restore bool) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	var info *domain.CustomerInfo
	if restore {
		info, err = h.client.RestorePurchases(c.Request.Context(), userID.Hex())
	} else {
		info, err = h.client.GetCustomerInfo(c.Request.Context(), userID.Hex())
	}
	if err != nil {
		// The purchase itself already happened on-device and the webhook
		// will still land. Report the sync failure so the app can retry.
		log.Printf("WARN: billing sync failed for user %s: %v", userID.Hex(), err)
		abortWithError(c, http.StatusBadGateway, "Could not verify purchase, pull to refresh in a moment")
		return
	}

	// Optimistic signal for the session's reconciler.
	h.feed.Publish(*info)

	// Intentional synchronous point: re-read the authoritative record
	// before responding.
	if rec := h.sessions.Get(userID); rec != nil {
		rec.Refresh(c.Request.Context())
		c.JSON(http.StatusOK, rec.Snapshot())
		return
	}
	c.JSON(http.StatusOK, h.stateFromStore(c, userID))
}

// GetEntitlement returns the session-local entitlement view the gate
// consumes.
func (h *BillingHandler) GetEntitlement(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	if rec := h.sessions.Get(userID); rec != nil {
		c.JSON(http.StatusOK, rec.Snapshot())
		return
	}
	// No live session (e.g. server restarted since login): answer from the
	// stored record directly.
	c.JSON(http.StatusOK, h.stateFromStore(c, userID))
}

// RefreshEntitlement re-runs the authoritative fetch for the session.
func (h *BillingHandler) RefreshEntitlement(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	if rec := h.sessions.Get(userID); rec != nil {
		rec.Refresh(c.Request.Context())
		c.JSON(http.StatusOK, rec.Snapshot())
		return
	}
	c.JSON(http.StatusOK, h.stateFromStore(c, userID))
}

func (h *BillingHandler) stateFromStore(c *gin.Context, userID primitive.ObjectID) entitlement.State {
	rec, err := h.store.GetByUserID(c.Request.Context(), userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Printf("WARN: entitlement lookup failed for user %s: %v", userID.Hex(), err)
		return entitlement.State{}
	}
	return entitlement.State{IsActive: rec.Entitled(time.Now())}
}
