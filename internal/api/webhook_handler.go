package api

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/caban7m/GymRat/internal/domain"
	"github.com/caban7m/GymRat/internal/repository"
)

// WebhookHandler normalizes billing lifecycle events from RevenueCat into
// the authoritative entitlement record. It is NOT behind the auth
// middleware; the provider calls it directly, and security is the shared
// bearer secret. Delivery is at-least-once, so every path must be
// idempotent.
type WebhookHandler struct {
	store  repository.EntitlementRepository
	secret string
}

// NewWebhookHandler creates a new WebhookHandler. An empty secret disables
// bearer verification (local development only).
func NewWebhookHandler(store repository.EntitlementRepository, secret string) *WebhookHandler {
	return &WebhookHandler{store: store, secret: secret}
}

// revenueCatEvent is the subset of the provider's webhook payload we act
// on. Timestamps arrive as Unix milliseconds.
type revenueCatEvent struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	AppUserID      string `json:"app_user_id"`
	ProductID      string `json:"product_id"`
	PurchasedAtMs  int64  `json:"purchased_at_ms"`
	ExpirationAtMs int64  `json:"expiration_at_ms"`
}

type webhookRequest struct {
	Event revenueCatEvent `json:"event"`
}

// Event types that grant entitlement. CANCELLATION is deliberately in the
// grant set: a cancelled subscription keeps access through the paid
// period, so its activity is computed from the expiration timestamp.
var grantEventTypes = map[string]bool{
	"INITIAL_PURCHASE":      true,
	"RENEWAL":               true,
	"NON_RENEWING_PURCHASE": true,
	"UNCANCELLATION":        true,
	"CANCELLATION":          true,
}

// Event types that revoke entitlement. SUBSCRIBER_ALIAS is absent on
// purpose: it is an identity event with no entitlement meaning, so it
// falls through to the ignored path.
var revokeEventTypes = map[string]bool{
	"EXPIRATION":    true,
	"BILLING_ISSUE": true,
}

// Handle processes one billing event per invocation. Registered with
// router.Any so the method check is ours: anything but POST gets 405.
// Unrecognized event types return 200 without touching the store, so the
// provider does not retry them forever.
func (h *WebhookHandler) Handle(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		abortWithError(c, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if h.secret != "" {
		auth := c.GetHeader("Authorization")
		if auth != "Bearer "+h.secret {
			log.Printf("WARN: billing webhook rejected: bad bearer credential")
			abortWithError(c, http.StatusUnauthorized, "Invalid webhook credential")
			return
		}
	}

	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Unparseable event payload")
		return
	}
	event := req.Event
	if strings.TrimSpace(event.AppUserID) == "" {
		abortWithError(c, http.StatusBadRequest, "Missing app_user_id")
		return
	}
	userID, err := primitive.ObjectIDFromHex(event.AppUserID)
	if err != nil {
		// The app identifies billing sessions by the user's object ID; an
		// app_user_id that isn't one can never match a user here.
		abortWithError(c, http.StatusBadRequest, "Invalid app_user_id")
		return
	}

	var isActive bool
	switch {
	case event.Type == "CANCELLATION":
		// Soft cancellation: access persists through the paid period.
		isActive = event.ExpirationAtMs > 0 &&
			time.UnixMilli(event.ExpirationAtMs).After(time.Now())
	case grantEventTypes[event.Type]:
		isActive = true
	case revokeEventTypes[event.Type]:
		isActive = false
	default:
		log.Printf("INFO: billing webhook ignoring event type %q for user %s", event.Type, event.AppUserID)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	record := domain.EntitlementRecord{
		UserID:        userID,
		IsActive:      isActive,
		ProductID:     event.ProductID,
		SourceEventID: event.ID,
		SourceEvent:   event.Type,
		UpdatedAt:     time.Now().UTC(),
	}
	if event.PurchasedAtMs > 0 {
		t := time.UnixMilli(event.PurchasedAtMs).UTC()
		record.PurchaseDate = &t
	}
	if event.ExpirationAtMs > 0 {
		t := time.UnixMilli(event.ExpirationAtMs).UTC()
		record.ExpirationDate = &t
	}

	// Last write wins: the provider delivers per-user events in send
	// order, and a redelivery computes the same fields.
	if err := h.store.Upsert(c.Request.Context(), &record); err != nil {
		log.Printf("ERROR: failed to upsert entitlement for user %s (event %s): %v", event.AppUserID, event.ID, err)
		// 500 makes the provider redeliver.
		abortWithError(c, http.StatusInternalServerError, "Failed to record entitlement")
		return
	}

	log.Printf("INFO: billing webhook applied %s for user %s (active=%t)", event.Type, event.AppUserID, isActive)
	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}
