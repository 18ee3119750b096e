package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EntitlementRecord is the server-verified entitlement truth for one user.
// It is written only by the billing webhook handler (single writer) and
// read by every session's reconciler. Keyed by userId, latest billing
// event always overwrites.
type EntitlementRecord struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID `bson:"userId" json:"userId"` // unique
	IsActive       bool               `bson:"isActive" json:"isActive"`
	ProductID      string             `bson:"productId,omitempty" json:"productId,omitempty"`
	PurchaseDate   *time.Time         `bson:"purchaseDate,omitempty" json:"purchaseDate,omitempty"`
	ExpirationDate *time.Time         `bson:"expirationDate,omitempty" json:"expirationDate,omitempty"`
	SourceEventID  string             `bson:"sourceEventId,omitempty" json:"sourceEventId,omitempty"`
	SourceEvent    string             `bson:"sourceEventType,omitempty" json:"sourceEventType,omitempty"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Entitled reports whether the record grants access at the given instant.
// IsActive alone is not enough: a record can still say active after its
// paid period ran out (e.g., the EXPIRATION event never arrived), so the
// expiration date is checked independently.
func (r *EntitlementRecord) Entitled(now time.Time) bool {
	if r == nil || !r.IsActive {
		return false
	}
	if r.ExpirationDate == nil {
		return true
	}
	return r.ExpirationDate.After(now)
}
