package domain

import "time"

// CustomerInfo is the billing provider's view of a subscriber, as
// reported by the SDK boundary after purchase, restore or an async
// customer-info update.
type CustomerInfo struct {
	AppUserID    string       `json:"appUserId"`
	Entitlements Entitlements `json:"entitlements"`
}

// Entitlements holds the currently active entitlement grants keyed by
// entitlement identifier.
type Entitlements struct {
	Active map[string]EntitlementGrant `json:"active"`
}

// EntitlementGrant is one active grant inside CustomerInfo.
type EntitlementGrant struct {
	ProductID      string     `json:"productId"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`
}

// HasEntitlement reports whether the provider considers the given
// entitlement active for this customer.
func (c *CustomerInfo) HasEntitlement(entitlementID string) bool {
	if c == nil {
		return false
	}
	_, ok := c.Entitlements.Active[entitlementID]
	return ok
}

// Offering is a purchasable group of packages shown on the paywall.
type Offering struct {
	Identifier string    `json:"identifier"`
	Packages   []Package `json:"packages"`
}

// Package is a single purchasable subscription option.
type Package struct {
	Identifier  string  `json:"identifier"`
	PackageType string  `json:"packageType"` // ANNUAL, MONTHLY, WEEKLY
	ProductID   string  `json:"productId"`
	Price       float64 `json:"price"`
	PriceString string  `json:"priceString"`
}
