package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/caban7m/GymRat/internal/config"
	"github.com/caban7m/GymRat/internal/domain"
)

const defaultRequestTimeout = 10 * time.Second

// revenueCatClient implements Client against the RevenueCat v1 REST API.
type revenueCatClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewRevenueCatClient creates a billing client from config. The API key is
// the secret server key, not the public SDK key.
func NewRevenueCatClient(cfg config.BillingConfig) Client {
	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = "https://api.revenuecat.com"
	}
	return &revenueCatClient{
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
	}
}

// --- Wire Types ---
// Shapes follow the RevenueCat REST API subscriber object.

type rcSubscriberResponse struct {
	Subscriber struct {
		Entitlements map[string]rcEntitlement `json:"entitlements"`
	} `json:"subscriber"`
}

type rcEntitlement struct {
	ProductIdentifier string     `json:"product_identifier"`
	ExpiresDate       *time.Time `json:"expires_date"`
	PurchaseDate      *time.Time `json:"purchase_date"`
}

type rcOfferingsResponse struct {
	CurrentOfferingID string `json:"current_offering_id"`
	Offerings         []struct {
		Identifier string `json:"identifier"`
		Packages   []struct {
			Identifier        string `json:"identifier"`
			PlatformProductID string `json:"platform_product_identifier"`
		} `json:"packages"`
	} `json:"offerings"`
}

// LogIn ensures the subscriber exists provider-side. GET on a subscriber
// creates it if missing, which is exactly the identify semantics we need.
func (c *revenueCatClient) LogIn(ctx context.Context, appUserID string) error {
	_, err := c.fetchSubscriber(ctx, appUserID)
	return err
}

// LogOut clears the session identity. The REST API keeps no session
// state, so there is nothing to tear down provider-side.
func (c *revenueCatClient) LogOut(ctx context.Context, appUserID string) error {
	return nil
}

// GetCustomerInfo returns the provider's current view of the subscriber.
func (c *revenueCatClient) GetCustomerInfo(ctx context.Context, appUserID string) (*domain.CustomerInfo, error) {
	return c.fetchSubscriber(ctx, appUserID)
}

// RestorePurchases re-reads the subscriber. Receipt replay happens on the
// device; server-side a restore is a fresh fetch of the resulting state.
func (c *revenueCatClient) RestorePurchases(ctx context.Context, appUserID string) (*domain.CustomerInfo, error) {
	return c.fetchSubscriber(ctx, appUserID)
}

// GetOfferings lists the paywall offerings configured for the project.
func (c *revenueCatClient) GetOfferings(ctx context.Context, appUserID string) ([]domain.Offering, error) {
	endpoint := fmt.Sprintf("%s/v1/subscribers/%s/offerings", c.baseURL, url.PathEscape(appUserID))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var parsed rcOfferingsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode offerings response: %w", err)
	}

	offerings := make([]domain.Offering, 0, len(parsed.Offerings))
	for _, o := range parsed.Offerings {
		offering := domain.Offering{Identifier: o.Identifier}
		for _, p := range o.Packages {
			offering.Packages = append(offering.Packages, domain.Package{
				Identifier:  p.Identifier,
				PackageType: packageTypeFromIdentifier(p.Identifier),
				ProductID:   p.PlatformProductID,
			})
		}
		offerings = append(offerings, offering)
	}
	return offerings, nil
}

func (c *revenueCatClient) fetchSubscriber(ctx context.Context, appUserID string) (*domain.CustomerInfo, error) {
	endpoint := fmt.Sprintf("%s/v1/subscribers/%s", c.baseURL, url.PathEscape(appUserID))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var parsed rcSubscriberResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode subscriber response: %w", err)
	}

	info := &domain.CustomerInfo{
		AppUserID:    appUserID,
		Entitlements: domain.Entitlements{Active: make(map[string]domain.EntitlementGrant)},
	}
	now := time.Now()
	for id, ent := range parsed.Subscriber.Entitlements {
		if ent.ExpiresDate != nil && !ent.ExpiresDate.After(now) {
			continue
		}
		info.Entitlements.Active[id] = domain.EntitlementGrant{
			ProductID:      ent.ProductIdentifier,
			ExpirationDate: ent.ExpiresDate,
		}
	}
	return info, nil
}

func (c *revenueCatClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("ERROR: RevenueCat request failed: %v", err)
		return nil, ErrProviderUnavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrSubscriberNotFound
	case resp.StatusCode >= 400:
		log.Printf("ERROR: RevenueCat returned status %d for %s", resp.StatusCode, endpoint)
		return nil, fmt.Errorf("revenuecat: unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func packageTypeFromIdentifier(identifier string) string {
	switch identifier {
	case "$rc_annual":
		return "ANNUAL"
	case "$rc_monthly":
		return "MONTHLY"
	case "$rc_weekly":
		return "WEEKLY"
	default:
		return "CUSTOM"
	}
}
