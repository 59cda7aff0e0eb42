package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client asks the billing service whether an owner can be charged.
// Email-enabled registrations are a paid add-on; nothing billable is
// provisioned without a payment method on file.
type Client struct {
	baseURL  string
	apiToken string
	http     *http.Client
}

// NewClient creates a billing client
func NewClient(baseURL, apiToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		apiToken: apiToken,
		http:     &http.Client{Timeout: timeout},
	}
}

type paymentMethodResponse struct {
	HasPaymentMethod bool   `json:"has_payment_method"`
	CustomerID       string `json:"customer_id"`
}

// HasValidPaymentMethod reports whether the owner has a chargeable payment
// method on file.
func (c *Client) HasValidPaymentMethod(ctx context.Context, ownerID int) (bool, error) {
	url := fmt.Sprintf("%s/v1/owners/%d/payment-method", c.baseURL, ownerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build billing request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("billing service unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// No billing profile yet means no payment method
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("billing service returned status %d", resp.StatusCode)
	}

	var body paymentMethodResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode billing response: %w", err)
	}
	return body.HasPaymentMethod, nil
}
