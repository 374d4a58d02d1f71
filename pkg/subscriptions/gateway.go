package subscriptions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Gateway verifies payments with the payment provider.
type Gateway interface {
	VerifyByReference(ctx context.Context, txRef string) (*GatewayTransaction, error)
}

// GatewayTransaction is the provider's view of a payment.
type GatewayTransaction struct {
	Status string `json:"status"`
	TxRef  string `json:"tx_ref"`
	Amount float64 `json:"amount"`
}

const flutterwaveBaseURL = "https://api.flutterwave.com/v3"

// FlutterwaveGateway verifies transactions against the Flutterwave API.
type FlutterwaveGateway struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

// NewFlutterwaveGateway creates a Flutterwave client. baseURL may be empty to
// use the production API.
func NewFlutterwaveGateway(secretKey, baseURL string) *FlutterwaveGateway {
	if baseURL == "" {
		baseURL = flutterwaveBaseURL
	}
	return &FlutterwaveGateway{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// VerifyByReference looks up a transaction by its reference. A non-success
// envelope status is returned as an error; the caller inspects the
// transaction status itself.
func (g *FlutterwaveGateway) VerifyByReference(ctx context.Context, txRef string) (*GatewayTransaction, error) {
	endpoint := fmt.Sprintf("%s/transactions/verify_by_reference?tx_ref=%s", g.baseURL, url.QueryEscape(txRef))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Status  string             `json:"status"`
		Message string             `json:"message"`
		Data    GatewayTransaction `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode verify response: %w", err)
	}
	if envelope.Status != "success" {
		return nil, fmt.Errorf("gateway verification failed: %s", envelope.Message)
	}
	return &envelope.Data, nil
}
