package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"checkout-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrSecretMissing is returned when the gateway client has no secret key
// configured. Verification must never be attempted unsigned.
var ErrSecretMissing = fmt.Errorf("paystack secret key is not configured")

var minorUnitsPerMajor = decimal.NewFromInt(100)

// VerifyResult is the gateway's answer for one transaction reference.
// Amount is already converted from minor units to major currency units.
type VerifyResult struct {
	Status    string
	Reference string
	Amount    decimal.Decimal
	Raw       json.RawMessage
}

// Success reports whether the gateway settled the transaction.
func (r *VerifyResult) Success() bool {
	return r != nil && r.Status == "success"
}

// Client verifies transactions against the Paystack API.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Paystack client. An empty secret key is tolerated here
// and rejected per call, so a misconfigured deployment still boots and
// surfaces the problem as a normal error response.
func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: util.GetLogger(),
	}
}

type verifyEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type verifyData struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
}

// VerifyTransaction calls GET /transaction/verify/{reference} and returns the
// settled status, canonical reference and major-unit amount.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	if c.secretKey == "" {
		return nil, ErrSecretMissing
	}

	start := time.Now()
	defer func() {
		util.GatewayVerifyLatency.Observe(time.Since(start).Seconds())
	}()

	url := fmt.Sprintf("%s/transaction/verify/%s", c.baseURL, reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Gateway verify request failed",
			zap.String("reference", reference),
			zap.Error(err))
		return nil, fmt.Errorf("gateway verify request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Gateway verify returned non-200",
			zap.String("reference", reference),
			zap.Int("status_code", resp.StatusCode))
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var envelope verifyEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if !envelope.Status {
		return nil, fmt.Errorf("gateway rejected verification: %s", envelope.Message)
	}

	var data verifyData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode gateway transaction data: %w", err)
	}

	result := &VerifyResult{
		Status:    data.Status,
		Reference: data.Reference,
		Amount:    decimal.NewFromInt(data.Amount).Div(minorUnitsPerMajor),
		Raw:       envelope.Data,
	}

	c.logger.Info("Gateway verification completed",
		zap.String("reference", result.Reference),
		zap.String("status", result.Status),
		zap.String("amount", result.Amount.String()))

	return result, nil
}
