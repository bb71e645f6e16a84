package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// User is the authenticated identity resolved from a bearer token.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Verifier resolves a bearer token to a user identity.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (*User, error)
}

// HTTPVerifier implements Verifier against the hosted auth service's
// GET /auth/v1/user endpoint.
type HTTPVerifier struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ Verifier = (*HTTPVerifier)(nil)

// NewHTTPVerifier creates an HTTP-based token verifier.
func NewHTTPVerifier(baseURL, serviceKey string) *HTTPVerifier {
	return &HTTPVerifier{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: util.GetLogger(),
	}
}

// VerifyToken validates the token with the auth service and returns the user
// it belongs to. Any non-200 answer means the token is unusable.
func (v *HTTPVerifier) VerifyToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, fmt.Errorf("missing bearer token")
	}

	url := fmt.Sprintf("%s/auth/v1/user", v.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", v.serviceKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		v.logger.Error("Auth verification request failed", zap.Error(err))
		return nil, fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth service returned status %d", resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode auth response: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("auth response missing user id")
	}

	return &user, nil
}
