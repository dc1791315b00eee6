// AngelaMos | 2026
// client.go

package vin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/cvms-ng/cvms-backend/internal/config"
	"github.com/cvms-ng/cvms-backend/internal/core"
)

// ExternalStatus is the customs authority's answer for one VIN.
type ExternalStatus struct {
	VIN           string `json:"vin"`
	PaymentStatus string `json:"payment_status"`
}

// StatusClient queries the customs authority's VIN status API.
type StatusClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

func NewStatusClient(cfg config.VinConfig, logger *slog.Logger) *StatusClient {
	return &StatusClient{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.StatusBaseURL,
		apiKey:  cfg.StatusAPIKey,
		logger:  logger,
	}
}

func (c *StatusClient) Lookup(
	ctx context.Context,
	vin string,
) (*ExternalStatus, error) {
	endpoint := fmt.Sprintf(
		"%s/v1/status?vin=%s",
		c.baseURL,
		url.QueryEscape(vin),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create vin status request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "vin status lookup failed",
			"vin", vin,
			"error", err,
		)
		return nil, core.ExternalServiceError("vin_status", "lookup request failed")
	}
	defer resp.Body.Close() //nolint:errcheck // nothing useful to do on close failure

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("vin status: %w", core.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		c.logger.ErrorContext(ctx, "vin status provider rejected request",
			"vin", vin,
			"status", resp.StatusCode,
		)
		return nil, core.ExternalServiceError(
			"vin_status",
			fmt.Sprintf("provider returned status %d", resp.StatusCode),
		)
	}

	var body ExternalStatus
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, core.ExternalServiceError(
			"vin_status",
			"malformed provider response",
		)
	}

	return &body, nil
}
