// AngelaMos | 2026
// client.go

package verification

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

// NINClient looks up National Identification Numbers against the
// identity provider's KYC API.
type NINClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

func NewNINClient(cfg config.VerifyConfig, logger *slog.Logger) *NINClient {
	return &NINClient{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.NINBaseURL,
		apiKey:  cfg.NINAPIKey,
		logger:  logger,
	}
}

type ninLookupResponse struct {
	Entity NINIdentity `json:"entity"`
}

func (c *NINClient) Lookup(
	ctx context.Context,
	nin string,
) (*NINIdentity, error) {
	endpoint := fmt.Sprintf(
		"%s/api/v1/kyc/nin?nin=%s",
		c.baseURL,
		url.QueryEscape(nin),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create nin lookup request: %w", err)
	}

	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "nin lookup failed", "error", err)
		return nil, core.ExternalServiceError("nin", "lookup request failed")
	}
	defer resp.Body.Close() //nolint:errcheck // nothing useful to do on close failure

	switch {
	case resp.StatusCode == http.StatusNotFound ||
		resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("nin lookup: %w", core.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		c.logger.ErrorContext(ctx, "nin provider rejected request",
			"status", resp.StatusCode,
		)
		return nil, core.ExternalServiceError(
			"nin",
			fmt.Sprintf("provider returned status %d", resp.StatusCode),
		)
	}

	var body ninLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, core.ExternalServiceError("nin", "malformed provider response")
	}

	if body.Entity.FirstName == "" && body.Entity.LastName == "" {
		return nil, fmt.Errorf("nin lookup: %w", core.ErrNotFound)
	}

	return &body.Entity, nil
}
