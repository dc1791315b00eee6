// AngelaMos | 2026
// sms.go

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/cvms-ng/cvms-backend/internal/config"
	"github.com/cvms-ng/cvms-backend/internal/core"
)

// SMSSender delivers verification codes over the gateway's generic channel.
type SMSSender struct {
	client *http.Client
	url    string
	apiKey string
	sender string
	logger *slog.Logger
}

type smsRequest struct {
	APIKey      string `json:"api_key"`
	MessageType string `json:"message_type"`
	To          string `json:"to"`
	From        string `json:"from"`
	Channel     string `json:"channel"`
	MessageText string `json:"message_text"`
}

type smsResponse struct {
	MessageID string `json:"message_id"`
	Message   string `json:"message"`
}

func NewSMSSender(cfg config.NotifyConfig, logger *slog.Logger) *SMSSender {
	return &SMSSender{
		client: &http.Client{Timeout: cfg.Timeout},
		url:    cfg.SMSURL,
		apiKey: cfg.SMSAPIKey,
		sender: cfg.SMSSender,
		logger: logger,
	}
}

func (s *SMSSender) SendOTP(
	ctx context.Context,
	phoneNumber, code string,
) error {
	if phoneNumber == "" {
		return core.ValidationError("recipient number is required")
	}

	body := smsRequest{
		APIKey:      s.apiKey,
		MessageType: "ALPHANUMERIC",
		To:          phoneNumber,
		From:        s.sender,
		Channel:     "generic",
		MessageText: fmt.Sprintf(
			"Your verification code is %s. Do not share it with anyone.",
			code,
		),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.url,
		bytes.NewReader(payload),
	)
	if err != nil {
		return fmt.Errorf("create sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.ErrorContext(ctx, "sms delivery failed", "error", err)
		return core.ExternalServiceError("sms", "delivery request failed")
	}
	defer resp.Body.Close() //nolint:errcheck // nothing useful to do on close failure

	if resp.StatusCode != http.StatusOK {
		s.logger.ErrorContext(ctx, "sms gateway rejected request",
			"status", resp.StatusCode,
		)
		return core.ExternalServiceError(
			"sms",
			fmt.Sprintf("gateway returned status %d", resp.StatusCode),
		)
	}

	var parsed smsResponse
	if err := json.NewDecoder(
		io.LimitReader(resp.Body, 1<<16),
	).Decode(&parsed); err != nil {
		return core.ExternalServiceError("sms", "unreadable gateway response")
	}

	if parsed.MessageID == "" {
		s.logger.WarnContext(ctx, "sms gateway reported failure",
			"message", parsed.Message,
		)
		return core.ExternalServiceError("sms", "gateway did not accept message")
	}

	return nil
}
