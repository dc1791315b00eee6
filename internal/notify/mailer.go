// AngelaMos | 2026
// mailer.go

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cvms-ng/cvms-backend/internal/config"
	"github.com/cvms-ng/cvms-backend/internal/core"
)

// Mailer delivers transactional email through the provider's JSON API.
type Mailer struct {
	client  *http.Client
	url     string
	apiKey  string
	from    recipient
	logger  *slog.Logger
	baseURL string
}

type recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailRequest struct {
	From     recipient   `json:"from"`
	To       []recipient `json:"to"`
	Subject  string      `json:"subject"`
	HTML     string      `json:"html,omitempty"`
	Text     string      `json:"text,omitempty"`
	Category string      `json:"category,omitempty"`
}

func NewMailer(cfg config.NotifyConfig, baseURL string, logger *slog.Logger) *Mailer {
	return &Mailer{
		client: &http.Client{Timeout: cfg.Timeout},
		url:    cfg.MailURL,
		apiKey: cfg.MailAPIKey,
		from: recipient{
			Email: cfg.MailFrom,
			Name:  cfg.MailName,
		},
		logger:  logger,
		baseURL: baseURL,
	}
}

func (m *Mailer) SendOTP(
	ctx context.Context,
	toEmail, toName, code string,
) error {
	text := fmt.Sprintf(
		"Hello %s,\n\nYour verification code is %s. "+
			"It expires in 10 minutes. Do not share it with anyone.\n",
		toName, code,
	)

	return m.send(ctx, mailRequest{
		From:     m.from,
		To:       []recipient{{Email: toEmail, Name: toName}},
		Subject:  "Your verification code",
		Text:     text,
		Category: "account_verification",
	})
}

func (m *Mailer) SendPasswordReset(
	ctx context.Context,
	toEmail, toName, token string,
) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", m.baseURL, token)

	text := fmt.Sprintf(
		"Hello %s,\n\nWe received a request to reset your password. "+
			"Use the link below to choose a new one:\n\n%s\n\n"+
			"The link expires in 1 hour. If you did not request a reset, "+
			"ignore this message.\n",
		toName, resetURL,
	)

	return m.send(ctx, mailRequest{
		From:     m.from,
		To:       []recipient{{Email: toEmail, Name: toName}},
		Subject:  "Password reset request",
		Text:     text,
		Category: "password_reset",
	})
}

func (m *Mailer) SendAccountLocked(
	ctx context.Context,
	toEmail, toName, token string,
) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", m.baseURL, token)

	text := fmt.Sprintf(
		"Hello %s,\n\nYour account has been locked after repeated failed "+
			"sign-in attempts. Reset your password to regain access:\n\n%s\n\n"+
			"The link expires in 1 hour.\n",
		toName, resetURL,
	)

	return m.send(ctx, mailRequest{
		From:     m.from,
		To:       []recipient{{Email: toEmail, Name: toName}},
		Subject:  "Account locked",
		Text:     text,
		Category: "account_locked",
	})
}

func (m *Mailer) SendNINVerified(
	ctx context.Context,
	toEmail, toName string,
) error {
	text := fmt.Sprintf(
		"Hello %s,\n\nYour National Identification Number has been verified "+
			"and linked to your account.\n",
		toName,
	)

	return m.send(ctx, mailRequest{
		From:     m.from,
		To:       []recipient{{Email: toEmail, Name: toName}},
		Subject:  "NIN verification",
		Text:     text,
		Category: "nin_verification",
	})
}

func (m *Mailer) SendCACReceived(
	ctx context.Context,
	toEmail, toName string,
) error {
	text := fmt.Sprintf(
		"Hello %s,\n\nWe received your CAC verification documents. "+
			"You will be notified once the review is complete.\n",
		toName,
	)

	return m.send(ctx, mailRequest{
		From:     m.from,
		To:       []recipient{{Email: toEmail, Name: toName}},
		Subject:  "CAC verification request",
		Text:     text,
		Category: "cac_verification",
	})
}

func (m *Mailer) SendCACDecision(
	ctx context.Context,
	toEmail, toName string,
	approved bool,
) error {
	outcome := "approved"
	if !approved {
		outcome = "rejected"
	}

	text := fmt.Sprintf(
		"Hello %s,\n\nYour CAC verification request has been %s.\n",
		toName, outcome,
	)

	return m.send(ctx, mailRequest{
		From:     m.from,
		To:       []recipient{{Email: toEmail, Name: toName}},
		Subject:  "CAC verification decision",
		Text:     text,
		Category: "cac_verification",
	})
}

func (m *Mailer) send(ctx context.Context, mail mailRequest) error {
	payload, err := json.Marshal(mail)
	if err != nil {
		return fmt.Errorf("marshal mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		m.url,
		bytes.NewReader(payload),
	)
	if err != nil {
		return fmt.Errorf("create mail request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.ErrorContext(ctx, "mail delivery failed",
			"category", mail.Category,
			"error", err,
		)
		return core.ExternalServiceError("mail", "delivery request failed")
	}
	defer resp.Body.Close() //nolint:errcheck // nothing useful to do on close failure

	if resp.StatusCode != http.StatusOK &&
		resp.StatusCode != http.StatusAccepted {
		m.logger.ErrorContext(ctx, "mail provider rejected request",
			"category", mail.Category,
			"status", resp.StatusCode,
		)
		return core.ExternalServiceError(
			"mail",
			fmt.Sprintf("provider returned status %d", resp.StatusCode),
		)
	}

	return nil
}
