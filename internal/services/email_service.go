package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/samber/oops"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/pkg/logger"
)

// sesAPI is the slice of the SES client the mailer uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESResetMailer delivers reset tickets through AWS SES.
type SESResetMailer struct {
	client      sesAPI
	fromAddress string
	resetURL    string
	logger      *slog.Logger
}

// NewSESResetMailer loads the default AWS config for region and returns a mailer.
func NewSESResetMailer(ctx context.Context, region, fromAddress, resetURL string, logger *slog.Logger) (*SESResetMailer, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newSESResetMailer(ses.NewFromConfig(cfg), fromAddress, resetURL, logger), nil
}

func newSESResetMailer(client sesAPI, fromAddress, resetURL string, logger *slog.Logger) *SESResetMailer {
	return &SESResetMailer{
		client:      client,
		fromAddress: fromAddress,
		resetURL:    resetURL,
		logger:      logger,
	}
}

// resetLink builds the link carrying the ticket id and token.
func (m *SESResetMailer) resetLink(ticket *models.ResetTicket) string {
	q := url.Values{}
	q.Set("id", ticket.ID)
	q.Set("token", ticket.Token)
	return m.resetURL + "?" + q.Encode()
}

// SendPasswordReset mails ticket to its owner.
func (m *SESResetMailer) SendPasswordReset(ctx context.Context, ticket *models.ResetTicket, expiresAt time.Time) error {
	link := m.resetLink(ticket)
	expires := expiresAt.UTC().Format(time.RFC1123)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <h1>Reset your password</h1>
    <p>Hello %s,</p>
    <p>A password reset was requested for your account. Use the link below to choose a new password:</p>
    <p><a href="%s">Reset password</a></p>
    <p>Request id: <code>%s</code><br>Token: <code>%s</code></p>
    <p>This link expires at %s.</p>
    <p>If you did not request a reset, you can ignore this email. Your password will not change.</p>
</body>
</html>
`, ticket.Name, link, ticket.ID, ticket.Token, expires)

	textBody := fmt.Sprintf(`Reset your password

Hello %s,

A password reset was requested for your account. Use the link below to choose a new password:

%s

Request id: %s
Token: %s

This link expires at %s.

If you did not request a reset, you can ignore this email. Your password will not change.
`, ticket.Name, link, ticket.ID, ticket.Token, expires)

	input := &ses.SendEmailInput{
		Source: aws.String(m.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{ticket.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Reset your password"),
			},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody)},
				Text: &types.Content{Data: aws.String(textBody)},
			},
		},
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return oops.Code(models.CodeMailDelivery).
			With("operation", "send_password_reset").
			With("email", logger.MaskEmail(ticket.Email)).
			Wrap(err)
	}

	m.logger.Info("password reset email sent",
		slog.String("email", logger.MaskEmail(ticket.Email)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
