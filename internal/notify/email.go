package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	To        string
	// Host overrides https://api.sendgrid.com.
	Host string
}

// SendGridNotifier mails the booking through the SendGrid v3 API.
type SendGridNotifier struct {
	client  *sendgrid.Client
	from    *mail.Email
	to      *mail.Email
	subject string
}

// NewSendGridNotifier returns nil unless both an API key and a recipient
// are configured.
func NewSendGridNotifier(cfg SendGridConfig) *SendGridNotifier {
	if cfg.APIKey == "" || cfg.To == "" {
		return nil
	}
	if cfg.FromName == "" {
		cfg.FromName = "Randevu"
	}
	if cfg.FromEmail == "" {
		cfg.FromEmail = cfg.To
	}
	client := sendgrid.NewSendClient(cfg.APIKey)
	if cfg.Host != "" {
		client.BaseURL = cfg.Host + "/v3/mail/send"
	}
	return &SendGridNotifier{
		client:  client,
		from:    mail.NewEmail(cfg.FromName, cfg.FromEmail),
		to:      mail.NewEmail("", cfg.To),
		subject: "Randevu alındı",
	}
}

func (s *SendGridNotifier) Notify(ctx context.Context, b Booking) error {
	text := b.Text()
	message := mail.NewSingleEmail(s.from, s.subject, s.to, text, "<p>"+html.EscapeString(text)+"</p>")

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid: send failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
