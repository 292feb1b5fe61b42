package email

import (
	"context"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/jwalitptl/consultation-api/pkg/logger"
)

const sendGridEndpoint = "/v3/mail/send"

type SendGridConfig struct {
	APIKey   string
	From     string
	FromName string
	Timeout  time.Duration
	// Host overrides the API host; empty means api.sendgrid.com.
	Host string
}

type SendGridSender struct {
	cfg    SendGridConfig
	logger *logger.Logger
}

func NewSendGridSender(cfg SendGridConfig, log *logger.Logger) *SendGridSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SendGridSender{cfg: cfg, logger: log.With("sendgrid")}
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	from := mail.NewEmail(s.cfg.FromName, s.cfg.From)
	to := mail.NewEmail(msg.ToName, msg.To)
	message := mail.NewSingleEmailPlainText(from, msg.Subject, to, msg.Body)

	request := sendgrid.GetRequest(s.cfg.APIKey, sendGridEndpoint, s.cfg.Host)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(message)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("sendgrid send to %s: %w", msg.To, err)
	}
	if response.StatusCode >= 400 {
		s.logger.Warn("SendGrid rejected email", "status", response.StatusCode, "body", response.Body, "to", msg.To)
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}

	s.logger.Debug("Email sent", "to", msg.To, "subject", msg.Subject, "status", response.StatusCode)
	return nil
}
