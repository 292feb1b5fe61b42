// Package email delivers plain-text messages through a pluggable backend.
package email

import (
	"context"
	"fmt"

	"github.com/jwalitptl/consultation-api/internal/config"
	"github.com/jwalitptl/consultation-api/pkg/logger"
	"github.com/jwalitptl/consultation-api/pkg/messaging"
)

// Message is a single plain-text email.
type Message struct {
	To      string `json:"to"`
	ToName  string `json:"to_name,omitempty"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender is implemented by every delivery backend.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewBackend builds the sender that actually talks to a mail provider.
func NewBackend(cfg config.EmailConfig, log *logger.Logger) (Sender, error) {
	switch cfg.Provider {
	case "smtp":
		return NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.From,
			FromName: cfg.FromName,
			Timeout:  cfg.Timeout,
		}, log), nil
	case "sendgrid":
		return NewSendGridSender(SendGridConfig{
			APIKey:   cfg.SendGrid.APIKey,
			From:     cfg.From,
			FromName: cfg.FromName,
			Timeout:  cfg.Timeout,
		}, log), nil
	case "log", "":
		return NewLogSender(log), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

// New returns the sender used by request paths: the backend itself for
// direct delivery, or a queue publisher when delivery is queued.
func New(cfg config.EmailConfig, broker messaging.Broker, log *logger.Logger) (Sender, error) {
	if cfg.Delivery == "queued" {
		if broker == nil {
			return nil, fmt.Errorf("queued email delivery requires a message broker")
		}
		return NewQueuedSender(broker), nil
	}
	return NewBackend(cfg, log)
}
