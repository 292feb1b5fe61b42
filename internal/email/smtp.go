package email

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/consultation-api/pkg/circuitbreaker"
	"github.com/jwalitptl/consultation-api/pkg/logger"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Timeout  time.Duration
}

type SMTPSender struct {
	dialer  *gomail.Dialer
	from    string
	name    string
	timeout time.Duration
	cb      *circuitbreaker.CircuitBreaker
	logger  *logger.Logger
}

func NewSMTPSender(cfg SMTPConfig, log *logger.Logger) *SMTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	log = log.With("smtp")

	return &SMTPSender{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		name:    cfg.FromName,
		timeout: cfg.Timeout,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "smtp",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
			OnStateChange: func(name string, from, to circuitbreaker.State) {
				log.Warn("Circuit breaker state changed", "breaker", name, "from", string(from), "to", string(to))
			},
		}),
		logger: log,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.name)
	if msg.ToName != "" {
		m.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		m.SetHeader("To", msg.To)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.cb.Execute(func() error {
		// gomail has no context support; give up waiting once ctx expires.
		done := make(chan error, 1)
		go func() { done <- s.dialer.DialAndSend(m) }()

		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}

	s.logger.Debug("Email sent", "to", msg.To, "subject", msg.Subject)
	return nil
}
