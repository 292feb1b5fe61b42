package email

import (
	"context"

	"github.com/jwalitptl/consultation-api/pkg/logger"
)

// LogSender logs messages instead of sending them.
type LogSender struct {
	logger *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{logger: log.With("email")}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("Email not sent (log provider)", "to", msg.To, "subject", msg.Subject)
	return nil
}
