package mail

import (
	"context"

	"github.com/Miraines/gadgets-store/auth-service/internal/domain/notification"
	applog "github.com/Miraines/gadgets-store/auth-service/internal/infra/log"
	"go.uber.org/zap"
)

// LogSender stands in for SMTP when no relay is configured.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg notification.Message) error {
	s.log.Info("mail not sent: no SMTP relay configured",
		applog.Email("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
