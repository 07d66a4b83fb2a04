package notify

import (
	"context"

	"github.com/gauravbalpande/serverless-inventory-management/internal/repository"

	"go.uber.org/zap"
)

// LogNotifier は送らずにログへ出すだけ（topic 未設定時）
type LogNotifier struct {
	log *zap.Logger
}

var _ repository.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Publish(ctx context.Context, topic, subject, body string) error {
	n.log.Info("low-stock alert",
		zap.String("topic", topic),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
