// Package notify は低在庫通知の送信先。
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gauravbalpande/serverless-inventory-management/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgxpool.Pool が満たす
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type payload struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// PGNotifier は pg_notify で topic チャネルに送る。
// 購読側（LISTEN）がメールなどに転送する。
type PGNotifier struct {
	db execer
}

var _ repository.Notifier = (*PGNotifier)(nil)

func NewPGNotifier(db execer) *PGNotifier {
	return &PGNotifier{db: db}
}

func (n *PGNotifier) Publish(ctx context.Context, topic, subject, body string) error {
	if topic == "" {
		return errors.New("notify topic is empty")
	}
	b, err := json.Marshal(payload{Subject: subject, Body: body})
	if err != nil {
		return err
	}
	if _, err := n.db.Exec(ctx, "SELECT pg_notify($1, $2)", topic, string(b)); err != nil {
		return fmt.Errorf("pg_notify %s: %w", topic, err)
	}
	return nil
}
