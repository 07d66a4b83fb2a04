package repository

import "context"

// 通知の送信先。失敗しても呼び出し側の処理は止めない。
type Notifier interface {
	Publish(ctx context.Context, topic, subject, body string) error
}
